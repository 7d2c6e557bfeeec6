// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/snowball/internal/cache"
	"github.com/pdiddy/snowball/internal/graph"
	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/internal/querydir"
	"github.com/pdiddy/snowball/pkg/types"
)

// Expand grows the accepted set of q by one citation hop and writes the
// new identifiers to expanded.txt. If another expansion of q is running,
// Expand returns at once with Skipped set.
func (e *Engine) Expand(ctx context.Context, q *Query, p graph.Progress) (Result, error) {
	if !q.lock.TryLock() {
		e.log.Debug("expansion already running", zap.String("query", q.Name))
		return Result{Skipped: true}, nil
	}
	defer q.lock.Unlock()
	return e.expand(ctx, q, p, false)
}

// expand requires the caller to hold q.lock. In auto mode an expansion
// larger than ExplodedLimit moves q to Exploded without writing anything.
// Search queries never take a citation hop.
func (e *Engine) expand(ctx context.Context, q *Query, p graph.Progress, auto bool) (Result, error) {
	if !Snowballs(q.Type) {
		return Result{}, fmt.Errorf("%w: query %q is %s", ErrWrongType, q.Name, q.Type)
	}
	if err := requireStatus(q, types.StatusFiltered2, types.StatusExpanded); err != nil {
		return Result{}, err
	}
	log := e.log.With(zap.String("query", q.Name))

	c := cache.New(q.dir.Path, e.cfg.Cache.MaxAge())
	missing, related, err := c.Get(q.Accepted)
	if err != nil {
		log.Error("reading expansion cache", zap.Error(err))
		return Result{}, err
	}

	res := Result{Missing: len(missing)}
	if len(missing) > 0 {
		empty := 0
		var cacheErr error
		completed, err := e.client.FetchRefs(ctx, missing.Sorted(), p, func(id string, rel []string) {
			if len(rel) == 0 {
				empty++
			}
			for _, r := range rel {
				related.Add(ident.Canonical(r))
			}
			if err := c.Add(id, rel); err != nil && cacheErr == nil {
				cacheErr = err
			}
		})
		if err != nil {
			log.Warn("fetching references", zap.Error(err))
			return res, fmt.Errorf("fetching references: %w", err)
		}
		if !completed {
			return res, nil
		}
		if cacheErr != nil {
			log.Error("appending to expansion cache", zap.Error(cacheErr))
			return res, cacheErr
		}
		res.Exhausted = empty == len(missing)
	} else {
		res.Exhausted = true
	}
	res.Completed = true

	fresh := related.Minus(q.Accepted, q.Rejected)
	delete(fresh, "")
	res.New = len(fresh)

	if auto && res.New > ExplodedLimit {
		log.Warn("expansion exploded", zap.Int("new", res.New), zap.Int("limit", ExplodedLimit))
		res.Exploded = true
		e.setStatus(q, types.StatusExploded)
		return res, nil
	}

	if res.New == 0 {
		if err := q.dir.Delete(querydir.Expanded); err != nil {
			return res, err
		}
		if !res.Exhausted {
			// Every reference was already known; nothing is left to filter.
			if err := e.writeNoNewAccepted(q, true); err != nil {
				return res, err
			}
		}
		res.Exhausted = true
		e.setStatus(q, types.StatusFiltered2)
		log.Info("expansion exhausted", zap.Int("missing", res.Missing))
		return res, nil
	}
	res.Exhausted = false

	if err := q.dir.WriteIDs(querydir.Expanded, fresh); err != nil {
		log.Error("writing expansion", zap.Error(err))
		return res, err
	}
	q.LastExpansionDate = e.now()
	e.setStatus(q, types.StatusExpanded)
	log.Info("expanded", zap.Int("new", res.New), zap.Int("missing", res.Missing))
	return res, nil
}

// AutoSnowball repeats expand, filter and accept-all on q until an
// expansion yields nothing new or explodes. It holds q's lock throughout,
// so concurrent Expand calls are skipped. An exploded run is reported in
// the result and q returns to Filtered2.
func (e *Engine) AutoSnowball(ctx context.Context, q *Query, p graph.Progress) (Result, error) {
	if !q.lock.TryLock() {
		return Result{Skipped: true}, nil
	}
	defer q.lock.Unlock()

	var total Result
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		e.log.Debug("snowball round", zap.String("query", q.Name), zap.Int("round", round))

		r, err := e.expand(ctx, q, p, true)
		total.add(r)
		if err != nil || !r.Completed {
			return total, err
		}
		if r.Exploded {
			total.Exploded = true
			total.Completed = true
			e.setStatus(q, types.StatusFiltered2)
			return total, nil
		}
		if q.Status == types.StatusFiltered2 {
			break
		}

		r, err = e.filter1(ctx, q, p)
		total.add(r)
		if err != nil || !r.Completed {
			return total, err
		}
		if q.Status == types.StatusFiltered2 {
			break
		}

		r, err = e.finish(q, nil)
		total.add(r)
		if err != nil {
			return total, err
		}
	}

	total.Completed = true
	total.Exhausted = true
	if err := e.writeNoNewAccepted(q, total.Accepted == 0); err != nil {
		return total, err
	}
	return total, nil
}
