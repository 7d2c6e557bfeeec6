// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/snowball/internal/archive"
	"github.com/pdiddy/snowball/internal/graph"
	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/internal/match"
	"github.com/pdiddy/snowball/internal/querydir"
	"github.com/pdiddy/snowball/pkg/types"
)

// Filter1 fetches the details of the expanded ids and keeps the papers
// whose text matches the mandatory keywords and whose title avoids the
// forbidden ones. Kept papers go to filtered.txt for review; the rest are
// rejected.
func (e *Engine) Filter1(ctx context.Context, q *Query, p graph.Progress) (Result, error) {
	if !q.lock.TryLock() {
		return Result{}, fmt.Errorf("%w: %s", ErrBusy, q.Name)
	}
	defer q.lock.Unlock()
	return e.filter1(ctx, q, p)
}

func (e *Engine) filter1(ctx context.Context, q *Query, p graph.Progress) (Result, error) {
	if err := requireStatus(q, types.StatusExpanded); err != nil {
		return Result{}, err
	}
	log := e.log.With(zap.String("query", q.Name))

	m, err := match.New(q.Setting)
	if err != nil {
		return Result{}, err
	}
	expanded, err := q.dir.ReadIDs(querydir.Expanded)
	if err != nil {
		return Result{}, err
	}
	ids := expanded.Minus(q.Accepted, q.Rejected)

	var retained []types.PaperDetails
	completed, err := e.client.FetchDetails(ctx, ids.Sorted(), p, func(d types.PaperDetails) {
		if m.Accepts(d) {
			retained = append(retained, d)
		}
	})
	if err != nil {
		log.Warn("fetching details", zap.Error(err))
		return Result{}, fmt.Errorf("fetching details: %w", err)
	}
	if !completed {
		return Result{}, nil
	}

	kept := ident.NewSet()
	for _, d := range retained {
		kept.Add(ident.PaperID(d))
	}
	rejected := ids.Minus(kept)
	q.Rejected.AddAll(rejected)
	res := Result{Retained: len(retained), Rejected: len(rejected), Completed: true}

	if err := q.dir.AppendIDs(querydir.Rejected, rejected); err != nil {
		log.Error("writing rejected ids", zap.Error(err))
		return res, err
	}

	if len(retained) == 0 {
		for _, name := range []string{querydir.Filtered, querydir.Expanded} {
			if err := q.dir.Delete(name); err != nil {
				return res, err
			}
		}
		if err := e.writeNoNewAccepted(q, true); err != nil {
			return res, err
		}
		e.setStatus(q, types.StatusFiltered2)
		log.Info("filter retained nothing", zap.Int("rejected", res.Rejected))
		return res, nil
	}

	if err := q.dir.WritePapers(querydir.Filtered, archive.NewPapers(retained, types.TagAccepted, 0)); err != nil {
		log.Error("writing filtered papers", zap.Error(err))
		return res, err
	}
	if _, err := archive.New(q.dir).Merge(retained); err != nil {
		log.Error("merging archive", zap.Error(err))
		return res, err
	}
	if err := q.dir.Delete(querydir.Expanded); err != nil {
		return res, err
	}
	e.setStatus(q, types.StatusFiltered1)
	log.Info("filtered", zap.Int("retained", res.Retained), zap.Int("rejected", res.Rejected))
	return res, nil
}

// AcceptAll accepts every paper waiting in filtered.txt.
func (e *Engine) AcceptAll(ctx context.Context, q *Query) (Result, error) {
	return e.FinishReview(ctx, q, nil)
}

// FinishReview applies the review tags to the papers waiting in
// filtered.txt. tags maps paper ids to their verdict; papers without an
// entry keep the tag they were filtered with.
func (e *Engine) FinishReview(ctx context.Context, q *Query, tags map[string]types.Tag) (Result, error) {
	if !q.lock.TryLock() {
		return Result{}, fmt.Errorf("%w: %s", ErrBusy, q.Name)
	}
	defer q.lock.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return e.finish(q, tags)
}

func (e *Engine) finish(q *Query, tags map[string]types.Tag) (Result, error) {
	if err := requireStatus(q, types.StatusFiltered1); err != nil {
		return Result{}, err
	}
	papers, err := q.dir.ReadPapers(querydir.Filtered)
	if err != nil {
		return Result{}, err
	}

	accepted, rejected := ident.NewSet(), ident.NewSet()
	for _, paper := range papers {
		id := ident.Canonical(paper.PaperID)
		if id == "" {
			id = ident.PaperID(paper.Details)
		}
		if id == "" {
			continue
		}
		tag := paper.Tag
		if t, ok := tags[id]; ok {
			tag = t
		}
		if tag == types.TagRejected {
			rejected.Add(id)
		} else {
			accepted.Add(id)
		}
	}

	added := accepted.Minus(q.Accepted)
	q.Accepted.AddAll(accepted)
	q.Rejected.AddAll(rejected.Minus(q.Accepted))
	res := Result{Accepted: len(added), Rejected: len(rejected), Completed: true}

	if err := e.writeSets(q); err != nil {
		e.log.Error("writing reviewed sets", zap.String("query", q.Name), zap.Error(err))
		return res, err
	}
	if err := q.dir.Delete(querydir.Filtered); err != nil {
		return res, err
	}
	if err := e.writeNoNewAccepted(q, len(added) == 0); err != nil {
		return res, err
	}
	e.setStatus(q, types.StatusFiltered2)
	e.log.Info("review finished", zap.String("query", q.Name),
		zap.Int("accepted", res.Accepted), zap.Int("rejected", res.Rejected))
	return res, nil
}
