// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/snowball/internal/graph"
	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/internal/match"
	"github.com/pdiddy/snowball/internal/querydir"
	"github.com/pdiddy/snowball/pkg/types"
)

// Sort orders accepted by List.
const (
	SortByName = "name"
	SortByDate = "date"
)

// Discover scans the query root for directories carrying the configured
// prefix and replaces the query list with what it finds.
func (e *Engine) Discover(ctx context.Context) error {
	root := e.cfg.Queries.Root
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		e.mu.Lock()
		e.queries = map[string]*Query{}
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading query root %s: %w", root, err)
	}

	found := map[string]*Query{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), e.cfg.Queries.Prefix) {
			continue
		}
		name := strings.TrimPrefix(entry.Name(), e.cfg.Queries.Prefix)
		if name == "" {
			continue
		}
		q, err := e.load(name, querydir.New(filepath.Join(root, entry.Name())))
		if err != nil {
			e.log.Warn("skipping query directory", zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		found[name] = q
	}

	e.mu.Lock()
	e.queries = found
	e.mu.Unlock()
	e.log.Debug("discovered queries", zap.Int("count", len(found)), zap.String("root", root))
	return nil
}

// load derives a query's status from the files present in its directory.
func (e *Engine) load(name string, dir querydir.Dir) (*Query, error) {
	q := &Query{
		ID:     e.nextID.Add(1),
		Name:   name,
		Type:   types.SupervisedSnowballing,
		Status: types.StatusUninitialized,
		dir:    dir,
	}

	setting, ok, err := dir.ReadSettings()
	if err != nil {
		return nil, err
	}
	if ok {
		q.Setting = setting
		if setting.Type != "" {
			q.Type = setting.Type
		}
	}
	if q.Accepted, err = dir.ReadIDs(querydir.Accepted); err != nil {
		return nil, err
	}
	rejected, err := dir.ReadIDs(querydir.Rejected)
	if err != nil {
		return nil, err
	}
	q.Rejected = rejected.Minus(q.Accepted)

	if ok && dir.Exists(querydir.Accepted) {
		switch {
		case dir.Exists(querydir.Filtered):
			q.Status = types.StatusFiltered1
		case dir.Exists(querydir.Expanded):
			q.Status = types.StatusExpanded
		default:
			q.Status = types.StatusFiltered2
		}
	}

	q.LastExpansionDate = dir.ModTime(querydir.Accepted)
	q.NoNewAccepted = dir.ReadNoNewAccepted()
	if q.NoNewAccepted && e.now().Sub(q.LastExpansionDate) > e.cfg.Cache.MaxAge() {
		q.NoNewAccepted = false
	}
	return q, nil
}

// NewQuery creates the directory of a new query holding the seed ids. With
// usable settings the query is confirmed at once; otherwise it stays
// Uninitialized until ConfirmSettings.
func (e *Engine) NewQuery(typ types.QueryType, name string, seeds []string, setting types.QuerySetting) (*Query, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid query name %q", name)
	}
	if err := validateSetting(setting); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.queries[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}
	dir := querydir.New(filepath.Join(e.cfg.Queries.Root, e.cfg.Queries.Prefix+name))
	if _, err := os.Stat(dir.Path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, dir.Path)
	}
	if err := dir.Create(); err != nil {
		return nil, err
	}

	accepted := ident.NewSet()
	for _, s := range seeds {
		if s = ident.Canonical(s); s != "" {
			accepted.Add(s)
		}
	}
	setting.Type = typ
	setting.StartDOIs = accepted.Sorted()
	if err := dir.WriteIDs(querydir.Accepted, accepted); err != nil {
		return nil, err
	}

	q := &Query{
		ID:       e.nextID.Add(1),
		Name:     name,
		Type:     typ,
		Status:   types.StatusUninitialized,
		Setting:  setting,
		Accepted: accepted,
		Rejected: ident.NewSet(),
		dir:      dir,
	}
	e.queries[name] = q
	e.log.Info("created query", zap.String("query", name), zap.String("type", string(typ)), zap.Int("seeds", len(accepted)))

	if needsKeywords(typ) && len(setting.MandatoryKeyWords) == 0 {
		return q, nil
	}
	if err := e.confirm(q, setting); err != nil {
		return q, err
	}
	return q, nil
}

// Get returns the query named name.
func (e *Engine) Get(name string) (*Query, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.queries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return q, nil
}

// List returns all queries ordered by name, or by most recent expansion
// first when by is SortByDate.
func (e *Engine) List(by string) []*Query {
	e.mu.Lock()
	out := make([]*Query, 0, len(e.queries))
	for _, q := range e.queries {
		out = append(out, q)
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if by == SortByDate && !out[i].LastExpansionDate.Equal(out[j].LastExpansionDate) {
			return out[i].LastExpansionDate.After(out[j].LastExpansionDate)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Remove deletes a query and its directory. A query with an operation in
// flight is not removed.
func (e *Engine) Remove(name string) error {
	q, err := e.Get(name)
	if err != nil {
		return err
	}
	if !q.lock.TryLock() {
		return fmt.Errorf("%w: %s", ErrBusy, name)
	}
	defer q.lock.Unlock()

	if err := q.dir.RemoveAll(); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.queries, name)
	e.mu.Unlock()
	e.log.Info("removed query", zap.String("query", name))
	return nil
}

// ExpandAll expands the named queries with at most limit running at once.
// p is called from several goroutines; titles carry the query name. A
// failing query does not stop the others: the returned error joins the
// failures and results holds every query that expanded.
func (e *Engine) ExpandAll(ctx context.Context, names []string, limit int, p graph.Progress) (map[string]Result, error) {
	results := make(map[string]Result, len(names))
	var (
		mu   sync.Mutex
		errs []error
	)

	queries := make([]*Query, 0, len(names))
	for _, name := range names {
		q, err := e.Get(name)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, q := range queries {
		g.Go(func() error {
			var qp graph.Progress
			if p != nil {
				qp = func(title string, fraction float64, status string) bool {
					return p(q.Name+": "+title, fraction, status)
				}
			}
			r, err := e.Expand(ctx, q, qp)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.log.Warn("expansion failed", zap.String("query", q.Name), zap.Error(err))
				errs = append(errs, fmt.Errorf("expanding %s: %w", q.Name, err))
				return nil
			}
			results[q.Name] = r
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// Snowballs reports whether queries of type t grow by citation hops.
func Snowballs(t types.QueryType) bool {
	return t == types.Snowballing || t == types.SupervisedSnowballing
}

func needsKeywords(t types.QueryType) bool {
	return t != types.SimilaritySearch
}

func validateSetting(s types.QuerySetting) error {
	if err := match.Validate(s.MandatoryKeyWords); err != nil {
		return fmt.Errorf("mandatory keywords: %w", err)
	}
	if err := match.Validate(s.ForbiddenKeyWords); err != nil {
		return fmt.Errorf("forbidden keywords: %w", err)
	}
	if _, err := match.NewDateMatcher(s.PubDate); err != nil {
		return fmt.Errorf("publication date: %w", err)
	}
	return nil
}
