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
	"github.com/pdiddy/snowball/pkg/types"
)

// ExpressionSearch runs the mandatory keywords as a provider bulk search.
// Hits passing the type, date and forbidden-title filters become the
// accepted set and are merged into the archive.
func (e *Engine) ExpressionSearch(ctx context.Context, q *Query, p graph.Progress) (Result, error) {
	if !q.lock.TryLock() {
		return Result{}, fmt.Errorf("%w: %s", ErrBusy, q.Name)
	}
	defer q.lock.Unlock()
	if err := requireStatus(q, types.StatusFiltered2); err != nil {
		return Result{}, err
	}
	log := e.log.With(zap.String("query", q.Name))

	m, err := match.New(q.Setting)
	if err != nil {
		return Result{}, err
	}
	dates, err := match.NewDateMatcher(q.Setting.PubDate)
	if err != nil {
		return Result{}, err
	}
	query := e.client.SearchQuery(m.Mandatory)
	if query == "" {
		return Result{}, ErrNoKeywords
	}
	log.Debug("bulk search", zap.String("backend", e.client.Name()), zap.String("search", query))

	var hits []types.PaperDetails
	completed, err := e.client.BulkSearch(ctx, query, p, func(d types.PaperDetails) {
		if !match.TypeMatches(d.PublicationTypes, q.Setting.PubType) {
			return
		}
		if !dates.Matches(d.PublicationDate) || m.Forbids(d.Title) {
			return
		}
		hits = append(hits, d)
	})
	if err != nil {
		log.Warn("bulk search", zap.Error(err))
		return Result{}, fmt.Errorf("searching: %w", err)
	}
	if !completed {
		return Result{}, nil
	}

	accepted := ident.NewSet()
	for _, d := range hits {
		if id := ident.PaperID(d); id != "" {
			accepted.Add(id)
		}
	}
	q.Accepted = accepted
	res := Result{Retained: len(hits), Accepted: len(accepted), Completed: true}
	if err := e.writeSets(q); err != nil {
		return res, err
	}
	if _, err := archive.New(q.dir).Merge(hits); err != nil {
		log.Error("merging archive", zap.Error(err))
		return res, err
	}
	if err := e.writeNoNewAccepted(q, true); err != nil {
		return res, err
	}
	q.LastExpansionDate = e.now()
	e.setStatus(q, types.StatusFiltered2)
	log.Info("search finished", zap.Int("hits", len(hits)))
	return res, nil
}

// SimilaritySearch asks the provider for papers similar to the accepted
// ones, adds them to the accepted set and replaces the archive with them.
func (e *Engine) SimilaritySearch(ctx context.Context, q *Query, p graph.Progress) (Result, error) {
	if !q.lock.TryLock() {
		return Result{}, fmt.Errorf("%w: %s", ErrBusy, q.Name)
	}
	defer q.lock.Unlock()
	if err := requireStatus(q, types.StatusFiltered2); err != nil {
		return Result{}, err
	}
	if len(q.Accepted) == 0 {
		return Result{}, ErrNoSeeds
	}
	log := e.log.With(zap.String("query", q.Name))

	limit := graph.SimilarLimit(len(q.Accepted))
	var hits []types.PaperDetails
	completed, err := e.client.FetchSimilar(ctx, q.Accepted.Sorted(), limit, p, func(d types.PaperDetails) {
		hits = append(hits, d)
	})
	if err != nil {
		log.Warn("fetching similar papers", zap.Error(err))
		return Result{}, fmt.Errorf("fetching similar papers: %w", err)
	}
	if !completed {
		return Result{}, nil
	}

	found := ident.NewSet()
	for _, d := range hits {
		if id := ident.PaperID(d); id != "" {
			found.Add(id)
		}
	}
	added := found.Minus(q.Accepted)
	q.Accepted.AddAll(found)
	res := Result{Retained: len(hits), Accepted: len(added), Completed: true}
	if err := e.writeSets(q); err != nil {
		return res, err
	}
	if err := archive.New(q.dir).Set(hits); err != nil {
		log.Error("replacing archive", zap.Error(err))
		return res, err
	}
	if err := e.writeNoNewAccepted(q, len(added) == 0); err != nil {
		return res, err
	}
	q.LastExpansionDate = e.now()
	e.setStatus(q, types.StatusFiltered2)
	log.Info("similarity search finished", zap.Int("hits", len(hits)), zap.Int("limit", limit))
	return res, nil
}

// NextAction names the step Run would take for q, or "" when Run has
// nothing to do.
func NextAction(q *Query) string {
	switch {
	case q.Status == types.StatusUninitialized:
		return ""
	case q.Type == types.ExpressionSearch:
		return "search"
	case q.Type == types.SimilaritySearch:
		return "similar"
	case q.Type == types.Snowballing:
		return "snowball"
	}
	switch q.Status {
	case types.StatusFiltered2:
		return "expand"
	case types.StatusExpanded:
		return "filter"
	default:
		return ""
	}
}

// Run performs the next step of q according to its type. Supervised
// queries advance one step; a pending review must be finished with
// FinishReview or AcceptAll.
func (e *Engine) Run(ctx context.Context, q *Query, p graph.Progress) (Result, error) {
	switch NextAction(q) {
	case "search":
		return e.ExpressionSearch(ctx, q, p)
	case "similar":
		return e.SimilaritySearch(ctx, q, p)
	case "snowball":
		return e.AutoSnowball(ctx, q, p)
	case "expand":
		return e.Expand(ctx, q, p)
	case "filter":
		return e.Filter1(ctx, q, p)
	}
	if q.Status == types.StatusFiltered1 {
		return Result{}, fmt.Errorf("%w: review of %s is pending", ErrWrongStatus, q.Name)
	}
	return Result{}, fmt.Errorf("%w: %s has no confirmed settings", ErrWrongStatus, q.Name)
}
