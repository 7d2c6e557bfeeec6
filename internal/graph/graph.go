// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph fetches paper details, citation graphs, recommendations
// and bulk search results from a scholarly-graph provider. Requests are
// chunked, throttled and retried with adaptive backoff; every operation
// reports progress through a callback that can cancel it.
package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/snowball/internal/httputil"
	"github.com/pdiddy/snowball/internal/match"
	"github.com/pdiddy/snowball/pkg/types"
)

// DefaultChunkSize is the number of identifiers per batch request.
const DefaultChunkSize = 30

// Recommendation limits of the similarity search.
const (
	MinSimilar = 20
	MaxSimilar = 500
)

// Progress receives (title, fraction done, status text) after each chunk
// and on retries. Returning false cancels the whole operation; results
// already delivered stay delivered.
type Progress func(title string, fraction float64, status string) bool

func (p Progress) report(title string, done, size int, status string) bool {
	if p == nil {
		return true
	}
	fraction := 1.0
	if size > 0 {
		fraction = float64(done) / float64(size)
	}
	return p(title, fraction, status)
}

// Client is one scholarly-graph provider. Each fetch returns completed =
// false when the caller cancelled or the provider failed; a non-nil error
// explains a failure and is a *httputil.FetchError for fatal outcomes.
type Client interface {
	// Name returns the backend identifier used in logs and metrics.
	Name() string

	// FetchDetails delivers the details of every resolvable id.
	FetchDetails(ctx context.Context, ids []string, p Progress, fn func(types.PaperDetails)) (bool, error)

	// FetchRefs delivers, per resolvable id, the canonical identifiers of
	// the papers it cites and the papers citing it.
	FetchRefs(ctx context.Context, ids []string, p Progress, fn func(id string, related []string)) (bool, error)

	// FetchSimilar delivers up to limit recommendations per chunk of ids.
	FetchSimilar(ctx context.Context, ids []string, limit int, p Progress, fn func(types.PaperDetails)) (bool, error)

	// BulkSearch pages through all hits of query.
	BulkSearch(ctx context.Context, query string, p Progress, fn func(types.PaperDetails)) (bool, error)

	// SearchQuery renders a keyword pattern in the provider's search syntax.
	SearchQuery(p *match.Pattern) string
}

// New builds the client selected by cfg.Backend.
func New(cfg types.GraphConfig, log *zap.Logger) (Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	httpClient, err := httputil.NewClient(cfg.HTTPConfig)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "", types.BackendSemanticScholar:
		return NewSemantic(cfg, httpClient, log), nil
	case types.BackendOpenAlex:
		return NewOpenAlex(cfg, httpClient, log), nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q (want %s or %s)", cfg.Backend, types.BackendSemanticScholar, types.BackendOpenAlex)
	}
}

// SimilarLimit returns the recommendation count for n accepted papers:
// twice n, at least MinSimilar and at most MaxSimilar.
func SimilarLimit(n int) int {
	limit := 2 * n
	if limit < MinSimilar {
		return MinSimilar
	}
	if limit > MaxSimilar {
		return MaxSimilar
	}
	return limit
}

func chunks(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
