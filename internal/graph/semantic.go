// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/snowball/internal/httputil"
	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/internal/match"
	"github.com/pdiddy/snowball/pkg/types"
)

// Semantic Scholar endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	semanticGraphBase     = "https://api.semanticscholar.org/graph/v1"
	semanticRecommendBase = "https://api.semanticscholar.org/recommendations/v1"
)

const (
	semanticDetailFields = "paperId,externalIds,title,abstract,publicationTypes,tldr,publicationDate,authors,venue,journal"
	semanticSearchFields = "paperId,externalIds,title,abstract,publicationTypes,publicationDate,authors,venue,journal"
	semanticRefFields    = "paperId,citations,citations.externalIds,references,references.externalIds"
)

// Semantic queries the Semantic Scholar graph and recommendations APIs.
// Without an API key it falls back to one GET per paper; bulk search and
// recommendations need the key.
type Semantic struct {
	fetcher
	apiKey    string
	chunkSize int
}

// NewSemantic returns a Semantic Scholar client using httpClient.
func NewSemantic(cfg types.GraphConfig, httpClient *http.Client, log *zap.Logger) *Semantic {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &Semantic{
		fetcher:   newFetcher(string(types.BackendSemanticScholar), httpClient, cfg.RequestsPerSecond, cfg.APIKey != "", log),
		apiKey:    cfg.APIKey,
		chunkSize: chunk,
	}
}

// Name returns the backend identifier.
func (b *Semantic) Name() string { return string(types.BackendSemanticScholar) }

// SearchQuery renders p in bulk search syntax.
func (b *Semantic) SearchQuery(p *match.Pattern) string { return match.S2Query(p) }

func (b *Semantic) newRequest(ctx context.Context, method, rawURL string, body interface{}) (*http.Request, error) {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(data)
	}
	var req *http.Request
	var err error
	if rd != nil {
		req, err = http.NewRequestWithContext(ctx, method, rawURL, rd)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, rawURL, nil)
	}
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("x-api-key", b.apiKey)
	}
	return req, nil
}

// FetchDetails fetches paper details, batched when a key is configured.
func (b *Semantic) FetchDetails(ctx context.Context, ids []string, p Progress, fn func(types.PaperDetails)) (bool, error) {
	const title = "Downloading missing titles, TLDRs, and abstracts"
	if b.apiKey == "" {
		return finish(b.single(ctx, "details", title, ids, p, semanticDetailFields, func(_ string, data []byte) error {
			var sp semanticPaper
			if err := json.Unmarshal(data, &sp); err != nil {
				return fmt.Errorf("parsing Semantic Scholar paper: %w", err)
			}
			fn(sp.details())
			return nil
		}))
	}
	return finish(b.batch(ctx, "details", title, ids, p, semanticDetailFields, func(_ []string, data []byte) error {
		var papers []*semanticPaper
		if err := json.Unmarshal(data, &papers); err != nil {
			return fmt.Errorf("parsing Semantic Scholar batch: %w", err)
		}
		for _, sp := range papers {
			if sp != nil {
				fn(sp.details())
			}
		}
		return nil
	}))
}

// FetchRefs fetches citations and references, batched when a key is
// configured.
func (b *Semantic) FetchRefs(ctx context.Context, ids []string, p Progress, fn func(id string, related []string)) (bool, error) {
	const title = "Downloading references and citations for all accepted papers"
	if b.apiKey == "" {
		return finish(b.single(ctx, "refs", title, ids, p, semanticRefFields, func(id string, data []byte) error {
			var refs semanticRefs
			if err := json.Unmarshal(data, &refs); err != nil {
				return fmt.Errorf("parsing Semantic Scholar refs: %w", err)
			}
			fn(id, refs.related())
			return nil
		}))
	}
	return finish(b.batch(ctx, "refs", title, ids, p, semanticRefFields, func(chunk []string, data []byte) error {
		var all []*semanticRefs
		if err := json.Unmarshal(data, &all); err != nil {
			return fmt.Errorf("parsing Semantic Scholar refs batch: %w", err)
		}
		for i, refs := range all {
			if refs != nil && i < len(chunk) {
				fn(chunk[i], refs.related())
			}
		}
		return nil
	}))
}

// single issues one GET per id.
func (b *Semantic) single(ctx context.Context, op, title string, ids []string, p Progress, fields string, handle func(id string, data []byte) error) error {
	c := b.start(op, title, p, httputil.SingleBaseDelay)
	for i, id := range ids {
		endpoint := semanticGraphBase + "/paper/" + ident.SemanticID(id) + "?" + url.Values{"fields": {fields}}.Encode()
		data, err := c.do(ctx, i, len(ids), func(ctx context.Context) (*http.Request, error) {
			return b.newRequest(ctx, http.MethodGet, endpoint, nil)
		})
		if err != nil {
			return err
		}
		if data != nil {
			if err := handle(id, data); err != nil {
				return err
			}
		}
		if !c.step(i+1, len(ids)) {
			return errCancelled
		}
	}
	return nil
}

// batch issues one POST per chunk of ids.
func (b *Semantic) batch(ctx context.Context, op, title string, ids []string, p Progress, fields string, handle func(chunk []string, data []byte) error) error {
	c := b.start(op, title, p, httputil.BulkBaseDelay)
	endpoint := semanticGraphBase + "/paper/batch?" + url.Values{"fields": {fields}}.Encode()
	done := 0
	for _, chunk := range chunks(ids, b.chunkSize) {
		body := semanticBatchRequest{IDs: make([]string, len(chunk))}
		for i, id := range chunk {
			body.IDs[i] = ident.SemanticID(id)
		}
		data, err := c.do(ctx, done, len(ids), func(ctx context.Context) (*http.Request, error) {
			return b.newRequest(ctx, http.MethodPost, endpoint, body)
		})
		if err != nil {
			return err
		}
		if data != nil {
			if err := handle(chunk, data); err != nil {
				return err
			}
		}
		done += len(chunk)
		if !c.step(done, len(ids)) {
			return errCancelled
		}
	}
	return nil
}

// FetchSimilar asks the recommendations API for papers like each chunk of
// ids.
func (b *Semantic) FetchSimilar(ctx context.Context, ids []string, limit int, p Progress, fn func(types.PaperDetails)) (bool, error) {
	if b.apiKey == "" {
		return false, httputil.ErrNoAPIKey
	}
	return finish(b.similar(ctx, ids, limit, p, fn))
}

func (b *Semantic) similar(ctx context.Context, ids []string, limit int, p Progress, fn func(types.PaperDetails)) error {
	c := b.start("similar", "Downloading similar papers", p, httputil.BulkBaseDelay)
	endpoint := semanticRecommendBase + "/papers/?" + url.Values{
		"fields": {semanticSearchFields},
		"limit":  {strconv.Itoa(limit)},
	}.Encode()

	done := 0
	for _, chunk := range chunks(ids, b.chunkSize) {
		body := semanticRecommendRequest{Positive: make([]string, len(chunk)), Negative: []string{}}
		for i, id := range chunk {
			body.Positive[i] = ident.SemanticID(id)
		}
		data, err := c.do(ctx, done, len(ids), func(ctx context.Context) (*http.Request, error) {
			return b.newRequest(ctx, http.MethodPost, endpoint, body)
		})
		if err != nil {
			return err
		}
		if data != nil {
			var resp semanticRecommendResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("parsing Semantic Scholar recommendations: %w", err)
			}
			for _, sp := range resp.RecommendedPapers {
				if sp != nil {
					fn(sp.details())
				}
			}
		}
		done += len(chunk)
		if !c.step(done, len(ids)) {
			return errCancelled
		}
	}
	return nil
}

// BulkSearch pages through /paper/search/bulk with continuation tokens
// until the reported total is reached.
func (b *Semantic) BulkSearch(ctx context.Context, query string, p Progress, fn func(types.PaperDetails)) (bool, error) {
	if b.apiKey == "" {
		return false, httputil.ErrNoAPIKey
	}
	return finish(b.bulkSearch(ctx, query, p, fn))
}

func (b *Semantic) bulkSearch(ctx context.Context, query string, p Progress, fn func(types.PaperDetails)) error {
	c := b.start("search", "Downloading titles, TLDRs, and abstracts of matching papers", p, httputil.BulkBaseDelay)
	token := ""
	done, total := 0, 1
	for {
		params := url.Values{"query": {query}, "fields": {semanticSearchFields}}
		if token != "" {
			params.Set("token", token)
		}
		endpoint := semanticGraphBase + "/paper/search/bulk?" + params.Encode()
		data, err := c.do(ctx, done, total, func(ctx context.Context) (*http.Request, error) {
			return b.newRequest(ctx, http.MethodGet, endpoint, nil)
		})
		if err != nil {
			return err
		}
		if data == nil {
			return nil
		}

		var page semanticSearchResponse
		if err := json.Unmarshal(data, &page); err != nil {
			return fmt.Errorf("parsing Semantic Scholar search page: %w", err)
		}
		for _, sp := range page.Data {
			if sp != nil {
				fn(sp.details())
			}
		}
		done += len(page.Data)
		total = page.Total
		b.log.Debug("bulk search page", zap.Int("done", done), zap.Int("total", total))

		if !c.step(done, total) {
			return errCancelled
		}
		if done >= total || page.Token == "" || len(page.Data) == 0 {
			return nil
		}
		token = page.Token
	}
}

// --- wire types ---

type semanticBatchRequest struct {
	IDs []string `json:"ids"`
}

type semanticRecommendRequest struct {
	Positive []string `json:"positivePaperIds"`
	Negative []string `json:"negativePaperIds"`
}

type semanticRecommendResponse struct {
	RecommendedPapers []*semanticPaper `json:"recommendedPapers"`
}

type semanticSearchResponse struct {
	Total int              `json:"total"`
	Token string           `json:"token"`
	Data  []*semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID          string                 `json:"paperId"`
	ExternalIDs      map[string]interface{} `json:"externalIds"`
	Title            string                 `json:"title"`
	Abstract         string                 `json:"abstract"`
	PublicationTypes []string               `json:"publicationTypes"`
	TLDR             map[string]interface{} `json:"tldr"`
	PublicationDate  string                 `json:"publicationDate"`
	Venue            string                 `json:"venue"`
	Journal          map[string]interface{} `json:"journal"`
	Authors          []semanticAuthor       `json:"authors"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticRefs struct {
	PaperID    string        `json:"paperId"`
	Citations  []semanticRef `json:"citations"`
	References []semanticRef `json:"references"`
}

type semanticRef struct {
	PaperID     string                 `json:"paperId"`
	ExternalIDs map[string]interface{} `json:"externalIds"`
}

func (sp *semanticPaper) details() types.PaperDetails {
	d := types.PaperDetails{
		PaperID:          sp.PaperID,
		ExternalIDs:      stringMap(sp.ExternalIDs),
		Title:            sp.Title,
		Venue:            sp.Venue,
		Journal:          stringMap(sp.Journal),
		Abstract:         sp.Abstract,
		PublicationTypes: sp.PublicationTypes,
		TLDR:             stringMap(sp.TLDR),
		PublicationDate:  sp.PublicationDate,
	}
	for _, a := range sp.Authors {
		if a.Name != "" {
			d.Authors = append(d.Authors, a.Name)
		}
	}
	return d
}

// related returns the canonical ids of all citations and references.
func (r *semanticRefs) related() []string {
	var out []string
	for _, list := range [][]semanticRef{r.Citations, r.References} {
		for _, ref := range list {
			if id := ident.FromParts(ref.PaperID, stringMap(ref.ExternalIDs)); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

// stringMap drops null values and formats numbers, so that provider ids
// such as CorpusId survive as strings.
func stringMap(m map[string]interface{}) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
