// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/snowball/internal/httputil"
	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/internal/match"
	"github.com/pdiddy/snowball/pkg/types"
)

// openAlexBase is the OpenAlex API root. Declared as a var so tests can
// substitute an httptest server.
var openAlexBase = "https://api.openalex.org"

const (
	openAlexWorkFields = "id,doi,ids,title,display_name,publication_date,type,abstract_inverted_index,authorships,primary_location,biblio"
	openAlexIDFields   = "id,doi"
	openAlexPageSize   = 200
	openAlexFilterMax  = 50
)

// OpenAlex queries the OpenAlex works API. References come from
// referenced_works, citations from the cites: filter and recommendations
// from related_works.
type OpenAlex struct {
	fetcher
	email     string
	apiKey    string
	chunkSize int
}

// NewOpenAlex returns an OpenAlex client using httpClient.
func NewOpenAlex(cfg types.GraphConfig, httpClient *http.Client, log *zap.Logger) *OpenAlex {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	if chunk > openAlexFilterMax {
		chunk = openAlexFilterMax
	}
	hasKey := cfg.APIKey != "" || cfg.Email != ""
	return &OpenAlex{
		fetcher:   newFetcher(string(types.BackendOpenAlex), httpClient, cfg.RequestsPerSecond, hasKey, log),
		email:     cfg.Email,
		apiKey:    cfg.APIKey,
		chunkSize: chunk,
	}
}

// Name returns the backend identifier.
func (b *OpenAlex) Name() string { return string(types.BackendOpenAlex) }

// SearchQuery renders p in OpenAlex boolean search syntax.
func (b *OpenAlex) SearchQuery(p *match.Pattern) string { return match.OpenAlexQuery(p) }

func (b *OpenAlex) get(ctx context.Context, c *call, done, size int, path string, params url.Values) ([]byte, error) {
	if b.email != "" {
		params.Set("mailto", b.email)
	}
	if b.apiKey != "" {
		params.Set("api_key", b.apiKey)
	}
	endpoint := openAlexBase + path + "?" + params.Encode()
	return c.do(ctx, done, size, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
}

// filterKey splits a canonical id into an OpenAlex filter attribute and
// value: doi, openalex or pmid.
func filterKey(id string) (string, string) {
	t, c := ident.Classify(id)
	switch t {
	case ident.TypeS2:
		return "openalex", strings.TrimPrefix(c, ident.S2Prefix)
	case ident.TypePMID:
		return "pmid", strings.TrimPrefix(c, "PMID:")
	default:
		return "doi", strings.ToLower(c)
	}
}

// workPath is the single-entity path of a canonical id.
func workPath(id string) string {
	attr, value := filterKey(id)
	if attr == "openalex" {
		return "/works/" + value
	}
	return "/works/" + attr + ":" + value
}

// FetchDetails looks up works by DOI, PubMed id or OpenAlex id.
func (b *OpenAlex) FetchDetails(ctx context.Context, ids []string, p Progress, fn func(types.PaperDetails)) (bool, error) {
	c := b.start("details", "Downloading missing titles and abstracts", p, httputil.BulkBaseDelay)
	return finish(b.details(ctx, c, ids, fn))
}

func (b *OpenAlex) details(ctx context.Context, c *call, ids []string, fn func(types.PaperDetails)) error {
	done := 0
	for _, chunk := range chunks(ids, b.chunkSize) {
		groups := map[string][]string{}
		for _, id := range chunk {
			attr, value := filterKey(id)
			groups[attr] = append(groups[attr], value)
		}
		attrs := make([]string, 0, len(groups))
		for attr := range groups {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)

		for _, attr := range attrs {
			values := groups[attr]
			params := url.Values{
				"filter":   {attr + ":" + strings.Join(values, "|")},
				"per_page": {strconv.Itoa(len(values))},
				"select":   {openAlexWorkFields},
			}
			data, err := b.get(ctx, c, done, len(ids), "/works", params)
			if err != nil {
				return err
			}
			if data == nil {
				continue
			}
			var page openAlexPage
			if err := json.Unmarshal(data, &page); err != nil {
				return fmt.Errorf("parsing OpenAlex works: %w", err)
			}
			for _, w := range page.Results {
				fn(w.details())
			}
		}
		done += len(chunk)
		if !c.step(done, len(ids)) {
			return errCancelled
		}
	}
	return nil
}

// FetchRefs collects, per id, the works it references and the works
// citing it.
func (b *OpenAlex) FetchRefs(ctx context.Context, ids []string, p Progress, fn func(id string, related []string)) (bool, error) {
	c := b.start("refs", "Downloading references and citations for all accepted papers", p, httputil.BulkBaseDelay)
	return finish(b.refs(ctx, c, ids, fn))
}

func (b *OpenAlex) refs(ctx context.Context, c *call, ids []string, fn func(id string, related []string)) error {
	for i, id := range ids {
		data, err := b.get(ctx, c, i, len(ids), workPath(id), url.Values{"select": {"id,doi,referenced_works"}})
		if err != nil {
			return err
		}
		if data != nil {
			var w openAlexWork
			if err := json.Unmarshal(data, &w); err != nil {
				return fmt.Errorf("parsing OpenAlex work: %w", err)
			}

			var related []string
			collect := func(rw openAlexWork) { related = append(related, rw.canonicalID()) }

			refIDs := make([]string, 0, len(w.ReferencedWorks))
			for _, r := range w.ReferencedWorks {
				refIDs = append(refIDs, shortID(r))
			}
			for _, group := range chunks(refIDs, openAlexFilterMax) {
				params := url.Values{
					"filter":   {"openalex:" + strings.Join(group, "|")},
					"per_page": {strconv.Itoa(len(group))},
					"select":   {openAlexIDFields},
				}
				if err := b.pages(ctx, c, i, len(ids), params, false, collect); err != nil {
					return err
				}
			}

			params := url.Values{
				"filter":   {"cites:" + shortID(w.ID)},
				"per_page": {strconv.Itoa(openAlexPageSize)},
				"select":   {openAlexIDFields},
			}
			if err := b.pages(ctx, c, i, len(ids), params, true, collect); err != nil {
				return err
			}
			fn(id, related)
		}
		if !c.step(i+1, len(ids)) {
			return errCancelled
		}
	}
	return nil
}

// pages fetches /works with params, following next_cursor when paged.
func (b *OpenAlex) pages(ctx context.Context, c *call, done, size int, params url.Values, paged bool, fn func(openAlexWork)) error {
	cursor := "*"
	for {
		if paged {
			params.Set("cursor", cursor)
		}
		data, err := b.get(ctx, c, done, size, "/works", params)
		if err != nil || data == nil {
			return err
		}
		var page openAlexPage
		if err := json.Unmarshal(data, &page); err != nil {
			return fmt.Errorf("parsing OpenAlex works: %w", err)
		}
		for _, w := range page.Results {
			fn(w)
		}
		if !paged || page.Meta.NextCursor == "" || len(page.Results) == 0 {
			return nil
		}
		cursor = page.Meta.NextCursor
	}
}

// FetchSimilar gathers related_works of the ids, up to limit works, and
// fetches their details.
func (b *OpenAlex) FetchSimilar(ctx context.Context, ids []string, limit int, p Progress, fn func(types.PaperDetails)) (bool, error) {
	c := b.start("similar", "Downloading similar papers", p, httputil.BulkBaseDelay)
	return finish(b.similar(ctx, c, ids, limit, fn))
}

func (b *OpenAlex) similar(ctx context.Context, c *call, ids []string, limit int, fn func(types.PaperDetails)) error {
	seen := map[string]bool{}
	var related []string
	for i, id := range ids {
		if len(related) >= limit {
			break
		}
		data, err := b.get(ctx, c, i, len(ids), workPath(id), url.Values{"select": {"id,related_works"}})
		if err != nil {
			return err
		}
		if data != nil {
			var w openAlexWork
			if err := json.Unmarshal(data, &w); err != nil {
				return fmt.Errorf("parsing OpenAlex work: %w", err)
			}
			for _, r := range w.RelatedWorks {
				s := shortID(r)
				if seen[s] || len(related) >= limit {
					continue
				}
				seen[s] = true
				related = append(related, ident.S2Prefix+s)
			}
		}
		if !c.step(i+1, len(ids)) {
			return errCancelled
		}
	}
	return b.details(ctx, c, related, fn)
}

// BulkSearch pages through /works?search= with cursors.
func (b *OpenAlex) BulkSearch(ctx context.Context, query string, p Progress, fn func(types.PaperDetails)) (bool, error) {
	c := b.start("search", "Downloading titles and abstracts of matching papers", p, httputil.BulkBaseDelay)
	return finish(b.search(ctx, c, query, fn))
}

func (b *OpenAlex) search(ctx context.Context, c *call, query string, fn func(types.PaperDetails)) error {
	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(openAlexPageSize)},
		"select":   {openAlexWorkFields},
	}
	cursor := "*"
	done, total := 0, 1
	for {
		params.Set("cursor", cursor)
		data, err := b.get(ctx, c, done, total, "/works", params)
		if err != nil || data == nil {
			return err
		}
		var page openAlexPage
		if err := json.Unmarshal(data, &page); err != nil {
			return fmt.Errorf("parsing OpenAlex search page: %w", err)
		}
		for _, w := range page.Results {
			fn(w.details())
		}
		done += len(page.Results)
		total = page.Meta.Count
		if !c.step(done, total) {
			return errCancelled
		}
		if done >= total || page.Meta.NextCursor == "" || len(page.Results) == 0 {
			return nil
		}
		cursor = page.Meta.NextCursor
	}
}

// --- wire types ---

type openAlexPage struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor"`
}

type openAlexWork struct {
	ID                    string                 `json:"id"`
	DOI                   string                 `json:"doi"`
	IDs                   map[string]interface{} `json:"ids"`
	Title                 string                 `json:"title"`
	DisplayName           string                 `json:"display_name"`
	PublicationDate       string                 `json:"publication_date"`
	Type                  string                 `json:"type"`
	AbstractInvertedIndex map[string][]int       `json:"abstract_inverted_index"`
	Authorships           []openAlexAuthorship   `json:"authorships"`
	PrimaryLocation       *openAlexLocation      `json:"primary_location"`
	Biblio                map[string]interface{} `json:"biblio"`
	ReferencedWorks       []string               `json:"referenced_works"`
	RelatedWorks          []string               `json:"related_works"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	Source *struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}

// openAlexTypes maps OpenAlex work types onto the publication type
// vocabulary of the filters.
var openAlexTypes = map[string]string{
	"article":   "JournalArticle",
	"review":    "Review",
	"editorial": "Editorial",
}

// shortID strips the https://openalex.org/ prefix.
func shortID(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

func bareDOI(doi string) string {
	for _, p := range []string{"https://doi.org/", "http://doi.org/"} {
		doi = strings.TrimPrefix(doi, p)
	}
	return doi
}

func (w openAlexWork) canonicalID() string {
	return ident.FromParts(shortID(w.ID), map[string]string{"DOI": bareDOI(w.DOI)})
}

func (w openAlexWork) details() types.PaperDetails {
	d := types.PaperDetails{
		PaperID:         shortID(w.ID),
		Title:           w.Title,
		Abstract:        reconstructAbstract(w.AbstractInvertedIndex),
		PublicationDate: w.PublicationDate,
	}
	if d.Title == "" {
		d.Title = w.DisplayName
	}

	ids := stringMap(w.IDs)
	biblio := stringMap(w.Biblio)
	ext := map[string]string{}
	if doi := bareDOI(w.DOI); doi != "" {
		ext["DOI"] = doi
	}
	if pmid := ids["pmid"]; pmid != "" {
		ext["PubMed"] = shortID(pmid)
	}
	if pmcid := ids["pmcid"]; pmcid != "" {
		ext["PubMedCentral"] = shortID(pmcid)
	}
	if len(ext) > 0 {
		d.ExternalIDs = ext
	}

	if t, ok := openAlexTypes[w.Type]; ok {
		d.PublicationTypes = []string{t}
	} else if w.Type != "" {
		d.PublicationTypes = []string{w.Type}
	}

	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			d.Authors = append(d.Authors, a.Author.DisplayName)
		}
	}

	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		d.Venue = w.PrimaryLocation.Source.DisplayName
	}
	journal := map[string]string{}
	if d.Venue != "" {
		journal["name"] = d.Venue
	}
	if v := biblio["volume"]; v != "" {
		journal["volume"] = v
	}
	if fp := biblio["first_page"]; fp != "" {
		pages := fp
		if lp := biblio["last_page"]; lp != "" && lp != fp {
			pages += "-" + lp
		}
		journal["pages"] = pages
	}
	if len(journal) > 0 {
		d.Journal = journal
	}
	return d
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}
