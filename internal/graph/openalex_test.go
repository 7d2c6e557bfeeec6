// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/snowball/internal/match"
	"github.com/pdiddy/snowball/pkg/types"
)

func newOpenAlexServer(t *testing.T, h http.HandlerFunc) *OpenAlex {
	t.Helper()
	ts := httptest.NewServer(h)
	old := openAlexBase
	openAlexBase = ts.URL
	t.Cleanup(func() {
		openAlexBase = old
		ts.Close()
	})
	return NewOpenAlex(types.GraphConfig{Email: "me@example.org"}, ts.Client(), zap.NewNop())
}

func TestOpenAlexFetchDetails(t *testing.T) {
	var filters []string
	c := newOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)
		assert.Equal(t, "me@example.org", r.URL.Query().Get("mailto"))
		filters = append(filters, r.URL.Query().Get("filter"))
		fmt.Fprint(w, `{"meta":{"count":1},"results":[{
			"id":"https://openalex.org/W1","doi":"https://doi.org/10.1/a",
			"ids":{"pmid":"https://pubmed.ncbi.nlm.nih.gov/123","mag":456},
			"title":"Alpha","publication_date":"2020-02-03","type":"review",
			"abstract_inverted_index":{"world":[1],"hello":[0]},
			"authorships":[{"author":{"display_name":"Ada Lovelace"}}],
			"primary_location":{"source":{"display_name":"Nature"}},
			"biblio":{"volume":"7","first_page":"1","last_page":"9","issue":null}}]}`)
	})

	var got []types.PaperDetails
	ok, err := c.FetchDetails(context.Background(), []string{"10.1/A", "10.1/B", "S2:W9", "PMID:5"}, nil, func(d types.PaperDetails) {
		got = append(got, d)
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"doi:10.1/a|10.1/b", "openalex:W9", "pmid:5"}, filters)

	require.Len(t, got, 3)
	d := got[0]
	assert.Equal(t, "W1", d.PaperID)
	assert.Equal(t, "10.1/a", d.DOI())
	assert.Equal(t, "123", d.ExternalIDs["PubMed"])
	assert.Equal(t, "hello world", d.Abstract)
	assert.Equal(t, []string{"Review"}, d.PublicationTypes)
	assert.Equal(t, "Nature", d.Venue)
	assert.Equal(t, map[string]string{"name": "Nature", "volume": "7", "pages": "1-9"}, d.Journal)
}

func TestOpenAlexFetchRefs(t *testing.T) {
	c := newOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case r.URL.Path == "/works/doi:10.1/a":
			fmt.Fprint(w, `{"id":"https://openalex.org/W1","referenced_works":["https://openalex.org/W2","https://openalex.org/W3"]}`)
		case q.Get("filter") == "openalex:W2|W3":
			fmt.Fprint(w, `{"meta":{"count":2},"results":[{"id":"https://openalex.org/W2","doi":"https://doi.org/10.1/c"},{"id":"https://openalex.org/W3","doi":null}]}`)
		case q.Get("filter") == "cites:W1" && q.Get("cursor") == "*":
			fmt.Fprint(w, `{"meta":{"count":2,"next_cursor":"n1"},"results":[{"id":"https://openalex.org/W4","doi":"https://doi.org/10.1/b"}]}`)
		case q.Get("filter") == "cites:W1" && q.Get("cursor") == "n1":
			fmt.Fprint(w, `{"meta":{"count":2,"next_cursor":null},"results":[{"id":"https://openalex.org/W5","doi":"https://doi.org/10.1/d"}]}`)
		case r.URL.Path == "/works/doi:10.1/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected request %s", r.URL)
			w.WriteHeader(http.StatusTeapot)
		}
	})

	got := map[string][]string{}
	ok, err := c.FetchRefs(context.Background(), []string{"10.1/A", "10.1/GONE"}, nil, func(id string, related []string) {
		got[id] = related
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string][]string{"10.1/A": {"10.1/C", "S2:W3", "10.1/B", "10.1/D"}}, got)
}

func TestOpenAlexBulkSearch(t *testing.T) {
	var cursors []string
	c := newOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, `(alpha OR beta) AND NOT gamma`, q.Get("search"))
		cursors = append(cursors, q.Get("cursor"))
		if q.Get("cursor") == "*" {
			fmt.Fprint(w, `{"meta":{"count":2,"next_cursor":"c2"},"results":[{"id":"https://openalex.org/W1"}]}`)
			return
		}
		fmt.Fprint(w, `{"meta":{"count":2,"next_cursor":"c3"},"results":[{"id":"https://openalex.org/W2"}]}`)
	})

	p, err := match.Compile([]string{"(alpha or beta) and not gamma"})
	require.NoError(t, err)

	var ids []string
	ok, err := c.BulkSearch(context.Background(), c.SearchQuery(p), nil, func(d types.PaperDetails) {
		ids = append(ids, d.PaperID)
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"W1", "W2"}, ids)
	assert.Equal(t, []string{"*", "c2"}, cursors)
}

func TestOpenAlexFetchSimilar(t *testing.T) {
	c := newOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/works/doi:10.1/a":
			fmt.Fprint(w, `{"id":"https://openalex.org/W1","related_works":["https://openalex.org/W7","https://openalex.org/W8","https://openalex.org/W9"]}`)
		case r.URL.Query().Get("filter") == "openalex:W7|W8":
			fmt.Fprint(w, `{"meta":{"count":2},"results":[{"id":"https://openalex.org/W7"},{"id":"https://openalex.org/W8"}]}`)
		default:
			t.Errorf("unexpected request %s", r.URL)
			w.WriteHeader(http.StatusTeapot)
		}
	})

	var ids []string
	ok, err := c.FetchSimilar(context.Background(), []string{"10.1/A"}, 2, nil, func(d types.PaperDetails) {
		ids = append(ids, d.PaperID)
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"W7", "W8"}, ids)
}

func TestReconstructAbstract(t *testing.T) {
	got := reconstructAbstract(map[string][]int{"b": {1, 3}, "a": {0, 2}})
	assert.Equal(t, "a b a b", got)
	assert.Equal(t, "", reconstructAbstract(nil))
}
