// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/snowball/internal/querydir"
	"github.com/pdiddy/snowball/pkg/types"
)

func sample(doi, title string) types.PaperDetails {
	return types.PaperDetails{
		PaperID:     "p-" + title,
		ExternalIDs: map[string]string{"DOI": doi, "PubMed": "1"},
		Title:       title,
		TLDR:        map[string]string{"text": "summary of " + title},
	}
}

func TestMerge_Idempotent(t *testing.T) {
	a := New(querydir.New(t.TempDir()))
	batch := []types.PaperDetails{sample("10.1/b", "B"), sample("10.1/c", "C")}

	added, err := a.Merge(batch)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = a.Merge(batch)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	papers, err := a.Load()
	require.NoError(t, err)
	require.Len(t, papers, 2)
	assert.Equal(t, "10.1/B", papers[0].PaperID)
	assert.Equal(t, types.TagAccepted, papers[0].Tag)
	assert.Equal(t, 1, papers[1].ID)
}

func TestMerge_ContentEquality(t *testing.T) {
	a := New(querydir.New(t.TempDir()))
	_, err := a.Merge([]types.PaperDetails{sample("10.1/b", "B")})
	require.NoError(t, err)

	changed := sample("10.1/b", "B")
	changed.Abstract = "now with an abstract"
	added, err := a.Merge([]types.PaperDetails{changed, changed})
	require.NoError(t, err)
	assert.Equal(t, 1, added, "same id with different content is a new record")

	papers, err := a.Load()
	require.NoError(t, err)
	assert.Len(t, papers, 2)
	assert.Equal(t, 1, papers[1].ID)
}

func TestSet_Replaces(t *testing.T) {
	a := New(querydir.New(t.TempDir()))
	_, err := a.Merge([]types.PaperDetails{sample("10.1/b", "B"), sample("10.1/c", "C")})
	require.NoError(t, err)

	require.NoError(t, a.Set([]types.PaperDetails{{PaperID: "abc", Title: "No DOI"}}))

	papers, err := a.Load()
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "S2:ABC", papers[0].PaperID)
	assert.Equal(t, 0, papers[0].ID)
}
