// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive maintains the corpus of every paper a query has seen,
// stored as a JSON array in archived.txt.
package archive

import (
	"encoding/json"
	"fmt"

	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/internal/querydir"
	"github.com/pdiddy/snowball/pkg/types"
)

// Archive is the archived.txt corpus of one query directory.
type Archive struct {
	dir querydir.Dir
}

// New returns the archive of dir.
func New(dir querydir.Dir) *Archive {
	return &Archive{dir: dir}
}

// Load returns all archived papers.
func (a *Archive) Load() ([]types.Paper, error) {
	return a.dir.ReadPapers(querydir.Archived)
}

// Merge adds every record of details whose full content is not archived
// yet, tagged Accepted, and rewrites the archive. It returns the number of
// papers added. Merging the same records twice leaves the archive unchanged.
func (a *Archive) Merge(details []types.PaperDetails) (int, error) {
	existing, err := a.Load()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(existing)+len(details))
	for _, p := range existing {
		seen[contentKey(p.Details)] = struct{}{}
	}

	var fresh []types.PaperDetails
	for _, d := range details {
		key := contentKey(d)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, d)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	merged := append(existing, NewPapers(fresh, types.TagAccepted, len(existing))...)
	if err := a.dir.WritePapers(querydir.Archived, merged); err != nil {
		return 0, fmt.Errorf("merging archive: %w", err)
	}
	return len(fresh), nil
}

// Set replaces the archive with details.
func (a *Archive) Set(details []types.PaperDetails) error {
	if err := a.dir.WritePapers(querydir.Archived, NewPapers(details, types.TagAccepted, 0)); err != nil {
		return fmt.Errorf("replacing archive: %w", err)
	}
	return nil
}

// NewPapers wraps details as papers with sequence ids starting at first and
// canonical paper ids.
func NewPapers(details []types.PaperDetails, tag types.Tag, first int) []types.Paper {
	papers := make([]types.Paper, 0, len(details))
	for i, d := range details {
		papers = append(papers, types.Paper{
			ID:      first + i,
			Details: d,
			Tag:     tag,
			PaperID: ident.PaperID(d),
		})
	}
	return papers
}

// contentKey is the canonical JSON encoding of d. encoding/json sorts map
// keys, so equal records give equal keys.
func contentKey(d types.PaperDetails) string {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%#v", d)
	}
	return string(b)
}
