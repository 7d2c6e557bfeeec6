// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bytes"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/snowball/pkg/types"
)

func exportSample() []types.Paper {
	return []types.Paper{{
		ID:      0,
		PaperID: "10.1/ABC",
		Tag:     types.TagAccepted,
		Details: types.PaperDetails{
			PaperID:          "abc",
			ExternalIDs:      map[string]string{"DOI": "10.1/abc", "PubMed": "12345"},
			Authors:          []string{"Ada Lovelace", "Plato"},
			Title:            "Analytical   engines",
			Journal:          map[string]string{"name": "J. Comp.", "volume": "7", "pages": "12-20"},
			Abstract:         "An abstract.",
			PublicationTypes: []string{"JournalArticle"},
			PublicationDate:  "1843-09-05",
		},
	}}
}

func TestToCSLItem(t *testing.T) {
	item := toCSLItem(exportSample()[0])

	if item.Type != "article-journal" {
		t.Errorf("Type = %q, want article-journal", item.Type)
	}
	if item.ContainerTitle != "J. Comp." {
		t.Errorf("ContainerTitle = %q", item.ContainerTitle)
	}
	if item.DOI != "10.1/abc" || item.PMID != "12345" {
		t.Errorf("DOI/PMID = %q/%q", item.DOI, item.PMID)
	}
	if len(item.Author) != 2 || item.Author[0].Family != "Lovelace" || item.Author[1].Literal != "Plato" {
		t.Errorf("Author = %+v", item.Author)
	}
	if item.Issued == nil || len(item.Issued.DateParts[0]) != 3 || item.Issued.DateParts[0][0] != 1843 {
		t.Errorf("Issued = %+v", item.Issued)
	}
}

func TestCSLYearOnlyAndVenueFallback(t *testing.T) {
	item := toCSLItem(types.Paper{Details: types.PaperDetails{PaperID: "x", Venue: "NeurIPS", PublicationDate: "2019", PublicationTypes: []string{"Conference"}}})
	if item.ID != "S2:X" {
		t.Errorf("ID = %q, want S2:X", item.ID)
	}
	if item.Type != "paper-conference" || item.ContainerTitle != "NeurIPS" {
		t.Errorf("item = %+v", item)
	}
	if item.Issued == nil || len(item.Issued.DateParts[0]) != 1 {
		t.Errorf("Issued = %+v", item.Issued)
	}
}

func TestFormatCSL_ValidYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := FormatCSL(exportSample(), &buf); err != nil {
		t.Fatalf("FormatCSL: %v", err)
	}
	var items []map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &items); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if len(items) != 1 || items[0]["id"] != "10.1/ABC" {
		t.Errorf("items = %v", items)
	}
}

func TestFormatRIS(t *testing.T) {
	var buf bytes.Buffer
	if err := FormatRIS(exportSample(), &buf); err != nil {
		t.Fatalf("FormatRIS: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"TY  - JOUR\n",
		"TI  - Analytical engines\n",
		"AU  - Lovelace, Ada\n",
		"AU  - Plato\n",
		"PY  - 1843\n",
		"DA  - 1843/09/05\n",
		"JO  - J. Comp.\n",
		"SP  - 12\n",
		"EP  - 20\n",
		"DO  - 10.1/abc\n",
		"ER  - \n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RIS output missing %q:\n%s", want, out)
		}
	}
}
