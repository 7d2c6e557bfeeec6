// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ident

import (
	"testing"

	"github.com/pdiddy/snowball/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType Type
		wantNorm string
	}{
		{"lower-case DOI", "10.1038/nature12373", TypeDOI, "10.1038/NATURE12373"},
		{"DOI with whitespace", "  10.1/a  ", TypeDOI, "10.1/A"},
		{"DOI resolver URL", "https://doi.org/10.1145/3368089.3409741", TypeDOI, "10.1145/3368089.3409741"},
		{"doi: prefix", "doi:10.1016/j.cell.2020.01.001", TypeDOI, "10.1016/J.CELL.2020.01.001"},
		{"bare PMID", "31452104", TypePMID, "PMID:31452104"},
		{"prefixed PMID", "pmid:31452104", TypePMID, "PMID:31452104"},
		{"provider id", "s2:649def34f8be52c8b66281af98ae884c09aef38b", TypeS2, "S2:649DEF34F8BE52C8B66281AF98AE884C09AEF38B"},
		{"empty", "", TypeUnknown, ""},
		{"garbage", "hello world", TypeUnknown, "HELLO WORLD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotNorm := Classify(tt.input)
			if gotType != tt.wantType {
				t.Errorf("Classify(%q) type = %v, want %v", tt.input, gotType, tt.wantType)
			}
			if gotNorm != tt.wantNorm {
				t.Errorf("Classify(%q) norm = %q, want %q", tt.input, gotNorm, tt.wantNorm)
			}
		})
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	for _, in := range []string{"10.1/a", " https://doi.org/10.5/xY ", "S2:abc", "PMID:1"} {
		once := Canonical(in)
		if twice := Canonical(once); twice != once {
			t.Errorf("Canonical(Canonical(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestPaperID(t *testing.T) {
	withDOI := types.PaperDetails{PaperID: "abc", ExternalIDs: map[string]string{"DOI": "10.1/xyz"}}
	if got := PaperID(withDOI); got != "10.1/XYZ" {
		t.Errorf("PaperID with DOI = %q", got)
	}

	noDOI := types.PaperDetails{PaperID: "abc123"}
	if got := PaperID(noDOI); got != "S2:ABC123" {
		t.Errorf("PaperID without DOI = %q", got)
	}

	if got := PaperID(types.PaperDetails{}); got != "" {
		t.Errorf("PaperID of empty details = %q, want empty", got)
	}

	if PaperID(withDOI) != PaperID(withDOI) {
		t.Error("PaperID is not deterministic")
	}
}

func TestSemanticID(t *testing.T) {
	tests := map[string]string{
		"10.1/ABC":   "DOI:10.1/ABC",
		"S2:ABCDEF0": "abcdef0",
		"PMID:42":    "PMID:42",
	}
	for in, want := range tests {
		if got := SemanticID(in); got != want {
			t.Errorf("SemanticID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetOperations(t *testing.T) {
	s := NewSet("10.1/a", " 10.1/B", "", "10.1/C")
	if len(s) != 3 {
		t.Fatalf("len = %d, want 3", len(s))
	}
	if !s.Has("10.1/A") || !s.Has("10.1/b") {
		t.Error("Has should compare canonical forms")
	}

	diff := s.Minus(NewSet("10.1/a"), NewSet("10.1/c"))
	got := diff.Sorted()
	if len(got) != 1 || got[0] != "10.1/B" {
		t.Errorf("Minus = %v, want [10.1/B]", got)
	}

	c := s.Clone()
	c.Remove("10.1/a")
	if !s.Has("10.1/a") {
		t.Error("Clone shares storage with original")
	}
}
