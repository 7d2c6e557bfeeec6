// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ident classifies and canonicalizes paper identifiers.
//
// A canonical identifier is an upper-cased DOI ("10.1000/XYZ"), a PubMed
// id ("PMID:123"), or "S2:" followed by the provider's internal id when
// the paper has no DOI.
package ident

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/snowball/pkg/types"
)

// Type classifies an identifier.
type Type int

const (
	TypeUnknown Type = iota
	TypeDOI
	TypePMID
	TypeS2
)

func (t Type) String() string {
	switch t {
	case TypeDOI:
		return "doi"
	case TypePMID:
		return "pmid"
	case TypeS2:
		return "s2"
	default:
		return "unknown"
	}
}

// S2Prefix marks identifiers that carry a provider id instead of a DOI.
const S2Prefix = "S2:"

var (
	doiPattern  = regexp.MustCompile(`^10\.\d+/\S+$`)
	pmidPattern = regexp.MustCompile(`^(?:PMID:)?(\d{1,9})$`)
)

var doiPrefixes = []string{
	"HTTPS://DOI.ORG/",
	"HTTP://DOI.ORG/",
	"HTTPS://DX.DOI.ORG/",
	"DOI.ORG/",
	"DOI:",
}

// Canonical trims and upper-cases id and strips DOI resolver prefixes.
// Canonical is idempotent.
func Canonical(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	for _, p := range doiPrefixes {
		if strings.HasPrefix(id, p) {
			return strings.TrimSpace(id[len(p):])
		}
	}
	return id
}

// Classify returns the type and canonical form of id.
func Classify(id string) (Type, string) {
	c := Canonical(id)
	switch {
	case strings.HasPrefix(c, S2Prefix) && len(c) > len(S2Prefix):
		return TypeS2, c
	case doiPattern.MatchString(c):
		return TypeDOI, c
	case pmidPattern.MatchString(c):
		m := pmidPattern.FindStringSubmatch(c)
		return TypePMID, "PMID:" + m[1]
	default:
		return TypeUnknown, c
	}
}

// FromParts derives the canonical identifier of a paper from its provider
// id and external ids: the upper-cased DOI when present, otherwise
// "S2:" plus the provider id. It returns "" when neither is known.
func FromParts(providerID string, externalIDs map[string]string) string {
	if doi := strings.TrimSpace(externalIDs["DOI"]); doi != "" {
		return Canonical(doi)
	}
	if providerID == "" {
		return ""
	}
	return S2Prefix + strings.ToUpper(providerID)
}

// PaperID derives the canonical identifier of d.
func PaperID(d types.PaperDetails) string {
	return FromParts(d.PaperID, d.ExternalIDs)
}

// SemanticID maps a canonical identifier to the form the Semantic Scholar
// graph API accepts: "DOI:..." for DOIs, "PMID:..." for PubMed ids and the
// lower-case hash for provider ids.
func SemanticID(id string) string {
	t, c := Classify(id)
	switch t {
	case TypeDOI:
		return "DOI:" + c
	case TypeS2:
		return strings.ToLower(strings.TrimPrefix(c, S2Prefix))
	default:
		return c
	}
}

// Set is a set of canonical identifiers.
type Set map[string]struct{}

// NewSet canonicalizes ids into a set, dropping blanks.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add canonicalizes id and adds it; blank ids are ignored.
func (s Set) Add(id string) {
	if c := Canonical(id); c != "" {
		s[c] = struct{}{}
	}
}

// Has reports whether the canonical form of id is in s.
func (s Set) Has(id string) bool {
	_, ok := s[Canonical(id)]
	return ok
}

// Remove deletes the canonical form of id.
func (s Set) Remove(id string) {
	delete(s, Canonical(id))
}

// AddAll adds every member of o.
func (s Set) AddAll(o Set) {
	for id := range o {
		s[id] = struct{}{}
	}
}

// Minus returns the members of s that are in none of others.
func (s Set) Minus(others ...Set) Set {
	out := make(Set, len(s))
outer:
	for id := range s {
		for _, o := range others {
			if _, ok := o[id]; ok {
				continue outer
			}
		}
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.AddAll(s)
	return out
}
