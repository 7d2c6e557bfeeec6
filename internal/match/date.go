// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// DateMatcher filters publication dates by year range. Accepted forms:
// "" (any), "2002", "2000-2004", "1999-" and "-2006". Bounds are inclusive.
type DateMatcher struct {
	any      bool
	from, to int
}

// NewDateMatcher parses a year range.
func NewDateMatcher(filter string) (DateMatcher, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return DateMatcher{any: true}, nil
	}

	lo, hi, isRange := strings.Cut(filter, "-")
	if !isRange {
		hi = lo
	}
	m := DateMatcher{from: 0, to: 9999}
	var err error
	if lo = strings.TrimSpace(lo); lo != "" {
		if m.from, err = strconv.Atoi(lo); err != nil {
			return DateMatcher{}, fmt.Errorf("invalid date range %q: %w", filter, err)
		}
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		if m.to, err = strconv.Atoi(hi); err != nil {
			return DateMatcher{}, fmt.Errorf("invalid date range %q: %w", filter, err)
		}
	}
	if lo == "" && hi == "" {
		return DateMatcher{}, fmt.Errorf("invalid date range %q", filter)
	}
	return m, nil
}

// Matches reports whether the year of date ("YYYY" or "YYYY-MM-DD") lies in
// the range. An empty or malformed date only matches the "any" filter.
func (m DateMatcher) Matches(date string) bool {
	if m.any {
		return true
	}
	if len(date) < 4 {
		return false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return false
	}
	return year >= m.from && year <= m.to
}

// TypeMatches reports whether a paper with pubTypes passes a type filter.
// An empty filter passes everything, as do papers without type data.
func TypeMatches(pubTypes, wanted []string) bool {
	if len(wanted) == 0 || pubTypes == nil {
		return true
	}
	for _, t := range pubTypes {
		if slices.Contains(wanted, t) {
			return true
		}
	}
	return false
}
