// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"fmt"
	"strings"

	"github.com/pdiddy/snowball/pkg/types"
)

// Matcher applies the mandatory and forbidden keyword rules of a query.
type Matcher struct {
	Mandatory *Pattern
	Forbidden *Pattern
}

// New compiles both keyword settings of setting.
func New(setting types.QuerySetting) (*Matcher, error) {
	mandatory, err := Compile(setting.MandatoryKeyWords)
	if err != nil {
		return nil, fmt.Errorf("mandatory keywords: %w", err)
	}
	forbidden, err := Compile(setting.ForbiddenKeyWords)
	if err != nil {
		return nil, fmt.Errorf("forbidden keywords: %w", err)
	}
	return &Matcher{Mandatory: mandatory, Forbidden: forbidden}, nil
}

// Match reports whether text satisfies the mandatory rule and title does
// not satisfy the forbidden rule.
func (m *Matcher) Match(text, title string) bool {
	return m.Mandatory.Match(text) && !m.Forbidden.Match(title)
}

// Forbids reports whether title hits the forbidden rule.
func (m *Matcher) Forbids(title string) bool {
	return m.Forbidden.Match(title)
}

// Accepts applies Match to a paper: the mandatory rule sees title, TLDR and
// abstract; the forbidden rule sees the title only.
func (m *Matcher) Accepts(d types.PaperDetails) bool {
	return m.Match(Text(d), d.Title)
}

// Text joins the searchable text fields of d.
func Text(d types.PaperDetails) string {
	return strings.Join([]string{d.Title, d.Summary(), d.Abstract}, " ")
}
