// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/snowball/pkg/types"
)

func TestPattern_BooleanExpression(t *testing.T) {
	p, err := Compile([]string{"(A or B) and not C"})
	require.NoError(t, err)
	require.True(t, p.IsExpression())
	assert.Equal(t, []string{"A", "B", "C"}, p.Terms())

	tests := []struct {
		text string
		want bool
	}{
		{"contains A only", true},
		{"contains b in lower case", true},
		{"A and C together", false},
		{"only C here", false},
		{"B C", false},
		{"nothing relevant", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Match(tt.text), "text %q", tt.text)
	}
}

func TestPattern_WholeWordCaseInsensitive(t *testing.T) {
	p, err := Compile([]string{"cat"})
	require.NoError(t, err)

	assert.False(t, p.Match("a category of things"))
	assert.True(t, p.Match("The CAT sat"))
	assert.True(t, p.Match("cat."))
}

func TestPattern_PlainListAnyPhrase(t *testing.T) {
	p, err := Compile([]string{"heart failure", "cardiomyopathy"})
	require.NoError(t, err)
	assert.False(t, p.IsExpression())

	assert.True(t, p.Match("acute Heart Failure in adults"))
	assert.True(t, p.Match("dilated cardiomyopathy"))
	assert.False(t, p.Match("heart rate"))
}

func TestPattern_EmptyMatchesNothing(t *testing.T) {
	p, err := Compile(nil)
	require.NoError(t, err)
	assert.False(t, p.Match("anything"))
}

func TestPattern_Wildcard(t *testing.T) {
	p, err := Compile([]string{"(tumo*r or neoplas*) and not mouse"})
	require.NoError(t, err)

	assert.True(t, p.Match("a benign tumour"))
	assert.True(t, p.Match("tumor growth"))
	assert.True(t, p.Match("neoplasia"))
	assert.False(t, p.Match("tumor in mouse models"))
}

func TestPattern_DottedTerm(t *testing.T) {
	p, err := Compile([]string{"ST3GAL.2"})
	require.NoError(t, err)

	assert.True(t, p.Match("expression of ST3GAL2"))
	assert.True(t, p.Match("expression of st3gal-2"))
	assert.True(t, p.Match("ST3GAL.2 knockout"))
	assert.False(t, p.Match("ST3GAL12"))
}

func TestPattern_UpperCaseOperators(t *testing.T) {
	p, err := Compile([]string{"(alpha AND beta) OR gamma"})
	require.NoError(t, err)

	assert.True(t, p.Match("alpha beta"))
	assert.True(t, p.Match("gamma"))
	assert.False(t, p.Match("alpha"))
}

func TestPattern_OperatorInsideTerm(t *testing.T) {
	p, err := Compile([]string{"(rock-and-roll or jazz) and not(cover band)"})
	require.NoError(t, err)
	require.True(t, p.IsExpression())
	assert.Equal(t, []string{"rock-and-roll", "jazz", "cover band"}, p.Terms())

	assert.True(t, p.Match("a history of Rock-and-Roll"))
	assert.True(t, p.Match("late jazz"))
	assert.False(t, p.Match("rock music"))
	assert.False(t, p.Match("jazz by a cover band"))

	assert.False(t, IsExpression([]string{"(rock-and-roll)"}))
}

func TestPattern_PunctuatedTerm(t *testing.T) {
	p, err := Compile([]string{"C++", ".NET"})
	require.NoError(t, err)

	assert.True(t, p.Match("written in C++ and Java"))
	assert.True(t, p.Match("c++"))
	assert.True(t, p.Match("ported to .NET"))
	assert.False(t, p.Match("C"))
	assert.False(t, p.Match("C++x"))
	assert.False(t, p.Match("ASP.NETCore"))

	expr, err := Compile([]string{"(C++ or rust) and not java"})
	require.NoError(t, err)
	assert.True(t, expr.Match("modern C++ idioms"))
	assert.False(t, expr.Match("C++ and java"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]string{"(a or b) and not c"}))
	assert.NoError(t, Validate([]string{"plain", "list"}))
	assert.NoError(t, Validate(nil))

	err := Validate([]string{"(a and or b"})
	assert.True(t, errors.Is(err, ErrInvalidExpression), "got %v", err)

	err = Validate([]string{"(a and b"})
	assert.True(t, errors.Is(err, ErrInvalidExpression), "got %v", err)
}

func TestParseSetting(t *testing.T) {
	assert.Equal(t, []string{"(a or b) and c"}, ParseSetting(" (a or b) and c "))
	assert.Equal(t, []string{"alpha", "beta gamma"}, ParseSetting("alpha, beta gamma,,"))
	assert.Nil(t, ParseSetting("  "))
	assert.Equal(t, []string{"(no logic here)"}, ParseSetting("(no logic here)"))
}

func TestMatcher_MandatoryAndForbidden(t *testing.T) {
	m, err := New(types.QuerySetting{
		MandatoryKeyWords: []string{"alpha"},
		ForbiddenKeyWords: []string{"retracted"},
	})
	require.NoError(t, err)

	hit := types.PaperDetails{Title: "On things", Abstract: "The alpha pathway"}
	assert.True(t, m.Accepts(hit))

	viaTLDR := types.PaperDetails{Title: "On things", TLDR: map[string]string{"text": "alpha matters"}}
	assert.True(t, m.Accepts(viaTLDR))

	forbiddenTitle := types.PaperDetails{Title: "Retracted: alpha study"}
	assert.False(t, m.Accepts(forbiddenTitle))

	forbiddenOnlyInAbstract := types.PaperDetails{Title: "alpha", Abstract: "not retracted"}
	assert.True(t, m.Accepts(forbiddenOnlyInAbstract))
}

func TestDateMatcher(t *testing.T) {
	tests := []struct {
		filter string
		date   string
		want   bool
	}{
		{"", "2002", true},
		{"", "2002-01-04", true},
		{"", "", true},
		{"2002", "2002", true},
		{"2000-2004", "2002", true},
		{"1999", "2002", false},
		{"1997-1999", "2002", false},
		{"1999-", "2002", true},
		{"2004-", "2002", false},
		{"2004-2006", "2002", false},
		{"-2006", "2002", true},
		{"-1999", "2002", false},
		{"2002-", "2002-05-01", true},
		{"-2002", "2002", true},
		{"2002", "", false},
	}
	for _, tt := range tests {
		m, err := NewDateMatcher(tt.filter)
		require.NoError(t, err, "filter %q", tt.filter)
		assert.Equal(t, tt.want, m.Matches(tt.date), "filter %q date %q", tt.filter, tt.date)
	}

	_, err := NewDateMatcher("20x2")
	assert.Error(t, err)
	_, err = NewDateMatcher("-")
	assert.Error(t, err)
}

func TestTypeMatches(t *testing.T) {
	assert.True(t, TypeMatches([]string{"Review"}, nil))
	assert.True(t, TypeMatches(nil, []string{"Review"}))
	assert.True(t, TypeMatches([]string{"JournalArticle", "Review"}, []string{"Review"}))
	assert.False(t, TypeMatches([]string{"Editorial"}, []string{"Review", "CaseReport"}))
}

func TestProviderQueries(t *testing.T) {
	expr, err := Compile([]string{"(heart failure or cardiomyopathy) and not mouse"})
	require.NoError(t, err)
	assert.Equal(t, `("heart failure" | cardiomyopathy) + -mouse`, S2Query(expr))
	assert.Equal(t, `("heart failure" OR cardiomyopathy) AND NOT mouse`, OpenAlexQuery(expr))

	list, err := Compile([]string{"alpha", "beta gamma"})
	require.NoError(t, err)
	assert.Equal(t, `alpha | "beta gamma"`, S2Query(list))
	assert.Equal(t, `alpha OR "beta gamma"`, OpenAlexQuery(list))
}
