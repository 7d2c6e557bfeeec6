// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import "strings"

type querySyntax struct {
	and, or, not string
}

var (
	semanticSyntax = querySyntax{and: " + ", or: " | ", not: "-"}
	openAlexSyntax = querySyntax{and: " AND ", or: " OR ", not: "NOT "}
)

// S2Query renders p in Semantic Scholar bulk search syntax:
// "+" for and, "|" for or, "-" for not, phrases in double quotes.
func S2Query(p *Pattern) string {
	return render(p, semanticSyntax)
}

// OpenAlexQuery renders p in OpenAlex search syntax with upper-case
// boolean operators.
func OpenAlexQuery(p *Pattern) string {
	return render(p, openAlexSyntax)
}

func render(p *Pattern, syn querySyntax) string {
	if !p.IsExpression() {
		parts := make([]string, 0, len(p.terms))
		for _, t := range p.terms {
			parts = append(parts, quote(t))
		}
		return strings.Join(parts, syn.or)
	}

	var b strings.Builder
	for _, tok := range p.tokens {
		switch tok.kind {
		case tokLeaf:
			b.WriteString(quote(tok.text))
		case tokOpen:
			b.WriteString("(")
		case tokClose:
			b.WriteString(")")
		case tokAnd:
			b.WriteString(syn.and)
		case tokOr:
			b.WriteString(syn.or)
		case tokNot:
			b.WriteString(syn.not)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func quote(term string) string {
	if strings.ContainsAny(term, " \t") {
		return `"` + term + `"`
	}
	return term
}
