// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the snowball engine:
// query settings, paper records, and configuration.
package types

import "fmt"

// QueryType selects how a query grows its accepted set.
type QueryType string

const (
	ExpressionSearch      QueryType = "EXPRESSION_SEARCH"
	Snowballing           QueryType = "SNOWBALLING"
	SupervisedSnowballing QueryType = "SUPERVISED_SNOWBALLING"
	SimilaritySearch      QueryType = "SIMILARITY_SEARCH"
)

// ParseQueryType accepts the JSON names and the short CLI names
// (expression, snowball, supervised, similarity).
func ParseQueryType(s string) (QueryType, error) {
	switch s {
	case string(ExpressionSearch), "expression":
		return ExpressionSearch, nil
	case string(Snowballing), "snowball":
		return Snowballing, nil
	case string(SupervisedSnowballing), "supervised", "":
		return SupervisedSnowballing, nil
	case string(SimilaritySearch), "similarity":
		return SimilaritySearch, nil
	default:
		return "", fmt.Errorf("unknown query type %q", s)
	}
}

// QueryStatus is the position of a query in the expand/filter cycle.
type QueryStatus string

const (
	StatusUninitialized QueryStatus = "uninitialized"
	StatusFiltered2     QueryStatus = "filtered2"
	StatusExpanded      QueryStatus = "expanded"
	StatusFiltered1     QueryStatus = "filtered1"

	// StatusExploded marks an automatic expansion that grew past the
	// explosion limit. It is reported in the result only: AutoSnowball
	// returns the query to StatusFiltered2, so no query is left in it.
	StatusExploded QueryStatus = "exploded"
)

// QuerySetting is persisted as settings.json in the query directory.
//
// MandatoryKeyWords and ForbiddenKeyWords hold either plain phrases or a
// single element holding one boolean expression such as
// "(cancer or tumor) and not mouse".
type QuerySetting struct {
	Type              QueryType `json:"type"`
	StartDOIs         []string  `json:"startDois"`
	MandatoryKeyWords []string  `json:"mandatoryKeyWords"`
	ForbiddenKeyWords []string  `json:"forbiddenKeyWords"`
	Classifier        string    `json:"classifier"`
	AnnotationClasses []string  `json:"annotationClasses"`

	// PubDate restricts expression search hits: "2002", "2000-2004",
	// "1999-", "-2006", or empty for any date.
	PubDate string `json:"pubDate"`

	// PubType restricts expression search hits to these ArticleTypes.
	PubType []string `json:"pubType"`
}
