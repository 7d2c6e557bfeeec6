// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PaperDetails is the paper record exchanged with the scholarly-graph
// backends. Optional fields are omitted from JSON when empty so that two
// records with the same content always encode identically.
type PaperDetails struct {
	// PaperID is the provider's internal identifier.
	PaperID string `json:"paperId,omitempty"`

	// ExternalIDs maps id kinds ("DOI", "PubMed", "PubMedCentral") to values.
	ExternalIDs map[string]string `json:"externalIds,omitempty"`

	// Authors lists author display names.
	Authors []string `json:"authors,omitempty"`

	Title    string            `json:"title,omitempty"`
	Venue    string            `json:"venue,omitempty"`
	Journal  map[string]string `json:"journal,omitempty"`
	Abstract string            `json:"abstract,omitempty"`

	// PublicationTypes uses the provider vocabulary, see ArticleTypes.
	PublicationTypes []string `json:"publicationTypes,omitempty"`

	// TLDR is the short machine summary; the text lives under key "text".
	TLDR map[string]string `json:"tldr,omitempty"`

	// PublicationDate is "YYYY-MM-DD" or "YYYY".
	PublicationDate string `json:"publicationDate,omitempty"`
}

// DOI returns the DOI external id, or "".
func (d PaperDetails) DOI() string {
	return d.ExternalIDs["DOI"]
}

// Summary returns the TLDR text, or "".
func (d PaperDetails) Summary() string {
	return d.TLDR["text"]
}

// Tag marks a paper as accepted or rejected during supervised review.
type Tag string

const (
	TagAccepted Tag = "ACCEPTED"
	TagRejected Tag = "REJECTED"
)

// Paper is an archived record: details plus review state.
type Paper struct {
	// ID is the sequence number inside the file it was read from.
	ID int `json:"id"`

	Details PaperDetails `json:"details"`
	Tag     Tag          `json:"tag"`

	// Flags holds free-form annotation labels.
	Flags []string `json:"flags,omitempty"`

	// PaperID is the canonical identifier: upper-cased DOI, or "S2:" plus
	// the provider id when no DOI exists.
	PaperID string `json:"paperId"`
}

// ArticleTypes is the publication type vocabulary accepted by pubType filters.
var ArticleTypes = []string{
	"JournalArticle",
	"CaseReport",
	"ClinicalTrial",
	"Conference",
	"Editorial",
	"Review",
}
