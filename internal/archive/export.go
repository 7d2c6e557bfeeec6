// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/pkg/types"
)

// CSLItem is a bibliographic entry in CSL (Citation Style Language) form,
// consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Volume         string    `yaml:"volume,omitempty"`
	Page           string    `yaml:"page,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a date in CSL date-parts form.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes papers as a CSL-YAML list to w.
func FormatCSL(papers []types.Paper, w io.Writer) error {
	items := make([]CSLItem, len(papers))
	for i, p := range papers {
		items[i] = toCSLItem(p)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(p types.Paper) CSLItem {
	d := p.Details
	id := p.PaperID
	if id == "" {
		id = ident.PaperID(d)
	}
	item := CSLItem{
		ID:             id,
		Type:           cslType(d.PublicationTypes),
		Title:          d.Title,
		ContainerTitle: container(d),
		Volume:         strings.TrimSpace(d.Journal["volume"]),
		Page:           strings.TrimSpace(d.Journal["pages"]),
		Abstract:       d.Abstract,
		DOI:            d.DOI(),
		PMID:           d.ExternalIDs["PubMed"],
	}
	for _, a := range d.Authors {
		if n := parseAuthorName(a); n != (CSLName{}) {
			item.Author = append(item.Author, n)
		}
	}
	if parts := dateParts(d.PublicationDate); parts != nil {
		item.Issued = &CSLDate{DateParts: [][]int{parts}}
	}
	return item
}

func cslType(pubTypes []string) string {
	for _, t := range pubTypes {
		switch t {
		case "JournalArticle", "Review", "CaseReport", "ClinicalTrial":
			return "article-journal"
		case "Conference":
			return "paper-conference"
		}
	}
	return "article"
}

func container(d types.PaperDetails) string {
	if name := strings.TrimSpace(d.Journal["name"]); name != "" {
		return name
	}
	return strings.TrimSpace(d.Venue)
}

// dateParts parses "YYYY-MM-DD" or "YYYY" into CSL date parts.
func dateParts(date string) []int {
	date = strings.TrimSpace(date)
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return []int{t.Year(), int(t.Month()), t.Day()}
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			return []int{y}
		}
	}
	return nil
}

// parseAuthorName splits a full name on the last space into given and
// family parts. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}

// FormatRIS writes papers as RIS records to w.
func FormatRIS(papers []types.Paper, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, p := range papers {
		d := p.Details
		risLine(bw, "TY", risType(d.PublicationTypes))
		risLine(bw, "TI", d.Title)
		for _, a := range d.Authors {
			risLine(bw, "AU", risAuthor(a))
		}
		if parts := dateParts(d.PublicationDate); parts != nil {
			risLine(bw, "PY", strconv.Itoa(parts[0]))
			if len(parts) == 3 {
				risLine(bw, "DA", fmt.Sprintf("%04d/%02d/%02d", parts[0], parts[1], parts[2]))
			}
		}
		risLine(bw, "JO", container(d))
		risLine(bw, "VL", strings.TrimSpace(d.Journal["volume"]))
		if sp, ep, ok := strings.Cut(strings.TrimSpace(d.Journal["pages"]), "-"); ok {
			risLine(bw, "SP", strings.TrimSpace(sp))
			risLine(bw, "EP", strings.TrimSpace(ep))
		} else {
			risLine(bw, "SP", sp)
		}
		risLine(bw, "DO", d.DOI())
		risLine(bw, "AB", d.Abstract)
		risLine(bw, "ID", p.PaperID)
		fmt.Fprint(bw, "ER  - \n\n")
	}
	return bw.Flush()
}

func risLine(w io.Writer, tag, value string) {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%s  - %s\n", tag, value)
}

func risType(pubTypes []string) string {
	switch cslType(pubTypes) {
	case "article-journal":
		return "JOUR"
	case "paper-conference":
		return "CONF"
	default:
		return "GEN"
	}
}

func risAuthor(name string) string {
	n := parseAuthorName(name)
	if n.Literal != "" {
		return n.Literal
	}
	if n.Family == "" {
		return ""
	}
	return n.Family + ", " + n.Given
}
