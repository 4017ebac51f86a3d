package main

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ResourceRecord is the canonical view of one registry entry. It is built
// once by the field extractor and never mutated afterwards.
type ResourceRecord struct {
	ID          string   // "<source>/<native id>", stable across runs
	Source      string   // "workflowhub", "dev.workflowhub", "biotools", ...
	Link        string
	Title       string
	Description string
	Tags        []string // lowercased, deduplicated, sorted
	Topics      []string // EDAM topic labels, sorted
	Operations  []string // EDAM operation labels, sorted
	Tools       []string // declared tool ids, source order
	Creators    []string
	Projects    []string // registry project/team titles the resource belongs to
	License     string
	DOI         string
	Steps       int
	CreatedAt   string // "2006-01-02", empty when the source has no date
	UpdatedAt   string
}

type MatchStage string

const (
	StageOntology    MatchStage = "ONTOLOGY"
	StageTag         MatchStage = "TAG"
	StageTitle       MatchStage = "TITLE"
	StageDescription MatchStage = "DESCRIPTION"
	StageNone        MatchStage = "NONE"
)

// Verdict is the outcome of one classification of one resource. Verdicts are
// append-only: re-running the classifier adds a new row, it never rewrites
// history.
type Verdict struct {
	ResourceID string
	Included   bool
	Stage      MatchStage
	Rule       string // rule id that matched, "" when Stage is NONE
	ExcludedBy string // deny-phrase that flipped the verdict, "" otherwise
	RunID      string
}

// Reason renders the human-facing "Filtered on" string, e.g.
// "metage.* in title" or "Metagenomics in EDAM terms".
func (v Verdict) Reason() string {
	if v.ExcludedBy != "" {
		return fmt.Sprintf("excluded: %s in text", v.ExcludedBy)
	}
	switch v.Stage {
	case StageOntology:
		return fmt.Sprintf("%s in EDAM terms", v.Rule)
	case StageTag:
		return fmt.Sprintf("%s in tags", v.Rule)
	case StageTitle:
		return fmt.Sprintf("%s in title", v.Rule)
	case StageDescription:
		return fmt.Sprintf("%s in description", v.Rule)
	default:
		return ""
	}
}

type CurationStage string

const (
	CurationUnseen      CurationStage = "UNSEEN"
	CurationFilteredIn  CurationStage = "FILTERED_IN"
	CurationFilteredOut CurationStage = "FILTERED_OUT"
	CurationCuratedIn   CurationStage = "CURATED_IN"
	CurationCuratedOut  CurationStage = "CURATED_OUT"
)

type Decider string

const (
	DecidedByMachine Decider = "MACHINE"
	DecidedByHuman   Decider = "HUMAN"
)

// CurationStatus is one row of the curation ledger. Only the curation
// tracker writes these; the classifier proposes, never decides.
type CurationStatus struct {
	ResourceID string
	Stage      CurationStage
	DecidedBy  Decider
	Note       string
	UpdatedAt  time.Time
}

// Accepted reports whether a resource belongs in the exported catalogue.
func (s CurationStatus) Accepted() bool {
	return s.Stage == CurationFilteredIn || s.Stage == CurationCuratedIn
}

// normalizeSet lowercases, trims, deduplicates and sorts, so that two raw
// records differing only in tag order or case extract identically.
func normalizeSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// dedupeKeepOrder trims and deduplicates while preserving source order,
// used for tool lists where order carries meaning.
func dedupeKeepOrder(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(strings.ReplaceAll(v, "\n", " "))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func formatDate(iso string) string {
	if iso == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}
