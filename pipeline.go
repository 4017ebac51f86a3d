package main

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
)

// RunSummary tracks what one classification run did, per verdict stage and
// per ledger transition. Skipped holds malformed-record notes from the fetch
// phase.
type RunSummary struct {
	RunID       string
	Classified  int
	ByStage     map[MatchStage]int
	Excluded    int
	Transitions map[string]int
	Warnings    []ReconciliationWarning
	Skipped     []string
}

// ClassifyAndReconcile classifies every stored resource against the registry
// and folds the verdicts into the curation ledger. Verdicts are appended to
// the audit trail unconditionally; statuses are only written where the
// reconciliation rules allow it.
func ClassifyAndReconcile(db *sql.DB, reg *KeywordRegistry, runID string) (RunSummary, error) {
	summary := RunSummary{
		RunID:       runID,
		ByStage:     make(map[MatchStage]int),
		Transitions: make(map[string]int),
	}

	records, err := GetAllResources(db)
	if err != nil {
		return summary, fmt.Errorf("loading resources: %w", err)
	}
	statuses, err := GetAllStatuses(db)
	if err != nil {
		return summary, fmt.Errorf("loading curation ledger: %w", err)
	}

	verdicts := ClassifyAll(records, reg, runID)
	if err := InsertVerdicts(db, verdicts); err != nil {
		return summary, fmt.Errorf("storing verdicts: %w", err)
	}

	var updates []CurationStatus
	for _, v := range verdicts {
		summary.Classified++
		summary.ByStage[v.Stage]++
		if v.ExcludedBy != "" {
			summary.Excluded++
		}

		var existing *CurationStatus
		before := CurationUnseen
		if s, ok := statuses[v.ResourceID]; ok {
			existing = &s
			before = s.Stage
		}

		updated, warning := Reconcile(v, existing)
		if warning != nil {
			log.Printf("reconcile warning: %s", warning)
			summary.Warnings = append(summary.Warnings, *warning)
		}
		if updated.Stage != before {
			summary.Transitions[fmt.Sprintf("%s->%s", before, updated.Stage)]++
			updates = append(updates, updated)
		} else if existing == nil {
			updates = append(updates, updated)
		}
	}

	if err := SaveCurationStatuses(db, updates); err != nil {
		return summary, fmt.Errorf("storing curation statuses: %w", err)
	}
	return summary, nil
}

// FormatRunSummary renders a run summary for logs and channel posts.
func FormatRunSummary(s RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Classified %d resources (run %s)\n", s.Classified, s.RunID)

	for _, stage := range []MatchStage{StageOntology, StageTag, StageTitle, StageDescription, StageNone} {
		if n := s.ByStage[stage]; n > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", stage, n)
		}
	}
	if s.Excluded > 0 {
		fmt.Fprintf(&b, "  excluded by deny phrase: %d\n", s.Excluded)
	}

	if len(s.Transitions) > 0 {
		keys := make([]string, 0, len(s.Transitions))
		for k := range s.Transitions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Ledger transitions:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %d\n", k, s.Transitions[k])
		}
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintf(&b, "Human/machine disagreements: %d\n", len(s.Warnings))
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, "Skipped malformed records: %d\n", len(s.Skipped))
		for _, msg := range s.Skipped {
			fmt.Fprintf(&b, "  %s\n", msg)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
