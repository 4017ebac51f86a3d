package main

import (
	"database/sql"
	"fmt"
)

// ReconciliationWarning records a disagreement between a fresh machine
// verdict and an existing human decision. Disagreement is expected and
// informative, never an error: the human stage stays untouched and the
// warning lands in the run summary and audit trail.
type ReconciliationWarning struct {
	ResourceID    string
	HumanStage    CurationStage
	ProposedStage CurationStage
	Rule          string
}

func (w ReconciliationWarning) String() string {
	return fmt.Sprintf("%s: machine proposes %s (rule %q) but human decided %s",
		w.ResourceID, w.ProposedStage, w.Rule, w.HumanStage)
}

// proposedStage maps a verdict onto the machine-owned curation stages.
func proposedStage(v Verdict) CurationStage {
	if v.Included {
		return CurationFilteredIn
	}
	return CurationFilteredOut
}

// Reconcile merges one machine verdict with the persisted curation status of
// the same resource. Rules, in order:
//
//   - no status yet, or UNSEEN: adopt the machine verdict
//   - last decision was by the machine: a newer machine verdict may replace it
//   - last decision was by a human: the stage is terminal for the machine;
//     a disagreement yields a warning, never a write
//
// Moving a resource out of a human stage requires an explicit re-curation
// through ApplyHumanDecisions, nothing here does it implicitly.
func Reconcile(v Verdict, existing *CurationStatus) (CurationStatus, *ReconciliationWarning) {
	proposed := proposedStage(v)

	if existing == nil || existing.Stage == CurationUnseen {
		return CurationStatus{
			ResourceID: v.ResourceID,
			Stage:      proposed,
			DecidedBy:  DecidedByMachine,
		}, nil
	}

	if existing.DecidedBy == DecidedByMachine {
		updated := *existing
		updated.Stage = proposed
		return updated, nil
	}

	// Human decision. Keep it verbatim; flag the mismatch when the machine
	// now disagrees with the direction the human chose.
	kept := *existing
	humanIncluded := existing.Stage == CurationCuratedIn
	if humanIncluded != v.Included {
		return kept, &ReconciliationWarning{
			ResourceID:    v.ResourceID,
			HumanStage:    existing.Stage,
			ProposedStage: proposed,
			Rule:          v.Rule,
		}
	}
	return kept, nil
}

// HumanDecision is one curator edit coming back from the status sheet.
type HumanDecision struct {
	ResourceID string
	Keep       bool
	Note       string
}

// ApplyHumanDecisions writes explicit curator decisions into the ledger.
// This is the only path that sets decided_by = HUMAN, and also the only path
// allowed to overwrite a previous human stage (re-curation).
func ApplyHumanDecisions(db *sql.DB, decisions []HumanDecision) ([]CurationStatus, error) {
	statuses := make([]CurationStatus, 0, len(decisions))
	for _, d := range decisions {
		stage := CurationCuratedOut
		if d.Keep {
			stage = CurationCuratedIn
		}
		statuses = append(statuses, CurationStatus{
			ResourceID: d.ResourceID,
			Stage:      stage,
			DecidedBy:  DecidedByHuman,
			Note:       d.Note,
		})
	}
	if err := SaveCurationStatuses(db, statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}
