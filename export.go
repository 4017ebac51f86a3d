package main

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// CatalogueEntry is one accepted resource in the exported catalogue,
// carrying the canonical fields plus its current curation stage.
type CatalogueEntry struct {
	ID            string   `json:"id"`
	Source        string   `json:"source"`
	Link          string   `json:"link,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	Operations    []string `json:"operations,omitempty"`
	Tools         []string `json:"tools,omitempty"`
	Creators      []string `json:"creators,omitempty"`
	Projects      []string `json:"projects,omitempty"`
	License       string   `json:"license,omitempty"`
	DOI           string   `json:"doi,omitempty"`
	Steps         int      `json:"steps,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
	CurationStage string   `json:"curation_stage"`
}

// AcceptedEntries selects the catalogue rows: resources whose current stage
// is FILTERED_IN or CURATED_IN, sorted by id so consecutive exports diff
// cleanly.
func AcceptedEntries(records []ResourceRecord, statuses map[string]CurationStatus) []CatalogueEntry {
	var entries []CatalogueEntry
	for _, rec := range records {
		status, ok := statuses[rec.ID]
		if !ok || !status.Accepted() {
			continue
		}
		entries = append(entries, CatalogueEntry{
			ID:            rec.ID,
			Source:        rec.Source,
			Link:          rec.Link,
			Title:         rec.Title,
			Description:   rec.Description,
			Tags:          rec.Tags,
			Topics:        rec.Topics,
			Operations:    rec.Operations,
			Tools:         rec.Tools,
			Creators:      rec.Creators,
			Projects:      rec.Projects,
			License:       rec.License,
			DOI:           rec.DOI,
			Steps:         rec.Steps,
			CreatedAt:     rec.CreatedAt,
			UpdatedAt:     rec.UpdatedAt,
			CurationStage: string(status.Stage),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

func WriteCatalogueJSON(path string, records []ResourceRecord, statuses map[string]CurationStatus) error {
	entries := AcceptedEntries(records, statuses)
	if entries == nil {
		entries = []CatalogueEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// WriteAuditTSV writes the row-per-resource audit trail: latest verdict
// evidence next to the current ledger state, sorted by resource id.
func WriteAuditTSV(path string, records []ResourceRecord, verdicts map[string]Verdict, statuses map[string]CurationStatus) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write([]string{"ID", "Source", "Included", "Matched stage", "Matched rule", "Excluded by", "Curation stage", "Decided by", "Note"}); err != nil {
		return err
	}

	for _, rec := range sortedByID(records) {
		v := verdicts[rec.ID]
		if v.Stage == "" {
			v.Stage = StageNone
		}
		status := statuses[rec.ID]
		stage := status.Stage
		if stage == "" {
			stage = CurationUnseen
		}
		decidedBy := status.DecidedBy
		if decidedBy == "" {
			decidedBy = DecidedByMachine
		}
		row := []string{
			rec.ID, rec.Source,
			strconv.FormatBool(v.Included),
			string(v.Stage), v.Rule, v.ExcludedBy,
			string(stage), string(decidedBy), status.Note,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteStatusTSV writes the curator-facing sheet. Humans fill the "To keep"
// column (TRUE/FALSE) and the file is re-imported with ImportStatusTSV.
func WriteStatusTSV(path string, records []ResourceRecord, verdicts map[string]Verdict, statuses map[string]CurationStatus) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write([]string{"ID", "Link", "Name", "Source", "Creators", "Filtered on", "To keep", "Note"}); err != nil {
		return err
	}

	for _, rec := range sortedByID(records) {
		v := verdicts[rec.ID]
		status := statuses[rec.ID]
		toKeep := ""
		switch status.Stage {
		case CurationCuratedIn:
			toKeep = "TRUE"
		case CurationCuratedOut:
			toKeep = "FALSE"
		}
		row := []string{
			rec.ID, rec.Link, rec.Title, rec.Source,
			strings.Join(rec.Creators, ", "),
			v.Reason(), toKeep, status.Note,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ImportStatusTSV reads curator edits back from the status sheet. Rows with
// an empty "To keep" cell are still undecided and are skipped; everything
// else becomes an explicit human decision.
func ImportStatusTSV(path string) ([]HumanDecision, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse status tsv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("status tsv %s is empty", path)
	}

	idCol, keepCol, noteCol := -1, -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id":
			idCol = i
		case "to keep":
			keepCol = i
		case "note":
			noteCol = i
		}
	}
	if idCol < 0 || keepCol < 0 {
		return nil, fmt.Errorf("status tsv %s: missing 'ID' or 'To keep' column", path)
	}

	var decisions []HumanDecision
	for _, row := range rows[1:] {
		if idCol >= len(row) || keepCol >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idCol])
		raw := strings.TrimSpace(row[keepCol])
		if id == "" || raw == "" {
			continue
		}
		keep, ok := parseKeepCell(raw)
		if !ok {
			continue
		}
		note := ""
		if noteCol >= 0 && noteCol < len(row) {
			note = strings.TrimSpace(row[noteCol])
		}
		decisions = append(decisions, HumanDecision{ResourceID: id, Keep: keep, Note: note})
	}
	return decisions, nil
}

func parseKeepCell(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// WriteToolsJSON aggregates declared tools across accepted resources into a
// tool -> resource-titles map.
func WriteToolsJSON(path string, records []ResourceRecord, statuses map[string]CurationStatus) error {
	tools := make(map[string][]string)
	for _, rec := range sortedByID(records) {
		status, ok := statuses[rec.ID]
		if !ok || !status.Accepted() {
			continue
		}
		for _, tool := range rec.Tools {
			tools[tool] = append(tools[tool], rec.Title)
		}
	}
	data, err := json.MarshalIndent(tools, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// WriteFilteringReport writes the plain-text run report.
func WriteFilteringReport(path string, summary RunSummary) error {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 40) + "\n")
	b.WriteString("   RESOURCE FILTERING REPORT\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	b.WriteString(FormatRunSummary(summary))
	b.WriteString("\n")
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// ExportAll writes the complete output set into the configured directory:
// the accepted catalogue, the audit trail, the curator status sheet, the
// tool aggregation and the run report.
func ExportAll(cfg Config, db *sql.DB, summary RunSummary) error {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return err
	}
	records, err := GetAllResources(db)
	if err != nil {
		return err
	}
	verdicts, err := GetLatestVerdicts(db)
	if err != nil {
		return err
	}
	statuses, err := GetAllStatuses(db)
	if err != nil {
		return err
	}

	if err := WriteCatalogueJSON(filepath.Join(cfg.OutputDir, "catalogue.json"), records, statuses); err != nil {
		return err
	}
	if err := WriteAuditTSV(filepath.Join(cfg.OutputDir, "audit.tsv"), records, verdicts, statuses); err != nil {
		return err
	}
	if err := WriteStatusTSV(filepath.Join(cfg.OutputDir, "status.tsv"), records, verdicts, statuses); err != nil {
		return err
	}
	if err := WriteToolsJSON(filepath.Join(cfg.OutputDir, "tools.json"), records, statuses); err != nil {
		return err
	}
	return WriteFilteringReport(filepath.Join(cfg.OutputDir, "filtering_report.txt"), summary)
}

func sortedByID(records []ResourceRecord) []ResourceRecord {
	out := append([]ResourceRecord{}, records...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
