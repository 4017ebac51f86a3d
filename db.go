package main

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		id          TEXT PRIMARY KEY,
		source      TEXT NOT NULL,
		link        TEXT DEFAULT '',
		title       TEXT DEFAULT '',
		description TEXT DEFAULT '',
		tags        TEXT DEFAULT '',
		topics      TEXT DEFAULT '',
		operations  TEXT DEFAULT '',
		tools       TEXT DEFAULT '',
		creators    TEXT DEFAULT '',
		projects    TEXT DEFAULT '',
		license     TEXT DEFAULT '',
		doi         TEXT DEFAULT '',
		steps       INTEGER DEFAULT 0,
		created_at  TEXT DEFAULT '',
		updated_at  TEXT DEFAULT '',
		fetched_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_resources_source ON resources(source);

	CREATE TABLE IF NOT EXISTS verdicts (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		resource_id   TEXT NOT NULL,
		run_id        TEXT NOT NULL,
		included      INTEGER NOT NULL,
		matched_stage TEXT NOT NULL,
		matched_rule  TEXT DEFAULT '',
		excluded_by   TEXT DEFAULT '',
		classified_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_verdicts_resource ON verdicts(resource_id);
	CREATE INDEX IF NOT EXISTS idx_verdicts_run ON verdicts(run_id);

	CREATE TABLE IF NOT EXISTS curation_status (
		resource_id TEXT PRIMARY KEY,
		stage       TEXT NOT NULL DEFAULT 'UNSEEN',
		decided_by  TEXT NOT NULL DEFAULT 'MACHINE',
		note        TEXT DEFAULT '',
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func UpsertResources(db *sql.DB, records []ResourceRecord) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO resources (id, source, link, title, description, tags, topics, operations, tools, creators, projects, license, doi, steps, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   link = excluded.link, title = excluded.title, description = excluded.description,
		   tags = excluded.tags, topics = excluded.topics, operations = excluded.operations,
		   tools = excluded.tools, creators = excluded.creators, projects = excluded.projects,
		   license = excluded.license, doi = excluded.doi, steps = excluded.steps,
		   created_at = excluded.created_at, updated_at = excluded.updated_at,
		   fetched_at = CURRENT_TIMESTAMP`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for _, rec := range records {
		if _, err := stmt.Exec(
			rec.ID, rec.Source, rec.Link, rec.Title, rec.Description,
			encodeList(rec.Tags), encodeList(rec.Topics), encodeList(rec.Operations),
			encodeList(rec.Tools), encodeList(rec.Creators), encodeList(rec.Projects),
			rec.License, rec.DOI, rec.Steps, rec.CreatedAt, rec.UpdatedAt,
		); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, tx.Commit()
}

func GetAllResources(db *sql.DB) ([]ResourceRecord, error) {
	rows, err := db.Query(
		`SELECT id, source, link, title, description, tags, topics, operations, tools, creators, projects, license, doi, steps, created_at, updated_at
		 FROM resources ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ResourceRecord
	for rows.Next() {
		rec, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func GetResource(db *sql.DB, id string) (ResourceRecord, error) {
	row := db.QueryRow(
		`SELECT id, source, link, title, description, tags, topics, operations, tools, creators, projects, license, doi, steps, created_at, updated_at
		 FROM resources WHERE id = ?`,
		id,
	)
	return scanResource(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (ResourceRecord, error) {
	var rec ResourceRecord
	var tags, topics, operations, tools, creators, projects string
	err := row.Scan(
		&rec.ID, &rec.Source, &rec.Link, &rec.Title, &rec.Description,
		&tags, &topics, &operations, &tools, &creators, &projects,
		&rec.License, &rec.DOI, &rec.Steps, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return rec, err
	}
	rec.Tags = decodeList(tags)
	rec.Topics = decodeList(topics)
	rec.Operations = decodeList(operations)
	rec.Tools = decodeList(tools)
	rec.Creators = decodeList(creators)
	rec.Projects = decodeList(projects)
	return rec, nil
}

// --- Verdict audit trail ---

func InsertVerdicts(db *sql.DB, verdicts []Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO verdicts (resource_id, run_id, included, matched_stage, matched_rule, excluded_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range verdicts {
		if _, err := stmt.Exec(v.ResourceID, v.RunID, v.Included, string(v.Stage), v.Rule, v.ExcludedBy); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetLatestVerdicts returns the most recent verdict per resource. Older rows
// stay in the table as the audit history.
func GetLatestVerdicts(db *sql.DB) (map[string]Verdict, error) {
	rows, err := db.Query(
		`SELECT v.resource_id, v.run_id, v.included, v.matched_stage, v.matched_rule, v.excluded_by
		 FROM verdicts v
		 JOIN (SELECT resource_id, MAX(id) AS max_id FROM verdicts GROUP BY resource_id) latest
		   ON v.id = latest.max_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	verdicts := make(map[string]Verdict)
	for rows.Next() {
		var v Verdict
		var stage string
		if err := rows.Scan(&v.ResourceID, &v.RunID, &v.Included, &stage, &v.Rule, &v.ExcludedBy); err != nil {
			return nil, err
		}
		v.Stage = MatchStage(stage)
		verdicts[v.ResourceID] = v
	}
	return verdicts, rows.Err()
}

func CountVerdictsByResource(db *sql.DB, resourceID string) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM verdicts WHERE resource_id = ?`, resourceID).Scan(&count)
	return count, err
}

// --- Curation ledger ---

func GetCurationStatus(db *sql.DB, resourceID string) (CurationStatus, bool, error) {
	var s CurationStatus
	var stage, decidedBy string
	err := db.QueryRow(
		`SELECT resource_id, stage, decided_by, note, updated_at FROM curation_status WHERE resource_id = ?`,
		resourceID,
	).Scan(&s.ResourceID, &stage, &decidedBy, &s.Note, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	s.Stage = CurationStage(stage)
	s.DecidedBy = Decider(decidedBy)
	return s, true, nil
}

func GetAllStatuses(db *sql.DB) (map[string]CurationStatus, error) {
	rows, err := db.Query(`SELECT resource_id, stage, decided_by, note, updated_at FROM curation_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make(map[string]CurationStatus)
	for rows.Next() {
		var s CurationStatus
		var stage, decidedBy string
		if err := rows.Scan(&s.ResourceID, &stage, &decidedBy, &s.Note, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Stage = CurationStage(stage)
		s.DecidedBy = Decider(decidedBy)
		statuses[s.ResourceID] = s
	}
	return statuses, rows.Err()
}

func SaveCurationStatuses(db *sql.DB, statuses []CurationStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO curation_status (resource_id, stage, decided_by, note, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(resource_id) DO UPDATE SET
		   stage = excluded.stage, decided_by = excluded.decided_by,
		   note = excluded.note, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, s := range statuses {
		if _, err := stmt.Exec(s.ResourceID, string(s.Stage), string(s.DecidedBy), s.Note, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// List columns are stored as JSON arrays so values containing commas or
// other separators survive the round-trip.
func encodeList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
