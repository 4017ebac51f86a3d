package main

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecord(id string) ResourceRecord {
	return ResourceRecord{
		ID:          id,
		Source:      "workflowhub",
		Link:        "https://workflowhub.eu/workflows/1",
		Title:       "Amplicon analysis",
		Description: "16S pipeline.",
		Tags:        []string{"16s rrna", "amplicon"},
		Topics:      []string{"microbial ecology"},
		Operations:  []string{"taxonomic classification"},
		Tools:       []string{"fastqc", "qiime2_core"},
		Creators:    []string{"Ada Byron"},
		Projects:    []string{"Microbiome Hub"},
		License:     "MIT",
		DOI:         "10.1/abc",
		Steps:       3,
		CreatedAt:   "2023-04-12",
		UpdatedAt:   "2024-01-05",
	}
}

func TestUpsertAndGetResource(t *testing.T) {
	db := newTestDB(t)
	rec := testRecord("workflowhub/1")

	n, err := UpsertResources(db, []ResourceRecord{rec})
	if err != nil {
		t.Fatalf("UpsertResources failed: %v", err)
	}
	if n != 1 {
		t.Errorf("stored %d records, want 1", n)
	}

	got, err := GetResource(db, "workflowhub/1")
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertResourcesIsIdempotentOnID(t *testing.T) {
	db := newTestDB(t)
	rec := testRecord("workflowhub/1")
	if _, err := UpsertResources(db, []ResourceRecord{rec}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	rec.Title = "Amplicon analysis v2"
	rec.Tags = []string{"amplicon", "updated"}
	if _, err := UpsertResources(db, []ResourceRecord{rec}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	all, err := GetAllResources(db)
	if err != nil {
		t.Fatalf("GetAllResources failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d rows, want 1 (same id must update in place)", len(all))
	}
	if all[0].Title != "Amplicon analysis v2" {
		t.Errorf("title = %q, want updated title", all[0].Title)
	}
	if diff := cmp.Diff([]string{"amplicon", "updated"}, all[0].Tags); diff != "" {
		t.Errorf("tags not updated (-want +got):\n%s", diff)
	}
}

func TestGetAllResourcesSortedByID(t *testing.T) {
	db := newTestDB(t)
	records := []ResourceRecord{
		testRecord("workflowhub/9"),
		testRecord("biotools/kraken2"),
		testRecord("workflowhub/10"),
	}
	if _, err := UpsertResources(db, records); err != nil {
		t.Fatalf("UpsertResources failed: %v", err)
	}

	all, err := GetAllResources(db)
	if err != nil {
		t.Fatalf("GetAllResources failed: %v", err)
	}
	want := []string{"biotools/kraken2", "workflowhub/10", "workflowhub/9"}
	got := make([]string, len(all))
	for i, r := range all {
		got[i] = r.ID
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestVerdictTrailIsAppendOnly(t *testing.T) {
	db := newTestDB(t)

	first := Verdict{ResourceID: "workflowhub/1", Included: true, Stage: StageTag, Rule: "amplicon.*", RunID: "run-1"}
	second := Verdict{ResourceID: "workflowhub/1", Included: false, Stage: StageNone, RunID: "run-2"}
	if err := InsertVerdicts(db, []Verdict{first}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := InsertVerdicts(db, []Verdict{second}); err != nil {
		t.Fatalf("second insert failed: %v", err)
	}

	count, err := CountVerdictsByResource(db, "workflowhub/1")
	if err != nil {
		t.Fatalf("CountVerdictsByResource failed: %v", err)
	}
	if count != 2 {
		t.Errorf("verdict count = %d, want 2 (history must be kept)", count)
	}

	latest, err := GetLatestVerdicts(db)
	if err != nil {
		t.Fatalf("GetLatestVerdicts failed: %v", err)
	}
	got, ok := latest["workflowhub/1"]
	if !ok {
		t.Fatal("no latest verdict for workflowhub/1")
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("latest verdict mismatch (-want +got):\n%s", diff)
	}
}

func TestCurationStatusRoundtrip(t *testing.T) {
	db := newTestDB(t)

	_, found, err := GetCurationStatus(db, "workflowhub/1")
	if err != nil {
		t.Fatalf("GetCurationStatus failed: %v", err)
	}
	if found {
		t.Fatal("expected no status before any write")
	}

	status := CurationStatus{
		ResourceID: "workflowhub/1",
		Stage:      CurationFilteredIn,
		DecidedBy:  DecidedByMachine,
	}
	if err := SaveCurationStatuses(db, []CurationStatus{status}); err != nil {
		t.Fatalf("SaveCurationStatuses failed: %v", err)
	}

	got, found, err := GetCurationStatus(db, "workflowhub/1")
	if err != nil {
		t.Fatalf("GetCurationStatus failed: %v", err)
	}
	if !found {
		t.Fatal("status not found after save")
	}
	if got.Stage != CurationFilteredIn || got.DecidedBy != DecidedByMachine {
		t.Errorf("got %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updated_at not set")
	}

	// Overwrite with a human decision, one row per resource.
	status.Stage = CurationCuratedOut
	status.DecidedBy = DecidedByHuman
	status.Note = "out of scope"
	if err := SaveCurationStatuses(db, []CurationStatus{status}); err != nil {
		t.Fatalf("SaveCurationStatuses overwrite failed: %v", err)
	}

	all, err := GetAllStatuses(db)
	if err != nil {
		t.Fatalf("GetAllStatuses failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d ledger rows, want 1", len(all))
	}
	got = all["workflowhub/1"]
	if got.Stage != CurationCuratedOut || got.DecidedBy != DecidedByHuman || got.Note != "out of scope" {
		t.Errorf("got %+v", got)
	}
}

func TestListColumnRoundtrip(t *testing.T) {
	if got := decodeList(""); got != nil {
		t.Errorf("decodeList(\"\") = %v, want nil", got)
	}
	if got := encodeList(nil); got != "" {
		t.Errorf("encodeList(nil) = %q, want empty", got)
	}
	// Values containing the old separator must survive unchanged.
	want := []string{"Byron, Ada", "b c", "d"}
	if diff := cmp.Diff(want, decodeList(encodeList(want))); diff != "" {
		t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertPreservesCommasInListValues(t *testing.T) {
	db := newTestDB(t)
	rec := testRecord("workflowhub/1")
	rec.Creators = []string{"Byron, Ada", "Hopper, Grace"}

	if _, err := UpsertResources(db, []ResourceRecord{rec}); err != nil {
		t.Fatalf("UpsertResources failed: %v", err)
	}
	got, err := GetResource(db, "workflowhub/1")
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if diff := cmp.Diff(rec.Creators, got.Creators); diff != "" {
		t.Errorf("creators mismatch (-want +got):\n%s", diff)
	}
}

func TestInitDBUnusablePath(t *testing.T) {
	// A directory is not a valid database file; the schema setup must fail
	// and report it instead of handing back a broken handle.
	if _, err := InitDB(t.TempDir()); err == nil {
		t.Fatal("expected error for a directory path")
	}
}
