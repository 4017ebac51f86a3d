package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeToolDir(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
	if content == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name+".biotools.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadBioToolsDir(t *testing.T) {
	root := t.TempDir()
	writeToolDir(t, root, "kraken2", `{"biotoolsID": "kraken2", "name": "Kraken2", "description": "Taxonomic classifier."}`)
	writeToolDir(t, root, "dada2", `{"biotoolsID": "dada2", "name": "DADA2", "description": "ASV inference."}`)
	writeToolDir(t, root, "empty-folder", "")
	writeToolDir(t, root, "broken", `{"name": "no id here"}`)

	records, skipped, err := LoadBioToolsDir(root)
	if err != nil {
		t.Fatalf("LoadBioToolsDir failed: %v", err)
	}

	// Folders come back in name order regardless of creation order.
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(records), records)
	}
	if records[0].ID != "biotools/dada2" || records[1].ID != "biotools/kraken2" {
		t.Errorf("record ids: %q, %q", records[0].ID, records[1].ID)
	}
	if len(skipped) != 2 {
		t.Errorf("skipped = %v, want notes for empty-folder and broken", skipped)
	}
}

func TestLoadBioToolsDirMissing(t *testing.T) {
	if _, _, err := LoadBioToolsDir(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
