package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// LoadBioToolsDir walks a directory of per-tool subfolders, each holding a
// *biotools.json metadata file, and extracts a canonical record per tool.
// Folders without metadata or with an unreadable file are skipped with a
// note. Directory order is normalized so repeated imports see the same
// sequence.
func LoadBioToolsDir(dir string) ([]ResourceRecord, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading tools dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var records []ResourceRecord
	var skipped []string
	for _, name := range names {
		matches, err := filepath.Glob(filepath.Join(dir, name, "*biotools.json"))
		if err != nil || len(matches) == 0 {
			skipped = append(skipped, fmt.Sprintf("%s: no biotools.json", name))
			continue
		}
		raw, err := os.ReadFile(matches[0])
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		rec, err := ExtractRecord(raw, "biotools")
		if err != nil {
			log.Printf("biotools skip %s: %v", name, err)
			skipped = append(skipped, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		records = append(records, rec)
	}

	log.Printf("biotools import done records=%d skipped=%d", len(records), len(skipped))
	return records, skipped, nil
}
