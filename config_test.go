package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Point at a missing file so a config.yaml in the working directory
	// cannot leak into the test.
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := LoadConfig()
	if cfg.WorkflowHubURL != "https://workflowhub.eu" {
		t.Errorf("workflowhub url = %q", cfg.WorkflowHubURL)
	}
	if cfg.WorkflowHubSource != "workflowhub" {
		t.Errorf("source = %q", cfg.WorkflowHubSource)
	}
	if cfg.KeywordsPath != "./keywords.yml" {
		t.Errorf("keywords path = %q", cfg.KeywordsPath)
	}
	if cfg.DBPath != "./micoreca.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.OutputDir != "./catalogue" {
		t.Errorf("output dir = %q", cfg.OutputDir)
	}
	if cfg.HTTPTimeoutSeconds != 30 || cfg.HTTPRetries != 3 {
		t.Errorf("http defaults = %d/%d", cfg.HTTPTimeoutSeconds, cfg.HTTPRetries)
	}
	if cfg.SlackConfigured() {
		t.Error("slack must not be configured by default")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
workflowhub_url: https://dev.workflowhub.eu
workflowhub_source: dev.workflowhub
keywords_path: /etc/micoreca/keywords.yml
fetch_limit: 25
fetch_schedule: "0 6 * * 1"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg := LoadConfig()
	if cfg.WorkflowHubURL != "https://dev.workflowhub.eu" {
		t.Errorf("workflowhub url = %q", cfg.WorkflowHubURL)
	}
	if cfg.WorkflowHubSource != "dev.workflowhub" {
		t.Errorf("source = %q", cfg.WorkflowHubSource)
	}
	if cfg.KeywordsPath != "/etc/micoreca/keywords.yml" {
		t.Errorf("keywords path = %q", cfg.KeywordsPath)
	}
	if cfg.FetchLimit != 25 {
		t.Errorf("fetch limit = %d", cfg.FetchLimit)
	}
	if cfg.FetchSchedule != "0 6 * * 1" {
		t.Errorf("fetch schedule = %q", cfg.FetchSchedule)
	}
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("db_path: /from/yaml.db\nfetch_limit: 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DB_PATH", "/from/env.db")
	t.Setenv("FETCH_LIMIT", "50")

	cfg := LoadConfig()
	if cfg.DBPath != "/from/env.db" {
		t.Errorf("db path = %q, env must win over yaml", cfg.DBPath)
	}
	if cfg.FetchLimit != 50 {
		t.Errorf("fetch limit = %d, env must win over yaml", cfg.FetchLimit)
	}
}
