package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	WorkflowHubURL    string `yaml:"workflowhub_url"`
	WorkflowHubSource string `yaml:"workflowhub_source"`

	KeywordsPath string `yaml:"keywords_path"`
	DBPath       string `yaml:"db_path"`
	OutputDir    string `yaml:"output_dir"`

	FetchLimit         int    `yaml:"fetch_limit"`
	FetchSchedule      string `yaml:"fetch_schedule"`
	HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`
	HTTPRetries        int    `yaml:"http_retries"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.WorkflowHubURL, "WORKFLOWHUB_URL")
	envOverride(&cfg.WorkflowHubSource, "WORKFLOWHUB_SOURCE")
	envOverride(&cfg.KeywordsPath, "KEYWORDS_PATH")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.OutputDir, "OUTPUT_DIR")
	envOverrideInt(&cfg.FetchLimit, "FETCH_LIMIT")
	envOverride(&cfg.FetchSchedule, "FETCH_SCHEDULE")
	envOverrideInt(&cfg.HTTPTimeoutSeconds, "HTTP_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.HTTPRetries, "HTTP_RETRIES")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")

	// Defaults
	if cfg.WorkflowHubURL == "" {
		cfg.WorkflowHubURL = "https://workflowhub.eu"
	}
	if cfg.WorkflowHubSource == "" {
		cfg.WorkflowHubSource = "workflowhub"
	}
	if cfg.KeywordsPath == "" {
		cfg.KeywordsPath = "./keywords.yml"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./micoreca.db"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./catalogue"
	}
	if cfg.HTTPTimeoutSeconds == 0 {
		cfg.HTTPTimeoutSeconds = 30
	}
	if cfg.HTTPRetries == 0 {
		cfg.HTTPRetries = 3
	}

	// Validate
	if cfg.FetchLimit < 0 {
		log.Fatalf("invalid fetch_limit '%d': must be >= 0", cfg.FetchLimit)
	}
	if cfg.HTTPTimeoutSeconds < 1 {
		log.Fatalf("invalid http_timeout_seconds '%d': must be >= 1", cfg.HTTPTimeoutSeconds)
	}
	if !strings.HasPrefix(cfg.WorkflowHubURL, "http") {
		log.Fatalf("invalid workflowhub_url '%s'", cfg.WorkflowHubURL)
	}
	if cfg.SlackChannelID != "" && cfg.SlackBotToken == "" {
		log.Fatalf("slack_channel_id is set but slack_bot_token is not")
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}
