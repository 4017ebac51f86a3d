package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// RunPipeline executes one full refresh: fetch from WorkflowHub, classify
// everything stored, reconcile the ledger and export the catalogue files.
// A registry failure aborts before any record is touched.
func RunPipeline(cfg Config, db *sql.DB) (RunSummary, error) {
	reg, err := LoadKeywords(cfg.KeywordsPath)
	if err != nil {
		return RunSummary{}, err
	}

	hub := NewWorkflowHubClient(cfg)
	records, skipped, err := hub.FetchWorkflowRecords(cfg.FetchLimit)
	if err != nil {
		return RunSummary{}, fmt.Errorf("fetching workflows: %w", err)
	}
	stored, err := UpsertResources(db, records)
	if err != nil {
		return RunSummary{}, fmt.Errorf("storing resources: %w", err)
	}
	log.Printf("pipeline stored=%d skipped=%d", stored, len(skipped))

	summary, err := ClassifyAndReconcile(db, reg, uuid.NewString())
	if err != nil {
		return summary, err
	}
	summary.Skipped = skipped

	if err := ExportAll(cfg, db, summary); err != nil {
		return summary, fmt.Errorf("exporting catalogue: %w", err)
	}
	return summary, nil
}

// StartRefreshScheduler runs the pipeline on a cron schedule and posts the
// run summary to the curation channel when Slack is configured. The
// schedule is a standard 5-field cron expression.
func StartRefreshScheduler(cfg Config, db *sql.DB, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.FetchSchedule)
	if schedule == "" {
		log.Println("Scheduled refresh disabled (fetch_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid fetch_schedule '%s': %v, scheduled refresh disabled", schedule, err)
		return
	}
	log.Printf("Scheduled refresh enabled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next refresh at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			summary, runErr := RunPipeline(cfg, db)
			text := FormatRunSummary(summary)
			if runErr != nil {
				log.Printf("Refresh error: %v", runErr)
				text = fmt.Sprintf("Refresh failed: %v", runErr)
			}
			log.Printf("Refresh complete:\n%s", text)

			if cfg.SlackConfigured() && api != nil {
				_, _, postErr := api.PostMessage(cfg.SlackChannelID, slack.MsgOptionText(text, false))
				if postErr != nil {
					log.Printf("Refresh post error: %v", postErr)
				}
			}
		}
	}()
}
