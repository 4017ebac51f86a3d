package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "micoreca",
		Short: "Microbiome resource catalogue builder and curator",
	}

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(curateCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(cfg Config) *sql.DB {
	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	return db
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch workflow metadata from WorkflowHub into the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			db := openDB(cfg)
			defer db.Close()

			hub := NewWorkflowHubClient(cfg)
			records, skipped, err := hub.FetchWorkflowRecords(cfg.FetchLimit)
			if err != nil {
				return err
			}
			stored, err := UpsertResources(db, records)
			if err != nil {
				return err
			}
			fmt.Printf("Stored %d resources (%d skipped)\n", stored, len(skipped))
			for _, msg := range skipped {
				fmt.Printf("  skipped: %s\n", msg)
			}
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bio.tools metadata folders into the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			db := openDB(cfg)
			defer db.Close()

			records, skipped, err := LoadBioToolsDir(dir)
			if err != nil {
				return err
			}
			stored, err := UpsertResources(db, records)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d resources (%d skipped)\n", stored, len(skipped))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of per-tool folders holding *biotools.json files")
	cmd.MarkFlagRequired("dir")
	return cmd
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Classify stored resources and reconcile the curation ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			reg, err := LoadKeywords(cfg.KeywordsPath)
			if err != nil {
				return err
			}
			db := openDB(cfg)
			defer db.Close()

			summary, err := ClassifyAndReconcile(db, reg, uuid.NewString())
			if err != nil {
				return err
			}
			fmt.Println(FormatRunSummary(summary))
			return nil
		},
	}
}

func curateCmd() *cobra.Command {
	var statusPath string

	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Apply curator decisions from a status sheet to the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			db := openDB(cfg)
			defer db.Close()

			decisions, err := ImportStatusTSV(statusPath)
			if err != nil {
				return err
			}
			applied, err := ApplyHumanDecisions(db, decisions)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d curator decisions\n", len(applied))
			return nil
		},
	}
	cmd.Flags().StringVar(&statusPath, "status", "", "TSV file with at least 'ID' and 'To keep' columns")
	cmd.MarkFlagRequired("status")
	return cmd
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export the catalogue, audit trail and curator sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			db := openDB(cfg)
			defer db.Close()

			summary, err := summaryFromLedger(db)
			if err != nil {
				return err
			}
			if err := ExportAll(cfg, db, summary); err != nil {
				return err
			}
			fmt.Printf("Catalogue written to %s\n", cfg.OutputDir)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch, classify and export in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			db := openDB(cfg)
			defer db.Close()

			summary, err := RunPipeline(cfg, db)
			if err != nil {
				return err
			}
			fmt.Println(FormatRunSummary(summary))
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled refreshes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			if cfg.FetchSchedule == "" {
				return fmt.Errorf("fetch_schedule is not set")
			}
			db := openDB(cfg)
			defer db.Close()

			var api *slack.Client
			if cfg.SlackConfigured() {
				api = slack.New(cfg.SlackBotToken)
			}
			StartRefreshScheduler(cfg, db, api)
			select {}
		},
	}
}

// summaryFromLedger rebuilds stage counts from the latest stored verdicts,
// for exports that run without a fresh classification.
func summaryFromLedger(db *sql.DB) (RunSummary, error) {
	verdicts, err := GetLatestVerdicts(db)
	if err != nil {
		return RunSummary{}, err
	}
	summary := RunSummary{
		ByStage:     make(map[MatchStage]int),
		Transitions: make(map[string]int),
	}
	for _, v := range verdicts {
		summary.Classified++
		summary.ByStage[v.Stage]++
		if v.ExcludedBy != "" {
			summary.Excluded++
		}
		if summary.RunID == "" {
			summary.RunID = v.RunID
		}
	}
	return summary, nil
}
