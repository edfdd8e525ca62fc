package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/report"
)

var (
	recordsRunID  string
	recordsStatus string
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Campaign record commands",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records of a campaign run (latest by default)",
	RunE:  runRecordsList,
}

var recordsRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored campaign runs",
	RunE:  runRecordsRuns,
}

func init() {
	recordsListCmd.Flags().StringVar(&recordsRunID, "run", "", "Run ID (default: latest run)")
	recordsListCmd.Flags().StringVar(&recordsStatus, "status", "", "Filter by status (sent, failed)")

	recordsCmd.AddCommand(recordsListCmd, recordsRunsCmd)
	rootCmd.AddCommand(recordsCmd)
}

func openRecordStore() (*report.Store, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := report.NewStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	return store, nil
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	store, err := openRecordStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runID := recordsRunID
	if runID == "" {
		latest, err := store.LatestRun()
		if err != nil {
			return err
		}
		if latest == nil {
			fmt.Println("No campaign runs stored")
			return nil
		}
		runID = latest.ID
	}

	records, err := store.List(runID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tEMAIL\tSTATUS\tVARIANT\tSUBJECT\tERROR")
	for _, rec := range records {
		if recordsStatus != "" && string(rec.Status) != recordsStatus {
			continue
		}
		variant := "-"
		if rec.SubjectVariant != nil {
			variant = fmt.Sprintf("%d", *rec.SubjectVariant)
		}
		subject := "-"
		if rec.Subject != nil {
			subject = *rec.Subject
		}
		errMsg := ""
		if rec.ErrorMessage != nil {
			errMsg = *rec.ErrorMessage
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Timestamp.Format(time.RFC3339),
			rec.Email,
			rec.Status,
			variant,
			subject,
			errMsg,
		)
	}
	return w.Flush()
}

func runRecordsRuns(cmd *cobra.Command, args []string) error {
	store, err := openRecordStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No campaign runs stored")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN ID\tEVENT\tDRY RUN")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n",
			run.StartedAt.Format(time.RFC3339),
			run.ID,
			run.EventName,
			run.DryRun,
		)
	}
	return w.Flush()
}
