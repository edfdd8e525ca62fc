package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/app"
	"github.com/foxzi/outreach/internal/compose"
	"github.com/foxzi/outreach/internal/config"
)

var (
	runProfiles     string
	runUnsubscribed string
	runDryRun       bool
	runVariant      int
	runSeed         int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the campaign over a profile dataset",
	Long:  `Run generates a personalized email for each valid, non-unsubscribed profile and sends it through the configured delivery provider.`,
	RunE:  runCampaign,
}

func init() {
	runCmd.Flags().StringVar(&runProfiles, "profiles", "", "CSV file with recipient profiles (required)")
	runCmd.Flags().StringVar(&runUnsubscribed, "unsubscribed", "", "CSV file with unsubscribed addresses")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "generate but do not send")
	runCmd.Flags().IntVar(&runVariant, "subject-variant", -1, "force a subject variant index (default: random per profile)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "seed for subject variant selection (0 = time-based)")
	runCmd.MarkFlagRequired("profiles")

	rootCmd.AddCommand(runCmd)
}

func runCampaign(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runDryRun {
		cfg.Delivery.DryRun = true
	}

	if runVariant >= compose.VariantCount() {
		return fmt.Errorf("subject variant must be below %d", compose.VariantCount())
	}

	if runUnsubscribed == "" {
		// Fall back to the file the unsubscribe server maintains
		runUnsubscribed = cfg.Unsubscribe.File
	}

	application, err := app.New(cfg, app.RunOptions{
		ProfilesPath:     runProfiles,
		UnsubscribedPath: runUnsubscribed,
		ForcedVariant:    runVariant,
		Seed:             runSeed,
	})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(context.Background())
}
