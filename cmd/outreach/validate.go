package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/profile"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Dataset commands",
}

var datasetValidateCmd = &cobra.Command{
	Use:   "validate <profiles.csv>",
	Short: "Check a profile dataset without generating or sending",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetValidate,
}

func init() {
	datasetCmd.AddCommand(datasetValidateCmd)
	rootCmd.AddCommand(datasetCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  Event: %s (%s, %s)\n", cfg.Event.Name, cfg.Event.Date, cfg.Event.Location)
	fmt.Printf("  Sender: %s\n", cfg.Sender.From)
	fmt.Printf("  Delivery: %s (dry run: %v)\n", cfg.Delivery.Provider, cfg.Delivery.DryRun)
	fmt.Printf("  Generation model: %s\n", cfg.Generation.Model)
	fmt.Printf("  Storage: %s\n", cfg.Storage.Path)

	return nil
}

func runDatasetValidate(cmd *cobra.Command, args []string) error {
	profiles, err := profile.LoadProfiles(args[0])
	if err != nil {
		return fmt.Errorf("dataset is invalid: %w", err)
	}

	valid, invalid := profile.Validate(profiles)

	fmt.Printf("Dataset is valid\n")
	fmt.Printf("  Profiles: %d\n", len(profiles))
	fmt.Printf("  Valid emails: %d\n", len(valid))
	fmt.Printf("  Invalid emails: %d\n", len(invalid))
	for _, p := range invalid {
		fmt.Printf("    %s (%s)\n", p.Email, p.FullName)
	}

	return nil
}
