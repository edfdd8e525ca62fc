package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/unsubscribe"
)

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: "Unsubscribe handling commands",
}

var unsubscribeServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the one-click unsubscribe endpoint",
	Long:  `Serve runs the HTTP endpoint the List-Unsubscribe headers point at, recording opt-outs in the unsubscribe CSV file.`,
	RunE:  runUnsubscribeServe,
}

func init() {
	unsubscribeCmd.AddCommand(unsubscribeServeCmd)
	rootCmd.AddCommand(unsubscribeCmd)
}

func runUnsubscribeServe(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	server := unsubscribe.NewServer(cfg.Unsubscribe.File, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(cfg.Unsubscribe.ListenAddr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
