package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/ride-dispatch/internal/ledger"
	"github.com/example/ride-dispatch/internal/logging"
	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run the interactive dispatch menu",
	RunE:  runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	// keep the menu readable: logs go to stderr and default to warnings only
	cfg, err := loadConfig(cmd, "warn")
	if err != nil {
		return err
	}
	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := matcher.NewService(ledger.New(), logging.Component(logger, "matcher"))
	return shell.New(svc, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
}
