package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/ride-dispatch/internal/config"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "ridedispatch",
	Short:        "In-memory ride dispatch simulator",
	SilenceUsage: true,
	RunE:         runShell,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "optional YAML/JSON configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig(cmd *cobra.Command, defaultLevel string) (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	switch {
	case cmd.Flags().Changed("log-level"):
		cfg.Log.Level = logLevel
	case defaultLevel != "" && os.Getenv(config.EnvPrefix+"LOG__LEVEL") == "" && cfgPath == "":
		cfg.Log.Level = defaultLevel
	}
	return cfg, nil
}
