// Package main provides the taskkit command line: one subcommand per tool.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/taskkit/internal/config"
	"github.com/jonathan/taskkit/internal/logging"
)

var (
	verbose    bool
	configPath string

	// fileCfg holds defaults from --config, empty when no file is given.
	fileCfg config.Config
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "taskkit",
	Short: "Small single-purpose tools: sniffer, scraper, ML trainers, chat server and console games",
	Long: `taskkit bundles a packet sniffer, a product scraper with analysis, credit-scoring,
disease-prediction and digit-recognition trainers, a chat web server with signup/login,
and two console programs (hangman and a portfolio tracker).`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON file with per-command defaults")
}

// setup loads the optional config file and builds the logger.
func setup(_ *cobra.Command, _ []string) error {
	fileCfg = config.Config{}
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		fileCfg = *cfg
	}

	l, err := logging.New(isVerbose())
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// isVerbose reports whether --verbose or the config file asked for detail.
func isVerbose() bool {
	return verbose || fileCfg.Verbose
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
