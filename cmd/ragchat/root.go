package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/config"
	logpkg "github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/version"
)

// configPath overrides config/<env>.yaml when set.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "Retrieval-augmented chat over your documents",
	Long: `ragchat ingests PDF, text and Markdown documents into a vector store and
answers questions grounded in the retrieved passages.

Examples:
  ragchat serve                       # Start the HTTP API
  ragchat ingest 'docs/**/*.pdf'      # Ingest matching files
  ragchat ask "What is the refund policy?" --source policy.pdf`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML config file (defaults to config/$ENV.yaml)")
}

// loadRuntime reads configuration and builds the logger shared by all commands.
func loadRuntime() (config.Config, *zap.Logger, string, error) {
	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, "", fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, env, nil
}
