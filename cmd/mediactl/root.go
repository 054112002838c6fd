package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/anime-shed/media-inspector-go/internal/config"
	"github.com/anime-shed/media-inspector-go/internal/container"
	"github.com/anime-shed/media-inspector-go/internal/logger"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "mediactl",
	Short: "Analyze images, video, audio and text with Google cloud APIs",
	Long: `Command line client for media-inspector.

Examples:
  $ mediactl credential set AIza...
  $ mediactl analyze image --file cat.png --features labels,objects
  $ mediactl analyze text --text "The quick brown fox" --all --format json
  $ mediactl score --reference "hello world" --hypothesis "hello word"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// keep stdout for results
		logger.SetOutput(os.Stderr)
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load settings from this file before the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(analyzeCmd, credentialCmd, scoreCmd)
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openContainer loads configuration and wires the same graph the API server uses.
func openContainer(ctx context.Context) (*container.Container, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger.SetLevel(level)
	gin.SetMode(gin.ReleaseMode)

	return container.NewContainer(ctx, cfg)
}
