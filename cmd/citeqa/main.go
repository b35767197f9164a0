// Command citeqa serves and drives the citation-grounded document QA core.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/app"
	"github.com/kailas-cloud/citeqa/internal/config"
	logpkg "github.com/kailas-cloud/citeqa/internal/logger"
)

var envName string

var rootCmd = &cobra.Command{
	Use:           "citeqa",
	Short:         "Citation-grounded question answering over your documents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "config environment (local, dev, prod)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads config, builds the logger and wires the services.
func bootstrap(ctx context.Context) (config.Config, *zap.Logger, *app.App, error) {
	cfg, err := config.Load(envName)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("create logger: %w", err)
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, a, nil
}
