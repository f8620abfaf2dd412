package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"PubMedCurator/internal/app"
	"PubMedCurator/internal/config"
	"PubMedCurator/internal/logging"
)

var (
	version = "dev"

	flagConfig    string
	flagOutputDir string
)

var rootCmd = &cobra.Command{
	Use:           "pubmedcurator",
	Short:         "Resilient PubMed retrieval and AI curation pipeline",
	Long:          "pubmedcurator fetches biomedical literature through a cascading source list, classifies relevance with an LLM and emits curated RSS feeds.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Fetch and classify records into accepted and rejected feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(a *app.Application) error {
			return a.RunFilter(cmd.Context())
		})
	},
}

var bestOfCmd = &cobra.Command{
	Use:   "bestof",
	Short: "Score the accepted feed and emit the ranked top-N feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(a *app.Application) error {
			return a.RunBestOf(cmd.Context())
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pubmedcurator %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagOutputDir, "output-dir", "", "override the output directory")

	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(bestOfCmd)
	rootCmd.AddCommand(versionCmd)
}

func run(cmd *cobra.Command, fn func(*app.Application) error) error {
	cfg := config.Load(flagConfig)
	if flagOutputDir != "" {
		cfg.Output.Dir = flagOutputDir
	}

	logger := logging.New(cfg.Logging.Level)
	application := app.New(cfg, logger)

	if err := fn(application); err != nil {
		logger.Error("run failed", "command", cmd.Name(), "error", err)
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
