package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-pm/internal/api"
	"github.com/miradorstack/mirador-pm/internal/cache"
	"github.com/miradorstack/mirador-pm/internal/config"
	"github.com/miradorstack/mirador-pm/internal/models"
	"github.com/miradorstack/mirador-pm/internal/utils"
)

var (
	analyzeFile   string
	analyzePretty bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a one-shot analysis and print the snapshot as JSON",
	Long: `Analyze reads the configured event log (or --input), runs the full
mining pipeline once, and prints the snapshot to stdout.

Examples:
  pm-engine analyze --input export.json --pretty
  pm-engine analyze --config configs/config.yaml`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "input", "i", "", "Event log JSON file (defaults to the configured source)")
	analyzeCmd.Flags().BoolVar(&analyzePretty, "pretty", false, "Indent the JSON output")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if analyzeFile != "" {
		cfg.EventStore.File = analyzeFile
	}

	// One-shot runs stay quiet unless something breaks.
	logger := utils.NewLogger("error", cfg.Logging.JSON)

	analyzer, err := buildAnalyzer(cfg, cache.NoopProvider{}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshot, err := analyzer.Run(ctx, models.Filter{})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	if analyzePretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(api.ToAnalysisResponse(snapshot))
}
