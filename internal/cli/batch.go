package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/drockthedoc/transfer-center/internal/worker"
)

var (
	batchOutDir      string
	batchConcurrency int
	batchTimeout     time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <requests.json>",
	Short: "Process a file of transfer requests concurrently",
	Long: `Batch reads a JSON array of transfer requests and runs each through the
decision pipeline with a bounded worker pool, writing one recommendation
JSON per request.

Example:
  transfer-center batch requests.json --out recommendations/ --concurrency 4`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchOutDir, "out", "recommendations", "output directory for recommendation JSON files")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "number of concurrent requests")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "overall batch timeout")

	batchCmd.Flags().StringVar(&campusFile, "campuses", "data/campuses.json", "hospital capability JSON")
	batchCmd.Flags().StringVar(&rulesFile, "rules", "data/exclusions.json", "exclusion rule store JSON")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "text-generation provider")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "text-generation model name")
	batchCmd.Flags().BoolVar(&noLLM, "no-llm", false, "skip narrative reasoning, rule-only recommendations")
	batchCmd.Flags().BoolVar(&noOracleCache, "no-oracle-cache", false, "disable travel/bed oracle caching")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	p, err := buildPipeline()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(batchOutDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(p, batchConcurrency)
	results, err := processor.ProcessFile(ctx, args[0])
	if err != nil {
		return err
	}

	failed := 0
	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.RequestID, result.Error)
			continue
		}
		path := filepath.Join(batchOutDir, result.RequestID+".json")
		data, err := json.MarshalIndent(result.Recommendation, "", "  ")
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: marshal: %v\n", result.RequestID, err)
			continue
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: write: %v\n", result.RequestID, err)
			continue
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ %s\n", path)
		}
	}

	fmt.Fprintf(os.Stderr, "Processed %d requests, %d failed\n", len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(results))
	}
	return nil
}
