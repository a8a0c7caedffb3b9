package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/drockthedoc/transfer-center/internal/llm"
	"github.com/drockthedoc/transfer-center/internal/model"
	"github.com/drockthedoc/transfer-center/internal/oracle"
	"github.com/drockthedoc/transfer-center/internal/pipeline"
	"github.com/drockthedoc/transfer-center/internal/rules"
)

var (
	narrativeFile string
	campusFile    string
	rulesFile     string
	originLat     float64
	originLon     float64
	transportMode string
	outJSON       string
	strictMode    bool
	timeout       time.Duration
	llmProvider   string
	llmModel      string
	noLLM         bool
	noOracleCache bool
)

// recommendCmd represents the recommend command
var recommendCmd = &cobra.Command{
	Use:   "recommend [narrative]",
	Short: "Recommend a receiving campus for one transfer request",
	Long: `Recommend runs the full decision pipeline for a single transfer request:
- Extract structured clinical facts from the narrative
- Assess likely specialties
- Evaluate per-campus exclusion rules
- Compute pediatric severity scores (PEWS, TRAP)
- Estimate travel and bed logistics
- Synthesize a ranked, explainable recommendation

Example:
  transfer-center recommend "4yo with respiratory distress, rr 35, spo2 93%" \
    --campuses data/campuses.json --rules data/exclusions.json \
    --origin-lat 30.27 --origin-lon -97.74 --json recommendation.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringVar(&narrativeFile, "narrative-file", "", "read the clinical narrative from a file")
	recommendCmd.Flags().StringVar(&campusFile, "campuses", "data/campuses.json", "hospital capability JSON")
	recommendCmd.Flags().StringVar(&rulesFile, "rules", "data/exclusions.json", "exclusion rule store JSON")
	recommendCmd.Flags().Float64Var(&originLat, "origin-lat", 0, "sending facility latitude")
	recommendCmd.Flags().Float64Var(&originLon, "origin-lon", 0, "sending facility longitude")
	recommendCmd.Flags().StringVar(&transportMode, "transport", string(model.TransportGround), "transport mode (GROUND_AMBULANCE, HELICOPTER, FIXED_WING)")
	recommendCmd.Flags().StringVar(&outJSON, "json", "", "write the recommendation JSON to a file (default: stdout)")
	recommendCmd.Flags().BoolVar(&strictMode, "strict", false, "treat conditional rules as blocking")
	recommendCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall request timeout")
	recommendCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "text-generation provider (openai, ollama)")
	recommendCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "text-generation model name")
	recommendCmd.Flags().BoolVar(&noLLM, "no-llm", false, "skip narrative reasoning, rule-only recommendation")
	recommendCmd.Flags().BoolVar(&noOracleCache, "no-oracle-cache", false, "disable travel/bed oracle caching")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	narrative, err := readNarrative(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	p, err := buildPipeline()
	if err != nil {
		return err
	}

	req := model.TransferRequest{
		Narrative: narrative,
		Transport: model.TransportMode(transportMode),
		Strict:    strictMode,
	}
	if cmd.Flags().Changed("origin-lat") || cmd.Flags().Changed("origin-lon") {
		req.Origin = &model.Location{Latitude: originLat, Longitude: originLon}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Campuses: %s\nRules: %s\nTimeout: %v\n\n", campusFile, rulesFile, timeout)
	}

	rec, err := p.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("recommend failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Required care level: %s\n", rec.CareLevel)
		fmt.Fprintf(os.Stderr, "✓ Confidence: %d/100\n", rec.Confidence)
		if rec.CampusID != nil {
			fmt.Fprintf(os.Stderr, "✓ Recommended: %s\n", rec.CampusName)
		} else {
			fmt.Fprintf(os.Stderr, "✗ No eligible campus\n")
		}
		fmt.Fprintln(os.Stderr)
	}

	return writeRecommendation(rec, outJSON)
}

func readNarrative(args []string) (string, error) {
	if narrativeFile != "" {
		data, err := os.ReadFile(narrativeFile)
		if err != nil {
			return "", fmt.Errorf("read narrative file: %w", err)
		}
		return string(data), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return "", fmt.Errorf("provide a narrative argument or --narrative-file")
}

// buildPipeline assembles config, rule store, campuses, oracle and backend
// from flags and environment.
func buildPipeline() (*pipeline.Pipeline, error) {
	cfg := model.DefaultConfig()
	cfg.Pipeline.Strict = cfg.Pipeline.Strict || strictMode
	cfg.Oracle.CacheEnabled = !noOracleCache
	cfg.Output.Verbose = verbose
	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel
	if threshold := viper.GetInt("pipeline.blocking_threshold"); threshold > 0 {
		cfg.Pipeline.BlockingThreshold = threshold
	}

	store, err := rules.Load(rulesFile)
	if err != nil {
		return nil, err
	}
	campuses, err := rules.LoadCampuses(campusFile)
	if err != nil {
		return nil, err
	}

	var client llm.Client
	if !noLLM {
		if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set (or use --no-llm)")
			}
		}
		client, err = llm.NewClient(llm.FromModel(cfg.LLM))
		if err != nil {
			return nil, fmt.Errorf("init text-generation backend: %w", err)
		}
	}

	var orc oracle.Oracle = oracle.NewHaversineOracle(cfg.Oracle, campuses)
	if cfg.Oracle.CacheEnabled {
		orc = oracle.NewCachedOracle(orc, time.Duration(cfg.Oracle.CacheTTLSeconds)*time.Second)
	}

	return pipeline.New(cfg, client, orc, store, campuses), nil
}

func writeRecommendation(rec model.Recommendation, path string) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal recommendation: %w", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write recommendation: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	}
	return nil
}
