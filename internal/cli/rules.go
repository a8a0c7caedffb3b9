package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drockthedoc/transfer-center/internal/model"
	"github.com/drockthedoc/transfer-center/internal/rules"
)

// rulesCmd groups rule store utilities.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate exclusion rule stores",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <rules.json>",
	Short: "Validate a rule store file",
	Long: `Validate loads a rule store file exactly as the pipeline would at startup
and prints a per-campus rule count summary. A malformed store fails with a
non-zero exit, since the pipeline refuses to start on one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rules.Load(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			return err
		}

		fmt.Printf("Rule store OK: %d rules across %d campuses\n\n", store.Len(), len(store.Campuses()))
		for _, campusID := range store.Campuses() {
			campusRules := store.ForCampus(campusID)
			blocking, conditional, accept := 0, 0, 0
			for _, r := range campusRules {
				switch r.Category {
				case model.RuleBlocking:
					blocking++
				case model.RuleConditional:
					conditional++
				case model.RuleAdvisoryAccept:
					accept++
				}
			}
			fmt.Printf("  %-20s %3d rules (%d blocking, %d conditional, %d accept)\n",
				campusID, len(campusRules), blocking, conditional, accept)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
}
