package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sudoersgo/policyengine/internal/config"
	"github.com/sudoersgo/policyengine/internal/facade"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse the policy file and report diagnostics, like visudo -c",
	Long: `Load the policy file (following its #include/#includedir chain),
sanitize its alias tables, and fold in every Defaults directive, printing
one line per diagnostic produced along the way. Exits non-zero if any
diagnostic was produced.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(policyPath, logPath, includeDepth)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pol, err := facade.LoadFromPathWithDepth(cfg.PolicyPath, cfg.IncludeDepth)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	if len(pol.Diagnostics) == 0 {
		fmt.Printf("%s: parsed cleanly, %d rule(s)\n", cfg.PolicyPath, pol.RuleCount())
		return nil
	}

	for _, d := range pol.Diagnostics {
		if d.Pos != nil {
			fmt.Printf("%s:%d:%d: %s\n", cfg.PolicyPath, d.Pos.Line, d.Pos.Column, d.Message)
		} else {
			fmt.Printf("%s: %s\n", cfg.PolicyPath, d.Message)
		}
	}
	return fmt.Errorf("%d diagnostic(s)", len(pol.Diagnostics))
}
