package cli

import (
	"github.com/spf13/cobra"
)

var (
	policyPath   string
	logPath      string
	includeDepth int
)

var rootCmd = &cobra.Command{
	Use:   "sudopolicy",
	Short: "sudopolicy - inspect and evaluate sudoers-style access policies",
	Long: `sudopolicy parses a sudoers-style policy file, resolves its aliases and
Defaults directives, and evaluates authorization requests against it —
without requiring the caller to actually be root, or the policy to live
at /etc/sudoers.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "Path to the policy file (default: ~/.sudopolicy/sudoers)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to the audit log file (default: ~/.sudopolicy/audit.jsonl)")
	rootCmd.PersistentFlags().IntVar(&includeDepth, "include-depth", 0, "Maximum #include/#includedir recursion depth (default: 128)")
}

func Execute() error {
	return rootCmd.Execute()
}
