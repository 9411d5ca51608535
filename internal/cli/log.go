package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sudoersgo/policyengine/internal/audit"
	"github.com/sudoersgo/policyengine/internal/config"
)

var (
	logFilterDecision string
	logLast           int
	logSummary        bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the audit log",
	Long: `View the sudopolicy audit log with filtering and summary options.

Examples:
  sudopolicy log                        # Show all entries
  sudopolicy log --last 20              # Show last 20 entries
  sudopolicy log --decision DENY        # Show only denied requests
  sudopolicy log --summary              # Show session summary stats`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logFilterDecision, "decision", "", "Filter by decision (ALLOW, DENY)")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(policyPath, logPath, includeDepth)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	events, err := readAuditLog(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No audit log entries found.")
		return nil
	}

	filtered := filterEvents(events)
	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(events)
		return nil
	}
	printEvents(filtered)
	return nil
}

func readAuditLog(path string) ([]audit.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []audit.Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event audit.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

func filterEvents(events []audit.Event) []audit.Event {
	if logFilterDecision == "" {
		return events
	}
	var filtered []audit.Event
	for _, e := range events {
		if strings.EqualFold(e.Decision, logFilterDecision) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func printEvents(events []audit.Event) {
	for _, e := range events {
		ts := formatTimestamp(e.Timestamp)
		label := e.CommandPath
		if e.CommandArguments != "" {
			label += " " + e.CommandArguments
		}
		fmt.Printf("%s %-5s %s as %s on %s: %s\n", ts, e.Decision, e.Invoker, e.TargetUser, e.Host, label)
		if e.Error != "" {
			fmt.Printf("     Error: %s\n", e.Error)
		}
	}
}

func printSummary(all []audit.Event) {
	counts := map[string]int{}
	for _, e := range all {
		counts[e.Decision]++
	}
	fmt.Println("=== sudopolicy audit summary ===")
	fmt.Printf("  Total events: %d\n", len(all))
	fmt.Printf("  ALLOW:        %d\n", counts["ALLOW"])
	fmt.Printf("  DENY:         %d\n", counts["DENY"])
	if len(all) > 0 {
		fmt.Printf("  First event:  %s\n", formatTimestamp(all[0].Timestamp))
		fmt.Printf("  Last event:   %s\n", formatTimestamp(all[len(all)-1].Timestamp))
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
