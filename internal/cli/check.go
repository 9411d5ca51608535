package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sudoersgo/policyengine/internal/audit"
	"github.com/sudoersgo/policyengine/internal/capability"
	"github.com/sudoersgo/policyengine/internal/config"
	"github.com/sudoersgo/policyengine/internal/facade"
	"github.com/sudoersgo/policyengine/internal/matcher"
)

var (
	checkUser        string
	checkHost        string
	checkAsUser      string
	checkAsGroup     string
	checkArguments   string
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] -- <command>",
	Short: "Evaluate one authorization request against the policy",
	Long: `Evaluate whether a user may run a command as a target user/group on a
given host, per the loaded policy. Prints ALLOW or DENY and, on ALLOW,
whether a password is required.

Example:
  sudopolicy check --user alice --as root -- /bin/systemctl restart nginx`,
	Args: cobra.ArbitraryArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkUser, "user", "", "Invoking user (default: current user)")
	checkCmd.Flags().StringVar(&checkHost, "host", "", "Host the request is evaluated for (default: local hostname)")
	checkCmd.Flags().StringVar(&checkAsUser, "as", "root", "Target user to run as")
	checkCmd.Flags().StringVar(&checkAsGroup, "as-group", "", "Target group to run as (default: the target user's primary group)")
	checkCmd.Flags().StringVar(&checkArguments, "args", "", "Command arguments, as a single space-joined string")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided. Usage: sudopolicy check [flags] -- <command>")
	}
	commandPath := args[0]
	if checkArguments == "" && len(args) > 1 {
		checkArguments = joinArgs(args[1:])
	}

	cfg, err := config.Load(policyPath, logPath, includeDepth)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	invokerName := checkUser
	if invokerName == "" {
		invokerName = os.Getenv("USER")
	}
	host := checkHost
	if host == "" {
		host, _ = os.Hostname()
	}

	invoker, err := capability.LookupUser(invokerName)
	if err != nil {
		return fmt.Errorf("look up invoking user %q: %w", invokerName, err)
	}
	target, err := capability.LookupUser(checkAsUser)
	if err != nil {
		return fmt.Errorf("look up target user %q: %w", checkAsUser, err)
	}

	var targetGroup capability.GroupHandle
	if checkAsGroup != "" {
		g, err := capability.LookupGroup(checkAsGroup)
		if err != nil {
			return fmt.Errorf("look up target group %q: %w", checkAsGroup, err)
		}
		targetGroup = g
	} else {
		g, err := capability.LookupGroupID(primaryGID(target))
		if err != nil {
			return fmt.Errorf("look up target user's primary group: %w", err)
		}
		targetGroup = g
	}

	pol, err := facade.LoadFromPathWithDepth(cfg.PolicyPath, cfg.IncludeDepth)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}
	for _, d := range pol.Diagnostics {
		fmt.Fprintf(os.Stderr, "warning: %s\n", d.Message)
	}

	verdict := pol.Check(matcher.Request{
		Invoker:          invoker,
		Host:             host,
		TargetUser:       target,
		TargetGroup:      targetGroup,
		CommandPath:      commandPath,
		CommandArguments: checkArguments,
	})

	decision := "DENY"
	if verdict.Allow {
		decision = "ALLOW"
	}
	fmt.Println(decision)
	if verdict.Allow {
		if verdict.Tag.RequiresPassword {
			fmt.Println("password required")
		} else {
			fmt.Println("NOPASSWD")
		}
	}

	lg, logErr := audit.New(cfg.LogPath)
	if logErr == nil {
		defer lg.Close()
		_ = lg.Log(audit.Event{
			Timestamp:        time.Now().UTC().Format(time.RFC3339),
			Invoker:          invokerName,
			Host:             host,
			TargetUser:       checkAsUser,
			CommandPath:      commandPath,
			CommandArguments: checkArguments,
			Decision:         decision,
			RequiresPassword: verdict.Allow && verdict.Tag.RequiresPassword,
		})
	}

	if !verdict.Allow {
		os.Exit(1)
	}
	return nil
}

func primaryGID(u *capability.OSUser) int {
	// os/user doesn't expose the primary gid directly through UserHandle;
	// re-resolve it from the underlying record.
	return capability.PrimaryGID(u)
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
