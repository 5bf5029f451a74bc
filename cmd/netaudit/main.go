// Netaudit - Network Compliance Auditor
//
// Audits routers against a declarative rule set of expected static routes,
// BGP sessions and OSPF adjacencies, and reports one PASS/FAIL verdict per
// rule per device:
//
//	netaudit run                          # audit every inventory host
//	netaudit run core1 core2 --fail-exit  # audit two hosts, exit 2 on FAIL
//	netaudit check -d core1 --snapshot ./snapshots
//	netaudit capture core1 --snapshot ./snapshots
//	netaudit rules validate
//	netaudit log list --failures --last 24h
//
// Every verdict is also appended to the compliance log (see `netaudit log`).
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netaudit/pkg/audit"
	"github.com/newtron-network/netaudit/pkg/cli"
	"github.com/newtron-network/netaudit/pkg/settings"
	"github.com/newtron-network/netaudit/pkg/util"
	"github.com/newtron-network/netaudit/pkg/version"
)

var (
	// Global option flags
	rulesFile     string
	inventoryFile string
	logFile       string
	snapshotDir   string
	verbose       bool
	logJSON       bool
	jsonOutput    bool

	// Global state
	userSettings *settings.Settings
	auditLogger  *audit.FileLogger
)

// errNonCompliant is returned by --fail-exit runs that produced a FAIL
var errNonCompliant = errors.New("non-compliant")

func main() {
	err := rootCmd.Execute()
	if auditLogger != nil {
		auditLogger.Close()
	}
	if errors.Is(err, errNonCompliant) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "netaudit",
	Short:             "Network Compliance Auditor",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Netaudit checks routers against expected static routes, BGP sessions
and OSPF adjacencies, and reports a PASS/FAIL verdict per rule per device.

Defaults for --rules, --inventory, --log-file and --snapshot come from
~/.netaudit/settings.json (see 'netaudit settings').`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if logJSON {
			util.SetJSONFormat()
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if isMetaCommand(cmd) {
			return nil
		}

		if rulesFile == "" {
			rulesFile = userSettings.GetRulesFile()
		}
		if inventoryFile == "" {
			inventoryFile = userSettings.GetInventoryFile()
		}
		if logFile == "" {
			logFile = userSettings.GetLogFile()
		}
		if snapshotDir == "" {
			snapshotDir = userSettings.SnapshotDir
		}

		auditLogger, err = audit.NewFileLogger(logFile, audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 10,
		})
		if err != nil {
			util.Warnf("Could not initialize compliance log: %v", err)
			return nil
		}
		audit.SetDefaultLogger(auditLogger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rulesFile, "rules", "r", "", "Compliance rules file")
	rootCmd.PersistentFlags().StringVarP(&inventoryFile, "inventory", "i", "", "Inventory file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Compliance log file")
	rootCmd.PersistentFlags().StringVar(&snapshotDir, "snapshot", "", "Snapshot directory for file-sourced hosts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write diagnostic logs to stderr as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "audit", Title: "Auditing:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{runCmd, checkCmd, captureCmd} {
		cmd.GroupID = "audit"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{rulesCmd, logCmd, settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

// isMetaCommand reports whether cmd needs no rules, inventory or log
func isMetaCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "version", "help", "completion":
			return true
		}
	}
	return false
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("netaudit dev build (set version via -ldflags, see pkg/version)")
		} else {
			fmt.Printf("netaudit %s\n", version.Info())
		}
	},
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
