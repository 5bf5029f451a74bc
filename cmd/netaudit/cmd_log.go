package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netaudit/pkg/audit"
	"github.com/newtron-network/netaudit/pkg/cli"
	"github.com/newtron-network/netaudit/pkg/compliance"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the compliance log",
	Long: `View verdicts recorded by previous runs.

Every verdict is logged with:
  - Timestamp and run ID
  - Device
  - Category (route, bgp, ospf) and subject
  - Outcome and message

Examples:
  netaudit log list --device core1
  netaudit log list --last 24h --failures
  netaudit log list --run 6f1c...`,
}

var (
	logDevice   string
	logCategory string
	logRun      string
	logLast     string
	logLimit    int
	logFailures bool
)

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "List logged verdicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			Device:      logDevice,
			Category:    compliance.Category(strings.ToLower(logCategory)),
			RunID:       logRun,
			Limit:       logLimit,
			FailureOnly: logFailures,
		}

		if logLast != "" {
			d, err := parseLast(logLast)
			if err != nil {
				return err
			}
			filter.StartTime = time.Now().Add(-d)
		}

		events, err := audit.Query(filter)
		if err != nil {
			return fmt.Errorf("querying compliance log: %w", err)
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(events)
		}

		if len(events) == 0 {
			fmt.Println("No verdicts found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "RUN", "DEVICE", "CATEGORY", "OUTCOME", "MESSAGE")
		for _, e := range events {
			t.Row(
				e.Timestamp.Format("2006-01-02 15:04:05"),
				shortID(e.RunID),
				e.Device,
				string(e.Category),
				cli.Outcome(e.Outcome),
				e.Message,
			)
		}
		t.Flush()
		return nil
	},
}

// parseLast accepts Go durations plus a day suffix ("7d")
func parseLast(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	return d, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	logListCmd.Flags().StringVar(&logDevice, "device", "", "Filter by device")
	logListCmd.Flags().StringVar(&logCategory, "category", "", "Filter by category (route, bgp, ospf)")
	logListCmd.Flags().StringVar(&logRun, "run", "", "Filter by run ID")
	logListCmd.Flags().StringVar(&logLast, "last", "", "Show verdicts from last duration (e.g., 24h, 7d)")
	logListCmd.Flags().IntVar(&logLimit, "limit", 100, "Maximum verdicts to show")
	logListCmd.Flags().BoolVar(&logFailures, "failures", false, "Show only failed verdicts")
	addOutputFlags(logListCmd)

	logCmd.AddCommand(logListCmd)
}
