package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newtron-network/netaudit/pkg/cli"
	"github.com/newtron-network/netaudit/pkg/collector"
	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/inventory"
	"github.com/newtron-network/netaudit/pkg/rules"
	"github.com/newtron-network/netaudit/pkg/runner"
)

var (
	runWorkers  int
	runTimeout  time.Duration
	runAskPass  bool
	runFailExit bool
)

var runCmd = &cobra.Command{
	Use:   "run [host...]",
	Short: "Audit inventory hosts",
	Long: `Collect state from inventory hosts and evaluate the compliance rules.

With no arguments every host in the inventory is audited. Each verdict is
printed as "<device>: [PASS|FAIL] <message>", followed by a per-device summary.

Examples:
  netaudit run
  netaudit run core1 core2 --workers 2
  netaudit run --ask-pass --fail-exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := rules.Load(rulesFile)
		if err != nil {
			return err
		}
		inv, err := inventory.Load(inventoryFile)
		if err != nil {
			return err
		}
		hosts, err := inv.Filter(args...)
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			return fmt.Errorf("no hosts in %s", inventoryFile)
		}

		if runAskPass {
			if err := promptPassword(hosts); err != nil {
				return err
			}
		}

		workers := runWorkers
		if workers <= 0 {
			workers = userSettings.GetWorkers()
		}
		timeout := runTimeout
		if timeout <= 0 && userSettings.TimeoutSeconds > 0 {
			timeout = time.Duration(userSettings.TimeoutSeconds) * time.Second
		}

		registry := collector.NewRegistry(collector.Options{SnapshotDir: snapshotDir, Timeout: timeout})
		r := runner.New(rs, registry, runner.Config{Workers: workers, Timeout: timeout, QuietVerdicts: true})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		report, err := r.Run(ctx, hosts)
		if err != nil {
			return err
		}

		if jsonOutput {
			if err := printReportJSON(report); err != nil {
				return err
			}
		} else {
			printReport(report)
		}

		if runFailExit && !report.Summary().Compliant() {
			return errNonCompliant
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 0, "Hosts audited concurrently (default from settings, 10)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-host collection timeout (e.g. 30s)")
	runCmd.Flags().BoolVar(&runAskPass, "ask-pass", false, "Prompt for a password for hosts without one")
	runCmd.Flags().BoolVar(&runFailExit, "fail-exit", false, "Exit with status 2 if any rule fails")
	addOutputFlags(runCmd)
}

// promptPassword asks once on the terminal and applies the answer to every
// host that has no password configured.
func promptPassword(hosts []*inventory.Host) error {
	var missing []*inventory.Host
	for _, h := range hosts {
		if h.Password == "" {
			missing = append(missing, h)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("--ask-pass requires a terminal on stdin")
	}

	user := missing[0].Username
	if user == "" {
		user = "device"
	}
	fmt.Fprintf(os.Stderr, "Password for %s (%d host(s)): ", user, len(missing))
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	for _, h := range missing {
		h.Password = string(pw)
	}
	return nil
}

func printReport(report *runner.Report) {
	for _, res := range report.Results {
		for _, v := range res.Verdicts {
			fmt.Println(cli.VerdictLine(v))
		}
	}
	fmt.Println()

	t := cli.NewTable("DEVICE", "SOURCE", "RULES", "PASSED", "FAILED", "STATUS", "TIME", "COLLECTION")
	for _, res := range report.Results {
		s := res.Summary()
		source := res.Host.Source
		if source == "" {
			source = collector.KindSSH
		}
		collection := green("ok")
		if res.Err != nil {
			collection = yellow(res.Err.Error())
		}
		t.Row(
			res.Host.Name,
			source,
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Passed),
			strconv.Itoa(s.Failed),
			cli.Compliance(s),
			formatDuration(res.Duration),
			collection,
		)
	}
	t.Flush()

	s := report.Summary()
	fmt.Printf("\nAudit Complete: %d device(s), %d passed, %d failed (run %s)\n",
		len(report.Results), s.Passed, s.Failed, report.RunID)
}

type resultJSON struct {
	Device   string               `json:"device"`
	Source   string               `json:"source,omitempty"`
	Summary  compliance.Summary   `json:"summary"`
	Verdicts []compliance.Verdict `json:"verdicts"`
	Error    string               `json:"error,omitempty"`
	Duration string               `json:"duration"`
}

func printReportJSON(report *runner.Report) error {
	out := struct {
		RunID   string             `json:"run_id"`
		Summary compliance.Summary `json:"summary"`
		Devices []resultJSON       `json:"devices"`
	}{RunID: report.RunID, Summary: report.Summary()}

	for _, res := range report.Results {
		r := resultJSON{
			Device:   res.Host.Name,
			Source:   res.Host.Source,
			Summary:  res.Summary(),
			Verdicts: res.Verdicts,
			Duration: res.Duration.String(),
		}
		if r.Verdicts == nil {
			r.Verdicts = []compliance.Verdict{}
		}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
		out.Devices = append(out.Devices, r)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
