package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/newtron-network/netaudit/pkg/audit"
	"github.com/newtron-network/netaudit/pkg/cli"
	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/rules"
	"github.com/newtron-network/netaudit/pkg/snapshot"
	"github.com/newtron-network/netaudit/pkg/util"
)

var (
	checkDevice   string
	checkPlatform string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate rules against a saved snapshot",
	Long: `Evaluate the compliance rules against one device's saved command output,
without connecting to it. The snapshot directory holds one subdirectory per
device containing routes, bgp and ospf documents (.json, .yaml or .yml).

Examples:
  netaudit check -d core1 --snapshot ./snapshots
  netaudit check -d leaf1 --snapshot ./snapshots --platform eos --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkDevice == "" {
			return fmt.Errorf("device required: use -d <device>")
		}
		if snapshotDir == "" {
			return fmt.Errorf("snapshot directory required: use --snapshot <dir>")
		}

		rs, err := rules.Load(rulesFile)
		if err != nil {
			return err
		}
		extractor, err := snapshot.ForPlatform(checkPlatform)
		if err != nil {
			return err
		}
		snap, err := snapshot.LoadDir(snapshotDir, checkDevice)
		if err != nil {
			return err
		}

		verdicts := compliance.AuditDevice(checkDevice, extractor.Extract(snap), rs)

		runID := uuid.NewString()
		log := util.WithRun(runID).WithField("device", checkDevice)
		for _, v := range verdicts {
			if err := audit.Log(audit.NewEvent(runID, v)); err != nil {
				log.Warnf("compliance log: %v", err)
			}
		}

		if jsonOutput {
			if verdicts == nil {
				verdicts = []compliance.Verdict{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(verdicts)
		}

		for _, v := range verdicts {
			fmt.Println(cli.VerdictLine(v))
		}
		s := compliance.Summarize(verdicts)
		fmt.Printf("\n%s: %s (%d passed, %d failed)\n", checkDevice, cli.Compliance(s), s.Passed, s.Failed)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkDevice, "device", "d", "", "Device name (snapshot subdirectory)")
	checkCmd.Flags().StringVar(&checkPlatform, "platform", "", "Output layout: "+fmt.Sprint(snapshot.Platforms()))
	addOutputFlags(checkCmd)
}
