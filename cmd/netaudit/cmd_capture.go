package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netaudit/pkg/collector"
	"github.com/newtron-network/netaudit/pkg/inventory"
	"github.com/newtron-network/netaudit/pkg/snapshot"
)

var captureAskPass bool

var captureCmd = &cobra.Command{
	Use:   "capture <host>...",
	Short: "Save show-command output for offline checks",
	Long: `Run a host's show commands over SSH and save the JSON output under the
snapshot directory, for later use with 'netaudit check' or file-sourced hosts.

Examples:
  netaudit capture leaf1 leaf2 --snapshot ./snapshots`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if snapshotDir == "" {
			return fmt.Errorf("snapshot directory required: use --snapshot <dir>")
		}
		inv, err := inventory.Load(inventoryFile)
		if err != nil {
			return err
		}
		hosts, err := inv.Filter(args...)
		if err != nil {
			return err
		}
		if captureAskPass {
			if err := promptPassword(hosts); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		src := &collector.SSHSource{Timeout: collector.DefaultTimeout}
		failed := 0
		for _, h := range hosts {
			snap, err := src.Capture(ctx, h)
			if snap == nil {
				fmt.Printf("%s: %s\n", h.Name, red(err.Error()))
				failed++
				continue
			}
			if err != nil {
				fmt.Printf("%s: %s\n", h.Name, yellow(err.Error()))
			}
			if err := snapshot.Save(snapshotDir, snap); err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", h.Name, green("saved"))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d host(s) could not be captured", failed, len(hosts))
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().BoolVar(&captureAskPass, "ask-pass", false, "Prompt for a password for hosts without one")
}
