package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netaudit/pkg/cli"
	"github.com/newtron-network/netaudit/pkg/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the compliance rules",
	Long: `Inspect the compliance rules file.

Examples:
  netaudit rules validate
  netaudit rules show -r /etc/netaudit/rules.yaml`,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the rules file for errors and likely mistakes",
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := rules.Load(rulesFile)
		if err != nil {
			return err
		}
		for _, w := range rules.Lint(rs) {
			fmt.Println(yellow("warning:"), w)
		}
		fmt.Printf("%s %s: %d rule(s)\n", green("OK"), rulesFile, rs.Len())
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := rules.Load(rulesFile)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rs)
		}

		t := cli.NewTable("CATEGORY", "SUBJECT", "EXPECT")
		for _, r := range rs.StaticRoutes {
			t.Row("route", r.Prefix, "via "+r.NextHop)
		}
		for _, n := range rs.BGP.Neighbors {
			t.Row("bgp", n.PeerAddress, n.State)
		}
		for _, n := range rs.OSPF.Neighbors {
			t.Row("ospf", n.NeighborID, n.State)
		}
		t.Flush()
		if rs.Len() == 0 {
			fmt.Println("No rules defined")
		}
		return nil
	},
}

func init() {
	addOutputFlags(rulesShowCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesShowCmd)
}
