package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/inventory"
	"github.com/newtron-network/netaudit/pkg/snapshot"
	"github.com/newtron-network/netaudit/pkg/util"
)

// Commands are the show commands whose JSON output feeds each view
type Commands struct {
	Routes string
	BGP    string
	OSPF   string
}

// platformCommands are built-in commands for platforms that can print JSON
// on the box. Other platforms set command_routes, command_bgp and
// command_ospf in the host's data.
var platformCommands = map[string]Commands{
	"eos": {
		Routes: "show ip route | json",
		BGP:    "show ip bgp summary | json",
		OSPF:   "show ip ospf neighbor | json",
	},
}

// CommandsFor resolves the commands to run on a host
func CommandsFor(h *inventory.Host) (Commands, error) {
	c := platformCommands[strings.ToLower(h.Platform)]
	c.Routes = h.Get("command_routes", c.Routes)
	c.BGP = h.Get("command_bgp", c.BGP)
	c.OSPF = h.Get("command_ospf", c.OSPF)
	if c.Routes == "" && c.BGP == "" && c.OSPF == "" {
		return c, fmt.Errorf("host %s: no show commands for platform '%s': %w",
			h.Name, h.Platform, util.ErrInvalidConfig)
	}
	return c, nil
}

// SSHSource runs show commands over SSH and extracts views from their JSON
// output with the platform's snapshot queries.
type SSHSource struct {
	Timeout time.Duration
}

// Name returns the source name
func (s *SSHSource) Name() string {
	return KindSSH
}

// Collect connects to the host and runs its three show commands. A command
// that fails or prints something other than JSON leaves its view absent; the
// errors are returned alongside the partial state.
func (s *SSHSource) Collect(ctx context.Context, h *inventory.Host) (*compliance.ObservedState, error) {
	extractor, err := s.extractor(h)
	if err != nil {
		return nil, err
	}
	snap, err := s.Capture(ctx, h)
	if snap == nil {
		return nil, err
	}
	return extractor.Extract(snap), err
}

// Capture connects to the host and returns the decoded command output
// without extracting views, for saving as an offline snapshot.
func (s *SSHSource) Capture(ctx context.Context, h *inventory.Host) (*snapshot.Snapshot, error) {
	cmds, err := CommandsFor(h)
	if err != nil {
		return nil, err
	}

	t, err := DialTunnel(ctx, h, s.Timeout)
	if err != nil {
		return nil, util.NewCollectError(h.Name, KindSSH, "", fmt.Errorf("%w: %v", util.ErrUnreachable, err))
	}
	defer t.Close()

	return s.Snapshot(ctx, t, h.Name, cmds)
}

// Snapshot runs the commands on an open tunnel and returns their decoded output
func (s *SSHSource) Snapshot(ctx context.Context, r CommandRunner, device string, cmds Commands) (*snapshot.Snapshot, error) {
	snap := &snapshot.Snapshot{Device: device}
	var errs []error

	run := func(view, cmd string) any {
		if cmd == "" {
			return nil
		}
		util.WithDevice(device).Debugf("running '%s'", cmd)
		out, err := r.Exec(ctx, cmd)
		if err != nil {
			errs = append(errs, util.NewCollectError(device, KindSSH, view, err))
			return nil
		}
		doc, err := snapshot.DecodeJSON(out)
		if err != nil {
			errs = append(errs, util.NewCollectError(device, KindSSH, view, fmt.Errorf("decoding output: %w", err)))
			return nil
		}
		return doc
	}

	snap.Routes = run("routes", cmds.Routes)
	snap.BGP = run("bgp", cmds.BGP)
	snap.OSPF = run("ospf", cmds.OSPF)
	return snap, errors.Join(errs...)
}

func (s *SSHSource) extractor(h *inventory.Host) (*snapshot.Extractor, error) {
	q, err := snapshot.PlatformQueries(h.Platform)
	if err != nil {
		// Hosts with custom commands may still use the genie layout.
		q = snapshot.GenieQueries
	}
	q.Routes = h.Get("query_routes", q.Routes)
	q.BGP = h.Get("query_bgp", q.BGP)
	q.OSPF = h.Get("query_ospf", q.OSPF)
	return snapshot.NewExtractor(q)
}

// CommandRunner executes a show command on a device
type CommandRunner interface {
	Exec(ctx context.Context, cmd string) ([]byte, error)
}
