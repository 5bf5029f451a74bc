package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gosnmp/gosnmp"

	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/inventory"
	"github.com/newtron-network/netaudit/pkg/util"
)

func TestNewSource(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"", KindSSH},
		{KindSSH, KindSSH},
		{KindRedis, KindRedis},
		{KindSNMP, KindSNMP},
		{KindFile, KindFile},
	}
	for _, tt := range tests {
		s, err := NewSource(tt.kind, Options{})
		if err != nil {
			t.Fatalf("NewSource(%q) error: %v", tt.kind, err)
		}
		if s.Name() != tt.want {
			t.Errorf("NewSource(%q).Name() = %q, want %q", tt.kind, s.Name(), tt.want)
		}
	}

	if _, err := NewSource("telnet", Options{}); !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("unknown kind error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewSource_Timeout(t *testing.T) {
	s, _ := NewSource(KindSSH, Options{})
	if s.(*SSHSource).Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", s.(*SSHSource).Timeout, DefaultTimeout)
	}
}

type stubSource struct{ name string }

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Collect(context.Context, *inventory.Host) (*compliance.ObservedState, error) {
	return &compliance.ObservedState{}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Options{SnapshotDir: "snaps"})
	stub := &stubSource{name: "stub"}
	r.Register(KindSSH, stub)

	s, err := r.For(&inventory.Host{Name: "r1"})
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	if s != stub {
		t.Errorf("For(default) = %v, want registered stub", s)
	}

	f1, _ := r.For(&inventory.Host{Name: "r1", Attributes: inventory.Attributes{Source: KindFile}})
	f2, _ := r.For(&inventory.Host{Name: "r2", Attributes: inventory.Attributes{Source: KindFile}})
	if f1 != f2 {
		t.Error("For returned distinct sources for the same kind")
	}
	if f1.(*FileSource).Dir != "snaps" {
		t.Errorf("FileSource.Dir = %q, want snaps", f1.(*FileSource).Dir)
	}

	err = r.Prepare([]*inventory.Host{
		{Name: "ok"},
		{Name: "bad", Attributes: inventory.Attributes{Source: "netconf"}},
	})
	if !errors.Is(err, util.ErrInvalidConfig) || !strings.Contains(err.Error(), "bad") {
		t.Errorf("Prepare error = %v, want ErrInvalidConfig naming host", err)
	}
}

func TestCommandsFor(t *testing.T) {
	eos := &inventory.Host{Name: "e1", Attributes: inventory.Attributes{Platform: "EOS"}}
	c, err := CommandsFor(eos)
	if err != nil {
		t.Fatalf("CommandsFor(eos) error: %v", err)
	}
	if c.Routes != "show ip route | json" {
		t.Errorf("Routes = %q", c.Routes)
	}

	override := &inventory.Host{Name: "e2", Attributes: inventory.Attributes{
		Platform: "eos",
		Data:     map[string]string{"command_bgp": "show bgp neighbors | json"},
	}}
	c, _ = CommandsFor(override)
	if c.BGP != "show bgp neighbors | json" || c.OSPF != "show ip ospf neighbor | json" {
		t.Errorf("override commands = %+v", c)
	}

	if _, err := CommandsFor(&inventory.Host{Name: "x", Attributes: inventory.Attributes{Platform: "ios"}}); !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("ios without commands error = %v, want ErrInvalidConfig", err)
	}
}

type fakeRunner map[string]string

func (f fakeRunner) Exec(_ context.Context, cmd string) ([]byte, error) {
	out, ok := f[cmd]
	if !ok {
		return nil, fmt.Errorf("%% Invalid input detected: %s", cmd)
	}
	return []byte(out), nil
}

func TestSSHSource_Snapshot(t *testing.T) {
	runner := fakeRunner{
		"routes": `{"vrf":{"default":{"address_family":{"ipv4":{"routes":{"10.0.0.0/24":{"next_hop":{"next_hop_list":{"1":{"next_hop":"10.1.1.1"}}}}}}}}}}`,
		"bgp":    `not json`,
	}
	s := &SSHSource{}
	snap, err := s.Snapshot(context.Background(), runner, "r1", Commands{Routes: "routes", BGP: "bgp", OSPF: "ospf"})

	if snap.Routes == nil {
		t.Error("routes document missing")
	}
	if snap.BGP != nil || snap.OSPF != nil {
		t.Errorf("failed views should be nil: bgp=%v ospf=%v", snap.BGP, snap.OSPF)
	}
	if !errors.Is(err, util.ErrCollectFailed) {
		t.Fatalf("error = %v, want ErrCollectFailed", err)
	}
	var ce *util.CollectError
	if !errors.As(err, &ce) || ce.Device != "r1" {
		t.Errorf("CollectError = %+v", ce)
	}
	for _, view := range []string{"bgp", "ospf"} {
		if !strings.Contains(err.Error(), view) {
			t.Errorf("error %q does not mention %s", err, view)
		}
	}

	ex, err := s.extractor(&inventory.Host{Name: "r1"})
	if err != nil {
		t.Fatalf("extractor error: %v", err)
	}
	observed := ex.Extract(snap)
	if !observed.Routes["10.0.0.0/24"].HasNextHop("10.1.1.1") {
		t.Errorf("routes = %v", observed.Routes)
	}
	if observed.BGP.Available {
		t.Error("BGP view should be unavailable")
	}
}

func TestSSHSource_SkipsEmptyCommands(t *testing.T) {
	s := &SSHSource{}
	snap, err := s.Snapshot(context.Background(), fakeRunner{}, "r1", Commands{})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if snap.Routes != nil || snap.BGP != nil || snap.OSPF != nil {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
}

func TestRedisAddr(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]string
		direct     string
		throughSSH string
	}{
		{"default port", nil, "10.0.0.1:6379", "127.0.0.1:6379"},
		{"custom port", map[string]string{"redis_port": "6380"}, "10.0.0.1:6380", "127.0.0.1:6380"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &inventory.Host{Name: "s1", Attributes: inventory.Attributes{Hostname: "10.0.0.1", Data: tt.data}}
			if got := redisAddr(h); got != tt.direct {
				t.Errorf("redisAddr() = %q, want %q", got, tt.direct)
			}
			if got := tunnelRedisAddr(h); got != tt.throughSSH {
				t.Errorf("tunnelRedisAddr() = %q, want %q", got, tt.throughSSH)
			}
		})
	}
}

func TestSplitRouteKey(t *testing.T) {
	tests := []struct {
		key, vrf, prefix string
	}{
		{"ROUTE_TABLE:10.0.0.0/24", "default", "10.0.0.0/24"},
		{"ROUTE_TABLE:Vrf_red:10.1.0.0/16", "Vrf_red", "10.1.0.0/16"},
		{"ROUTE_TABLE:fc00::/64", "default", "fc00::/64"},
	}
	for _, tt := range tests {
		vrf, prefix := splitRouteKey(tt.key)
		if vrf != tt.vrf || prefix != tt.prefix {
			t.Errorf("splitRouteKey(%q) = %q, %q; want %q, %q", tt.key, vrf, prefix, tt.vrf, tt.prefix)
		}
	}
}

func TestSessionStatus(t *testing.T) {
	tests := []struct {
		vals map[string]string
		want string
	}{
		{map[string]string{"state": "Established", "prefixes_received": "12"}, "12"},
		{map[string]string{"state": "Established"}, "Established"},
		{map[string]string{"state": "Active", "prefixes_received": "0"}, "Active"},
		{map[string]string{}, ""},
	}
	for _, tt := range tests {
		if got := sessionStatus(tt.vals); got != tt.want {
			t.Errorf("sessionStatus(%v) = %q, want %q", tt.vals, got, tt.want)
		}
	}
}

func pdu(name string, typ gosnmp.Asn1BER, value any) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: "." + name, Type: typ, Value: value}
}

func TestParseCidrRoutes(t *testing.T) {
	pdus := []gosnmp.SnmpPDU{
		pdu(oidCidrRouteNextHop+".10.0.0.0.255.255.255.0.0.10.1.1.1", gosnmp.IPAddress, "10.1.1.1"),
		pdu(oidCidrRouteNextHop+".10.0.0.0.255.255.255.0.0.10.1.1.2", gosnmp.IPAddress, "10.1.1.2"),
		pdu(oidCidrRouteNextHop+".0.0.0.0.0.0.0.0.0.192.168.0.1", gosnmp.IPAddress, "192.168.0.1"),
		pdu(oidCidrRouteNextHop+".1.2.3", gosnmp.IPAddress, "1.1.1.1"),
	}
	view := parseCidrRoutes(pdus)
	if len(view) != 2 {
		t.Fatalf("got %d routes, want 2: %v", len(view), view)
	}
	ecmp := view["10.0.0.0/24"]
	if !ecmp.HasNextHop("10.1.1.1") || !ecmp.HasNextHop("10.1.1.2") {
		t.Errorf("10.0.0.0/24 next hops = %v", ecmp.NextHops)
	}
	if !view["0.0.0.0/0"].HasNextHop("192.168.0.1") {
		t.Errorf("default route = %v", view["0.0.0.0/0"])
	}
}

func TestParseBGPPeers(t *testing.T) {
	states := []gosnmp.SnmpPDU{
		pdu(oidBGPPeerState+".10.2.2.2", gosnmp.Integer, 6),
		pdu(oidBGPPeerState+".10.3.3.3", gosnmp.Integer, 3),
		pdu(oidBGPPeerState+".10.4.4.4", gosnmp.Integer, 6),
	}
	accepted := []gosnmp.SnmpPDU{
		pdu(oidBGPAcceptedPrefix+".10.2.2.2.1.1", gosnmp.Counter32, uint(42)),
		pdu(oidBGPAcceptedPrefix+".10.2.2.2.2.1", gosnmp.Counter32, uint(7)),
		pdu(oidBGPAcceptedPrefix+".10.3.3.3.1.1", gosnmp.Counter32, uint(9)),
	}
	view := parseBGPPeers(states, accepted)

	if !view.Available {
		t.Fatal("view should be available")
	}
	if got := view.Sessions["10.2.2.2"].Raw; got != "42" {
		t.Errorf("10.2.2.2 = %q, want 42", got)
	}
	if got := view.Sessions["10.3.3.3"].Raw; got != "Active" {
		t.Errorf("10.3.3.3 = %q, want Active", got)
	}
	if got := view.Sessions["10.4.4.4"].Raw; got != "Established" {
		t.Errorf("10.4.4.4 = %q, want Established", got)
	}
}

func TestParseOSPFNeighbors(t *testing.T) {
	ids := []gosnmp.SnmpPDU{
		pdu(oidOSPFNbrRtrID+".10.0.12.2.0", gosnmp.IPAddress, "2.2.2.2"),
		pdu(oidOSPFNbrRtrID+".10.0.13.3.0", gosnmp.IPAddress, "3.3.3.3"),
	}
	states := []gosnmp.SnmpPDU{
		pdu(oidOSPFNbrState+".10.0.12.2.0", gosnmp.Integer, 8),
		pdu(oidOSPFNbrState+".10.0.13.3.0", gosnmp.Integer, 4),
	}
	view := parseOSPFNeighbors(ids, states)

	flat := compliance.FlattenOSPF(view)
	if flat["2.2.2.2"] != "FULL" || flat["3.3.3.3"] != "2WAY" {
		t.Errorf("flattened = %v", flat)
	}

	if empty := parseOSPFNeighbors(nil, nil); empty.Processes != nil {
		t.Errorf("empty walk = %+v, want no processes", empty)
	}
}

func TestReadSNMPState_PartialFailure(t *testing.T) {
	walk := func(oid string) ([]gosnmp.SnmpPDU, error) {
		switch oid {
		case oidBGPPeerState:
			return []gosnmp.SnmpPDU{pdu(oidBGPPeerState+".10.2.2.2", gosnmp.Integer, 6)}, nil
		case oidBGPAcceptedPrefix:
			return nil, errors.New("no such object")
		case oidOSPFNbrRtrID, oidOSPFNbrState:
			return nil, nil
		default:
			return nil, errors.New("request timeout")
		}
	}
	state, err := ReadSNMPState(walk, "r1")

	if !errors.Is(err, util.ErrCollectFailed) || !strings.Contains(err.Error(), "routes") {
		t.Errorf("error = %v, want routes collect failure", err)
	}
	if strings.Contains(err.Error(), "bgp") {
		t.Errorf("accepted-prefix walk failure should not fail bgp: %v", err)
	}
	if state.Routes != nil {
		t.Errorf("routes = %v, want nil", state.Routes)
	}
	if got := state.BGP.Sessions["10.2.2.2"].Raw; got != "Established" {
		t.Errorf("bgp session = %q, want Established", got)
	}
}

func TestOIDIndex(t *testing.T) {
	if got := oidIndex(".1.3.6.1.2.1.15.3.1.2.10.0.0.1", oidBGPPeerState); string(got) != string([]byte{10, 0, 0, 1}) {
		t.Errorf("oidIndex = %v", got)
	}
	if got := oidIndex(".1.3.6.1.2.1.15.3.1.20.1", oidBGPPeerState); got != nil {
		t.Errorf("oidIndex outside root = %v, want nil", got)
	}
	if got := oidIndex(oidBGPPeerState+".300", oidBGPPeerState); got != nil {
		t.Errorf("oidIndex overflow = %v, want nil", got)
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "r1", "bgp.yaml"), `
vrf:
  default:
    neighbor:
      10.2.2.2:
        state_pfxrcd: "5"
`)

	s := &FileSource{Dir: dir}
	state, err := s.Collect(context.Background(), &inventory.Host{Name: "r1"})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if got := state.BGP.Sessions["10.2.2.2"]; got.Kind != compliance.SessionPrefixCount || got.Prefixes != 5 {
		t.Errorf("session = %+v", got)
	}

	_, err = s.Collect(context.Background(), &inventory.Host{Name: "missing"})
	if !errors.Is(err, util.ErrCollectFailed) {
		t.Errorf("missing snapshot error = %v, want ErrCollectFailed", err)
	}

	_, err = (&FileSource{}).Collect(context.Background(), &inventory.Host{Name: "r1"})
	if !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("no dir error = %v, want ErrInvalidConfig", err)
	}

	override := &inventory.Host{Name: "r1", Attributes: inventory.Attributes{Data: map[string]string{"snapshot_dir": dir}}}
	if _, err := (&FileSource{}).Collect(context.Background(), override); err != nil {
		t.Errorf("snapshot_dir override error: %v", err)
	}
}
