package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/util"
)

const genieRoutes = `{
  "vrf": {"default": {"address_family": {"ipv4": {"routes": {
    "192.168.10.0/24": {"next_hop": {"next_hop_list": {"1": {"next_hop": "10.1.1.2"}}}}
  }}}}}
}`

const genieBGP = `{"vrf": {"default": {"neighbor": {"10.2.2.2": {"state_pfxrcd": "5"}}}}}`

const genieOSPF = `{
  "vrf": {"default": {"address_family": {"ipv4": {"instance": {"1": {"areas": {"0.0.0.0": {
    "interfaces": {"GigabitEthernet1": {"neighbors": {"2.2.2.2": {"state": "FULL/DR"}}}}
  }}}}}}}}
}`

var testRules = &compliance.RuleSet{
	StaticRoutes: []compliance.StaticRouteRule{{Prefix: "192.168.10.0/24", NextHop: "10.1.1.2"}},
	BGP:          compliance.BGPRules{Neighbors: []compliance.BGPNeighborRule{{PeerAddress: "10.2.2.2", State: "Established"}}},
	OSPF:         compliance.OSPFRules{Neighbors: []compliance.OSPFNeighborRule{{NeighborID: "2.2.2.2", State: "FULL"}}},
}

func mustJSON(t *testing.T, s string) any {
	t.Helper()
	doc, err := DecodeJSON([]byte(s))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	return doc
}

func TestExtract_Genie(t *testing.T) {
	e, err := NewExtractor(GenieQueries)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	state := e.Extract(&Snapshot{
		Device: "r1",
		Routes: mustJSON(t, genieRoutes),
		BGP:    mustJSON(t, genieBGP),
		OSPF:   mustJSON(t, genieOSPF),
	})

	verdicts := compliance.AuditDevice("r1", state, testRules)
	if s := compliance.Summarize(verdicts); s.Passed != 3 {
		t.Errorf("Summarize = %+v, verdicts %v", s, verdicts)
	}
}

func TestExtract_EmptyDocuments(t *testing.T) {
	e, _ := NewExtractor(GenieQueries)

	// Well-formed but empty output: BGP is available with no peers.
	state := e.Extract(&Snapshot{Routes: map[string]any{}, BGP: map[string]any{}, OSPF: map[string]any{}})
	if !state.BGP.Available {
		t.Error("empty BGP mapping should be available")
	}
	if len(compliance.AuditDevice("r1", state, testRules)) != 3 {
		t.Error("expected a verdict per rule")
	}

	// No output at all: BGP is skipped.
	state = e.Extract(&Snapshot{Routes: "% Invalid input", BGP: nil, OSPF: []any{}})
	if state.BGP.Available {
		t.Error("nil BGP document should be unavailable")
	}
	verdicts := compliance.AuditDevice("r1", state, testRules)
	if len(verdicts) != 2 {
		t.Errorf("got %d verdicts, want 2", len(verdicts))
	}

	if got := e.Extract(nil); got == nil || got.BGP.Available {
		t.Errorf("Extract(nil) = %+v", got)
	}
}

func TestExtract_QueryErrorLeavesViewAbsent(t *testing.T) {
	e, err := NewExtractor(Queries{BGP: ".vrf.default.neighbor"})
	if err != nil {
		t.Fatal(err)
	}
	state := e.Extract(&Snapshot{BGP: map[string]any{"vrf": "default"}})
	if state.BGP.Available {
		t.Error("query error should leave BGP unavailable")
	}
}

func TestExtract_IntegerKeyedYAML(t *testing.T) {
	e, _ := NewExtractor(GenieQueries)
	routes := map[string]any{
		"vrf": map[string]any{"default": map[string]any{"address_family": map[string]any{"ipv4": map[string]any{
			"routes": map[string]any{
				"10.0.0.0/8": map[string]any{"next_hop": map[string]any{
					"next_hop_list": map[any]any{1: map[string]any{"next_hop": "1.1.1.1"}},
				}},
			},
		}}}},
	}
	state := e.Extract(&Snapshot{Routes: routes})
	if !state.Routes["10.0.0.0/8"].HasNextHop("1.1.1.1") {
		t.Errorf("routes = %+v", state.Routes)
	}
}

func TestExtract_EOS(t *testing.T) {
	e, err := ForPlatform("EOS")
	if err != nil {
		t.Fatalf("ForPlatform: %v", err)
	}

	routes := `{"vrfs": {"default": {"routes": {
	  "192.168.10.0/24": {"vias": [{"nexthopAddr": "10.1.1.3", "interface": "Ethernet2"},
	                               {"nexthopAddr": "10.1.1.2", "interface": "Ethernet1"}]},
	  "10.0.0.1/32": {"vias": [{"interface": "Loopback0"}]}
	}}}}`
	bgp := `{"vrfs": {"default": {"peers": {
	  "10.2.2.2": {"peerState": "Established", "prefixReceived": 12},
	  "10.3.3.3": {"peerState": "Active"}
	}}}}`
	ospf := `{"vrfs": {"default": {"instList": {"1": {"ospfNeighborEntries": [
	  {"routerId": "2.2.2.2", "adjacencyState": "full", "drState": "DR",
	   "interfaceName": "Ethernet1", "details": {"areaId": "0.0.0.0"}}
	]}}}}}`

	state := e.Extract(&Snapshot{
		Routes: mustJSON(t, routes),
		BGP:    mustJSON(t, bgp),
		OSPF:   mustJSON(t, ospf),
	})

	if hops := state.Routes["192.168.10.0/24"].NextHops; len(hops) != 2 {
		t.Errorf("ECMP hops = %v", hops)
	}
	if len(state.Routes["10.0.0.1/32"].NextHops) != 0 {
		t.Errorf("connected route should have no next hops: %v", state.Routes["10.0.0.1/32"])
	}
	if st := state.BGP.Sessions["10.2.2.2"]; st.Kind != compliance.SessionPrefixCount || st.Prefixes != 12 {
		t.Errorf("10.2.2.2 = %+v", st)
	}
	if st := state.BGP.Sessions["10.3.3.3"]; st.Raw != "Active" {
		t.Errorf("10.3.3.3 = %+v", st)
	}
	if got := compliance.FlattenOSPF(state.OSPF)["2.2.2.2"]; got != "FULL/DR" {
		t.Errorf("OSPF state = %q", got)
	}

	verdicts := compliance.AuditDevice("eos1", state, testRules)
	if s := compliance.Summarize(verdicts); !s.Compliant() {
		t.Errorf("expected compliant, got %v", verdicts)
	}
}

func TestPlatformQueries(t *testing.T) {
	if q, err := PlatformQueries(""); err != nil || q != GenieQueries {
		t.Errorf("empty platform should select genie queries")
	}
	if _, err := PlatformQueries("junos"); !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("unknown platform error = %v", err)
	}
	if _, err := NewExtractor(Queries{Routes: ".vrf["}); err == nil {
		t.Error("invalid query should fail to compile")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	devDir := filepath.Join(dir, "r1")
	if err := os.MkdirAll(devDir, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(devDir, "routes.json"), []byte(genieRoutes), 0644)
	os.WriteFile(filepath.Join(devDir, "bgp.yaml"), []byte("vrf:\n  default:\n    neighbor:\n      10.2.2.2:\n        state_pfxrcd: 5\n"), 0644)
	os.WriteFile(filepath.Join(devDir, "ospf.json"), []byte("{not json"), 0644)

	s, err := LoadDir(dir, "r1")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if s.Routes == nil || s.BGP == nil {
		t.Errorf("routes/bgp should load: %+v", s)
	}
	if s.OSPF != nil {
		t.Errorf("malformed ospf should be nil, got %v", s.OSPF)
	}

	e, _ := NewExtractor(GenieQueries)
	verdicts := compliance.AuditDevice("r1", e.Extract(s), testRules)
	want := []compliance.Outcome{compliance.OutcomePass, compliance.OutcomePass, compliance.OutcomeFail}
	for i, v := range verdicts {
		if v.Outcome != want[i] {
			t.Errorf("verdict[%d] = %v, want %s", i, v, want[i])
		}
	}

	if _, err := LoadDir(dir, "ghost"); err == nil {
		t.Error("LoadDir of missing device should fail")
	}
}

func TestSaveLoadDir(t *testing.T) {
	dir := t.TempDir()
	s := &Snapshot{Device: "r2", BGP: mustJSON(t, genieBGP)}
	if err := Save(dir, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadDir(dir, "r2")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got.BGP == nil || got.Routes != nil || got.OSPF != nil {
		t.Errorf("round trip = %+v", got)
	}
}
