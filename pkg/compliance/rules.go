package compliance

import "github.com/newtron-network/netaudit/pkg/util"

// RuleSet is the expected state every audited device is checked against.
// It is built once per run and must not be modified while audits that share
// it are in flight.
type RuleSet struct {
	StaticRoutes []StaticRouteRule `yaml:"static_routes" json:"static_routes"`
	BGP          BGPRules          `yaml:"bgp" json:"bgp"`
	OSPF         OSPFRules         `yaml:"ospf" json:"ospf"`
}

// StaticRouteRule expects Prefix to be routed via NextHop
type StaticRouteRule struct {
	Prefix  string `yaml:"prefix" json:"prefix"`
	NextHop string `yaml:"next_hop" json:"next_hop"`
}

// BGPRules groups the expected BGP sessions
type BGPRules struct {
	Neighbors []BGPNeighborRule `yaml:"neighbors" json:"neighbors"`
}

// BGPNeighborRule expects a session with PeerAddress to be in State
type BGPNeighborRule struct {
	PeerAddress string `yaml:"ip" json:"ip"`
	State       string `yaml:"state" json:"state"`
}

// OSPFRules groups the expected OSPF adjacencies
type OSPFRules struct {
	Neighbors []OSPFNeighborRule `yaml:"neighbors" json:"neighbors"`
}

// OSPFNeighborRule expects NeighborID to be adjacent with a state containing
// State (case-insensitive), e.g. "FULL" matches "FULL/DR".
type OSPFNeighborRule struct {
	NeighborID string `yaml:"neighbor_id" json:"neighbor_id"`
	State      string `yaml:"state" json:"state"`
}

// Len returns the total number of rules
func (r *RuleSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.StaticRoutes) + len(r.BGP.Neighbors) + len(r.OSPF.Neighbors)
}

// Validate checks that every rule carries its required fields. Identifiers
// are opaque strings; no address syntax is checked.
func (r *RuleSet) Validate() error {
	v := &util.ValidationBuilder{}
	for i, rt := range r.StaticRoutes {
		if rt.Prefix == "" {
			v.AddErrorf("static_routes[%d]: prefix is required", i)
		}
		if rt.NextHop == "" {
			v.AddErrorf("static_routes[%d]: next_hop is required", i)
		}
	}
	for i, n := range r.BGP.Neighbors {
		if n.PeerAddress == "" {
			v.AddErrorf("bgp.neighbors[%d]: ip is required", i)
		}
		if n.State == "" {
			v.AddErrorf("bgp.neighbors[%d]: state is required", i)
		}
	}
	for i, n := range r.OSPF.Neighbors {
		if n.NeighborID == "" {
			v.AddErrorf("ospf.neighbors[%d]: neighbor_id is required", i)
		}
		if n.State == "" {
			v.AddErrorf("ospf.neighbors[%d]: state is required", i)
		}
	}
	return v.Build()
}
