// Package rules loads compliance rule files.
//
// A rule file is YAML (or JSON) with three top-level collections:
//
//	static_routes:
//	  - prefix: 192.168.10.0/24
//	    next_hop: 10.1.1.2
//	bgp:
//	  neighbors:
//	    - ip: 10.2.2.2
//	      state: Established
//	ospf:
//	  neighbors:
//	    - neighbor_id: 2.2.2.2
//	      state: FULL
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/util"
)

// DefaultFile is the rule file used when none is configured
const DefaultFile = "compliance_rules.yaml"

// Load reads, parses and validates a rule file
func Load(path string) (*compliance.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes and validates a rule document. Unknown keys are rejected so
// a misspelled field surfaces as an error instead of an empty rule list.
func Parse(data []byte) (*compliance.RuleSet, error) {
	var rs compliance.RuleSet

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Lint returns warnings for rules that load but are unlikely to ever match:
// malformed or non-canonical prefixes, and next hops or peer addresses that
// are not IP addresses. Rule identifiers are compared as opaque strings, so
// none of these is an error.
func Lint(rs *compliance.RuleSet) []string {
	var warnings []string
	seen := make(map[string]int)

	for i, rt := range rs.StaticRoutes {
		canon, ok := util.CanonicalPrefix(rt.Prefix)
		switch {
		case !ok:
			warnings = append(warnings, fmt.Sprintf("static_routes[%d]: prefix '%s' is not CIDR notation", i, rt.Prefix))
		case canon != rt.Prefix:
			warnings = append(warnings, fmt.Sprintf("static_routes[%d]: prefix '%s' has host bits set; devices report '%s'", i, rt.Prefix, canon))
		}
		if !util.IsValidIP(rt.NextHop) {
			warnings = append(warnings, fmt.Sprintf("static_routes[%d]: next_hop '%s' is not an IP address", i, rt.NextHop))
		}
		if j, dup := seen["route "+rt.Prefix]; dup {
			warnings = append(warnings, fmt.Sprintf("static_routes[%d]: duplicates static_routes[%d]", i, j))
		} else {
			seen["route "+rt.Prefix] = i
		}
	}

	for i, n := range rs.BGP.Neighbors {
		if !util.IsValidIP(n.PeerAddress) {
			warnings = append(warnings, fmt.Sprintf("bgp.neighbors[%d]: ip '%s' is not an IP address", i, n.PeerAddress))
		}
		if j, dup := seen["bgp "+n.PeerAddress]; dup {
			warnings = append(warnings, fmt.Sprintf("bgp.neighbors[%d]: duplicates bgp.neighbors[%d]", i, j))
		} else {
			seen["bgp "+n.PeerAddress] = i
		}
	}

	for i, n := range rs.OSPF.Neighbors {
		if !util.IsValidIPv4(n.NeighborID) {
			warnings = append(warnings, fmt.Sprintf("ospf.neighbors[%d]: neighbor_id '%s' is not a dotted-quad router ID", i, n.NeighborID))
		}
	}
	return warnings
}
