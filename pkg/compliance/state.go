package compliance

import "strconv"

// ObservedState is one device's state snapshot. Any view may be empty when
// the device returned nothing usable for it.
type ObservedState struct {
	Routes RoutingView `json:"routes,omitempty"`
	BGP    BGPView     `json:"bgp"`
	OSPF   OSPFView    `json:"ospf"`
}

// RoutingView maps prefix to route entry
type RoutingView map[string]RouteEntry

// RouteEntry holds the candidate next hops of one prefix (several for ECMP)
type RouteEntry struct {
	NextHops []string `json:"next_hops"`
}

// HasNextHop reports whether hop is one of the entry's candidates
func (e RouteEntry) HasNextHop(hop string) bool {
	for _, nh := range e.NextHops {
		if nh == hop {
			return true
		}
	}
	return false
}

// BGPView maps peer address to session status. A view that is not Available
// came from a missing or unparseable BGP summary; no BGP rules are evaluated
// against it.
type BGPView struct {
	Available bool                     `json:"available"`
	Sessions  map[string]SessionStatus `json:"sessions,omitempty"`
}

// SessionKind says how a raw BGP session-status field was interpreted
type SessionKind int

const (
	// SessionUnknown means the peer exists but reported no status field
	SessionUnknown SessionKind = iota
	// SessionStateName is a textual FSM state such as "Active" or "Idle"
	SessionStateName
	// SessionPrefixCount is a received-prefix count, reported only once the
	// session is established
	SessionPrefixCount
)

func (k SessionKind) String() string {
	switch k {
	case SessionStateName:
		return "state"
	case SessionPrefixCount:
		return "prefix-count"
	default:
		return "unknown"
	}
}

// SessionStatus is a parsed BGP state/prefix-received field
type SessionStatus struct {
	Raw      string      `json:"raw"`
	Kind     SessionKind `json:"kind"`
	Prefixes int         `json:"prefixes,omitempty"`
}

// ParseSessionStatus interprets a raw state/prefix-received value. A value
// made only of decimal digits is a prefix count; anything else non-empty is a
// state name.
func ParseSessionStatus(raw string) SessionStatus {
	if raw == "" {
		return SessionStatus{Kind: SessionUnknown}
	}
	if !isDecimal(raw) {
		return SessionStatus{Raw: raw, Kind: SessionStateName}
	}
	st := SessionStatus{Raw: raw, Kind: SessionPrefixCount}
	if n, err := strconv.Atoi(raw); err == nil {
		st.Prefixes = n
	}
	return st
}

// Established reports whether the status counts as a healthy session for a
// rule expecting the given state. Any prefix count is healthy regardless of
// what was expected.
func (s SessionStatus) Established(expected string) bool {
	if s.Kind == SessionPrefixCount {
		return true
	}
	return s.Kind == SessionStateName && s.Raw == expected
}

func (s SessionStatus) String() string {
	if s.Kind == SessionUnknown {
		return "unknown"
	}
	return s.Raw
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// OSPFView is the process → area → interface → neighbor hierarchy of an OSPF
// neighbor table. A nil map at any level means that level was absent.
type OSPFView struct {
	Processes map[string]OSPFProcess `json:"processes,omitempty"`
}

// OSPFProcess is one OSPF instance
type OSPFProcess struct {
	Areas map[string]OSPFArea `json:"areas,omitempty"`
}

// OSPFArea is one area within a process
type OSPFArea struct {
	Interfaces map[string]OSPFInterface `json:"interfaces,omitempty"`
}

// OSPFInterface holds the neighbors seen on one interface
type OSPFInterface struct {
	Neighbors map[string]OSPFNeighbor `json:"neighbors,omitempty"`
}

// OSPFNeighbor is a single adjacency, e.g. State "FULL/DR"
type OSPFNeighbor struct {
	State string `json:"state"`
}
