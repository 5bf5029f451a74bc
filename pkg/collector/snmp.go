package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/inventory"
	"github.com/newtron-network/netaudit/pkg/util"
)

// Walked tables. Index layouts:
//
//	ipCidrRouteNextHop       dest(4).mask(4).tos.nexthop(4)
//	bgpPeerState             peer(4)
//	cbgpPeerAcceptedPrefixes peer(4).afi.safi
//	ospfNbrRtrId/State       nbrAddr(4).addressLessIndex
const (
	oidCidrRouteNextHop   = "1.3.6.1.2.1.4.24.4.1.4"
	oidBGPPeerState       = "1.3.6.1.2.1.15.3.1.2"
	oidBGPAcceptedPrefix  = "1.3.6.1.4.1.9.9.187.1.2.4.1.1"
	oidOSPFNbrRtrID       = "1.3.6.1.2.1.14.10.1.3"
	oidOSPFNbrState       = "1.3.6.1.2.1.14.10.1.6"
	snmpOSPFProcess       = "snmp"
	snmpOSPFArea          = "-"
	defaultSNMPCommunity  = "public"
	defaultSNMPPort       = 161
	defaultSNMPRetries    = 1
	ipv4UnicastAfiSafiOID = "1.1"
)

var bgpPeerStates = map[int64]string{
	1: "Idle",
	2: "Connect",
	3: "Active",
	4: "OpenSent",
	5: "OpenConfirm",
	6: "Established",
}

var ospfNbrStates = map[int64]string{
	1: "DOWN",
	2: "ATTEMPT",
	3: "INIT",
	4: "2WAY",
	5: "EXSTART",
	6: "EXCHANGE",
	7: "LOADING",
	8: "FULL",
}

// SNMPSource walks the standard IP-FORWARD, BGP4 and OSPF MIBs. Established
// BGP peers report accepted prefixes from CISCO-BGP4-MIB when the agent
// supports it. OSPF neighbors have no process or area in the MIB, so they
// are grouped under process "snmp", area "-", keyed by neighbor address.
type SNMPSource struct {
	Timeout time.Duration
}

// Name returns the source name
func (s *SNMPSource) Name() string {
	return KindSNMP
}

// Collect walks the host's agent. Data keys: community, snmp_version (1 or
// 2c), snmp_port. An agent that answers none of the walks is unreachable.
func (s *SNMPSource) Collect(ctx context.Context, h *inventory.Host) (*compliance.ObservedState, error) {
	client, err := s.newClient(ctx, h)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(); err != nil {
		return nil, util.NewCollectError(h.Name, KindSNMP, "", fmt.Errorf("%w: %v", util.ErrUnreachable, err))
	}
	defer client.Conn.Close()

	answered := false
	walk := func(oid string) ([]gosnmp.SnmpPDU, error) {
		var pdus []gosnmp.SnmpPDU
		var err error
		if client.Version == gosnmp.Version1 {
			pdus, err = client.WalkAll(oid)
		} else {
			pdus, err = client.BulkWalkAll(oid)
		}
		if err == nil {
			answered = true
		}
		return pdus, err
	}
	state, err := ReadSNMPState(walk, h.Name)
	if !answered {
		return nil, util.NewCollectError(h.Name, KindSNMP, "", fmt.Errorf("%w: %v", util.ErrUnreachable, err))
	}
	return state, err
}

func (s *SNMPSource) newClient(ctx context.Context, h *inventory.Host) (*gosnmp.GoSNMP, error) {
	port := defaultSNMPPort
	if v := h.Get("snmp_port", ""); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("host %s: snmp_port '%s': %w", h.Name, v, util.ErrInvalidConfig)
		}
		port = p
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &gosnmp.GoSNMP{
		Target:    h.Address(),
		Port:      uint16(port),
		Community: h.Get("community", defaultSNMPCommunity),
		Timeout:   timeout,
		Retries:   defaultSNMPRetries,
		MaxOids:   gosnmp.MaxOids,
		Context:   ctx,
	}

	switch v := h.Get("snmp_version", "2c"); v {
	case "1":
		client.Version = gosnmp.Version1
	case "2", "2c":
		client.Version = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("host %s: snmp_version '%s': %w", h.Name, v, util.ErrInvalidConfig)
	}
	return client, nil
}

// WalkFunc returns every PDU under a root OID
type WalkFunc func(rootOid string) ([]gosnmp.SnmpPDU, error)

// ReadSNMPState builds observed state from the walked tables. A failed walk
// leaves its view absent; the accepted-prefix walk is optional.
func ReadSNMPState(walk WalkFunc, device string) (*compliance.ObservedState, error) {
	state := &compliance.ObservedState{}
	var errs []error

	if pdus, err := walk(oidCidrRouteNextHop); err != nil {
		errs = append(errs, util.NewCollectError(device, KindSNMP, "routes", err))
	} else {
		state.Routes = parseCidrRoutes(pdus)
	}

	if peers, err := walk(oidBGPPeerState); err != nil {
		errs = append(errs, util.NewCollectError(device, KindSNMP, "bgp", err))
	} else {
		accepted, err := walk(oidBGPAcceptedPrefix)
		if err != nil {
			util.WithDevice(device).Debugf("no accepted-prefix table: %v", err)
			accepted = nil
		}
		state.BGP = parseBGPPeers(peers, accepted)
	}

	ids, err := walk(oidOSPFNbrRtrID)
	if err == nil {
		var states []gosnmp.SnmpPDU
		states, err = walk(oidOSPFNbrState)
		if err == nil {
			state.OSPF = parseOSPFNeighbors(ids, states)
		}
	}
	if err != nil {
		errs = append(errs, util.NewCollectError(device, KindSNMP, "ospf", err))
	}

	return state, errors.Join(errs...)
}

func parseCidrRoutes(pdus []gosnmp.SnmpPDU) compliance.RoutingView {
	view := compliance.RoutingView{}
	for _, pdu := range pdus {
		idx := oidIndex(pdu.Name, oidCidrRouteNextHop)
		if len(idx) != 13 {
			continue
		}
		dest := net.IP(idx[0:4]).To4()
		ones := util.PrefixLen(net.IP(idx[4:8]))
		if ones < 0 {
			continue
		}
		prefix := fmt.Sprintf("%s/%d", dest, ones)

		hop := pduString(pdu)
		if hop == "" {
			hop = net.IP(idx[9:13]).String()
		}
		entry := view[prefix]
		if !entry.HasNextHop(hop) {
			entry.NextHops = append(entry.NextHops, hop)
		}
		view[prefix] = entry
	}
	return view
}

func parseBGPPeers(states, accepted []gosnmp.SnmpPDU) compliance.BGPView {
	prefixes := make(map[string]int64)
	for _, pdu := range accepted {
		idx := oidIndex(pdu.Name, oidBGPAcceptedPrefix)
		if len(idx) != 6 || fmt.Sprintf("%d.%d", idx[4], idx[5]) != ipv4UnicastAfiSafiOID {
			continue
		}
		prefixes[net.IP(idx[0:4]).String()] = gosnmp.ToBigInt(pdu.Value).Int64()
	}

	view := compliance.BGPView{Available: true, Sessions: make(map[string]compliance.SessionStatus)}
	for _, pdu := range states {
		idx := oidIndex(pdu.Name, oidBGPPeerState)
		if len(idx) != 4 {
			continue
		}
		peer := net.IP(idx).String()
		state := bgpPeerStates[gosnmp.ToBigInt(pdu.Value).Int64()]
		raw := state
		if n, ok := prefixes[peer]; ok && state == bgpEstablished {
			raw = strconv.FormatInt(n, 10)
		}
		view.Sessions[peer] = compliance.ParseSessionStatus(raw)
	}
	return view
}

func parseOSPFNeighbors(ids, states []gosnmp.SnmpPDU) compliance.OSPFView {
	stateByIndex := make(map[string]string)
	for _, pdu := range states {
		key := strings.TrimPrefix(strings.TrimPrefix(pdu.Name, "."), oidOSPFNbrState+".")
		stateByIndex[key] = ospfNbrStates[gosnmp.ToBigInt(pdu.Value).Int64()]
	}

	interfaces := make(map[string]compliance.OSPFInterface)
	for _, pdu := range ids {
		idx := oidIndex(pdu.Name, oidOSPFNbrRtrID)
		if len(idx) != 5 {
			continue
		}
		key := strings.TrimPrefix(strings.TrimPrefix(pdu.Name, "."), oidOSPFNbrRtrID+".")
		addr := net.IP(idx[0:4]).String()
		id := pduString(pdu)
		if id == "" {
			continue
		}
		intf := interfaces[addr]
		if intf.Neighbors == nil {
			intf.Neighbors = make(map[string]compliance.OSPFNeighbor)
		}
		intf.Neighbors[id] = compliance.OSPFNeighbor{State: stateByIndex[key]}
		interfaces[addr] = intf
	}

	if len(interfaces) == 0 {
		return compliance.OSPFView{}
	}
	return compliance.OSPFView{Processes: map[string]compliance.OSPFProcess{
		snmpOSPFProcess: {Areas: map[string]compliance.OSPFArea{
			snmpOSPFArea: {Interfaces: interfaces},
		}},
	}}
}

// oidIndex returns the index suffix of name under root as bytes, or nil if
// name is not under root or a component does not fit in a byte.
func oidIndex(name, root string) []byte {
	rest, ok := strings.CutPrefix(strings.TrimPrefix(name, "."), root+".")
	if !ok {
		return nil
	}
	parts := strings.Split(rest, ".")
	idx := make([]byte, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return nil
		}
		idx = append(idx, byte(n))
	}
	return idx
}

func pduString(pdu gosnmp.SnmpPDU) string {
	switch v := pdu.Value.(type) {
	case string:
		return v
	case []byte:
		if len(v) == 4 {
			return net.IP(v).String()
		}
		return string(v)
	default:
		return ""
	}
}
