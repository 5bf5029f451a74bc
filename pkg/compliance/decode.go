package compliance

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Field names used by structured command-output parsers
const (
	fieldNextHop     = "next_hop"
	fieldNextHopList = "next_hop_list"
	fieldStatePfxRcd = "state_pfxrcd"
	fieldAddrFamily  = "address_family"
	fieldAreas       = "areas"
	fieldInterfaces  = "interfaces"
	fieldNeighbors   = "neighbors"
	fieldState       = "state"
)

// DecodeObservedState builds typed views from the three loosely-typed
// parser results. Each argument is the sub-document for its view (the
// prefix map, the neighbor map and the OSPF instance map respectively).
func DecodeObservedState(routes, bgp, ospf any) *ObservedState {
	return &ObservedState{
		Routes: DecodeRoutingView(routes),
		BGP:    DecodeBGPView(bgp),
		OSPF:   DecodeOSPFView(ospf),
	}
}

// DecodeRoutingView decodes {prefix: {next_hop: {next_hop_list: {idx: {next_hop: ip}}}}}.
// Anything that is not a mapping yields an empty view.
func DecodeRoutingView(raw any) RoutingView {
	view := RoutingView{}
	for prefix, entry := range mapOf(raw) {
		view[prefix] = RouteEntry{NextHops: decodeNextHops(entry)}
	}
	return view
}

func decodeNextHops(entry any) []string {
	nh, ok := mapOf(entry)[fieldNextHop]
	if !ok {
		return nil
	}
	list := mapOf(nh)[fieldNextHopList]

	var hops []string
	for _, item := range sortedValues(list) {
		if hop, ok := stringOf(mapOf(item)[fieldNextHop]); ok && hop != "" {
			hops = append(hops, hop)
		}
	}
	return hops
}

// DecodeBGPView decodes {peer: {state_pfxrcd: value}}. A peer entry may also
// be a bare scalar status, or nest the field one level down under
// address_family (first family in key order wins). A raw value that is not a
// mapping yields an unavailable view.
func DecodeBGPView(raw any) BGPView {
	peers, ok := toMap(raw)
	if !ok {
		return BGPView{}
	}
	view := BGPView{Available: true, Sessions: make(map[string]SessionStatus, len(peers))}
	for peer, entry := range peers {
		view.Sessions[peer] = ParseSessionStatus(sessionField(entry))
	}
	return view
}

func sessionField(entry any) string {
	if s, ok := stringOf(entry); ok {
		return s
	}
	m := mapOf(entry)
	if s, ok := stringOf(m[fieldStatePfxRcd]); ok {
		return s
	}
	for _, af := range sortedValues(m[fieldAddrFamily]) {
		if s, ok := stringOf(mapOf(af)[fieldStatePfxRcd]); ok {
			return s
		}
	}
	return ""
}

// DecodeOSPFView decodes {process: {areas: {area: {interfaces: {intf: {neighbors: {id: {state}}}}}}}}.
// A missing level leaves that branch empty without affecting its siblings.
func DecodeOSPFView(raw any) OSPFView {
	procs := mapOf(raw)
	if len(procs) == 0 {
		return OSPFView{}
	}
	view := OSPFView{Processes: make(map[string]OSPFProcess, len(procs))}
	for pid, p := range procs {
		view.Processes[pid] = decodeOSPFProcess(p)
	}
	return view
}

func decodeOSPFProcess(raw any) OSPFProcess {
	var proc OSPFProcess
	for aid, a := range mapOf(mapOf(raw)[fieldAreas]) {
		if proc.Areas == nil {
			proc.Areas = make(map[string]OSPFArea)
		}
		proc.Areas[aid] = decodeOSPFArea(a)
	}
	return proc
}

func decodeOSPFArea(raw any) OSPFArea {
	var area OSPFArea
	for name, i := range mapOf(mapOf(raw)[fieldInterfaces]) {
		if area.Interfaces == nil {
			area.Interfaces = make(map[string]OSPFInterface)
		}
		area.Interfaces[name] = decodeOSPFInterface(i)
	}
	return area
}

func decodeOSPFInterface(raw any) OSPFInterface {
	var intf OSPFInterface
	for id, n := range mapOf(mapOf(raw)[fieldNeighbors]) {
		if intf.Neighbors == nil {
			intf.Neighbors = make(map[string]OSPFNeighbor)
		}
		state, _ := stringOf(mapOf(n)[fieldState])
		intf.Neighbors[id] = OSPFNeighbor{State: state}
	}
	return intf
}

// mapOf returns raw as a string-keyed map, or nil when raw is not a mapping.
// Keys of any type are stringified so integer-keyed parser output works.
func mapOf(raw any) map[string]any {
	m, _ := toMap(raw)
	return m
}

func toMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
	}
	return out, true
}

// sortedValues returns the elements of a mapping in key order, or of a
// sequence in index order.
func sortedValues(raw any) []any {
	if m, ok := toMap(raw); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]any, 0, len(keys))
		for _, k := range keys {
			vals = append(vals, m[k])
		}
		return vals
	}
	if raw == nil {
		return nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	vals := make([]any, rv.Len())
	for i := range vals {
		vals[i] = rv.Index(i).Interface()
	}
	return vals
}

// stringOf renders scalar leaves as strings. Whole floats (JSON numbers)
// render without a fractional part so a count of 5 reads "5".
func stringOf(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'f', 0, 64), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case fmt.Stringer:
		return v.String(), true
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return stringOf(rv.Float())
	}
	return "", false
}
