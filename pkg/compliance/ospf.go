package compliance

import (
	"sort"
	"strings"
)

// FlattenOSPF collapses the OSPF hierarchy into neighbor id → state.
// Processes, areas and interfaces are walked in ascending key order and the
// first occurrence of a neighbor id wins, so a neighbor seen on several
// interfaces reports the state under the lowest (process, area, interface).
func FlattenOSPF(view OSPFView) map[string]string {
	flat := make(map[string]string)
	for _, pid := range sortedKeys(view.Processes) {
		proc := view.Processes[pid]
		for _, aid := range sortedKeys(proc.Areas) {
			area := proc.Areas[aid]
			for _, name := range sortedKeys(area.Interfaces) {
				for id, n := range area.Interfaces[name].Neighbors {
					if _, seen := flat[id]; !seen {
						flat[id] = n.State
					}
				}
			}
		}
	}
	return flat
}

// EvaluateOSPF checks each OSPF neighbor rule, in order. The expected state
// is matched as a case-insensitive substring of the actual state.
func EvaluateOSPF(view OSPFView, rules []OSPFNeighborRule, device string) []Verdict {
	neighbors := FlattenOSPF(view)
	verdicts := make([]Verdict, 0, len(rules))
	for _, rule := range rules {
		id := rule.NeighborID
		actual, ok := neighbors[id]
		switch {
		case !ok:
			verdicts = append(verdicts, fail(device, CategoryOSPF, id, "OSPF Neighbor %s missing", id))
		case strings.Contains(strings.ToLower(actual), strings.ToLower(rule.State)):
			verdicts = append(verdicts, pass(device, CategoryOSPF, id, "OSPF Neighbor %s %s", id, rule.State))
		default:
			verdicts = append(verdicts, fail(device, CategoryOSPF, id, "OSPF Neighbor %s state mismatch", id))
		}
	}
	return verdicts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
