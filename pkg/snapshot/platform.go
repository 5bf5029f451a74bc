package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/newtron-network/netaudit/pkg/util"
)

// GenieQueries match the structured output of the Cisco IOS/IOS-XE parsers:
// "show ip route", "show ip bgp all summary" and "show ip ospf neighbor".
// An empty but well-formed document resolves to an empty view.
var GenieQueries = Queries{
	Routes: `.vrf.default.address_family.ipv4.routes // {}`,
	BGP:    `.vrf.default.neighbor // {}`,
	OSPF:   `.vrf.default.address_family.ipv4.instance // {}`,
}

// EOSQueries reshape Arista EOS "| json" output into the same views.
// Established peers report their received-prefix count.
var EOSQueries = Queries{
	Routes: `.vrfs.default.routes // {}
		| map_values({next_hop: {next_hop_list: [.vias[]? | select(.nexthopAddr) | {next_hop: .nexthopAddr}]}})`,
	BGP: `.vrfs.default.peers // {}
		| map_values({state_pfxrcd: (if .peerState == "Established" then (.prefixReceived // 0) else .peerState end)})`,
	OSPF: `.vrfs.default.instList // {}
		| map_values({areas: (reduce (.ospfNeighborEntries // [])[] as $n ({};
			.[$n.details.areaId // "0.0.0.0"].interfaces[$n.interfaceName // "unknown"].neighbors[$n.routerId] =
				{state: (($n.adjacencyState // "" | ascii_upcase) + "/" + ($n.drState // "-"))}))})`,
}

var platformQueries = map[string]Queries{
	"ios":   GenieQueries,
	"iosxe": GenieQueries,
	"genie": GenieQueries,
	"eos":   EOSQueries,
}

// PlatformQueries returns the view queries for a platform name. An empty
// platform selects the genie layout.
func PlatformQueries(platform string) (Queries, error) {
	if platform == "" {
		return GenieQueries, nil
	}
	q, ok := platformQueries[strings.ToLower(platform)]
	if !ok {
		return Queries{}, fmt.Errorf("platform '%s' (known: %s): %w",
			platform, strings.Join(Platforms(), ", "), util.ErrInvalidConfig)
	}
	return q, nil
}

// Platforms lists the platform names with built-in queries
func Platforms() []string {
	names := make([]string, 0, len(platformQueries))
	for name := range platformQueries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
