package compliance

// EvaluateBGP checks each BGP neighbor rule, in order, against the BGP view.
// An unavailable view produces no verdicts at all, unlike the route and OSPF
// evaluators which fail every rule against an empty view.
func EvaluateBGP(view BGPView, rules []BGPNeighborRule, device string) []Verdict {
	if !view.Available {
		return nil
	}
	verdicts := make([]Verdict, 0, len(rules))
	for _, rule := range rules {
		peer := rule.PeerAddress
		status, ok := view.Sessions[peer]
		switch {
		case !ok:
			verdicts = append(verdicts, fail(device, CategoryBGP, peer, "BGP Neighbor %s not found", peer))
		case status.Established(rule.State):
			verdicts = append(verdicts, pass(device, CategoryBGP, peer, "BGP Neighbor %s Established", peer))
		default:
			verdicts = append(verdicts, fail(device, CategoryBGP, peer, "BGP Neighbor %s is %s", peer, status))
		}
	}
	return verdicts
}
