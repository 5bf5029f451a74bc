package compliance

// EvaluateRoutes checks each static route rule, in order, against the
// routing view. A prefix passes when any of its candidate next hops equals
// the expected one.
func EvaluateRoutes(view RoutingView, rules []StaticRouteRule, device string) []Verdict {
	verdicts := make([]Verdict, 0, len(rules))
	for _, rule := range rules {
		entry, ok := view[rule.Prefix]
		switch {
		case !ok:
			verdicts = append(verdicts, fail(device, CategoryRoute, rule.Prefix, "Route %s missing.", rule.Prefix))
		case entry.HasNextHop(rule.NextHop):
			verdicts = append(verdicts, pass(device, CategoryRoute, rule.Prefix, "Route %s correct.", rule.Prefix))
		default:
			verdicts = append(verdicts, fail(device, CategoryRoute, rule.Prefix, "Route %s next-hop mismatch.", rule.Prefix))
		}
	}
	return verdicts
}
