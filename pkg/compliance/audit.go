package compliance

// AuditDevice evaluates every rule in rules against one device's state and
// returns the verdicts in evaluation order: routes, then BGP, then OSPF,
// each in rule-list order. A nil state is treated as a device that returned
// nothing.
func AuditDevice(device string, state *ObservedState, rules *RuleSet) []Verdict {
	if state == nil {
		state = &ObservedState{}
	}
	if rules == nil {
		rules = &RuleSet{}
	}

	verdicts := make([]Verdict, 0, rules.Len())
	verdicts = append(verdicts, EvaluateRoutes(state.Routes, rules.StaticRoutes, device)...)
	verdicts = append(verdicts, EvaluateBGP(state.BGP, rules.BGP.Neighbors, device)...)
	verdicts = append(verdicts, EvaluateOSPF(state.OSPF, rules.OSPF.Neighbors, device)...)
	return verdicts
}
