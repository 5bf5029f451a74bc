// Package compliance evaluates a device's observed routing, BGP and OSPF
// state against a declarative rule set.
//
// Evaluation is a pure function of its inputs: nothing is fetched, cached or
// logged here, and every call is safe to run concurrently with others that
// share the same RuleSet. Malformed state never produces an error, only FAIL
// verdicts (or, for an unavailable BGP view, no verdicts at all).
package compliance

import "fmt"

// Category identifies which evaluator produced a verdict
type Category string

const (
	CategoryRoute Category = "route"
	CategoryBGP   Category = "bgp"
	CategoryOSPF  Category = "ospf"
)

// Outcome is the pass/fail result of checking one rule
type Outcome string

const (
	OutcomePass Outcome = "PASS"
	OutcomeFail Outcome = "FAIL"
)

// Verdict is the result of evaluating one rule against one device
type Verdict struct {
	Device   string   `json:"device"`
	Category Category `json:"category"`
	Subject  string   `json:"subject"`
	Outcome  Outcome  `json:"outcome"`
	Message  string   `json:"message"`
}

// Passed reports whether the verdict is a PASS
func (v Verdict) Passed() bool {
	return v.Outcome == OutcomePass
}

// String renders the verdict as a single report line:
//
//	leaf1: [FAIL] Route 10.0.0.0/8 missing.
func (v Verdict) String() string {
	return fmt.Sprintf("%s: [%s] %s", v.Device, v.Outcome, v.Message)
}

func pass(device string, cat Category, subject, format string, args ...interface{}) Verdict {
	return Verdict{
		Device:   device,
		Category: cat,
		Subject:  subject,
		Outcome:  OutcomePass,
		Message:  fmt.Sprintf(format, args...),
	}
}

func fail(device string, cat Category, subject, format string, args ...interface{}) Verdict {
	return Verdict{
		Device:   device,
		Category: cat,
		Subject:  subject,
		Outcome:  OutcomeFail,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Summary counts verdicts by outcome
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Summarize tallies a verdict list
func Summarize(verdicts []Verdict) Summary {
	s := Summary{Total: len(verdicts)}
	for _, v := range verdicts {
		if v.Passed() {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// Compliant returns true when no verdict failed
func (s Summary) Compliant() bool {
	return s.Failed == 0
}
