// Package cli provides shared formatting helpers for the netaudit CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/newtron-network/netaudit/pkg/compliance"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

// Green wraps s in ANSI green. Returns s unchanged when NO_COLOR is set.
func Green(s string) string {
	return paint("32", s)
}

// Yellow wraps s in ANSI yellow. Returns s unchanged when NO_COLOR is set.
func Yellow(s string) string {
	return paint("33", s)
}

// Red wraps s in ANSI red. Returns s unchanged when NO_COLOR is set.
func Red(s string) string {
	return paint("31", s)
}

// Bold wraps s in ANSI bold. Returns s unchanged when NO_COLOR is set.
func Bold(s string) string {
	return paint("1", s)
}

func paint(code, s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Outcome renders PASS in green and FAIL in red
func Outcome(o compliance.Outcome) string {
	if o == compliance.OutcomePass {
		return Green(string(o))
	}
	return Red(string(o))
}

// VerdictLine renders a report line with a colored outcome:
//
//	leaf1: [PASS] Route 10.0.0.0/24 correct.
func VerdictLine(v compliance.Verdict) string {
	return fmt.Sprintf("%s: [%s] %s", v.Device, Outcome(v.Outcome), v.Message)
}

// Compliance renders a device's overall status for summary tables
func Compliance(s compliance.Summary) string {
	switch {
	case s.Total == 0:
		return Yellow("NO RULES")
	case s.Compliant():
		return Green("COMPLIANT")
	default:
		return Red("NON-COMPLIANT")
	}
}
