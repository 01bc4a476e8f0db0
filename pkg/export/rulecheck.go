package export

import (
	"fmt"
	"regexp"
	"strconv"
)

var foundRe = regexp.MustCompile(`Found (\d+) (violations|unconnected items|schematic parity issues)`)

// RuleCheck is the summary a DRC or ERC run prints.
type RuleCheck struct {
	Violations   int
	Unconnected  int
	ParityIssues int
	// Markers counts the summary phrases seen. Zero means the output had
	// no summary at all, which is never treated as a pass.
	Markers int
}

// ScanRuleCheck reads the "Found <N> ..." phrases from tool output.
func ScanRuleCheck(text string) RuleCheck {
	var rc RuleCheck
	for _, m := range foundRe.FindAllStringSubmatch(text, -1) {
		n, _ := strconv.Atoi(m[1])
		rc.Markers++
		switch m[2] {
		case "violations":
			rc.Violations += n
		case "unconnected items":
			rc.Unconnected += n
		case "schematic parity issues":
			rc.ParityIssues += n
		}
	}
	return rc
}

// Issues is the total number of reported problems.
func (rc RuleCheck) Issues() int {
	return rc.Violations + rc.Unconnected + rc.ParityIssues
}

// Passed reports whether a summary was found and it reports no problems.
func (rc RuleCheck) Passed() bool {
	return rc.Markers > 0 && rc.Issues() == 0
}

func (rc RuleCheck) String() string {
	if rc.Markers == 0 {
		return "no rule check summary in tool output"
	}
	return fmt.Sprintf("%d violations, %d unconnected items, %d schematic parity issues",
		rc.Violations, rc.Unconnected, rc.ParityIssues)
}
