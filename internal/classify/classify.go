// Package classify decides whether a render failure was caused by the
// generated shot code or by the render infrastructure.
//
// Code defects are eligible for automatic repair; infrastructure faults are
// surfaced to the user unchanged.
package classify

import "strings"

// Verdict is the outcome of classifying a failure message.
type Verdict int

const (
	// InfrastructureFault covers timeouts, quota, network and backend failures.
	InfrastructureFault Verdict = iota
	// CodeDefect marks a failure caused by the generated animation code.
	CodeDefect
)

func (v Verdict) String() string {
	switch v {
	case CodeDefect:
		return "code_defect"
	default:
		return "infrastructure"
	}
}

// codeDefectMarkers are matched case-insensitively as substrings.
var codeDefectMarkers = []string{
	"is not a function",
	"is not defined",
	"cannot read property",
	"cannot read properties",
	"undefined is not",
	"unexpected token",
	"syntaxerror",
	"referenceerror",
	"typeerror",
	"not a valid",
	"expected",
	"uncaught",
}

// Classify returns CodeDefect when the message contains any known runtime or
// syntax error marker and InfrastructureFault otherwise.
func Classify(message string) Verdict {
	lower := strings.ToLower(message)
	for _, marker := range codeDefectMarkers {
		if strings.Contains(lower, marker) {
			return CodeDefect
		}
	}
	return InfrastructureFault
}

// IsCodeDefect is shorthand for Classify(message) == CodeDefect.
func IsCodeDefect(message string) bool {
	return Classify(message) == CodeDefect
}
