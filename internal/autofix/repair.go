package autofix

import (
	"fmt"
	"regexp"
	"strings"
)

var inputRangePattern = regexp.MustCompile(`but got \[([\d,\s]+)\]`)

// BuildRepairDescription appends the render failure and corrective guidance
// to a shot description. At most one guidance block is added; patterns are
// checked in order of specificity.
func BuildRepairDescription(description, errorMessage string) string {
	var b strings.Builder
	b.WriteString(description)
	fmt.Fprintf(&b, "\n\nCRITICAL ERROR - The previous code generated this error during rendering:\n\"%s\"", errorMessage)

	switch {
	case strings.Contains(errorMessage, "inputRange must be strictly monotonically increasing"):
		offending := "unknown"
		if m := inputRangePattern.FindStringSubmatch(errorMessage); len(m) == 2 {
			offending = m[1]
		}
		fmt.Fprintf(&b, "\n\nSPECIFIC FIX REQUIRED:\nAn inputRange array contains duplicate values: [%s]\n", offending)
		b.WriteString("Every inputRange value must be unique and strictly increasing.\n\n")
		b.WriteString("Example fixes:\n")
		b.WriteString("- [130, 150, 150] becomes [130, 150, 170]\n")
		b.WriteString("- [60, 60, 90] becomes [60, 65, 90]\n")
		b.WriteString("- [0, 30, 30, 60] becomes [0, 30, 35, 60]\n\n")
		b.WriteString("FIND ALL interpolate() calls and make sure no inputRange repeats a value.\n")
		b.WriteString("Keep neighbouring values at least 1 frame apart (5 or more frames recommended).")
	case strings.Contains(errorMessage, "easing is not a function"):
		b.WriteString("\n\nSPECIFIC FIX REQUIRED:\nThe code referenced an easing function that does not exist. Only use:\n")
		b.WriteString("- Easing.bezier(x1, y1, x2, y2) for custom curves\n")
		b.WriteString("- Easing.ease, Easing.linear, Easing.quad or Easing.cubic as presets\n")
		b.WriteString("Never call Easing.out() or Easing.inOut().")
	case strings.Contains(errorMessage, "spring"), strings.Contains(errorMessage, "damping"):
		b.WriteString("\n\nSPECIFIC FIX REQUIRED:\nA spring() animation used invalid physics. Keep the config within:\n")
		b.WriteString("- damping: 8-15 (never 50 or more)\n")
		b.WriteString("- stiffness: 80-120\n")
		b.WriteString("- mass: 0.3-1.2")
	}

	b.WriteString("\n\nREVIEW YOUR CODE CAREFULLY and fix the error. Return the corrected code.")
	return b.String()
}
