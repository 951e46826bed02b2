package autofix

import (
	"strings"
	"testing"
)

func TestBuildRepairDescriptionInputRange(t *testing.T) {
	msg := "Error: inputRange must be strictly monotonically increasing but got [130,150,150]"
	out := BuildRepairDescription("Logo reveal", msg)

	if !strings.HasPrefix(out, "Logo reveal\n\nCRITICAL ERROR - The previous code generated this error during rendering:\n\""+msg+"\"") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "duplicate values: [130,150,150]") {
		t.Fatalf("expected offending array to be quoted:\n%s", out)
	}
	if strings.Contains(out, "spring()") {
		t.Fatalf("guidance blocks must be exclusive:\n%s", out)
	}
	if !strings.HasSuffix(out, "REVIEW YOUR CODE CAREFULLY and fix the error. Return the corrected code.") {
		t.Fatalf("missing closing instruction:\n%s", out)
	}
}

func TestBuildRepairDescriptionUnknownArray(t *testing.T) {
	out := BuildRepairDescription("x", "inputRange must be strictly monotonically increasing")
	if !strings.Contains(out, "[unknown]") {
		t.Fatalf("expected unknown placeholder:\n%s", out)
	}
}

func TestBuildRepairDescriptionPatterns(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    string
		absent  string
	}{
		{"easing", "TypeError: easing is not a function", "Easing.bezier(x1, y1, x2, y2)", "stiffness"},
		{"spring", "spring config invalid", "stiffness: 80-120", "Easing.bezier"},
		{"damping", "damping must be positive", "damping: 8-15", "inputRange"},
		{"none", "ReferenceError: foo is not defined", "REVIEW YOUR CODE CAREFULLY", "SPECIFIC FIX REQUIRED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := BuildRepairDescription("desc", tc.message)
			if !strings.Contains(out, tc.want) {
				t.Fatalf("expected %q in:\n%s", tc.want, out)
			}
			if strings.Contains(out, tc.absent) {
				t.Fatalf("did not expect %q in:\n%s", tc.absent, out)
			}
		})
	}
}

func TestRetryLedger(t *testing.T) {
	l := NewRetryLedger()
	if l.Count("a") != 0 {
		t.Fatal("expected zero for unknown id")
	}
	l.Increment("a")
	if got := l.Increment("a"); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	l.Increment("b")
	snap := l.Snapshot()
	l.Clear("a")
	if l.Count("a") != 0 || l.Count("b") != 1 {
		t.Fatalf("unexpected counts after clear: a=%d b=%d", l.Count("a"), l.Count("b"))
	}
	if snap["a"] != 2 {
		t.Fatalf("snapshot should be independent, got %v", snap)
	}
}
