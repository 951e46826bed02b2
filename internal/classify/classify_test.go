package classify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    Verdict
	}{
		{"TypeError: Easing.out is not a function", CodeDefect},
		{"inputRange must be strictly monotonically increasing but got [0,30,20]", InfrastructureFault},
		{"ReferenceError: spring is not defined", CodeDefect},
		{"Cannot read properties of undefined (reading 'map')", CodeDefect},
		{"cannot read property 'x' of null", CodeDefect},
		{"undefined is not an object", CodeDefect},
		{"SyntaxError: Unexpected token '<'", CodeDefect},
		{"Expected a number", CodeDefect},
		{"Uncaught Error: boom", CodeDefect},
		{"1.5 is not a valid frame", CodeDefect},
		{"Render timeout", InfrastructureFault},
		{"Rate Exceeded", InfrastructureFault},
		{"Concurrency limit reached", InfrastructureFault},
		{"Lambda concurrency limit reached", InfrastructureFault},
		{"Failed to start render", InfrastructureFault},
		{"", InfrastructureFault},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := Classify(tt.message); got != tt.want {
				t.Fatalf("Classify(%q) = %s, want %s", tt.message, got, tt.want)
			}
		})
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	if !IsCodeDefect("X IS NOT A FUNCTION") {
		t.Fatal("expected upper-case marker to match")
	}
}

func TestVerdictString(t *testing.T) {
	if CodeDefect.String() != "code_defect" || InfrastructureFault.String() != "infrastructure" {
		t.Fatalf("unexpected verdict strings %q %q", CodeDefect, InfrastructureFault)
	}
}
