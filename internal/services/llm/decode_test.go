package llm

import "testing"

func TestDecodeLLMJSONHandlesFencesAndProse(t *testing.T) {
	cases := map[string]string{
		"plain":  `{"title":"demo"}`,
		"fenced": "```json\n{\"title\":\"demo\"}\n```",
		"prose":  "Here is the storyboard:\n{\"title\":\"demo\"}\nEnjoy!",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			var out struct {
				Title string `json:"title"`
			}
			if err := DecodeLLMJSON(input, &out); err != nil {
				t.Fatalf("DecodeLLMJSON returned error: %v", err)
			}
			if out.Title != "demo" {
				t.Fatalf("unexpected title %q", out.Title)
			}
		})
	}
}

func TestDecodeLLMJSONRejectsEmpty(t *testing.T) {
	var out map[string]any
	if err := DecodeLLMJSON("   ", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```tsx\nexport const A = () => null;\n```", "export const A = () => null;"},
		{"```\nconst a = 1;\n```", "const a = 1;"},
		{"const a = 1;", "const a = 1;"},
		{"```const a = 1;```", "const a = 1;"},
	}
	for _, tt := range tests {
		if got := StripCodeFence(tt.in); got != tt.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
