package guard

import "testing"

func TestCheckStructure(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		open     byte
		close    byte
		maxDepth int
		kind     Kind // "" means pass
	}{
		{"flat", `a = "b"`, '(', ')', 3, ""},
		{"balanced one level", `(a = "b")`, '(', ')', 3, ""},
		{"at depth ceiling", `(((x)))`, '(', ')', 3, ""},
		{"over depth ceiling", `((((x))))`, '(', ')', 3, KindNestingTooDeep},
		{"sequential not nested", `(a) (b) (c) (d)`, '(', ')', 3, ""},
		{"odd quotes", `a = "b`, '(', ')', 3, KindUnbalancedQuotes},
		{"more opens", `((a)`, '(', ')', 3, KindUnbalancedDelimiters},
		{"more closes", `(a))`, '(', ')', 3, KindUnbalancedDelimiters},
		{"braces at ceiling", `{{{{{{{{{{x}}}}}}}}}}`, '{', '}', 10, ""},
		{"braces over ceiling", `{{{{{{{{{{{x}}}}}}}}}}}`, '{', '}', 10, KindNestingTooDeep},
		{"empty input", ``, '(', ')', 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStructure(tt.input, tt.open, tt.close, tt.maxDepth)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("checkStructure(%q) = %v, want nil", tt.input, err)
				}
				return
			}
			if !IsKind(err, tt.kind) {
				t.Errorf("checkStructure(%q) kind = %s, want %s", tt.input, KindOf(err), tt.kind)
			}
		})
	}
}

// Quote balance is checked before delimiter balance so a query that is
// wrong in both ways reports the quote problem first.
func TestCheckStructureStageOrder(t *testing.T) {
	err := checkStructure(`("a`, '(', ')', 3)
	if !IsKind(err, KindUnbalancedQuotes) {
		t.Errorf("kind = %s, want %s", KindOf(err), KindUnbalancedQuotes)
	}
}
