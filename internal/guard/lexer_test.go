package guard

import "testing"

func TestLexJQL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []tokenType
	}{
		{
			"simple comparison",
			`project = "TEST"`,
			[]tokenType{tokIdentifier, tokOperator, tokString},
		},
		{
			"keyword promotion",
			`status in ("Open", "Closed") and assignee is empty`,
			[]tokenType{
				tokIdentifier, tokKeyword, tokOpen, tokString, tokComma,
				tokString, tokClose, tokKeyword, tokIdentifier, tokKeyword,
				tokKeyword,
			},
		},
		{
			"custom field",
			`cf[10001] = 5`,
			[]tokenType{tokCustomField, tokOperator, tokNumber},
		},
		{
			"function call",
			`assignee in membersOf("jira-users")`,
			[]tokenType{tokIdentifier, tokKeyword, tokIdentifier, tokOpen, tokString, tokClose},
		},
		{
			"two char operators",
			`a != 1 ~ !~ >= <=`,
			[]tokenType{tokIdentifier, tokOperator, tokNumber, tokOperator, tokOperator, tokOperator, tokOperator},
		},
		{
			"negative and decimal numbers",
			`votes > -3 and votes < 1.5`,
			[]tokenType{tokIdentifier, tokOperator, tokNumber, tokKeyword, tokIdentifier, tokOperator, tokNumber},
		},
		{
			"single quoted string",
			`summary ~ 'login page'`,
			[]tokenType{tokIdentifier, tokOperator, tokString},
		},
		{
			"escaped quote inside string",
			`summary ~ "say \"hi\""`,
			[]tokenType{tokIdentifier, tokOperator, tokString},
		},
		{
			"bare cf without brackets",
			`cf = "x"`,
			[]tokenType{tokIdentifier, tokOperator, tokString},
		},
		{
			"unclassifiable bytes skipped",
			`project = #TEST`,
			[]tokenType{tokIdentifier, tokOperator, tokIdentifier},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := lexJQL(tt.input)
			if len(tokens) != len(tt.want) {
				t.Fatalf("lexJQL(%q) produced %d tokens, want %d: %+v", tt.input, len(tokens), len(tt.want), tokens)
			}
			for i, tok := range tokens {
				if tok.typ != tt.want[i] {
					t.Errorf("token %d of %q: type %d, want %d (value %q)", i, tt.input, tok.typ, tt.want[i], tok.value)
				}
			}
		})
	}
}

func TestLexJQLStringContents(t *testing.T) {
	tokens := lexJQL(`summary ~ "drop tables"`)
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	if tokens[2].typ != tokString || tokens[2].value != "drop tables" {
		t.Errorf("string token = %+v, want stripped literal", tokens[2])
	}
}

func TestLexJQLKeywordsUppercased(t *testing.T) {
	tokens := lexJQL(`a and b OR c`)
	if tokens[1].value != "AND" || tokens[3].value != "OR" {
		t.Errorf("keywords not normalized: %q, %q", tokens[1].value, tokens[3].value)
	}
}
