package guard

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// ValidateQuery pipeline tests
// ---------------------------------------------------------------------------

func TestValidateQueryAccepts(t *testing.T) {
	v := NewGraphQLValidator()

	tests := []struct {
		name string
		doc  string
	}{
		{
			"named query",
			`query GetTests { getTests(limit: 10) { total results { issueId } } }`,
		},
		{
			"anonymous query",
			`{ getTests(limit: 5) { total } }`,
		},
		{
			"jql argument",
			`query { getTests(jql: "project = XSP", limit: 20) { results { issueId jira(fields: ["key"]) } } }`,
		},
		{
			"typename meta field",
			`{ getTests { __typename total } }`,
		},
		{
			"mutation",
			`mutation CreateTest { createTest(testType: { name: "Manual" }) { test { issueId } warnings } }`,
		},
		{
			"variable references",
			`query GetRuns { getTestRuns(limit: $limit) { results { id status { name } } } }`,
		},
		{
			"enum and type references",
			`query { getTestRuns(limit: 10) { results { status { name color } finishedOn } } }`,
		},
		{
			"fragment",
			`query { getTests(limit: 1) { results { issueId } } } fragment TestParts on Test { issueId }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateQuery(tt.doc, nil)
			if err != nil {
				t.Fatalf("ValidateQuery(%q) returned error: %v", tt.doc, err)
			}
			if got != tt.doc {
				t.Errorf("ValidateQuery(%q) = %q, want input unchanged", tt.doc, got)
			}
		})
	}
}

func TestValidateQueryRejects(t *testing.T) {
	v := NewGraphQLValidator()

	tests := []struct {
		name string
		doc  string
		kind Kind
	}{
		{"empty", "", KindEmptyInput},
		{"whitespace only", "  \n ", KindEmptyInput},
		{"too long", "query { getTests { " + strings.Repeat("total ", 900) + "} }", KindTooLong},
		{"schema introspection", `{ __schema { types { name } } }`, KindDangerousPattern},
		{"type introspection", `{ __type(name: "Test") { name } }`, KindDangerousPattern},
		{"script tag", `{ getTests(jql: "<script>") { total } }`, KindDangerousPattern},
		{"javascript url", `{ getTests(jql: "javascript:alert(1)") { total } }`, KindDangerousPattern},
		{"eval call", `{ getTests(jql: "eval(x)") { total } }`, KindDangerousPattern},
		{"template interpolation", `{ getTests(jql: "${payload}") { total } }`, KindDangerousPattern},
		{"html comment", `{ getTests { total } } <!-- x -->`, KindDangerousPattern},
		{"subscription", `subscription OnRun { getTestRuns { total } }`, KindUnsupportedOperation},
		{"bad header", `describe { getTests { total } }`, KindUnsupportedOperation},
		{"unbalanced braces", `query { getTests { total }`, KindUnbalancedDelimiters},
		{"unknown lowercase field", `{ getTests { internalSecrets } }`, KindUnknownField},
		{"unknown operation name", `{ stealAllData { total } }`, KindUnknownField},
		{"suspicious uppercase token", `query { getTests(limit: 1) { results { issueId } } } fragment EvilBit on Test { issueId }`, KindUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateQuery(tt.doc, nil)
			if err == nil {
				t.Fatalf("ValidateQuery(%q) succeeded, want %s rejection", tt.doc, tt.kind)
			}
			if !IsKind(err, tt.kind) {
				t.Errorf("ValidateQuery(%q) kind = %s, want %s (err: %v)", tt.doc, KindOf(err), tt.kind, err)
			}
		})
	}
}

// Brace depth 10 is the ceiling; 11 must be rejected.
func TestValidateQueryDepthBoundary(t *testing.T) {
	v := NewGraphQLValidator()

	build := func(depth int) string {
		return "query { getTests " +
			strings.Repeat("{ results ", depth-1) +
			strings.Repeat("}", depth)
	}

	if _, err := v.ValidateQuery(build(10), nil); err != nil {
		t.Errorf("depth 10 rejected: %v", err)
	}
	_, err := v.ValidateQuery(build(11), nil)
	if !IsKind(err, KindNestingTooDeep) {
		t.Errorf("depth 11: kind = %s, want %s", KindOf(err), KindNestingTooDeep)
	}
}

func TestValidateQueryIdempotent(t *testing.T) {
	v := NewGraphQLValidator()

	input := "\n  query { getTests(limit: 2) { total } }  "
	first, err := v.ValidateQuery(input, nil)
	if err != nil {
		t.Fatalf("first validation failed: %v", err)
	}
	second, err := v.ValidateQuery(first, nil)
	if err != nil {
		t.Fatalf("revalidation failed: %v", err)
	}
	if second != first || first != strings.TrimSpace(input) {
		t.Errorf("validation is not trim-idempotent: %q -> %q -> %q", input, first, second)
	}
}

// ---------------------------------------------------------------------------
// Variable validation
// ---------------------------------------------------------------------------

func TestValidateQueryVariables(t *testing.T) {
	v := NewGraphQLValidator()
	doc := `query { getTests(limit: $limit) { total } }`

	manyVars := make(map[string]interface{})
	for i := 0; i < 51; i++ {
		manyVars["v"+strings.Repeat("x", i+1)] = i
	}
	bigList := make([]interface{}, 101)
	bigMap := make(map[string]interface{}, 51)
	for i := 0; i < 51; i++ {
		bigMap["k"+strings.Repeat("x", i+1)] = true
	}

	tests := []struct {
		name string
		vars map[string]interface{}
		kind Kind // "" means accept
	}{
		{"nil map", nil, ""},
		{"scalars", map[string]interface{}{"limit": 10, "jql": "project = XSP", "flag": true, "ratio": 0.5, "none": nil}, ""},
		{"nested structures", map[string]interface{}{
			"testType": map[string]interface{}{"name": "Manual"},
			"ids":      []interface{}{"10001", "10002"},
		}, ""},
		{"bad name", map[string]interface{}{"1bad": "x"}, KindInvalidVariableName},
		{"bad name dash", map[string]interface{}{"a-b": "x"}, KindInvalidVariableName},
		{"too many", manyVars, KindTooManyVariables},
		{"string too large", map[string]interface{}{"jql": strings.Repeat("a", 1001)}, KindVariableTooLarge},
		{"dangerous string", map[string]interface{}{"jql": "<script>alert(1)</script>"}, KindDangerousPattern},
		{"dangerous nested string", map[string]interface{}{"obj": map[string]interface{}{"inner": "javascript:x"}}, KindDangerousPattern},
		{"list too large", map[string]interface{}{"ids": bigList}, KindVariableTooLarge},
		{"map too large", map[string]interface{}{"obj": bigMap}, KindVariableTooLarge},
		{"bad object key", map[string]interface{}{"obj": map[string]interface{}{"bad key": 1}}, KindInvalidVariableName},
		{"unsupported type", map[string]interface{}{"ch": make(chan int)}, KindUnsupportedVariableType},
		{"unsupported nested type", map[string]interface{}{"list": []interface{}{struct{}{}}}, KindUnsupportedVariableType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateQuery(doc, tt.vars)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("ValidateQuery rejected valid variables: %v", err)
				}
				return
			}
			if !IsKind(err, tt.kind) {
				t.Errorf("kind = %s, want %s (err: %v)", KindOf(err), tt.kind, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ValidateForOperation
// ---------------------------------------------------------------------------

func TestValidateForOperation(t *testing.T) {
	v := NewGraphQLValidator()

	queryDoc := `query { getTests(limit: 10) { total } }`
	mutationDoc := `mutation { updateTestRunStatus(id: "1", statusName: "PASSED") }`

	t.Run("query operation match", func(t *testing.T) {
		got, err := v.ValidateForOperation(queryDoc, "getTests", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != queryDoc {
			t.Errorf("document altered: %q", got)
		}
	})

	t.Run("mutation operation match", func(t *testing.T) {
		if _, err := v.ValidateForOperation(mutationDoc, "updateTestRunStatus", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("operation absent from document", func(t *testing.T) {
		_, err := v.ValidateForOperation(queryDoc, "getTestPlans", nil)
		if !IsKind(err, KindUnknownOperation) {
			t.Errorf("kind = %s, want %s", KindOf(err), KindUnknownOperation)
		}
	})

	t.Run("query op against mutation whitelist", func(t *testing.T) {
		// getTests appears in the text (inside a string literal) but is not
		// a mutation operation.
		doc := `mutation { updateTestRunComment(id: "1", comment: "getTests") }`
		_, err := v.ValidateForOperation(doc, "getTests", nil)
		if !IsKind(err, KindUnknownOperation) {
			t.Errorf("kind = %s, want %s (err: %v)", KindOf(err), KindUnknownOperation, err)
		}
	})

	t.Run("invalid document still rejected", func(t *testing.T) {
		_, err := v.ValidateForOperation(`{ __schema { types { name } } }`, "getTests", nil)
		if !IsKind(err, KindDangerousPattern) {
			t.Errorf("kind = %s, want %s", KindOf(err), KindDangerousPattern)
		}
	})
}
