package guard

import (
	"regexp"
	"strconv"
	"strings"
)

// customFieldRegex recognizes a lexed custom-field reference. The numeric
// range is checked separately so out-of-range IDs get a precise message.
var customFieldRegex = regexp.MustCompile(`^cf\[(\d+)\]$`)

// JQLValidator validates Jira JQL filter expressions against the field,
// function, and keyword whitelists. The zero-cost constructor exists so the
// whitelist tables read as per-instance configuration; every instance
// shares the same immutable tables and is safe for concurrent use.
type JQLValidator struct{}

// NewJQLValidator returns a ready JQL validator.
func NewJQLValidator() *JQLValidator {
	return &JQLValidator{}
}

// ValidateJQL runs the fixed validation pipeline over a raw JQL string and
// returns the trimmed input on success. Each stage re-scans the raw text
// independently and the first violation wins. No stage is skipped even when
// an earlier one looks sufficient: each guards a distinct attack class.
func (v *JQLValidator) ValidateJQL(jql string) (string, error) {
	trimmed := strings.TrimSpace(jql)

	// Stage 1: size gates.
	if trimmed == "" {
		return "", rejectf(KindEmptyInput, "JQL query is empty")
	}
	if len(trimmed) > maxJQLLength {
		return "", rejectf(KindTooLong,
			"JQL query is %d characters, maximum is %d", len(trimmed), maxJQLLength)
	}

	// Stage 2: dangerous-pattern scan over the raw text.
	for _, re := range jqlDangerousPatterns {
		if loc := re.FindString(trimmed); loc != "" {
			return "", rejectf(KindDangerousPattern,
				"JQL contains disallowed sequence %q", loc)
		}
	}

	// Stage 3: quote balance, paren balance, nesting depth.
	if err := checkStructure(trimmed, '(', ')', maxJQLDepth); err != nil {
		return "", err
	}

	tokens := lexJQL(trimmed)

	// Stage 4: every identifier in field position must be whitelisted or a
	// valid custom-field reference.
	if err := checkJQLFields(tokens); err != nil {
		return "", err
	}

	// Stage 5: every identifier in call position must be a whitelisted
	// function.
	if err := checkJQLFunctions(tokens); err != nil {
		return "", err
	}

	// Stage 6: whitespace-surrounded SQL keywords, independent of the
	// stage-2 regex pass.
	if err := checkSQLKeywords(trimmed); err != nil {
		return "", err
	}

	return trimmed, nil
}

// checkJQLFields classifies identifiers by their successor token. An
// identifier directly followed by a comparison operator or by one of the
// keyword operators (IN, IS, WAS, CHANGED, or NOT introducing a negated
// form) is a field reference; one followed by an open paren is a function
// call and is handled by checkJQLFunctions instead. Identifiers in value
// position (inside lists, after operators) are never field-checked.
func checkJQLFields(tokens []jqlToken) error {
	for i, tok := range tokens {
		if tok.typ != tokIdentifier && tok.typ != tokCustomField {
			continue
		}
		next := peekToken(tokens, i+1)
		if next == nil {
			continue
		}

		isField := false
		switch next.typ {
		case tokOperator:
			isField = true
		case tokKeyword:
			if jqlOperatorKeywords.contains(next.value) || next.value == "NOT" {
				isField = true
			}
		}
		if !isField {
			continue
		}

		if tok.typ == tokCustomField {
			if err := checkCustomField(tok.value); err != nil {
				return err
			}
			continue
		}
		if !jqlFields.contains(tok.value) {
			return rejectf(KindUnknownField,
				"field %q is not in the allowed field list", tok.value)
		}
	}
	return nil
}

// checkJQLFunctions validates identifiers immediately followed by an open
// paren against the function whitelist. Keywords followed by a paren (e.g.
// the IN in `labels in (...)`) are grammar, not function calls.
func checkJQLFunctions(tokens []jqlToken) error {
	for i, tok := range tokens {
		if tok.typ != tokIdentifier {
			continue
		}
		next := peekToken(tokens, i+1)
		if next == nil || next.typ != tokOpen {
			continue
		}
		if !jqlFunctions.contains(tok.value) {
			return rejectf(KindUnknownFunction,
				"function %q is not in the allowed function list", tok.value)
		}
	}
	return nil
}

// checkCustomField enforces the numeric ID range on a cf[N] reference.
func checkCustomField(ref string) error {
	m := customFieldRegex.FindStringSubmatch(ref)
	if m == nil {
		return rejectf(KindUnknownField, "malformed custom field reference %q", ref)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id < customFieldMin || id > customFieldMax {
		return rejectf(KindUnknownField,
			"custom field ID in %q is outside the allowed range %d-%d",
			ref, customFieldMin, customFieldMax)
	}
	return nil
}

// checkSQLKeywords scans the lower-cased text for SQL keywords with
// whitespace on both sides.
func checkSQLKeywords(input string) error {
	lower := strings.ToLower(input)
	for _, kw := range sqlKeywords {
		idx := 0
		for {
			pos := strings.Index(lower[idx:], kw)
			if pos < 0 {
				break
			}
			pos += idx
			before := pos > 0 && isSpaceByte(lower[pos-1])
			afterIdx := pos + len(kw)
			after := afterIdx < len(lower) && isSpaceByte(lower[afterIdx])
			if before && after {
				return rejectf(KindSQLKeywordNotAllowed,
					"SQL keyword %q is not allowed in JQL", kw)
			}
			idx = pos + len(kw)
		}
	}
	return nil
}

// EscapeStringValue escapes a user-supplied literal for safe embedding
// inside a JQL string token: backslashes and double quotes are escaped and
// ASCII control characters below 0x20 are stripped. This is a pure
// transform, independent of the validation pipeline.
func EscapeStringValue(value string) string {
	var sb strings.Builder
	sb.Grow(len(value))
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case ch == '\\':
			sb.WriteString(`\\`)
		case ch == '"':
			sb.WriteString(`\"`)
		case ch < 0x20:
			// dropped
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

func peekToken(tokens []jqlToken, i int) *jqlToken {
	if i >= len(tokens) {
		return nil
	}
	return &tokens[i]
}

func isSpaceByte(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
