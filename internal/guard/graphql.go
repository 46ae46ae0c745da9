package guard

import (
	"strings"
)

// operationType is the request kind detected from a GraphQL document
// header.
type operationType int

const (
	opQuery operationType = iota
	opMutation
	opSubscription
)

// GraphQLValidator validates Xray GraphQL request documents and their
// variables against the field and operation whitelists. Instances share
// the immutable package tables and are safe for concurrent use.
type GraphQLValidator struct{}

// NewGraphQLValidator returns a ready GraphQL validator.
func NewGraphQLValidator() *GraphQLValidator {
	return &GraphQLValidator{}
}

// ValidateQuery runs the fixed validation pipeline over a GraphQL document
// and its optional variables map, returning the trimmed document on
// success. Subscriptions are always rejected: the gateway only forwards
// request/response operations.
func (v *GraphQLValidator) ValidateQuery(document string, variables map[string]interface{}) (string, error) {
	trimmed := strings.TrimSpace(document)

	// Stage 1: size gates.
	if trimmed == "" {
		return "", rejectf(KindEmptyInput, "GraphQL document is empty")
	}
	if len(trimmed) > maxGraphQLLength {
		return "", rejectf(KindTooLong,
			"GraphQL document is %d characters, maximum is %d", len(trimmed), maxGraphQLLength)
	}

	// Stage 2: dangerous-pattern scan. __typename is exempt by the word
	// boundary on the __type pattern.
	for _, re := range graphqlDangerousPatterns {
		if loc := re.FindString(trimmed); loc != "" {
			return "", rejectf(KindDangerousPattern,
				"GraphQL document contains disallowed sequence %q", loc)
		}
	}

	// Stage 3: operation header.
	opType, err := detectOperationType(trimmed)
	if err != nil {
		return "", err
	}

	// Stage 4: quote balance, brace balance, nesting depth.
	if err := checkStructure(trimmed, '{', '}', maxGraphQLDepth); err != nil {
		return "", err
	}

	// Stage 5: identifier whitelist.
	if err := checkGraphQLIdentifiers(trimmed, opType); err != nil {
		return "", err
	}

	// Stage 6: variables, when supplied.
	if variables != nil {
		if err := validateVariables(variables); err != nil {
			return "", err
		}
	}

	return trimmed, nil
}

// ValidateForOperation validates the document like ValidateQuery and
// additionally requires the expected operation to appear literally in the
// validated text and to be whitelisted for the detected operation type.
// Call sites that know which single operation they intend to invoke use
// this as an extra assurance that the text was not substituted.
func (v *GraphQLValidator) ValidateForOperation(document, expectedOperation string, variables map[string]interface{}) (string, error) {
	validated, err := v.ValidateQuery(document, variables)
	if err != nil {
		return "", err
	}

	if !strings.Contains(validated, expectedOperation) {
		return "", rejectf(KindUnknownOperation,
			"expected operation %q does not appear in the document", expectedOperation)
	}

	opType, err := detectOperationType(validated)
	if err != nil {
		return "", err
	}
	allowed := graphqlQueryOperations
	if opType == opMutation {
		allowed = graphqlMutationOperations
	}
	if !allowed.contains(expectedOperation) {
		return "", rejectf(KindUnknownOperation,
			"operation %q is not in the allowed operation list", expectedOperation)
	}

	return validated, nil
}

// IsMutationOperation reports whether name is one of the whitelisted
// mutation operations. Callers use this to refuse mutations on read-only
// connections before any network traffic happens.
func IsMutationOperation(name string) bool {
	return graphqlMutationOperations.contains(name)
}

// detectOperationType parses only the document header: an explicit
// query/mutation/subscription keyword with an optional name, or an
// anonymous document starting with "{" which is an implicit query.
func detectOperationType(document string) (operationType, error) {
	rest := strings.TrimSpace(document)
	if strings.HasPrefix(rest, "{") {
		return opQuery, nil
	}

	word := rest
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		if !isIdentPart(ch) {
			word = rest[:i]
			break
		}
	}

	switch word {
	case "query":
		return opQuery, nil
	case "mutation":
		return opMutation, nil
	case "subscription":
		return opSubscription, rejectf(KindUnsupportedOperation,
			"subscriptions are not supported; only query and mutation are allowed")
	default:
		return opQuery, rejectf(KindUnsupportedOperation,
			"document must start with query, mutation, or a selection set")
	}
}

// checkGraphQLIdentifiers extracts every bare identifier from the document
// with string contents masked out, and accepts each one only if it is
// whitelisted, a structural keyword, a whitelisted top-level operation for
// the detected type, or an uppercase-leading type/enum reference free of
// suspicious substrings. GraphQL identifiers are case-sensitive.
func checkGraphQLIdentifiers(document string, opType operationType) error {
	masked := maskStrings(document)

	operations := graphqlQueryOperations
	if opType == opMutation {
		operations = graphqlMutationOperations
	}

	i := 0
	n := len(masked)
	for i < n {
		ch := masked[i]
		if !isIdentStart(ch) && ch != '_' {
			// $name is a variable reference and @name a directive; their
			// names are validated elsewhere (variables) or structural.
			if ch == '$' || ch == '@' {
				i++
				for i < n && (isIdentPart(masked[i]) || masked[i] == '_') {
					i++
				}
				continue
			}
			i++
			continue
		}

		start := i
		for i < n && (isIdentPart(masked[i]) || masked[i] == '_') {
			i++
		}
		name := masked[start:i]

		if containsSuspicious(name) {
			return rejectf(KindUnknownField,
				"identifier %q contains a disallowed substring", name)
		}
		if graphqlFields.contains(name) || graphqlStructuralKeywords.contains(name) {
			continue
		}
		if operations.contains(name) {
			continue
		}
		// Uppercase-leading tokens are treated permissively as type or
		// enum references (TestType, PASSED, ...).
		if name[0] >= 'A' && name[0] <= 'Z' {
			continue
		}
		return rejectf(KindUnknownField,
			"field %q is not in the allowed field list", name)
	}

	return nil
}

// maskStrings blanks the contents of double-quoted strings so literal
// values never read as identifiers. Quote characters themselves are kept
// so offsets stay stable.
func maskStrings(input string) string {
	b := []byte(input)
	inString := false
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '\\' && inString && i+1 < len(b):
			b[i] = ' '
			b[i+1] = ' '
			i++
		case b[i] == '"':
			inString = !inString
		case inString:
			b[i] = ' '
		}
	}
	return string(b)
}
