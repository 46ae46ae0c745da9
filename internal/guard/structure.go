package guard

import "strings"

// checkStructure verifies balanced delimiters and bounded nesting without
// building a parse tree. open and close name the delimiter pair the
// language nests on (parens for JQL, braces for GraphQL); maxDepth is the
// per-language ceiling.
//
// The depth scan is a single left-to-right pass keeping only a running
// counter: once balance is confirmed by counting, the maximum depth is all
// that matters, so no stack of positions is needed. O(n) time, O(1) state.
func checkStructure(input string, open, close byte, maxDepth int) error {
	if strings.Count(input, `"`)%2 != 0 {
		return rejectf(KindUnbalancedQuotes, "unbalanced double quotes")
	}

	opens := strings.Count(input, string(open))
	closes := strings.Count(input, string(close))
	if opens != closes {
		return rejectf(KindUnbalancedDelimiters,
			"unbalanced %c%c: %d open, %d close", open, close, opens, closes)
	}

	depth, peak := 0, 0
	for i := 0; i < len(input); i++ {
		switch input[i] {
		case open:
			depth++
			if depth > peak {
				peak = depth
			}
		case close:
			depth--
		}
	}
	if peak > maxDepth {
		return rejectf(KindNestingTooDeep,
			"nesting depth %d exceeds maximum %d", peak, maxDepth)
	}
	return nil
}
