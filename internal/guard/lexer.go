package guard

import (
	"strings"
)

// The JQL lexer produces a flat token stream in a single pass. The
// validators classify an identifier by looking at the token that follows
// it (operator → field, open paren → function call), which keeps quoted
// literals and list members from ever masquerading as identifiers.

type tokenType int

const (
	tokIdentifier tokenType = iota
	tokCustomField           // cf[12345]
	tokString                // single- or double-quoted literal, quotes stripped
	tokNumber
	tokOperator // =, !=, ~, !~, >, >=, <, <=
	tokOpen
	tokClose
	tokComma
	tokKeyword // AND, OR, NOT, IN, IS, WAS, CHANGED, ORDER, BY, ...
)

type jqlToken struct {
	typ   tokenType
	value string // original text; keywords uppercased, string quotes stripped
	pos   int    // byte offset in the input for error messages
}

// lexJQL tokenizes a JQL expression. It is lenient on purpose: anything it
// cannot classify is skipped rather than rejected, because the lexer feeds
// whitelist checks, not a parser — the structural and pattern stages have
// already run by the time tokens are classified.
func lexJQL(input string) []jqlToken {
	var tokens []jqlToken
	i := 0
	n := len(input)

	for i < n {
		ch := input[i]

		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}

		switch ch {
		case '(':
			tokens = append(tokens, jqlToken{typ: tokOpen, value: "(", pos: i})
			i++
			continue
		case ')':
			tokens = append(tokens, jqlToken{typ: tokClose, value: ")", pos: i})
			i++
			continue
		case ',':
			tokens = append(tokens, jqlToken{typ: tokComma, value: ",", pos: i})
			i++
			continue
		}

		// Two-character operators before their one-character prefixes.
		if i+1 < n {
			switch input[i : i+2] {
			case "!=", "!~", ">=", "<=":
				tokens = append(tokens, jqlToken{typ: tokOperator, value: input[i : i+2], pos: i})
				i += 2
				continue
			}
		}
		switch ch {
		case '=', '~', '>', '<':
			tokens = append(tokens, jqlToken{typ: tokOperator, value: string(ch), pos: i})
			i++
			continue
		}

		// Quoted string literal. JQL accepts both quote styles; backslash
		// escapes the next character inside either.
		if ch == '"' || ch == '\'' {
			quote := ch
			start := i
			i++
			var sb strings.Builder
			for i < n {
				if input[i] == '\\' && i+1 < n {
					sb.WriteByte(input[i+1])
					i += 2
					continue
				}
				if input[i] == quote {
					i++
					break
				}
				sb.WriteByte(input[i])
				i++
			}
			tokens = append(tokens, jqlToken{typ: tokString, value: sb.String(), pos: start})
			continue
		}

		// Number, with optional leading minus and decimal part.
		if isDigit(ch) || (ch == '-' && i+1 < n && isDigit(input[i+1])) {
			start := i
			if ch == '-' {
				i++
			}
			for i < n && (isDigit(input[i]) || input[i] == '.') {
				i++
			}
			tokens = append(tokens, jqlToken{typ: tokNumber, value: input[start:i], pos: start})
			continue
		}

		// Identifier, keyword, or custom-field reference.
		if isIdentStart(ch) {
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			word := input[start:i]

			// cf[N] lexes as a single custom-field token so the numeric
			// range check sees the whole reference.
			if strings.EqualFold(word, "cf") && i < n && input[i] == '[' {
				j := i + 1
				for j < n && isDigit(input[j]) {
					j++
				}
				if j < n && input[j] == ']' && j > i+1 {
					tokens = append(tokens, jqlToken{typ: tokCustomField, value: input[start : j+1], pos: start})
					i = j + 1
					continue
				}
			}

			if jqlKeywords.contains(word) {
				tokens = append(tokens, jqlToken{typ: tokKeyword, value: strings.ToUpper(word), pos: start})
			} else {
				tokens = append(tokens, jqlToken{typ: tokIdentifier, value: word, pos: start})
			}
			continue
		}

		// Unclassifiable byte; skip it. The whitelist stages care about
		// identifiers, not punctuation.
		i++
	}

	return tokens
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '.' || ch == '-'
}
