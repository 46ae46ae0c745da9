package guard

import (
	"errors"
	"fmt"
)

// Kind identifies the class of validation failure. Callers switch on the
// kind to decide how to report a rejection; the message is for humans.
type Kind string

const (
	KindEmptyInput              Kind = "empty_input"
	KindTooLong                 Kind = "too_long"
	KindDangerousPattern        Kind = "dangerous_pattern"
	KindUnbalancedQuotes        Kind = "unbalanced_quotes"
	KindUnbalancedDelimiters    Kind = "unbalanced_delimiters"
	KindNestingTooDeep          Kind = "nesting_too_deep"
	KindUnknownField            Kind = "unknown_field"
	KindUnknownFunction         Kind = "unknown_function"
	KindUnknownOperation        Kind = "unknown_operation"
	KindUnsupportedOperation    Kind = "unsupported_operation"
	KindSQLKeywordNotAllowed    Kind = "sql_keyword_not_allowed"
	KindInvalidVariableName     Kind = "invalid_variable_name"
	KindTooManyVariables        Kind = "too_many_variables"
	KindVariableTooLarge        Kind = "variable_too_large"
	KindUnsupportedVariableType Kind = "unsupported_variable_type"
)

// ValidationError is the rejection reason returned by the validators. Every
// violation is reported at the point of first failure; no partial
// sanitization is attempted.
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// rejectf builds a ValidationError with a formatted message.
func rejectf(kind Kind, format string, args ...interface{}) error {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err, or "" if err is not a
// ValidationError.
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// IsKind reports whether err is a ValidationError of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
