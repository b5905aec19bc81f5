package argtree

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes run-time parse failures.
// Kinds drive message wording and exit-code mapping (via ExitCodes).
type ErrorKind string

const (
	KindUnknownArgument               ErrorKind = "unknown_argument"
	KindUnknownArgumentWithSuggestion ErrorKind = "unknown_argument_with_suggestion"
	KindUnhandledArguments            ErrorKind = "unhandled_arguments"
	KindArgumentAlreadySet            ErrorKind = "argument_has_already_been_set"
	KindFailedToParse                 ErrorKind = "failed_to_parse"
	KindValueOutOfRange               ErrorKind = "value_out_of_range"
	KindMissingRequiredArgument       ErrorKind = "missing_required_argument"
	KindMinimumCountNotReached        ErrorKind = "minimum_count_not_reached"
	KindMaximumCountExceeded          ErrorKind = "maximum_count_exceeded"
	KindMinimumValueNotReached        ErrorKind = "minimum_value_not_reached"
	KindMaximumValueExceeded          ErrorKind = "maximum_value_exceeded"
	KindTooFewValuesForAlias          ErrorKind = "too_few_values_for_alias"
	KindOneOfTypeMismatch             ErrorKind = "one_of_value_type_mismatch"
	KindMissingValueSeparator         ErrorKind = "missing_value_separator"
	KindDependentArgumentMissing      ErrorKind = "dependent_argument_missing"
	KindMissingTokenEndMarker         ErrorKind = "missing_token_end_marker"
	KindModeRequiresArguments         ErrorKind = "mode_requires_arguments"
	KindNoArgumentsPassed             ErrorKind = "no_arguments_passed"
	KindValidationFailed              ErrorKind = "validation_failed"
)

var kindMessages = map[ErrorKind]string{
	KindUnknownArgument:               "Unknown argument",
	KindUnknownArgumentWithSuggestion: "Unknown argument",
	KindUnhandledArguments:            "Unhandled arguments",
	KindArgumentAlreadySet:            "Argument has already been set",
	KindFailedToParse:                 "Failed to parse",
	KindValueOutOfRange:               "Value out of range for argument",
	KindMissingRequiredArgument:       "Missing required argument",
	KindMinimumCountNotReached:        "Minimum count not reached",
	KindMaximumCountExceeded:          "Maximum count exceeded",
	KindMinimumValueNotReached:        "Minimum value not reached",
	KindMaximumValueExceeded:          "Maximum value exceeded",
	KindTooFewValuesForAlias:          "Too few values for alias",
	KindOneOfTypeMismatch:             `Only one argument from a "One Of" can be used at once`,
	KindMissingValueSeparator:         "Unable to find value after separator",
	KindDependentArgumentMissing:      "Dependent argument missing (needs to be before the requiring token on the command line)",
	KindMissingTokenEndMarker:         "Token end marker missing",
	KindModeRequiresArguments:         "Mode requires arguments",
	KindNoArgumentsPassed:             "No arguments passed",
	KindValidationFailed:              "Validation failed",
}

// Message returns the human readable text for k.
func (k ErrorKind) Message() string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return string(k)
}

// ParseError is a run-time failure carrying its kind and the tokens involved.
// For KindUnknownArgumentWithSuggestion the first token is the offending one
// and the rest spell out the suggested path.
type ParseError struct {
	Kind   ErrorKind
	Tokens []Token
	Cause  error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Message())

	if e.Kind == KindUnknownArgumentWithSuggestion && len(e.Tokens) > 1 {
		b.WriteString(": ")
		b.WriteString(e.Tokens[0].String())
		b.WriteString(". Did you mean ")
		for i, tok := range e.Tokens[1:] {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(tok.String())
		}
		b.WriteByte('?')
		return b.String()
	}

	if len(e.Tokens) > 0 {
		b.WriteString(": ")
		b.WriteString(joinTokens(e.Tokens))
	}
	if e.Cause != nil && e.Kind == KindValidationFailed {
		b.WriteString(" (")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Is reports kind equality so errors.Is(err, &ParseError{Kind: k}) works.
func (e *ParseError) Is(target error) bool {
	var pe *ParseError
	if errors.As(target, &pe) {
		return pe.Kind == e.Kind && pe.Tokens == nil
	}
	return false
}

// NewParseError creates a ParseError naming the given tokens.
func NewParseError(kind ErrorKind, tokens ...Token) *ParseError {
	return &ParseError{Kind: kind, Tokens: tokens}
}

// WithCause attaches the underlying error.
func (e *ParseError) WithCause(err error) *ParseError {
	e.Cause = err
	return e
}

// KindOf returns the kind of the first ParseError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// BuildError is a structural problem found while constructing a tree.
type BuildError struct {
	Node    string
	Message string
}

func (e *BuildError) Error() string {
	if e.Node == "" {
		return "argtree: " + e.Message
	}
	return fmt.Sprintf("argtree: %s: %s", e.Node, e.Message)
}

func buildErrorf(n *Node, format string, args ...any) *BuildError {
	label := ""
	if n != nil {
		label = n.label().String()
	}
	return &BuildError{Node: label, Message: fmt.Sprintf(format, args...)}
}
