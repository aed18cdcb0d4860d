package errors

import (
	"fmt"
)

// Error kinds for the two failure families the library distinguishes:
// specification errors (programmer mistakes in the wrapped function, raised
// while the CLI is being constructed) and parse errors (user mistakes on the
// command line, surfaced through the argument scanner).
const (
	// Specification errors (construction time)
	ErrAmbiguousType    = "AMBIGUOUS_TYPE"
	ErrUnknownType      = "UNKNOWN_TYPE"
	ErrDocMismatch      = "DOC_MISMATCH"
	ErrDocParse         = "DOC_PARSE_ERROR"
	ErrUnderspecified   = "UNDERSPECIFIED"
	ErrUnsupportedUnion = "UNSUPPORTED_UNION"
	ErrSpec             = "SPEC_ERROR"

	// Parse errors (argument scan time)
	ErrParse = "PARSE_ERROR"
)

// FuncliError represents a structured error with a kind and an optional cause.
type FuncliError struct {
	Kind    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *FuncliError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows error unwrapping.
func (e *FuncliError) Unwrap() error {
	return e.Cause
}

// Flat renders the message chain without the kind tag, for user-facing
// output.
func (e *FuncliError) Flat() string {
	if e.Cause == nil {
		return e.Message
	}
	if fe, ok := e.Cause.(*FuncliError); ok {
		return e.Message + ": " + fe.Flat()
	}
	return e.Message + ": " + e.Cause.Error()
}

// New creates a new FuncliError.
func New(kind, format string, args ...any) *FuncliError {
	return &FuncliError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new FuncliError wrapping an existing error.
func Wrap(kind string, cause error, format string, args ...any) *FuncliError {
	return &FuncliError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind checks whether an error is a FuncliError of the given kind.
func IsKind(err error, kind string) bool {
	if fe, ok := err.(*FuncliError); ok {
		return fe.Kind == kind
	}
	return false
}

// IsSpecification reports whether err belongs to the construction-time
// specification family. These abort CLI construction before any user input
// is read.
func IsSpecification(err error) bool {
	fe, ok := err.(*FuncliError)
	if !ok {
		return false
	}
	switch fe.Kind {
	case ErrAmbiguousType, ErrUnknownType, ErrDocMismatch, ErrDocParse,
		ErrUnderspecified, ErrUnsupportedUnion, ErrSpec:
		return true
	}
	return false
}
