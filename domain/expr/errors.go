package expr

import "fmt"

// ErrorCode identifies the category of an expression engine error.
type ErrorCode int

const (
	// ErrSyntax indicates a malformed token stream: unterminated quote,
	// unmatched parenthesis, unexpected or trailing token.
	ErrSyntax ErrorCode = iota + 1
	// ErrUnknownProxy indicates a quoted fragment resolved to zero proxies.
	ErrUnknownProxy
	// ErrInvalidExpression indicates a malformed tree: empty AND/OR children,
	// unrecognized node tag, or a proxy node carrying children.
	ErrInvalidExpression
	// ErrDepthExceeded indicates the tree is deeper than the configured cap.
	ErrDepthExceeded
)

// String returns the stable wire identifier of the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrSyntax:
		return "syntax_error"
	case ErrUnknownProxy:
		return "unknown_proxy"
	case ErrInvalidExpression:
		return "invalid_expression"
	case ErrDepthExceeded:
		return "depth_exceeded"
	default:
		return "unknown"
	}
}

// Error is the structured error type returned by the parser, the tree
// validator and the evaluator. Use Code to distinguish categories.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode
	// Message is a human-readable description.
	Message string
	// Pos is the byte offset into the input where the error occurred,
	// or -1 when no position applies (tree-level errors).
	Pos int
	// Fragment is the offending quoted fragment for unknown-proxy errors.
	Fragment string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("expr: %s at position %d", e.Message, e.Pos)
	}
	if e.Cause != nil {
		return fmt.Sprintf("expr: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("expr: %s", e.Message)
}

// Unwrap returns the underlying cause, supporting errors.Is and errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsSyntaxError returns true if err is a textual expression syntax error.
func IsSyntaxError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == ErrSyntax
	}
	return false
}

// IsUnknownProxy returns true if err reports a fragment with no matching proxy.
func IsUnknownProxy(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == ErrUnknownProxy
	}
	return false
}

// IsInvalidExpression returns true if err reports a structurally invalid tree,
// including one that exceeds the depth cap.
func IsInvalidExpression(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == ErrInvalidExpression || e.Code == ErrDepthExceeded
	}
	return false
}

func syntaxErrorf(pos int, format string, args ...interface{}) *Error {
	return &Error{Code: ErrSyntax, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func invalidExpr(format string, args ...interface{}) *Error {
	return &Error{Code: ErrInvalidExpression, Message: fmt.Sprintf(format, args...), Pos: -1}
}
