package template

import "fmt"

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// Error is the base interface for all template errors.
type Error interface {
	error
	Position() Position
}

// baseError provides common error functionality.
type baseError struct {
	pos Position
	msg string
}

func (e *baseError) Position() Position { return e.pos }
func (e *baseError) Error() string {
	if e.pos.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.pos.File, e.pos.Line, e.pos.Column, e.msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.msg)
}

// LexError represents an error while splitting a query into tokens.
type LexError struct {
	baseError
}

// NewLexError creates a new lexer error.
func NewLexError(pos Position, msg string) *LexError {
	return &LexError{baseError: baseError{pos: pos, msg: msg}}
}

// UnresolvedError reports a reference that could not be substituted.
type UnresolvedError struct {
	baseError
	Name string
}

// NewUnresolvedError creates an error for a reference to name.
func NewUnresolvedError(pos Position, name, reason string) *UnresolvedError {
	return &UnresolvedError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("variable %q %s", name, reason)},
		Name:      name,
	}
}
