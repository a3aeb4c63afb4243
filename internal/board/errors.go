package board

import (
	"errors"
	"fmt"
)

// ErrInvalidFEN is wrapped by every FEN parsing failure.
var ErrInvalidFEN = errors.New("invalid FEN")

// FENError describes why a FEN string was rejected.
type FENError struct {
	Field  string // "placement", "side", "castling", "en passant", "halfmove", "fullmove" or "position"
	Value  string
	Reason string
}

func (e *FENError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid FEN %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid FEN %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidFEN.
func (e *FENError) Unwrap() error {
	return ErrInvalidFEN
}

func fenError(field, value, format string, args ...any) *FENError {
	return &FENError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// PreconditionError reports a structurally invalid position handed to move
// generation or application. It signals a programming error and is raised
// with panic when DebugMoveValidation is enabled.
type PreconditionError struct {
	Op  string
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition violated: %v", e.Op, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}
