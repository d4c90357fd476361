// Package rgerrors defines the typed error kinds the row-generation engine
// raises, mirroring the original service's GenerationError/DatasetError
// enums so callers can branch on kind instead of matching message strings.
package rgerrors

import "fmt"

// Kind identifies which of spec.md §7's error categories a Error belongs to.
type Kind string

const (
	KindCancelled Kind = "cancelled"
	KindModel     Kind = "model"
	KindCycle     Kind = "cycle_detected"
	KindStore     Kind = "store"
	KindParse     Kind = "parse"
)

// Error is the engine's single error type; Kind lets callers dispatch
// (cell-level scalar parse failures never reach this type — they degrade
// to type defaults per spec.md §7).
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is lets errors.Is(err, rgerrors.Cycle) style checks work against a bare
// Kind sentinel without constructing a full Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons where only the kind matters.
var (
	Cancelled = &Error{Kind: KindCancelled}
	Model     = &Error{Kind: KindModel}
	Cycle     = &Error{Kind: KindCycle}
	Store     = &Error{Kind: KindStore}
	Parse     = &Error{Kind: KindParse}
)
