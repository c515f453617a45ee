// Package errs tags pipeline failures with the stage they originate from.
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindPreparation Kind = "preparation"
	KindSynthesis   Kind = "synthesis"
	KindPostProcess Kind = "postprocess"
	KindPlayback    Kind = "playback"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s failed: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with kind. An error that already carries a kind keeps it.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	return &Error{Kind: kind, Op: op, Err: err}
}

func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether the first tagged error in the chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind == kind
	}
	return false
}

// Reason returns the untagged cause, suitable for a status line.
func Reason(err error) string {
	var typed *Error
	if errors.As(err, &typed) && typed.Err != nil {
		return typed.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
