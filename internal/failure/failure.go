// Package failure classifies the errors that abort a render.
//
// Every fatal error surfaced by planning, decoding or writing output carries
// a Kind so callers can tell them apart with errors.Is against ErrPlanning,
// ErrIO or ErrDecode. Nothing in the render path retries.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the class of a render failure.
type Kind int

const (
	// KindPlanning covers unresolvable mixin paths, canonicalization
	// failures and speech-synthesis failures.
	KindPlanning Kind = iota

	// KindIO covers output sink creation, write and finalize failures.
	KindIO

	// KindDecode covers malformed or unreadable mixin source waveforms.
	KindDecode
)

var (
	// ErrPlanning matches any planning failure.
	ErrPlanning = errors.New("planning failed")

	// ErrIO matches any output failure.
	ErrIO = errors.New("output failed")

	// ErrDecode matches any source decode failure.
	ErrDecode = errors.New("decode failed")
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPlanning:
		return "planning"
	case KindIO:
		return "io"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindPlanning:
		return ErrPlanning
	case KindIO:
		return ErrIO
	default:
		return ErrDecode
	}
}

// Error is a classified render failure.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "resolve audio mixin"
	Path string // file involved, if any
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

func newError(kind Kind, op, path string, err error) error {
	// Already classified errors keep their original kind.
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Planning wraps err as a planning failure.
func Planning(op, path string, err error) error {
	return newError(KindPlanning, op, path, err)
}

// IO wraps err as an output failure.
func IO(op, path string, err error) error {
	return newError(KindIO, op, path, err)
}

// Decode wraps err as a decode failure.
func Decode(op, path string, err error) error {
	return newError(KindDecode, op, path, err)
}

// KindOf reports the kind of a classified error.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
