package tts

import (
	"errors"
	"fmt"
)

var (
	// ErrPiperNotFound indicates the piper binary could not be located.
	ErrPiperNotFound = errors.New("piper binary not found")

	// ErrSynthesisFailed indicates piper ran but did not produce audio.
	ErrSynthesisFailed = errors.New("speech synthesis failed")

	// ErrEmptyText indicates there is nothing to speak.
	ErrEmptyText = errors.New("speech text is empty")

	// ErrInvalidKey indicates an explicit cache key that cannot name a
	// directory.
	ErrInvalidKey = errors.New("invalid speech cache key")

	// ErrTimeout indicates piper did not finish in time.
	ErrTimeout = errors.New("speech synthesis timed out")
)

// SynthesisError describes a failed piper run.
type SynthesisError struct {
	Model  string
	Stderr string
	Cause  error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	msg := fmt.Sprintf("piper with model %s: %v", e.Model, e.Cause)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Cause
}
