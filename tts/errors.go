package tts

import (
	"errors"
	"fmt"
)

// Common errors for the TTS pipeline.
var (
	// Synthesis errors
	ErrEngineNotAvailable = errors.New("TTS engine is not available")
	ErrSynthFailed        = errors.New("speech synthesis failed")
	ErrInvalidVoice       = errors.New("invalid voice")
	ErrEmptyText          = errors.New("empty text provided")

	// Pipeline errors
	ErrNoSegments = errors.New("chapter has no segments")
)

// SynthError wraps a synthesis failure with the segment it belongs to,
// so error callbacks can report which sentence was skipped.
type SynthError struct {
	Index int    // segment index within the chapter
	Text  string // segment text that failed to synthesize
	Err   error
}

// Error implements the error interface.
func (e *SynthError) Error() string {
	return fmt.Sprintf("synth segment %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *SynthError) Unwrap() error {
	return e.Err
}
