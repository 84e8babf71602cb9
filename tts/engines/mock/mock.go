// Package mock provides a scripted synthesizer for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/novelterm/novelterm/tts"
	"github.com/novelterm/novelterm/tts/audioqueue"
)

// Engine implements tts.Synthesizer with deterministic fake audio. Each
// Synth call produces a run of identical samples whose value is the call
// ordinal, so tests can tell the segments apart in the output stream.
type Engine struct {
	mu sync.Mutex

	// Control for testing
	delay      time.Duration
	failOn     map[int]error // call ordinal (0-based) -> error
	samplesPer int

	callCount int
	calls     []string
}

// New creates a mock synthesizer emitting 2400 samples per call.
func New() *Engine {
	return &Engine{
		samplesPer: 2400,
		failOn:     make(map[int]error),
	}
}

// Synth returns fake PCM for text, honoring the configured delay, failure
// script, and context cancellation.
func (e *Engine) Synth(ctx context.Context, text string, voice tts.Voice) (*audioqueue.Buffer, time.Duration, error) {
	e.mu.Lock()
	call := e.callCount
	e.callCount++
	e.calls = append(e.calls, text)
	delay := e.delay
	failErr := e.failOn[call]
	n := e.samplesPer
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	if failErr != nil {
		return nil, 0, failErr
	}

	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(call + 1)
	}
	buf := &audioqueue.Buffer{
		Samples:    samples,
		SampleRate: tts.DefaultSampleRate,
		Channels:   tts.DefaultChannels,
	}
	return buf, delay, nil
}

// SetDelay sets the simulated synthesis delay.
func (e *Engine) SetDelay(delay time.Duration) {
	e.mu.Lock()
	e.delay = delay
	e.mu.Unlock()
}

// SetSamplesPerCall sets how many samples each Synth call produces.
func (e *Engine) SetSamplesPerCall(n int) {
	e.mu.Lock()
	e.samplesPer = n
	e.mu.Unlock()
}

// FailOn makes the nth Synth call (0-based) return err.
func (e *Engine) FailOn(call int, err error) {
	e.mu.Lock()
	e.failOn[call] = err
	e.mu.Unlock()
}

// CallCount returns the number of Synth calls so far.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callCount
}

// Calls returns the texts passed to Synth, in call order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}
