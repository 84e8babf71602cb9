// Package audioqueue provides an ordered queue of PCM segments that behaves
// as a single continuous audio source. The producer side appends segments as
// they are synthesized; the consumer side is a synchronous sample iterator
// that pads with silence while the producer is behind, so it can back a
// blocking audio callback without ever stalling the device.
package audioqueue

import (
	"sync"
	"sync/atomic"
	"time"
)

// Threshold is the length, in samples, of one silence filler chunk. It also
// serves as the span reported while the queue is empty and still open.
const Threshold = 512

// Buffer holds one segment of mono PCM audio.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration reports the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// SignalEvent reports a playback state change for one queued segment.
type SignalEvent int

const (
	// SignalStart fires when the first sample of the segment is due.
	SignalStart SignalEvent = iota
	// SignalEnd fires after the last sample of the segment has been emitted.
	SignalEnd
)

// entry pairs a queued buffer with its optional signal channel.
type entry struct {
	buf    *Buffer
	signal chan SignalEvent
}

// Input is the producer side of the queue. It is safe for concurrent use;
// the consumer reads it under the same mutex and never suspends.
type Input struct {
	mu       sync.Mutex
	sounds   []entry
	finished atomic.Bool
}

// Append adds a segment with no playback signal.
func (in *Input) Append(buf *Buffer) {
	in.mu.Lock()
	in.sounds = append(in.sounds, entry{buf: buf})
	in.mu.Unlock()
}

// AppendWithSignal adds a segment and returns a channel that receives
// SignalStart when the segment begins playback and SignalEnd when it
// finishes. Events are delivered best-effort: if the receiver is not
// keeping up, events are dropped rather than blocking the audio path.
func (in *Input) AppendWithSignal(buf *Buffer) <-chan SignalEvent {
	ch := make(chan SignalEvent, 2)
	in.mu.Lock()
	in.sounds = append(in.sounds, entry{buf: buf, signal: ch})
	in.mu.Unlock()
	return ch
}

// SetFinished marks whether the producer is done appending segments. Once
// true and the queue is drained, the consumer reaches its terminal state.
func (in *Input) SetFinished(finished bool) {
	in.finished.Store(finished)
}

// IsFinished reports whether the producer has marked the stream complete.
func (in *Input) IsFinished() bool {
	return in.finished.Load()
}

// get returns the entry at index, if present.
func (in *Input) get(index int) (entry, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if index < 0 || index >= len(in.sounds) {
		return entry{}, false
	}
	return in.sounds[index], true
}

// closeSignals closes every pending signal channel so detached waiters
// observe shutdown when the consumer is torn down early.
func (in *Input) closeSignals() {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.sounds {
		if in.sounds[i].signal != nil {
			close(in.sounds[i].signal)
			in.sounds[i].signal = nil
		}
	}
}

// New creates a connected producer/consumer pair. All segments are expected
// to share the given sample rate and channel count; silence fillers are
// generated in the same format.
func New(sampleRate, channels int) (*Input, *Output) {
	in := &Input{}
	out := newOutput(in, 0, sampleRate, channels)
	return in, out
}
