package audioqueue

import "io"

// Output is the consumer side of the queue. It emits the queued segments
// strictly in append order, interleaving fixed-length silence while the
// producer has not yet appended the next segment. The zero samples keep a
// pull-based audio sink fed without ever blocking it.
//
// Output is single-owner: only the audio sink may call its methods.
type Output struct {
	input *Input

	sampleRate int
	channels   int

	// Currently playing source: a real segment when buf is non-nil,
	// otherwise a countdown of silence samples.
	buf     *Buffer
	pos     int
	silence int

	signal chan SignalEvent

	// index is the queue position of the current (or, while isInitial,
	// the next expected) segment.
	index     int
	isInitial bool

	terminal bool
}

func newOutput(input *Input, index, sampleRate, channels int) *Output {
	o := &Output{
		input:      input,
		sampleRate: sampleRate,
		channels:   channels,
		index:      index,
		isInitial:  true,
		silence:    Threshold,
	}
	if e, ok := input.get(index); ok {
		o.buf = e.buf
		o.signal = e.signal
		o.silence = 0
		o.isInitial = false
	}
	return o
}

// NextSample returns the next PCM sample. The second return value is false
// only in the terminal state: the producer marked the stream finished and
// every queued segment has been emitted. Terminal is sticky.
func (o *Output) NextSample() (int16, bool) {
	for {
		if o.terminal {
			return 0, false
		}
		if o.buf != nil {
			if o.pos < len(o.buf.Samples) {
				s := o.buf.Samples[o.pos]
				o.pos++
				return s, true
			}
		} else if o.silence > 0 {
			o.silence--
			return 0, true
		}
		if !o.advance() {
			o.terminal = true
			return 0, false
		}
	}
}

// advance moves to the next segment, or to a silence filler when the
// producer is behind. It fires the end signal of the segment that just
// drained and the start signal of the one taking over.
func (o *Output) advance() bool {
	if o.signal != nil {
		trySend(o.signal, SignalEnd)
		o.signal = nil
	}

	next := o.index
	if !o.isInitial {
		next = o.index + 1
	}

	e, ok := o.input.get(next)
	if !ok {
		if o.input.IsFinished() {
			return false
		}
		o.buf = nil
		o.silence = Threshold
		return true
	}

	o.buf = e.buf
	o.pos = 0
	o.signal = e.signal
	o.index = next
	o.isInitial = false

	if o.signal != nil {
		trySend(o.signal, SignalStart)
	}
	return true
}

// Read fills p with little-endian s16 samples, adapting the queue to the
// byte-stream interface audio backends consume. It only reports io.EOF in
// the terminal state; while the queue is open it always makes progress.
func (o *Output) Read(p []byte) (int, error) {
	n := 0
	for n+1 < len(p) {
		s, ok := o.NextSample()
		if !ok {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		p[n] = byte(s)
		p[n+1] = byte(s >> 8)
		n += 2
	}
	return n, nil
}

// SampleRate reports the sample rate of the currently playing source.
func (o *Output) SampleRate() int {
	if o.buf != nil && o.buf.SampleRate > 0 {
		return o.buf.SampleRate
	}
	return o.sampleRate
}

// Channels reports the channel count of the currently playing source.
func (o *Output) Channels() int {
	if o.buf != nil && o.buf.Channels > 0 {
		return o.buf.Channels
	}
	return o.channels
}

// CurrentSpanLen reports the length of the next contiguous run of samples:
// the remainder of the current segment when non-zero, Threshold while the
// queue is empty and still open, otherwise Threshold.
func (o *Output) CurrentSpanLen() int {
	if o.buf != nil {
		if n := len(o.buf.Samples) - o.pos; n > 0 {
			return n
		}
	} else if o.silence > 0 {
		return o.silence
	}
	return Threshold
}

// Close tears down the consumer. Pending signal channels are closed so
// detached waiters observe shutdown instead of blocking forever.
func (o *Output) Close() error {
	o.terminal = true
	o.signal = nil
	o.input.closeSignals()
	return nil
}

// trySend delivers an event without blocking; the audio path must never
// wait on a listener.
func trySend(ch chan SignalEvent, ev SignalEvent) {
	select {
	case ch <- ev:
	default:
	}
}
