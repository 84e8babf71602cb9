package tts

import (
	"context"
	"sync"

	"github.com/novelterm/novelterm/tts/audioqueue"
)

// Chapter drives synthesis and playback of one chapter. It owns the
// per-sentence position state, so a reader can cancel mid-chapter and
// resume later from the sentence that was playing.
//
// The text list is fixed at construction. Synthesized PCM buffers are
// retained in segments so a resumed stream never re-synthesizes audio the
// queue already played.
type Chapter struct {
	texts []string
	synth Synthesizer

	mu          sync.Mutex
	rate        int
	segments    map[int]*audioqueue.Buffer
	activeIndex int
	cancel      context.CancelFunc
}

// NewChapter builds a chapter pipeline over pre-segmented sentence texts.
func NewChapter(texts []string, synth Synthesizer) *Chapter {
	return &Chapter{
		texts:    texts,
		synth:    synth,
		rate:     DefaultSampleRate,
		segments: make(map[int]*audioqueue.Buffer),
	}
}

// NewChapterFromText segments raw chapter text and builds the pipeline.
func NewChapterFromText(text string, limit int, synth Synthesizer) *Chapter {
	segs := Segment(text, limit)
	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = s.Text
	}
	return NewChapter(texts, synth)
}

// SetSampleRate sets the sample rate the audio queue announces to its
// sink. It must match what the synthesizer emits; call it before Stream.
func (c *Chapter) SetSampleRate(rate int) {
	if rate <= 0 {
		return
	}
	c.mu.Lock()
	c.rate = rate
	c.mu.Unlock()
}

// Texts returns the chapter's sentence list.
func (c *Chapter) Texts() []string {
	return c.texts
}

// ActiveIndex reports the index of the sentence currently due to play.
func (c *Chapter) ActiveIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeIndex
}

// Stream starts (or resumes) synthesis and returns the audio source plus a
// position channel. The channel carries the sentence index each time one
// begins or finishes playback; it is closed when the whole chapter has
// played. The caller must either consume the channel or Cancel the stream,
// or position waiters stay parked. onError receives per-sentence synthesis
// failures; the producer skips the failed sentence and keeps going.
//
// A previous stream, if still running, is cancelled first. Playback picks
// up at the sentence ActiveIndex points at.
func (c *Chapter) Stream(voice Voice, onError func(error)) (*audioqueue.Output, <-chan int) {
	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	start := c.activeIndex
	rate := c.rate
	c.mu.Unlock()

	in, out := audioqueue.New(rate, DefaultChannels)
	positions := make(chan int, 1)

	go c.produce(ctx, in, positions, voice, start, onError)
	return out, positions
}

// Cancel stops the producer. It is idempotent. Sentences already in the
// audio queue keep playing; stopping audio is the sink's job.
func (c *Chapter) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Chapter) produce(ctx context.Context, in *audioqueue.Input, positions chan<- int, voice Voice, start int, onError func(error)) {
	var waiters sync.WaitGroup

	announced := false
	for i, chunk := range c.texts[start:] {
		if ctx.Err() != nil {
			break
		}

		idx := start + i
		c.mu.Lock()
		buf := c.segments[idx]
		c.mu.Unlock()

		if buf == nil {
			var err error
			buf, _, err = c.synth.Synth(ctx, chunk, voice)
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				if onError != nil {
					onError(&SynthError{Index: idx, Text: chunk, Err: err})
				}
				continue
			}
			// Synthesis that completed despite a concurrent cancel still
			// gets queued; only new work is cut off.
			c.mu.Lock()
			c.segments[idx] = buf
			c.mu.Unlock()
		}

		sig := in.AppendWithSignal(buf)

		if !announced {
			announced = true
			positions <- start
		}

		waiters.Add(1)
		go func() {
			defer waiters.Done()
			for ev := range sig {
				if ev != audioqueue.SignalEnd {
					continue
				}
				c.mu.Lock()
				c.activeIndex++
				next := c.activeIndex
				c.mu.Unlock()
				select {
				case positions <- next:
				case <-ctx.Done():
				}
				return
			}
		}()
	}

	in.SetFinished(true)
	waiters.Wait()
	close(positions)
}
