// Package audio plays queue output on the system audio device via oto.
package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/novelterm/novelterm/tts/audioqueue"
)

// Player errors.
var (
	ErrPlayerClosed = errors.New("audio player is closed")
	ErrNotPlaying   = errors.New("no audio is playing")
)

// Player owns the oto context and plays one queue output at a time. The
// context is created once and reused; oto allows only a single context
// per process.
type Player struct {
	ctx *oto.Context

	mu      sync.Mutex
	current *oto.Player
	source  *audioqueue.Output
	closed  bool
}

// NewPlayer opens the audio device for the given PCM format and blocks
// until the device is ready.
func NewPlayer(sampleRate, channels int) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready
	return &Player{ctx: ctx}, nil
}

// Play starts pulling samples from out. Any previous playback is stopped
// first; its queue output is closed so detached signal waiters unblock.
func (p *Player) Play(out *audioqueue.Output) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPlayerClosed
	}

	p.stopLocked()

	player := p.ctx.NewPlayer(out)
	p.current = player
	p.source = out
	player.Play()
	return nil
}

// Pause suspends playback. The queue keeps accepting segments.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNotPlaying
	}
	p.current.Pause()
	return nil
}

// Resume continues paused playback.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNotPlaying
	}
	p.current.Play()
	return nil
}

// Stop halts playback and tears down the current queue output.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *Player) stopLocked() {
	if p.current != nil {
		p.current.Pause()
		p.current.Close()
		p.current = nil
	}
	if p.source != nil {
		p.source.Close()
		p.source = nil
	}
}

// IsPlaying reports whether the device is consuming samples.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil && p.current.IsPlaying()
}

// SetVolume adjusts playback volume in [0, 1].
func (p *Player) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return fmt.Errorf("volume must be in [0,1], got %f", volume)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.SetVolume(volume)
	}
	return nil
}

// Wait blocks until the current source has drained and the device has
// played out its buffer, polling because oto exposes no completion signal.
func (p *Player) Wait() {
	for {
		p.mu.Lock()
		current := p.current
		p.mu.Unlock()
		if current == nil || !current.IsPlaying() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// Close stops playback and marks the player unusable. The oto context has
// no close operation; it is released with the process.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	return nil
}
