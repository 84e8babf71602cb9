package tts

import (
	"context"
	"time"

	"github.com/novelterm/novelterm/tts/audioqueue"
)

// DefaultSampleRate is the sample rate synthesizers are expected to emit.
const DefaultSampleRate = 24000

// DefaultChannels is the channel count synthesizers are expected to emit.
const DefaultChannels = 1

// Voice identifies a synthesizer voice, in whatever naming scheme the
// engine uses ("zh-CN-XiaoxiaoNeural", a piper model name, and so on).
type Voice string

// Synthesizer converts one text segment into PCM audio. Implementations
// must be safe for sequential reuse; the chapter producer calls Synth one
// segment at a time. The returned duration is the wall-clock synthesis
// time, reported for diagnostics.
type Synthesizer interface {
	Synth(ctx context.Context, text string, voice Voice) (*audioqueue.Buffer, time.Duration, error)
}
