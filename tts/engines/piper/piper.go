// Package piper synthesizes speech with a local piper binary.
package piper

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/novelterm/novelterm/tts"
	"github.com/novelterm/novelterm/tts/audioqueue"
)

// Config controls how the piper process is invoked.
type Config struct {
	// BinaryPath is the piper executable. Defaults to "piper" on PATH.
	BinaryPath string

	// ModelDir holds the .onnx voice models. A voice name is resolved to
	// ModelDir/<voice>.onnx; a voice containing a path separator is used
	// verbatim.
	ModelDir string

	// SampleRate of the raw output. Piper models declare their own rate;
	// this must match the model in use. Defaults to tts.DefaultSampleRate.
	SampleRate int
}

// Engine implements tts.Synthesizer by running piper once per segment
// with --output-raw and collecting the s16le PCM from stdout. One process
// per call keeps cancellation simple: killing the process is the abort.
type Engine struct {
	cfg Config
}

// New creates a piper-backed synthesizer.
func New(cfg Config) *Engine {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "piper"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = tts.DefaultSampleRate
	}
	return &Engine{cfg: cfg}
}

// Synth runs piper over text and returns the decoded PCM.
func (e *Engine) Synth(ctx context.Context, text string, voice tts.Voice) (*audioqueue.Buffer, time.Duration, error) {
	if strings.TrimSpace(text) == "" {
		return nil, 0, tts.ErrEmptyText
	}
	model, err := e.modelPath(voice)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, e.cfg.BinaryPath, "--model", model, "--output-raw")
	cmd.Stdin = strings.NewReader(text + "\n")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, 0, fmt.Errorf("%w: %s: %s", tts.ErrSynthFailed, err, msg)
		}
		return nil, 0, fmt.Errorf("%w: %s", tts.ErrSynthFailed, err)
	}

	raw := stdout.Bytes()
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}

	buf := &audioqueue.Buffer{
		Samples:    samples,
		SampleRate: e.cfg.SampleRate,
		Channels:   tts.DefaultChannels,
	}
	return buf, time.Since(start), nil
}

func (e *Engine) modelPath(voice tts.Voice) (string, error) {
	name := string(voice)
	if name == "" {
		return "", tts.ErrInvalidVoice
	}
	if strings.ContainsRune(name, '/') || e.cfg.ModelDir == "" {
		return name, nil
	}
	if !strings.HasSuffix(name, ".onnx") {
		name += ".onnx"
	}
	return e.cfg.ModelDir + "/" + name, nil
}

// Available reports whether the piper binary can be found.
func (e *Engine) Available() bool {
	_, err := exec.LookPath(e.cfg.BinaryPath)
	return err == nil
}
