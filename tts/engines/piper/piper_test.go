package piper

import (
	"context"
	"errors"
	"testing"

	"github.com/novelterm/novelterm/tts"
)

func TestModelPathResolution(t *testing.T) {
	tests := []struct {
		name     string
		modelDir string
		voice    tts.Voice
		want     string
	}{
		{"bare name", "/models", "zh_CN-huayan-medium", "/models/zh_CN-huayan-medium.onnx"},
		{"with extension", "/models", "voice.onnx", "/models/voice.onnx"},
		{"absolute path passes through", "/models", "/opt/voices/a.onnx", "/opt/voices/a.onnx"},
		{"no model dir", "", "voice", "voice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Config{ModelDir: tt.modelDir})
			got, err := e.modelPath(tt.voice)
			if err != nil {
				t.Fatalf("modelPath(%q) error: %v", tt.voice, err)
			}
			if got != tt.want {
				t.Errorf("modelPath(%q) = %q, want %q", tt.voice, got, tt.want)
			}
		})
	}
}

func TestModelPathEmptyVoice(t *testing.T) {
	e := New(Config{})
	if _, err := e.modelPath(""); !errors.Is(err, tts.ErrInvalidVoice) {
		t.Errorf("modelPath(\"\") error = %v, want ErrInvalidVoice", err)
	}
}

func TestSynthRejectsEmptyText(t *testing.T) {
	e := New(Config{})
	_, _, err := e.Synth(context.Background(), "   ", "voice")
	if !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("Synth with blank text error = %v, want ErrEmptyText", err)
	}
}

func TestNewDefaults(t *testing.T) {
	e := New(Config{})
	if e.cfg.BinaryPath != "piper" {
		t.Errorf("default binary = %q, want piper", e.cfg.BinaryPath)
	}
	if e.cfg.SampleRate != tts.DefaultSampleRate {
		t.Errorf("default sample rate = %d, want %d", e.cfg.SampleRate, tts.DefaultSampleRate)
	}
}
