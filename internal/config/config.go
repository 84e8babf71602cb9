// Package config loads novelterm settings: a YAML config file found via
// the platform config directories, overlaid by NOVELTERM_* environment
// variables.
package config

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	// SourcesPath points at a book source JSON document, either a single
	// object or an array of sources.
	SourcesPath string `env:"NOVELTERM_SOURCES"`

	// Source selects a loaded source by bookSourceName.
	Source string `env:"NOVELTERM_SOURCE"`

	Engine       string `env:"NOVELTERM_TTS_ENGINE" envDefault:"piper"`
	Voice        string `env:"NOVELTERM_VOICE"`
	PiperBinary  string `env:"NOVELTERM_PIPER_BINARY" envDefault:"piper"`
	PiperModel   string `env:"NOVELTERM_PIPER_MODEL"`
	ModelDir     string `env:"NOVELTERM_MODEL_DIR"`
	SegmentLimit int    `env:"NOVELTERM_SEGMENT_LIMIT" envDefault:"120"`
	SampleRate   int    `env:"NOVELTERM_SAMPLE_RATE" envDefault:"22050"`

	// CacheSize bounds the in-memory chapter cache, in bytes.
	CacheSize int64 `env:"NOVELTERM_CACHE_SIZE" envDefault:"8388608"`

	Debug bool `env:"DEBUG"`
}

// InitViper registers the config file search paths and defaults. Mirrors
// viper keys onto NOVELTERM_* env vars as well, so either spelling works.
func InitViper() {
	scope := gap.NewScope(gap.User, "novelterm")
	if dirs, err := scope.ConfigDirs(); err == nil {
		for _, d := range dirs {
			viper.AddConfigPath(d)
		}
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		viper.AddConfigPath(filepath.Join(c, "novelterm"))
	}

	viper.SetConfigName("novelterm")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("novelterm")
	viper.AutomaticEnv()

	viper.SetDefault("sources", "")
	viper.SetDefault("source", "")
	viper.SetDefault("tts.engine", "piper")
	viper.SetDefault("tts.voice", "")
	viper.SetDefault("tts.piper.binary", "piper")
	viper.SetDefault("tts.piper.model", "")
	viper.SetDefault("tts.model_dir", "")
	viper.SetDefault("tts.segment_limit", 120)
	viper.SetDefault("tts.sample_rate", 22050)
	viper.SetDefault("cache.size", int64(8<<20))
}

// Load resolves the configuration: config file values first, environment
// variables on top.
func Load() (Config, error) {
	cfg := Config{
		SourcesPath:  viper.GetString("sources"),
		Source:       viper.GetString("source"),
		Engine:       viper.GetString("tts.engine"),
		Voice:        viper.GetString("tts.voice"),
		PiperBinary:  viper.GetString("tts.piper.binary"),
		PiperModel:   viper.GetString("tts.piper.model"),
		ModelDir:     viper.GetString("tts.model_dir"),
		SegmentLimit: viper.GetInt("tts.segment_limit"),
		SampleRate:   viper.GetInt("tts.sample_rate"),
		CacheSize:    viper.GetInt64("cache.size"),
	}

	overlay, err := env.ParseAs[Config]()
	if err != nil {
		return cfg, err
	}
	if overlay.SourcesPath != "" {
		cfg.SourcesPath = overlay.SourcesPath
	}
	if overlay.Source != "" {
		cfg.Source = overlay.Source
	}
	if v, ok := os.LookupEnv("NOVELTERM_TTS_ENGINE"); ok && v != "" {
		cfg.Engine = v
	}
	if overlay.Voice != "" {
		cfg.Voice = overlay.Voice
	}
	if v, ok := os.LookupEnv("NOVELTERM_PIPER_BINARY"); ok && v != "" {
		cfg.PiperBinary = v
	}
	if overlay.PiperModel != "" {
		cfg.PiperModel = overlay.PiperModel
	}
	if overlay.ModelDir != "" {
		cfg.ModelDir = overlay.ModelDir
	}
	if _, ok := os.LookupEnv("NOVELTERM_SEGMENT_LIMIT"); ok {
		cfg.SegmentLimit = overlay.SegmentLimit
	}
	if _, ok := os.LookupEnv("NOVELTERM_SAMPLE_RATE"); ok {
		cfg.SampleRate = overlay.SampleRate
	}
	if _, ok := os.LookupEnv("NOVELTERM_CACHE_SIZE"); ok {
		cfg.CacheSize = overlay.CacheSize
	}
	cfg.Debug = overlay.Debug
	return cfg, nil
}
