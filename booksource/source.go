// Package booksource reads declarative book source definitions and runs
// their extraction rules against live sites: searching, listing explore
// categories, and pulling book metadata, chapter lists, and chapter text.
package booksource

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	jsoniter "github.com/json-iterator/go"

	"github.com/novelterm/novelterm/booksource/httpclient"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RateLimit caps request throughput: a bucket of MaxCount tokens refilled
// one token every FillDuration seconds.
type RateLimit struct {
	MaxCount     int     `json:"maxCount"`
	FillDuration float64 `json:"fillDuration"`
}

// HTTPConfig carries per-source transport settings. Timeout is in
// milliseconds; zero means the client default.
type HTTPConfig struct {
	Timeout   int64             `json:"timeout"`
	Header    map[string]string `json:"header"`
	RateLimit *RateLimit        `json:"rateLimit"`
}

// BookSource is one source definition as distributed in JSON form.
type BookSource struct {
	BookSourceName  string `json:"bookSourceName"`
	BookSourceGroup string `json:"bookSourceGroup"`
	BookSourceURL   string `json:"bookSourceUrl"`
	LastUpdateTime  int64  `json:"lastUpdateTime"`

	SearchURL       string           `json:"searchUrl"`
	ExploreURL      string           `json:"exploreUrl"`
	RuleExploreItem *RuleExploreItem `json:"ruleExploreItem"`

	// Header is a JSON-encoded header map; RespondTime a timeout in
	// milliseconds. Both are legacy aliases overlaying HTTPConfig.
	Header      string `json:"header"`
	RespondTime int64  `json:"respondTime"`

	HTTPConfig HTTPConfig `json:"httpConfig"`

	RuleBookInfo RuleBookInfo `json:"ruleBookInfo"`
	RuleContent  RuleContent  `json:"ruleContent"`
	RuleExplore  *RuleSearch  `json:"ruleExplore"`
	RuleSearch   RuleSearch   `json:"ruleSearch"`
	RuleToc      RuleToc      `json:"ruleToc"`
}

// Load decodes a source document holding either a single source object or
// an array of them. Array entries that fail to decode or validate are
// skipped with a warning so one broken source cannot poison a bundle.
func Load(data []byte) ([]*BookSource, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidSource)
	}

	switch trimmed[0] {
	case '{':
		var src BookSource
		if err := json.Unmarshal(data, &src); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		if err := src.validate(); err != nil {
			return nil, err
		}
		return []*BookSource{&src}, nil

	case '[':
		var raws []jsoniter.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		sources := make([]*BookSource, 0, len(raws))
		for i, raw := range raws {
			var src BookSource
			if err := json.Unmarshal(raw, &src); err != nil {
				log.Warn("Skipping malformed book source", "index", i, "error", err)
				continue
			}
			if err := src.validate(); err != nil {
				log.Warn("Skipping invalid book source", "index", i, "error", err)
				continue
			}
			sources = append(sources, &src)
		}
		return sources, nil

	default:
		return nil, fmt.Errorf("%w: document is not an object or array", ErrInvalidSource)
	}
}

// LoadFile reads and decodes a source document from disk.
func LoadFile(path string) ([]*BookSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

func (s *BookSource) validate() error {
	switch {
	case s.BookSourceName == "":
		return fmt.Errorf("%w: missing bookSourceName", ErrInvalidSource)
	case s.BookSourceURL == "":
		return fmt.Errorf("%w: missing bookSourceUrl", ErrInvalidSource)
	case s.SearchURL == "":
		return fmt.Errorf("%w: missing searchUrl", ErrInvalidSource)
	}
	return nil
}

// httpOptions folds the legacy header and respondTime fields into the
// structured HTTP config and builds the client options from the result.
func (s *BookSource) httpOptions() (httpclient.Options, error) {
	cfg := s.HTTPConfig
	if s.Header != "" {
		var header map[string]string
		if err := json.UnmarshalFromString(s.Header, &header); err != nil {
			return httpclient.Options{}, fmt.Errorf("%w: header: %v", ErrInvalidSource, err)
		}
		cfg.Header = header
	}
	if s.RespondTime > 0 {
		cfg.Timeout = s.RespondTime
	}

	opts := httpclient.Options{
		Headers: cfg.Header,
		Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
	}
	if rl := cfg.RateLimit; rl != nil {
		fill := time.Duration(rl.FillDuration * float64(time.Second))
		opts.Rate = httpclient.NewTokenBucket(rl.MaxCount, fill)
	}
	return opts, nil
}
