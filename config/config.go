// Package config loads the pipeline configuration from YAML plus API keys
// from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingProfile        = errors.New("profile is required")
	ErrInvalidMaxVideos      = errors.New("crawl.max_videos must be non-negative")
	ErrInvalidSleep          = errors.New("sleep_ms must be non-negative")
	ErrInvalidMaxPages       = errors.New("crawl.walker.max_pages must be at least 1")
	ErrInvalidStallLimit     = errors.New("crawl.walker.stall_limit must be at least 1")
	ErrInvalidBackoffWindow  = errors.New("crawl.walker.backoff_window_ms must be positive")
	ErrInvalidFloorCursor    = errors.New("crawl.walker.floor_cursor_ms must be non-negative")
	ErrInvalidBatchSize      = errors.New("embedding.batch_size must be at least 1")
	ErrInvalidTopK           = errors.New("answer.top_k must be non-negative")
	ErrInvalidMaxTranscripts = errors.New("transcription.max must be non-negative")
	ErrInvalidPort           = errors.New("server.port must be between 1 and 65535")
)

// Config is the complete pipeline configuration.
type Config struct {
	DataRoot      string              `yaml:"data_root"`
	Profile       string              `yaml:"profile"`
	Verbose       bool                `yaml:"verbose"`
	Crawl         CrawlConfig         `yaml:"crawl"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Answer        AnswerConfig        `yaml:"answer"`
	Server        ServerConfig        `yaml:"server"`
}

// CrawlConfig controls the capture stage.
type CrawlConfig struct {
	MaxVideos     int          `yaml:"max_videos"`
	SkipExisting  bool         `yaml:"skip_existing"`
	WriteCaptions bool         `yaml:"write_captions"`
	SleepMs       int          `yaml:"sleep_ms"`
	Resume        bool         `yaml:"resume"`
	Walker        WalkerConfig `yaml:"walker"`
}

// WalkerConfig tunes the feed pagination heuristics.
type WalkerConfig struct {
	MaxPages        int   `yaml:"max_pages"`
	StallLimit      int   `yaml:"stall_limit"`
	BackoffWindowMs int64 `yaml:"backoff_window_ms"`
	FloorCursorMs   int64 `yaml:"floor_cursor_ms"`
}

// TranscriptionConfig controls the dataset build stage.
type TranscriptionConfig struct {
	Model        string `yaml:"model"`
	Disabled     bool   `yaml:"disabled"`
	SkipExisting bool   `yaml:"skip_existing"`
	Max          int    `yaml:"max"`
	SleepMs      int    `yaml:"sleep_ms"`
}

// EmbeddingConfig controls the vector index stage.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// AnswerConfig sets the answering defaults.
type AnswerConfig struct {
	Model string `yaml:"model"`
	TopK  int    `yaml:"top_k"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns the configuration the pipeline ships with.
func Default() *Config {
	return &Config{
		DataRoot: "data",
		Crawl: CrawlConfig{
			SkipExisting:  true,
			WriteCaptions: true,
			Walker: WalkerConfig{
				MaxPages:        200,
				StallLimit:      3,
				BackoffWindowMs: 7 * 86400000,
				FloorCursorMs:   1472706000000,
			},
		},
		Transcription: TranscriptionConfig{
			Model:        "gpt-4o-transcribe",
			SkipExisting: true,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-large",
			BatchSize: 25,
		},
		Answer: AnswerConfig{
			Model: "gpt-4.1",
			TopK:  30,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// Load reads a YAML configuration file. Absent fields keep their defaults.
// Callers run Validate after applying any command-line overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no stage can run with.
func (c *Config) Validate() error {
	if c.Profile == "" {
		return ErrMissingProfile
	}
	if c.Crawl.MaxVideos < 0 {
		return ErrInvalidMaxVideos
	}
	if c.Crawl.SleepMs < 0 || c.Transcription.SleepMs < 0 {
		return ErrInvalidSleep
	}
	if c.Crawl.Walker.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.Crawl.Walker.StallLimit < 1 {
		return ErrInvalidStallLimit
	}
	if c.Crawl.Walker.BackoffWindowMs <= 0 {
		return ErrInvalidBackoffWindow
	}
	if c.Crawl.Walker.FloorCursorMs < 0 {
		return ErrInvalidFloorCursor
	}
	if c.Embedding.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if c.Answer.TopK < 0 {
		return ErrInvalidTopK
	}
	if c.Transcription.Max < 0 {
		return ErrInvalidMaxTranscripts
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// CrawlSleep returns the per-item crawl pause as a duration.
func (c *Config) CrawlSleep() time.Duration {
	return time.Duration(c.Crawl.SleepMs) * time.Millisecond
}

// TranscriptionSleep returns the per-request transcription pause.
func (c *Config) TranscriptionSleep() time.Duration {
	return time.Duration(c.Transcription.SleepMs) * time.Millisecond
}

// Keys are the provider credentials, read from the environment rather than
// the config file so they never land in version control.
type Keys struct {
	OpenAI    string
	Anthropic string
}

// LoadKeys pulls API keys from the environment. OpenAI is required by every
// stage that talks to a model; Anthropic only by Claude answering.
func LoadKeys() (Keys, error) {
	k := Keys{
		OpenAI:    os.Getenv("OPENAI_API_KEY"),
		Anthropic: os.Getenv("ANTHROPIC_API_KEY"),
	}
	if k.OpenAI == "" {
		return k, errors.New("OPENAI_API_KEY not set")
	}
	return k, nil
}
