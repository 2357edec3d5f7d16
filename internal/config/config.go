// Package config loads the corpora configuration file.
//
// Configuration is a TOML file, by default ~/.corpora/config.toml,
// read once at startup into an explicit Config struct and passed to
// each component. Nothing reads ambient global state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/retry"
)

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".corpora", "config.toml"), nil
}

// Config is the full application configuration.
type Config struct {
	// DataDir holds the SQLite database. Defaults to ~/.corpora/data.
	DataDir string `toml:"data_dir"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`

	// Workers is the per-stage parallelism. Zero means automatic.
	Workers int `toml:"workers"`

	Sources     []Source    `toml:"sources"`
	Classifier  Classifier  `toml:"classifier"`
	Chroma      Chroma      `toml:"chroma"`
	Transcriber Transcriber `toml:"transcriber"`
	Retry       Retry       `toml:"retry"`
}

// Source configures one content source.
type Source struct {
	ID   string `toml:"id"`
	Type string `toml:"type"`
	Name string `toml:"name"`
	// Config holds connector-specific settings (path, folder_ids,
	// access_token, ...).
	Config map[string]string `toml:"config"`
}

// Classifier configures the LLM keep/discard judgment.
type Classifier struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Chroma configures the vector index backend.
type Chroma struct {
	URL        string `toml:"url"`
	Collection string `toml:"collection"`
}

// Transcriber configures media transcription. Disabled unless an API
// key is set; media files are skipped when disabled.
type Transcriber struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Retry configures the backoff schedule for external calls.
// Delays are in seconds; zero fields use the built-in defaults.
type Retry struct {
	MaxAttempts         int     `toml:"max_attempts"`
	InitialDelaySeconds float64 `toml:"initial_delay_seconds"`
	MaxDelaySeconds     float64 `toml:"max_delay_seconds"`
	Multiplier          float64 `toml:"multiplier"`
	Jitter              float64 `toml:"jitter"`
}

// Load reads and parses the config file at path. An empty path uses
// the default location. A missing file yields an empty Config, so
// commands that need no external services still run.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the full pipeline configuration. It is called by
// commands that touch external services, before any chunk is
// processed.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: no sources configured", domain.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("%w: source with empty id", domain.ErrInvalidInput)
		}
		if s.Type == "" {
			return fmt.Errorf("%w: source %s has no type", domain.ErrInvalidInput, s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate source id %s", domain.ErrInvalidInput, s.ID)
		}
		seen[s.ID] = true
	}

	if c.Classifier.APIKey == "" {
		return fmt.Errorf("%w: classifier.api_key is required", domain.ErrInvalidInput)
	}
	if c.Chroma.URL == "" {
		return fmt.Errorf("%w: chroma.url is required", domain.ErrInvalidInput)
	}

	if c.Retry.MaxAttempts < 0 || c.Retry.InitialDelaySeconds < 0 ||
		c.Retry.MaxDelaySeconds < 0 || c.Retry.Multiplier < 0 || c.Retry.Jitter < 0 {
		return fmt.Errorf("%w: retry settings must not be negative", domain.ErrInvalidInput)
	}

	return nil
}

// DomainSources converts the configured sources to domain values.
func (c *Config) DomainSources() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		cfg := s.Config
		if cfg == nil {
			cfg = map[string]string{}
		}
		out = append(out, domain.Source{
			ID:     s.ID,
			Type:   s.Type,
			Name:   s.Name,
			Config: cfg,
		})
	}
	return out
}

// RetryConfig converts the retry section to the executor's config,
// with zero fields falling back to the executor defaults.
func (c *Config) RetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: time.Duration(c.Retry.InitialDelaySeconds * float64(time.Second)),
		MaxDelay:     time.Duration(c.Retry.MaxDelaySeconds * float64(time.Second)),
		Multiplier:   c.Retry.Multiplier,
		Jitter:       c.Retry.Jitter,
	}
}

// TranscriberEnabled reports whether transcription is configured.
func (c *Config) TranscriberEnabled() bool {
	return c.Transcriber.APIKey != ""
}
