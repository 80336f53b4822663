// Package config loads the broadcast channel's configuration options: the
// region name, buffer capacity, and the writer/reader tunables from
// spec §6. Same shape as the teacher's own config loader — a TOML file
// read with os.ReadFile and unmarshaled with go-toml/v2 — with an
// optional .env overlay for the handful of options an operator wants to
// flip without touching the on-disk file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultBufferCapacity matches region.DefaultBufferCapacity (512 KiB).
	DefaultBufferCapacity = 512 * 1024
	// DefaultReaderMaxRetryOnInterleave matches the spec's default of 4.
	DefaultReaderMaxRetryOnInterleave = 4
)

// TopicConfig carries per-topic poll-cadence hints. They are parsed but
// not read anywhere in this module: the library has no notion of per-topic
// rates, and the demo binaries use fixed tick intervals.
type TopicConfig struct {
	PollIntervalMs int `toml:"poll_interval_ms"`
}

// Config is the broadcast channel's configuration (spec §6).
type Config struct {
	// Name is the shared-memory region's OS-scoped identifier. Required.
	Name string `toml:"name"`
	// BufferCapacity is the per-slot payload capacity in bytes.
	BufferCapacity uint32 `toml:"buffer_capacity"`
	// WriterUnlinkOnClose makes a clean writer shutdown unlink the region.
	WriterUnlinkOnClose bool `toml:"writer_unlink_on_close"`
	// ReaderMaxRetryOnInterleave bounds Poll's interleave-retry loop.
	ReaderMaxRetryOnInterleave int `toml:"reader_max_retry_on_interleave"`
	// Topics holds optional per-topic poll-rate hints. Nothing in this
	// module reads them; the demo binaries poll and publish on fixed ticks.
	Topics map[string]TopicConfig `toml:"topics"`
}

// Load reads path as TOML, applies a best-effort ".env" overlay and
// PNG_SHM_* environment overrides, fills in defaults, and validates the
// result.
func Load(path string) (*Config, error) {
	// Best effort: most deployments have no .env file at all.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(&c)
	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("PNG_SHM_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("PNG_SHM_BUFFER_CAPACITY"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.BufferCapacity = uint32(n)
		}
	}
	if v := os.Getenv("PNG_SHM_WRITER_UNLINK_ON_CLOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.WriterUnlinkOnClose = b
		}
	}
	if v := os.Getenv("PNG_SHM_READER_MAX_RETRY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ReaderMaxRetryOnInterleave = n
		}
	}
}

func applyDefaults(c *Config) {
	if c.BufferCapacity == 0 {
		c.BufferCapacity = DefaultBufferCapacity
	}
	if c.ReaderMaxRetryOnInterleave == 0 {
		c.ReaderMaxRetryOnInterleave = DefaultReaderMaxRetryOnInterleave
	}
}

// Validate checks the required fields are present.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("config: name is required")
	}
	return nil
}
