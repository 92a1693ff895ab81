// Package config loads sound-effect cache settings from YAML.
//
//	sound:
//	  debug_sfxc: 2
//	  cache_size: 300000
//	  effects_path: sfx/
//	  compression: zstd
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meigma/sfxcache/internal/sfxtype"
)

// Config is the root configuration document.
type Config struct {
	Sound Sound `yaml:"sound"`
}

// Sound holds the sound-effect cache settings. Zero values mean "not set".
type Sound struct {
	// DebugSfxc is the cache verbosity level.
	DebugSfxc *int `yaml:"debug_sfxc"`

	// CacheSize is the byte budget of the raw effect cache.
	CacheSize int64 `yaml:"cache_size"`

	// EffectsPath is the effects root directory.
	EffectsPath string `yaml:"effects_path"`

	// Compression names the effect codec: none, zstd or lz4.
	Compression string `yaml:"compression"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses a YAML configuration document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if cfg.Sound.CacheSize < 0 {
		return nil, fmt.Errorf("sound.cache_size: must be >= 0, got %d", cfg.Sound.CacheSize)
	}
	if _, err := cfg.CompressionMode(); err != nil {
		return nil, fmt.Errorf("sound.compression: %w", err)
	}
	return cfg, nil
}

// DebugLevel returns the configured debug level and whether one was set.
// A nil Config has no debug level.
func (c *Config) DebugLevel() (int, bool) {
	if c == nil || c.Sound.DebugSfxc == nil {
		return 0, false
	}
	return *c.Sound.DebugSfxc, true
}

// CompressionMode returns the configured codec, zstd when unset.
func (c *Config) CompressionMode() (sfxtype.Compression, error) {
	if c == nil {
		return sfxtype.CompressionZstd, nil
	}
	return sfxtype.ParseCompression(c.Sound.Compression)
}
