package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/sfxcache/internal/sfxtype"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
sound:
  debug_sfxc: 3
  cache_size: 300000
  effects_path: sfx/
  compression: lz4
`))
	require.NoError(t, err)

	level, ok := cfg.DebugLevel()
	assert.True(t, ok)
	assert.Equal(t, 3, level)
	assert.Equal(t, int64(300000), cfg.Sound.CacheSize)
	assert.Equal(t, "sfx/", cfg.Sound.EffectsPath)

	c, err := cfg.CompressionMode()
	require.NoError(t, err)
	assert.Equal(t, sfxtype.CompressionLZ4, c)
}

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{"", "sound: {}\n"} {
		cfg, err := Parse([]byte(doc))
		require.NoError(t, err)

		_, ok := cfg.DebugLevel()
		assert.False(t, ok, "missing debug level is not an error")

		c, err := cfg.CompressionMode()
		require.NoError(t, err)
		assert.Equal(t, sfxtype.CompressionZstd, c)
	}
}

func TestParseDebugZero(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("sound:\n  debug_sfxc: 0\n"))
	require.NoError(t, err)
	level, ok := cfg.DebugLevel()
	assert.True(t, ok)
	assert.Zero(t, level)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown key":      "sound:\n  volume: 11\n",
		"negative size":    "sound:\n  cache_size: -1\n",
		"bad compression":  "sound:\n  compression: mp3\n",
		"not yaml":         "sound: [",
		"wrong debug type": "sound:\n  debug_sfxc: loud\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestNilConfig(t *testing.T) {
	t.Parallel()

	var cfg *Config
	_, ok := cfg.DebugLevel()
	assert.False(t, ok)
	c, err := cfg.CompressionMode()
	require.NoError(t, err)
	assert.Equal(t, sfxtype.CompressionZstd, c)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sound.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sound:\n  debug_sfxc: 2\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	level, ok := cfg.DebugLevel()
	assert.True(t, ok)
	assert.Equal(t, 2, level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
