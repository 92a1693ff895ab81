package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/sfxcache"
	"github.com/meigma/sfxcache/internal/testutil"
)

func writeEffects(t *testing.T, comp sfxcache.Compression, effects map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, f := range testutil.BuildEffects(t, comp, "", effects) {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, f.Data, 0o600))
	}
	return dir
}

func TestRunList(t *testing.T) {
	t.Parallel()

	dir := writeEffects(t, sfxcache.CompressionZstd, map[string][]byte{
		"explosion": testutil.PCM(4096, 1),
		"ui/click":  testutil.PCM(64, 2),
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-root", dir, "-list", "-v", "0"}, &stdout, &stderr))
	assert.Equal(t, "explosion\t4096\nui/click\t64\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRunListLargerThanBudget(t *testing.T) {
	t.Parallel()

	dir := writeEffects(t, sfxcache.CompressionNone, map[string][]byte{
		"big":  testutil.PCM(400000, 1),
		"tiny": testutil.PCM(16, 2),
	})

	var stdout, stderr bytes.Buffer
	err := run([]string{"-root", dir, "-compression", "none", "-budget", "300000", "-list", "-stats"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "big\t400000\ntiny\t16\n", stdout.String())
	assert.Contains(t, stderr.String(), "misses=0", "listing loads nothing")
}

func TestRunCat(t *testing.T) {
	t.Parallel()

	a, b := testutil.PCM(5000, 1), testutil.PCM(300, 2)
	dir := writeEffects(t, sfxcache.CompressionLZ4, map[string][]byte{"a": a, "b": b})

	var stdout, stderr bytes.Buffer
	err := run([]string{"-root", dir, "-compression", "lz4", "-stats", "a", "B"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte{}, a...), b...), stdout.Bytes())
	assert.Contains(t, stderr.String(), "misses=2")
}

func TestRunConfig(t *testing.T) {
	t.Parallel()

	dir := writeEffects(t, sfxcache.CompressionNone, map[string][]byte{"beep": testutil.PCM(10, 1)})
	cfgPath := filepath.Join(t.TempDir(), "sound.yaml")
	cfg := "sound:\n  debug_sfxc: 3\n  cache_size: 400000\n  effects_path: " + dir + "\n  compression: none\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-config", cfgPath, "beep"}, &stdout, &stderr))
	assert.Equal(t, testutil.PCM(10, 1), stdout.Bytes())
	assert.Contains(t, stderr.String(), "effect opened")
	assert.Contains(t, stderr.String(), "budget=400000")
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	dir := writeEffects(t, sfxcache.CompressionZstd, map[string][]byte{"beep": testutil.PCM(10, 1)})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no effects", args: []string{"-root", dir}, want: "no effects named"},
		{name: "unknown effect", args: []string{"-root", dir, "-v", "0", "missing"}, want: "not found"},
		{name: "small budget", args: []string{"-root", dir, "-budget", "1024", "beep"}, want: "too small"},
		{name: "bad codec", args: []string{"-root", dir, "-compression", "gzip", "beep"}, want: "gzip"},
		{name: "bad config", args: []string{"-config", filepath.Join(dir, "nope.yaml"), "beep"}, want: "load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q", err)
		})
	}
}
