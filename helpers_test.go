package sfxcache

import (
	"os"
	"path/filepath"

	"github.com/meigma/sfxcache/cache"
)

func writeFile(dir, name string, data []byte) error {
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func errPinned() error { return cache.ErrPinned }
