package directory

import (
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

// manifest is the effects.yaml document:
//
//	effects:
//	  - name: explosion
//	    file: weapons/explosion.zst
type manifest struct {
	Effects []manifestEntry `yaml:"effects"`
}

type manifestEntry struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// readManifest returns the manifest's effects. The error wraps
// fs.ErrNotExist when the root has no manifest.
func (d *Directory) readManifest() ([]effect, error) {
	manifestPath := path.Join(d.root, ManifestName)
	data, err := fs.ReadFile(d.fsys, manifestPath)
	if err != nil {
		return nil, err
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", manifestPath, err)
	}

	effects := make([]effect, 0, len(m.Effects))
	for i, entry := range m.Effects {
		if entry.File == "" {
			return nil, fmt.Errorf("manifest %s: entry %d has no file", manifestPath, i)
		}
		name := CleanName(entry.Name)
		if entry.Name == "" {
			name = Normalize(entry.File)
		}
		if name == "" {
			return nil, fmt.Errorf("manifest %s: entry %d has an empty name", manifestPath, i)
		}
		p := path.Join(d.root, entry.File)
		if !fs.ValidPath(p) {
			return nil, fmt.Errorf("manifest %s: entry %q: %w", manifestPath, name, fs.ErrInvalid)
		}
		effects = append(effects, effect{name: name, path: p})
	}
	if d.debugLevel >= 2 {
		d.logger.Info("effect manifest loaded", "path", manifestPath, "effects", len(effects))
	}
	return effects, nil
}
