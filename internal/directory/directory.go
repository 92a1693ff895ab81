// Package directory catalogs the sound effects available under a root.
//
// A directory is built once: from an effects.yaml manifest when the root has
// one, otherwise by walking the root for files carrying the codec's
// extension. Effects are addressed by tag, the index of the effect in the
// name-sorted catalog.
package directory

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/sfxcache/internal/decode"
	"github.com/meigma/sfxcache/internal/sfxtype"
)

// ManifestName is the manifest file looked up at the directory root.
const ManifestName = "effects.yaml"

// DefaultProbeConcurrency bounds concurrent size probes while building.
const DefaultProbeConcurrency = 4

type effect struct {
	name        string
	path        string
	rawSize     int64
	decodedSize int64
}

// Directory maps effect names to tags and tags to effect metadata.
// It is immutable once built, apart from Close.
type Directory struct {
	fsys        fs.FS
	root        string
	compression sfxtype.Compression
	effects     []effect
	closed      bool

	pool       *decode.Pool
	probe      int
	debugLevel int
	logger     *slog.Logger
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the logger for build events.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) {
		d.logger = logger
	}
}

// WithDebugLevel sets the verbosity; 3 and above logs every effect found.
func WithDebugLevel(level int) Option {
	return func(d *Directory) {
		d.debugLevel = level
	}
}

// WithProbeConcurrency bounds concurrent size probes. Values <= 0 select
// DefaultProbeConcurrency.
func WithProbeConcurrency(n int) Option {
	return func(d *Directory) {
		d.probe = n
	}
}

// WithPool shares a decoder pool for decoded-size probing.
func WithPool(p *decode.Pool) Option {
	return func(d *Directory) {
		d.pool = p
	}
}

// Open builds the directory for the effects stored under root in fsys.
// An empty root selects the root of fsys.
func Open(fsys fs.FS, root string, c sfxtype.Compression, opts ...Option) (*Directory, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", sfxtype.ErrUnsupportedCompression, c)
	}
	root = cleanRoot(root)
	if !fs.ValidPath(root) {
		return nil, fmt.Errorf("directory %q: %w", root, fs.ErrInvalid)
	}

	d := &Directory{
		fsys:        fsys,
		root:        root,
		compression: c,
		debugLevel:  1,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.probe <= 0 {
		d.probe = DefaultProbeConcurrency
	}
	if d.pool == nil {
		d.pool = decode.NewPool(0)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}

	effects, err := d.list()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(effects, func(a, b effect) int {
		return strings.Compare(a.name, b.name)
	})
	for i := 1; i < len(effects); i++ {
		if effects[i].name == effects[i-1].name {
			return nil, fmt.Errorf("directory %q: duplicate effect %q (%s, %s)",
				root, effects[i].name, effects[i-1].path, effects[i].path)
		}
	}
	if err := d.probeSizes(effects); err != nil {
		return nil, err
	}

	d.effects = effects
	if d.debugLevel >= 2 {
		d.logger.Info("effect directory built", "root", root, "compression", c, "effects", len(effects))
	}
	return d, nil
}

// list returns the unsorted effects from the manifest or a directory walk.
func (d *Directory) list() ([]effect, error) {
	effects, err := d.readManifest()
	if err == nil {
		return effects, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	ext := d.compression.Ext()
	err = fs.WalkDir(d.fsys, d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(path.Ext(p), ext) {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, d.root), "/")
		if d.root == "." {
			rel = p
		}
		name := Normalize(rel)
		if name == "" {
			return nil
		}
		effects = append(effects, effect{name: name, path: p})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("directory %q: %w", d.root, err)
	}
	return effects, nil
}

// probeSizes fills in raw and decoded sizes, reading files in parallel.
func (d *Directory) probeSizes(effects []effect) error {
	var g errgroup.Group
	g.SetLimit(d.probe)
	for i := range effects {
		e := &effects[i]
		g.Go(func() error {
			info, err := fs.Stat(d.fsys, e.path)
			if err != nil {
				return fmt.Errorf("effect %q: %w", e.name, err)
			}
			if !info.Mode().IsRegular() {
				return fmt.Errorf("effect %q: %s is not a regular file", e.name, e.path)
			}
			e.rawSize = info.Size()

			if d.compression == sfxtype.CompressionNone {
				e.decodedSize = e.rawSize
			} else {
				raw, err := fs.ReadFile(d.fsys, e.path)
				if err != nil {
					return fmt.Errorf("effect %q: %w", e.name, err)
				}
				if e.decodedSize, err = d.pool.DecodedSize(d.compression, raw); err != nil {
					return fmt.Errorf("effect %q: %w", e.name, err)
				}
			}
			if d.debugLevel >= 3 {
				d.logger.Debug("effect found", "name", e.name, "path", e.path,
					"raw", e.rawSize, "decoded", e.decodedSize)
			}
			return nil
		})
	}
	return g.Wait()
}

// Tag resolves an effect name to its tag. A name that does not match as
// given is retried without its extension.
func (d *Directory) Tag(name string) (int, error) {
	if d.closed {
		return 0, fmt.Errorf("%w: %q", sfxtype.ErrNotFound, name)
	}
	key := CleanName(name)
	if i, ok := d.search(key); ok {
		return i, nil
	}
	if stripped := Normalize(name); stripped != key {
		if i, ok := d.search(stripped); ok {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", sfxtype.ErrNotFound, name)
}

func (d *Directory) search(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	return slices.BinarySearchFunc(d.effects, key, func(e effect, k string) int {
		return strings.Compare(e.name, k)
	})
}

// Valid reports whether tag names an effect.
func (d *Directory) Valid(tag int) bool {
	return !d.closed && tag >= 0 && tag < len(d.effects)
}

// RawSize returns the stored (possibly compressed) size of tag.
func (d *Directory) RawSize(tag int) (int64, error) {
	e, err := d.lookup(tag)
	if err != nil {
		return 0, err
	}
	return e.rawSize, nil
}

// DecodedSize returns the decoded size of tag.
func (d *Directory) DecodedSize(tag int) (int64, error) {
	e, err := d.lookup(tag)
	if err != nil {
		return 0, err
	}
	return e.decodedSize, nil
}

// Path returns the backing-store path of tag.
func (d *Directory) Path(tag int) (string, error) {
	e, err := d.lookup(tag)
	if err != nil {
		return "", err
	}
	return e.path, nil
}

// Name returns the normalized name of tag.
func (d *Directory) Name(tag int) (string, error) {
	e, err := d.lookup(tag)
	if err != nil {
		return "", err
	}
	return e.name, nil
}

// Names returns every effect name in tag order.
func (d *Directory) Names() []string {
	if d.closed {
		return nil
	}
	names := make([]string, len(d.effects))
	for i, e := range d.effects {
		names[i] = e.name
	}
	return names
}

// Len returns the number of effects.
func (d *Directory) Len() int {
	if d.closed {
		return 0
	}
	return len(d.effects)
}

// Compression returns the codec effects are stored with.
func (d *Directory) Compression() sfxtype.Compression {
	return d.compression
}

// Close releases the catalog. Every tag becomes invalid.
func (d *Directory) Close() error {
	d.closed = true
	d.effects = nil
	return nil
}

func (d *Directory) lookup(tag int) (*effect, error) {
	if !d.Valid(tag) {
		return nil, fmt.Errorf("%w: tag %d", sfxtype.ErrNotFound, tag)
	}
	return &d.effects[tag], nil
}

// CleanName maps an effect name to its catalog form: forward slashes, no
// leading slash, lower case.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	return strings.ToLower(name)
}

// Normalize maps a file path to its catalog name: CleanName with the
// extension removed.
func Normalize(name string) string {
	name = CleanName(name)
	return strings.TrimSuffix(name, path.Ext(name))
}

func cleanRoot(root string) string {
	root = strings.ReplaceAll(root, `\`, "/")
	root = strings.Trim(path.Clean("/"+root), "/")
	if root == "" {
		return "."
	}
	return root
}
