// Command sfxcat lists cached sound effects and decodes them to stdout.
//
//	sfxcat -root sfx -list
//	sfxcat -root sfx explosion door/open > out.pcm
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/pprof"

	"github.com/felixge/fgprof"
	"go.uber.org/multierr"

	"github.com/meigma/sfxcache"
	"github.com/meigma/sfxcache/config"
)

const defaultBudget = 300000

type options struct {
	root        string
	budget      int64
	configPath  string
	compression string
	list        bool
	stats       bool
	verbose     int
	fgProfile   string
	cpuProfile  string
	names       []string
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "sfxcat:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("sfxcat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.root, "root", "", "effects directory (default from config, then .)")
	fs.Int64Var(&opts.budget, "budget", 0, "raw cache budget in bytes (default from config, then 300000)")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.StringVar(&opts.compression, "compression", "", "effect codec: none, zstd or lz4 (default from config, then zstd)")
	fs.BoolVar(&opts.list, "list", false, "list effects with their decoded sizes")
	fs.BoolVar(&opts.stats, "stats", false, "print cache counters to stderr on exit")
	fs.IntVar(&opts.verbose, "v", -1, "debug level 0-3 (default from config, then 1)")
	fs.StringVar(&opts.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	fs.StringVar(&opts.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.names = fs.Args()
	if !opts.list && len(opts.names) == 0 {
		return options{}, errors.New("no effects named; use -list or pass effect names")
	}
	return opts, nil
}

// resolve merges flags over the config file.
func resolve(opts options) (*config.Config, sfxcache.Compression, error) {
	var cfg *config.Config
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return nil, 0, err
		}
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	if opts.root == "" {
		opts.root = cfg.Sound.EffectsPath
	}
	if opts.budget == 0 {
		opts.budget = cfg.Sound.CacheSize
	}
	if opts.compression != "" {
		cfg.Sound.Compression = opts.compression
	}
	if opts.verbose >= 0 {
		level := opts.verbose
		cfg.Sound.DebugSfxc = &level
	}
	cfg.Sound.EffectsPath = opts.root
	cfg.Sound.CacheSize = opts.budget
	if cfg.Sound.CacheSize == 0 {
		cfg.Sound.CacheSize = defaultBudget
	}

	comp, err := cfg.CompressionMode()
	if err != nil {
		return nil, 0, err
	}
	return cfg, comp, nil
}

func run(args []string, stdout, stderr io.Writer) (err error) {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, comp, err := resolve(opts)
	if err != nil {
		return err
	}

	if opts.fgProfile != "" {
		f, ferr := os.Create(opts.fgProfile)
		if ferr != nil {
			return ferr
		}
		stop := fgprof.Start(f, fgprof.FormatPprof)
		defer func() {
			err = multierr.Combine(err, stop(), f.Close())
		}()
	}
	if opts.cpuProfile != "" {
		f, ferr := os.Create(opts.cpuProfile)
		if ferr != nil {
			return ferr
		}
		if ferr = pprof.StartCPUProfile(f); ferr != nil {
			_ = f.Close()
			return ferr
		}
		defer func() {
			pprof.StopCPUProfile()
			err = multierr.Append(err, f.Close())
		}()
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, err := sfxcache.New(cfg.Sound.CacheSize, cfg.Sound.EffectsPath,
		sfxcache.WithConfig(cfg),
		sfxcache.WithCompression(comp),
		sfxcache.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		if opts.stats {
			printStats(stderr, c.Stats())
		}
		err = multierr.Append(err, c.Close())
	}()

	if opts.list {
		if err := list(c, stdout); err != nil {
			return err
		}
	}
	for _, name := range opts.names {
		if err := cat(c, name, stdout); err != nil {
			return err
		}
	}
	return nil
}

func list(c *sfxcache.Cache, w io.Writer) error {
	for _, name := range c.Names() {
		size, err := c.EffectSize(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\t%d\n", name, size); err != nil {
			return err
		}
	}
	return nil
}

func cat(c *sfxcache.Cache, name string, w io.Writer) (err error) {
	f, err := c.OpenFile(name)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func printStats(w io.Writer, s sfxcache.Stats) {
	fmt.Fprintf(w, "hits=%d misses=%d load_errors=%d evictions=%d entries=%d bytes=%d/%d\n",
		s.Hits, s.Misses, s.LoadErrors, s.Evictions, s.Entries, s.Bytes, s.MaxBytes)
}
