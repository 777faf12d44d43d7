// Package manifest handles slate.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chazu/slate/vm"
	"github.com/tliron/commonlog"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "slate.toml"

// ErrNoManifest is returned by FindAndLoad when no slate.toml exists in the
// start directory or any of its parents.
var ErrNoManifest = errors.New("no " + FileName + " found")

var log = commonlog.GetLogger("slate.manifest")

// Color modes accepted by [output] color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Manifest represents a slate.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Run     RunConfig    `toml:"run"`
	Cache   CacheConfig  `toml:"cache"`
	Log     LogConfig    `toml:"log"`
	Output  OutputConfig `toml:"output"`

	// Dir is the directory containing the slate.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// RunConfig configures script execution.
type RunConfig struct {
	Entry    string `toml:"entry"`
	MaxDepth int    `toml:"max-depth"`
	Trace    bool   `toml:"trace"`
}

// CacheConfig configures the compiled-code cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig configures commonlog verbosity.
type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// OutputConfig configures terminal output.
type OutputConfig struct {
	Color string `toml:"color"`
}

// Default returns the configuration used when dir has no manifest.
func Default(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m := &Manifest{Dir: abs, Cache: CacheConfig{Enabled: true}}
	m.applyDefaults()
	return m, nil
}

// Load parses a slate.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warningf("%s: unknown key %s", path, key)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if !md.IsDefined("cache", "enabled") {
		m.Cache.Enabled = true
	}
	m.applyDefaults()

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("loaded %s", path)
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Run.MaxDepth == 0 {
		m.Run.MaxDepth = vm.DefaultMaxDepth
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".slate", "cache.db")
	}
	if m.Output.Color == "" {
		m.Output.Color = ColorAuto
	}
}

func (m *Manifest) validate() error {
	if m.Run.MaxDepth < 0 {
		return fmt.Errorf("run.max-depth must be positive, got %d", m.Run.MaxDepth)
	}
	switch strings.ToLower(m.Output.Color) {
	case ColorAuto, ColorAlways, ColorNever:
		m.Output.Color = strings.ToLower(m.Output.Color)
	default:
		return fmt.Errorf("output.color must be auto, always or never, got %q", m.Output.Color)
	}
	return nil
}

// FindAndLoad walks up from startDir to find a slate.toml file, then loads
// and returns the manifest. Returns ErrNoManifest if none is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, ErrNoManifest
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of [run] entry, or "" when unset.
func (m *Manifest) EntryPath() string {
	if m.Run.Entry == "" {
		return ""
	}
	return m.resolve(m.Run.Entry)
}

// CachePath returns the absolute path of the compiled-code cache database.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
