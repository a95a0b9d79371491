// Package config handles vbapy.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"martianoff/vbapy/internal/converter/registry"
	"martianoff/vbapy/internal/logging"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "vbapy.toml"

// Environment variables consulted for defaults.
const (
	EnvHome   = "VBAPY_HOME"
	EnvConfig = "VBAPY_CONFIG"
)

// Config holds the settings shared by the command-line tools.
type Config struct {
	Output   OutputConfig `toml:"output"`
	Batch    BatchConfig  `toml:"batch"`
	Log      LogConfig    `toml:"log"`
	Watch    WatchConfig  `toml:"watch"`
	Mappings Mappings     `toml:"mappings"`

	// Home is the vbapy data directory. Defaults to ~/.vbapy.
	Home string `toml:"-"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-"`
}

// OutputConfig configures where generated files go.
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// BatchConfig configures directory conversion.
type BatchConfig struct {
	Workers         int      `toml:"workers"`
	Extensions      []string `toml:"extensions"`
	ContinueOnError bool     `toml:"continue-on-error"`
	Report          bool     `toml:"report"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `toml:"debounce"`
}

// Mappings extend the built-in substitution tables.
type Mappings struct {
	Functions map[string]string `toml:"functions"`
	Types     map[string]string `toml:"types"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{Dir: "converted_python"},
		Batch: BatchConfig{
			Workers:         4,
			Extensions:      []string{".xlsx", ".xlsm", ".xls"},
			ContinueOnError: true,
		},
		Log:   LogConfig{Level: "info", Format: "text"},
		Watch: WatchConfig{Debounce: 250 * time.Millisecond},
		Home:  defaultHome(),
	}
}

// defaultHome uses VBAPY_HOME if set, otherwise ~/.vbapy.
func defaultHome() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".vbapy")
	}
	return filepath.Join(homeDir, ".vbapy")
}

// Load reads a configuration file. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := DefaultConfig()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Path = path
	c.normalize()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad locates the configuration: VBAPY_CONFIG if set, then the
// nearest vbapy.toml walking up from startDir, then one in the home
// directory. Defaults are returned when no file exists.
func FindAndLoad(startDir string) (*Config, error) {
	if path := os.Getenv(EnvConfig); path != "" {
		return Load(path)
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	home := filepath.Join(defaultHome(), FileName)
	if _, err := os.Stat(home); err == nil {
		return Load(home)
	}
	return DefaultConfig(), nil
}

func (c *Config) normalize() {
	for i, ext := range c.Batch.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Batch.Extensions[i] = ext
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if len(c.Batch.Extensions) == 0 {
		return fmt.Errorf("batch.extensions must not be empty")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// Supports reports whether ext (with leading dot) is a configured input
// extension.
func (c *Config) Supports(ext string) bool {
	return slices.Contains(c.Batch.Extensions, strings.ToLower(ext))
}

// Registry returns a copy of the global substitution tables extended with
// the configured mappings.
func (c *Config) Registry() *registry.Registry {
	r := registry.Global.Clone()
	for _, name := range sortedKeys(c.Mappings.Functions) {
		r.RegisterFunction(name, c.Mappings.Functions[name])
	}
	for _, name := range sortedKeys(c.Mappings.Types) {
		r.RegisterType(name, c.Mappings.Types[name])
	}
	return r
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
