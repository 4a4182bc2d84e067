package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPath names an explicit config file.
	EnvPath = "GO_LIVE_REMARK_CONFIG"
	// FileName is looked up next to the deck when EnvPath is unset.
	FileName = ".go-live-remark.yaml"

	DefaultAddr           = "127.0.0.1:7778"
	DefaultDebounce       = 400 * time.Millisecond
	DefaultHighlightStyle = "github"
)

// Config holds the live preview settings
type Config struct {
	Addr           string `yaml:"addr"`
	OutputDir      string `yaml:"output_dir"`
	Template       string `yaml:"template"`        // Custom page template, must contain </textarea>
	Debounce       string `yaml:"debounce"`        // Cursor sync quiescence window (e.g. "400ms")
	HighlightStyle string `yaml:"highlight_style"` // Chroma style used by the handout page
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:           DefaultAddr,
		OutputDir:      filepath.Join(os.TempDir(), "go-live-remark"),
		Debounce:       DefaultDebounce.String(),
		HighlightStyle: DefaultHighlightStyle,
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Relative paths are relative to the config file
	base := filepath.Dir(path)
	if cfg.Template != "" && !filepath.IsAbs(cfg.Template) {
		cfg.Template = filepath.Join(base, cfg.Template)
	}
	if cfg.OutputDir != "" && !filepath.IsAbs(cfg.OutputDir) {
		cfg.OutputDir = filepath.Join(base, cfg.OutputDir)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Find loads the config for a deck living in dir.
func Find(dir string) (*Config, error) {
	if path := os.Getenv(EnvPath); path != "" {
		return Load(path)
	}
	return Load(filepath.Join(dir, FileName))
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.HighlightStyle == "" {
		c.HighlightStyle = d.HighlightStyle
	}
}

// GetDebounce returns the parsed quiescence window (default: 400ms)
func (c *Config) GetDebounce() time.Duration {
	if c.Debounce == "" {
		return DefaultDebounce
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d <= 0 {
		return DefaultDebounce
	}
	return d
}
