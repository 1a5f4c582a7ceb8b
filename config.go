// Completion: 100% - Configuration complete
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	units "github.com/docker/go-units"
	"github.com/xyproto/env/v2"
	"github.com/xyproto/jitexpr/internal/engine"
)

const (
	defaultCodeSize   = 64 * 1024
	defaultDataSize   = 16 * 1024
	defaultConfigFile = "jitexpr.toml"
	minPageRequest    = 64
)

// Config holds everything that can be set from a file, the environment or flags.
// Precedence: defaults < TOML file < environment < flags.
type Config struct {
	Arch        engine.Arch // target architecture, the host by default
	CodeSize    int         // bytes requested for the code page
	DataSize    int         // bytes requested for the data page
	Verbose     bool
	Color       bool
	HistoryFile string // REPL history, empty disables it
	Source      string // file the settings were loaded from, if any
}

// fileConfig is the on-disk TOML layout. Sizes are human strings ("64KiB").
type fileConfig struct {
	Arch     string `toml:"arch"`
	CodeSize string `toml:"code_size"`
	DataSize string `toml:"data_size"`
	Verbose  *bool  `toml:"verbose"`
	Color    *bool  `toml:"color"`
	History  string `toml:"history"`
}

// DefaultConfig returns the built-in defaults for the host
func DefaultConfig() *Config {
	cfg := &Config{
		Arch:     engine.Host().Arch,
		CodeSize: defaultCodeSize,
		DataSize: defaultDataSize,
		Color:    true,
	}
	if home := env.HomeDir(); home != "" {
		cfg.HistoryFile = filepath.Join(home, ".jitexpr_history")
	}
	return cfg
}

// LoadConfig builds the configuration from defaults, the TOML file named by
// $JITEXPR_CONFIG (or ./jitexpr.toml when present) and the environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	path := env.Str("JITEXPR_CONFIG")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) loadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if fc.Arch != "" {
		if err := cfg.SetArch(fc.Arch); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
	}
	if fc.CodeSize != "" {
		if err := cfg.SetCodeSize(fc.CodeSize); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
	}
	if fc.DataSize != "" {
		if err := cfg.SetDataSize(fc.DataSize); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	if fc.Color != nil {
		cfg.Color = *fc.Color
	}
	if fc.History != "" {
		cfg.HistoryFile = fc.History
	}
	cfg.Source = path
	return nil
}

func (cfg *Config) loadEnv() error {
	if s := env.Str("JITEXPR_ARCH"); s != "" {
		if err := cfg.SetArch(s); err != nil {
			return fmt.Errorf("JITEXPR_ARCH: %w", err)
		}
	}
	if s := env.Str("JITEXPR_CODE_SIZE"); s != "" {
		if err := cfg.SetCodeSize(s); err != nil {
			return fmt.Errorf("JITEXPR_CODE_SIZE: %w", err)
		}
	}
	if s := env.Str("JITEXPR_DATA_SIZE"); s != "" {
		if err := cfg.SetDataSize(s); err != nil {
			return fmt.Errorf("JITEXPR_DATA_SIZE: %w", err)
		}
	}
	if env.Has("JITEXPR_VERBOSE") {
		cfg.Verbose = env.Bool("JITEXPR_VERBOSE")
	}
	// https://no-color.org: any value disables color
	if env.Has("NO_COLOR") {
		cfg.Color = false
	}
	if env.Has("JITEXPR_HISTORY") {
		cfg.HistoryFile = env.Str("JITEXPR_HISTORY")
	}
	return nil
}

// SetArch parses and sets the target architecture
func (cfg *Config) SetArch(s string) error {
	arch, err := engine.ParseArch(s)
	if err != nil {
		return err
	}
	cfg.Arch = arch
	return nil
}

// SetCodeSize parses a human size ("64KiB", "1m") for the code page
func (cfg *Config) SetCodeSize(s string) error {
	n, err := parseSize(s)
	if err != nil {
		return fmt.Errorf("code size: %w", err)
	}
	cfg.CodeSize = n
	return nil
}

// SetDataSize parses a human size for the data page
func (cfg *Config) SetDataSize(s string) error {
	n, err := parseSize(s)
	if err != nil {
		return fmt.Errorf("data size: %w", err)
	}
	cfg.DataSize = n
	return nil
}

func parseSize(s string) (int, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, err
	}
	if n < minPageRequest {
		return 0, fmt.Errorf("%s is smaller than %d bytes", s, minPageRequest)
	}
	if n > 1<<30 {
		return 0, fmt.Errorf("%s is larger than 1GiB", s)
	}
	return int(n), nil
}

// String summarizes the configuration for verbose output
func (cfg *Config) String() string {
	src := "defaults"
	if cfg.Source != "" {
		src = cfg.Source
	}
	return fmt.Sprintf("arch=%s code=%s data=%s verbose=%v color=%v (from %s)",
		cfg.Arch, units.BytesSize(float64(cfg.CodeSize)), units.BytesSize(float64(cfg.DataSize)),
		cfg.Verbose, cfg.Color, src)
}
