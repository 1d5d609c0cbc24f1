// Package config loads optional CLI defaults from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/baletool/bale/internal/codec/zstdengine"
)

// DefaultFileName is looked up in the user home directory when no explicit
// path is given.
const DefaultFileName = ".bale.toml"

// File holds the CLI defaults a user may persist. Command-line flags
// override every field.
type File struct {
	Level     int  `toml:"level"`
	Verbosity int  `toml:"verbosity"`
	Force     bool `toml:"force"`
}

// Load reads defaults from path. An empty path means the per-user default
// location; a missing file at either yields plain defaults, not an error.
func Load(path string) (File, error) {
	cfg := File{
		Level:     zstdengine.DefaultLevel,
		Verbosity: 2,
	}

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, DefaultFileName)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return File{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return File{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func validate(cfg File) error {
	if cfg.Level < zstdengine.MinLevel || cfg.Level > zstdengine.MaxLevel {
		return fmt.Errorf("level %d out of range [%d,%d]", cfg.Level, zstdengine.MinLevel, zstdengine.MaxLevel)
	}
	if cfg.Verbosity < 0 || cfg.Verbosity > 4 {
		return fmt.Errorf("verbosity %d out of range [0,4]", cfg.Verbosity)
	}
	return nil
}
