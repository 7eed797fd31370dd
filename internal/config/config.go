// Package config loads and validates exporter configuration: the tag
// colour palette and external toolchain settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MQFacultyOfArts/annotex/internal/fileutil"
	"github.com/MQFacultyOfArts/annotex/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidPalette  = errors.New("invalid palette")
)

// configDirName is the subdirectory under the user config dir searched for
// named configs.
const configDirName = "annotex"

// Config holds all configuration for annotated exports.
type Config struct {
	Palette        map[string]Color `yaml:"palette"`
	Pandoc         string           `yaml:"pandoc"`         // pandoc binary (empty = PATH lookup)
	Latex          string           `yaml:"latex"`          // LaTeX engine binary (empty = lualatex from PATH)
	TimeoutSeconds int              `yaml:"timeoutSeconds"` // per-export time box (0 = library default)
}

// Color defines one tag's colour pair.
type Color struct {
	Name  string `yaml:"name"`  // colour name, e.g. "amber"; lands in carrier attributes and colour definitions
	Light string `yaml:"light"` // RRGGBB hex for the highlight background
	Dark  string `yaml:"dark"`  // RRGGBB hex for the underline and margin note
}

// DefaultConfig returns a configuration with no palette; callers must
// provide one before exporting highlights.
func DefaultConfig() *Config {
	return &Config{Palette: map[string]Color{}}
}

// Load loads configuration from a file path or config name. If nameOrPath
// contains a path separator, it is treated as a file path. Otherwise it is
// searched in the current directory and the user config directory. Returns
// an error if the file is not found; no silent fallback.
func Load(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		resolved, err := resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
		configPath = resolved
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the palette. Colour names end up inside LaTeX colour
// definitions and comma-separated carrier attributes, so they are
// restricted to lowercase letters and digits.
func (c *Config) Validate() error {
	if len(c.Palette) == 0 {
		return fmt.Errorf("%w: no tag colours configured", ErrInvalidPalette)
	}
	for tag, col := range c.Palette {
		if tag == "" {
			return fmt.Errorf("%w: empty tag name", ErrInvalidPalette)
		}
		if !isColorName(col.Name) {
			return fmt.Errorf("%w: tag %q colour name %q (lowercase letters and digits only)", ErrInvalidPalette, tag, col.Name)
		}
		if !isHexColor(col.Light) {
			return fmt.Errorf("%w: tag %q light %q is not RRGGBB hex", ErrInvalidPalette, tag, col.Light)
		}
		if !isHexColor(col.Dark) {
			return fmt.Errorf("%w: tag %q dark %q is not RRGGBB hex", ErrInvalidPalette, tag, col.Dark)
		}
	}
	return nil
}

// resolveConfigPath searches for a config file by name. Tries extensions
// .yaml then .yml, in the current directory then the user config dir.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, configDirName, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

func isColorName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func isHexColor(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
