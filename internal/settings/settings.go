// Package settings loads user-level tool settings from a TOML file. Project
// documents never read these; they only shape how the CLI behaves.
package settings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	pkgerrors "github.com/pkg/errors"

	"emwy/internal/paths"
)

// Logging controls the log file and console output.
type Logging struct {
	Level   string `toml:"level"`
	Console bool   `toml:"console"`
}

// Export controls exporter defaults.
type Export struct {
	Overlays bool   `toml:"overlays"`
	Format   string `toml:"format"`
}

// Display controls terminal styling.
type Display struct {
	Color string `toml:"color"`
}

// Settings is the decoded settings file.
type Settings struct {
	Logging Logging `toml:"logging"`
	Export  Export  `toml:"export"`
	Display Display `toml:"display"`
}

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var levels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		Logging: Logging{Level: "info"},
		Export:  Export{Overlays: true, Format: "ogm"},
		Display: Display{Color: ColorAuto},
	}
}

// DefaultPath returns ~/.config/emwy/config.toml (or the platform
// equivalent).
func DefaultPath() (string, error) {
	dir, err := paths.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads settings from path, or from DefaultPath when path is empty. A
// missing file yields Default. It returns the resolved path and whether the
// file existed.
func Load(path string) (Settings, string, bool, error) {
	s := Default()
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		var err error
		resolved, err = DefaultPath()
		if err != nil {
			return s, "", false, err
		}
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, resolved, false, nil
		}
		return s, resolved, false, pkgerrors.Wrap(err, "open settings")
	}
	defer file.Close()

	dec := toml.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Default(), resolved, true, pkgerrors.Wrapf(err, "parse settings %s", resolved)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return Default(), resolved, true, err
	}
	return s, resolved, true, nil
}

func (s *Settings) normalize() {
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
	s.Export.Format = strings.ToLower(strings.TrimSpace(s.Export.Format))
	if s.Export.Format == "" {
		s.Export.Format = "ogm"
	}
	s.Display.Color = strings.ToLower(strings.TrimSpace(s.Display.Color))
	if s.Display.Color == "" {
		s.Display.Color = ColorAuto
	}
}

// Validate checks enumerated values.
func (s Settings) Validate() error {
	if !levels[s.Logging.Level] {
		return pkgerrors.Errorf("logging.level must be debug, info, warn or error, got %q", s.Logging.Level)
	}
	switch s.Export.Format {
	case "ogm", "json":
	default:
		return pkgerrors.Errorf("export.format must be ogm or json, got %q", s.Export.Format)
	}
	switch s.Display.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return pkgerrors.Errorf("display.color must be auto, always or never, got %q", s.Display.Color)
	}
	return nil
}

// Encode renders settings as TOML, used to write a starter file.
func Encode(s Settings) ([]byte, error) {
	data, err := toml.Marshal(s)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode settings")
	}
	return data, nil
}
