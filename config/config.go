// Package config holds RLVM's own ambient interpreter settings — values
// that live outside any game's Gameexe because they configure the
// interpreter itself rather than a particular title, per SPEC_FULL.md §1.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssakurai/rlvm/rlerr"
)

// Settings is the small typed struct RLVM reads at startup. Each field
// has a documented default so a missing or partial settings file still
// produces a usable configuration.
type Settings struct {
	WindowWidth      int    `yaml:"window_width"`
	WindowHeight     int    `yaml:"window_height"`
	SaveDirectory    string `yaml:"save_directory"`
	TextSpeed        int    `yaml:"text_speed"`
	EncodingOverride string `yaml:"encoding_override"`
	UndefinedIsFatal bool   `yaml:"undefined_is_fatal"`
}

// Default returns the built-in settings used when no settings file is
// present, or a field is absent from one that is.
func Default() Settings {
	return Settings{
		WindowWidth:      800,
		WindowHeight:     600,
		SaveDirectory:    defaultSaveDirectory(),
		TextSpeed:        2,
		EncodingOverride: "",
		UndefinedIsFatal: false,
	}
}

func defaultSaveDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "rlvm", "saves")
}

// DefaultPath returns ~/.config/rlvm/settings.yaml, the conventional
// location Load reads from when no explicit path is given.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", rlerr.Wrap(rlerr.NotFound, err, "resolving home directory")
	}
	return filepath.Join(home, ".config", "rlvm", "settings.yaml"), nil
}

// Load reads Settings from path, starting from Default() so any field
// the file omits keeps its default value rather than zeroing out. A
// missing file is not an error: Load silently returns the defaults,
// since a first run has no settings file yet.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, rlerr.Wrap(rlerr.NotFound, err, "reading settings file %q", path)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, rlerr.Wrap(rlerr.BadFormat, err, "parsing settings file %q", path)
	}
	return s, nil
}

// Save writes s to path as YAML, creating its parent directory if
// needed.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return rlerr.Wrap(rlerr.BadFormat, err, "creating settings directory for %q", path)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return rlerr.Wrap(rlerr.BadFormat, err, "encoding settings")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return rlerr.Wrap(rlerr.BadFormat, err, "writing settings file %q", path)
	}
	return nil
}
