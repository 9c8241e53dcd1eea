package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"Delphi/internal/domain/models"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FileStore persists AppSettings as one JSON document. Loading merges the
// stored document over hardcoded defaults so fields added after the
// document was written take their default values.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Defaults returns the hardcoded settings.
func Defaults() (*models.AppSettings, error) {
	s := &models.AppSettings{}
	if err := defaults.Set(s); err != nil {
		return nil, fmt.Errorf("settings defaults: %w", err)
	}
	s.Colors = models.DefaultPalette()
	return s, nil
}

// Load reads settings, merging over defaults. A missing file or a corrupt
// document yields defaults rather than an error; the caller keeps running.
func (f *FileStore) Load() (*models.AppSettings, error) {
	s, err := Defaults()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("settings read: %w", err)
	}

	if err := json.Unmarshal(b, s); err != nil {
		def, derr := Defaults()
		if derr != nil {
			return nil, derr
		}
		return def, fmt.Errorf("settings parse: %w", err)
	}

	if err := validate.Struct(s); err != nil {
		def, derr := Defaults()
		if derr != nil {
			return nil, derr
		}
		return def, fmt.Errorf("settings invalid: %w", err)
	}

	if s.Colors.Up == "" || s.Colors.Down == "" || s.Colors.Neutral == "" || s.Colors.PPOLine == "" {
		p := models.DefaultPalette()
		if s.Colors.Up == "" {
			s.Colors.Up = p.Up
		}
		if s.Colors.Down == "" {
			s.Colors.Down = p.Down
		}
		if s.Colors.Neutral == "" {
			s.Colors.Neutral = p.Neutral
		}
		if s.Colors.PPOLine == "" {
			s.Colors.PPOLine = p.PPOLine
		}
	}

	return s, nil
}

// Save writes settings atomically (write temp, rename).
func (f *FileStore) Save(s *models.AppSettings) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("settings invalid: %w", err)
	}

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("settings marshal: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("settings write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("settings rename: %w", err)
	}
	return nil
}
