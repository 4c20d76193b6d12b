package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileName = "appsettings.json"

// ResolvePath picks the settings file: flag value, then NOISEWARN_CONFIG, then
// the OS config directory.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if env := os.Getenv("NOISEWARN_CONFIG"); env != "" {
		return env
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return fileName
	}
	return filepath.Join(dir, "noisewarn", fileName)
}

// Store reads and writes Settings as JSON.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load returns the stored settings. A missing file yields defaults, which are
// written out. Out-of-range values are clamped and the file rewritten; a
// failure to rewrite is returned alongside the usable settings.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		st := Defaults()
		return st, s.saveLocked(st)
	}
	if err != nil {
		return Defaults(), fmt.Errorf("failed to read settings: %w", err)
	}

	st := Defaults()
	if err := json.Unmarshal(data, &st); err != nil {
		return Defaults(), fmt.Errorf("failed to parse settings %s: %w", s.path, err)
	}
	st, changed := st.Clamp()
	if changed {
		return st, s.saveLocked(st)
	}
	return st, nil
}

func (s *Store) Save(st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _ = st.Clamp()
	return s.saveLocked(st)
}

func (s *Store) saveLocked(st Settings) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, fileName+".*")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
