// Package prefs is a small persistent key/value store for values that must
// survive between wake cycles, such as the holiday cache and boot count.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Keys used by the wake cycle.
const (
	KeyHoliday = "Holiday"
	KeyBoot    = "Boot"
)

// Store keeps all values in memory and rewrites the backing file on every Put.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// Open loads the store at path. A missing file yields an empty store; the
// file is created on the first Put.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("prefs: path is empty")
	}
	s := &Store{path: path, values: map[string]string{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("prefs: read: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("prefs: decode %s: %w", path, err)
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	return s, nil
}

// GetString returns the stored value or def when the key is absent.
func (s *Store) GetString(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// GetInt returns the stored value or def when the key is absent or not a number.
func (s *Store) GetInt(key string, def int) int {
	v := s.GetString(key, "")
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Store) PutString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

func (s *Store) PutInt(key string, value int) error {
	return s.PutString(key, strconv.Itoa(value))
}

// flush writes the store via temp file + rename so a power cut never leaves
// a half-written file behind. Caller holds mu.
func (s *Store) flush() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("prefs: mkdir: %w", err)
	}

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("prefs: encode: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".papercal-prefs-*.tmp")
	if err != nil {
		return fmt.Errorf("prefs: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("prefs: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("prefs: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("prefs: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("prefs: chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("prefs: rename: %w", err)
	}
	return nil
}
