// Package devicestate persists this device's family connection and selected user.
package devicestate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

// State is the on-disk preference document.
type State struct {
	FamilyID     string      `yaml:"family_id,omitempty"`
	SelectedUser domain.User `yaml:"selected_user,omitempty"`
}

// File stores State as YAML at a fixed path.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile constructs a File. Nothing is read until Load.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Load returns the stored state, or a zero State when the file does not exist.
func (f *File) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked()
}

// SetFamily records the connected family and keeps the selected user.
func (f *File) SetFamily(familyID string) error {
	key, err := domain.NormalizeFamilyID(familyID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.loadLocked()
	if err != nil {
		return err
	}
	st.FamilyID = key
	return f.saveLocked(st)
}

// SelectUser records which user this device acts as.
func (f *File) SelectUser(raw string) (domain.User, error) {
	u, err := domain.ParseUser(raw)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.loadLocked()
	if err != nil {
		return "", err
	}
	st.SelectedUser = u
	return u, f.saveLocked(st)
}

// ClearFamily forgets the family connection and keeps the selected user.
func (f *File) ClearFamily() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.loadLocked()
	if err != nil {
		return err
	}
	st.FamilyID = ""
	return f.saveLocked(st)
}

func (f *File) loadLocked() (State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse %s: %w", f.path, err)
	}
	if st.SelectedUser != "" && !st.SelectedUser.Valid() {
		st.SelectedUser = ""
	}
	return st, nil
}

func (f *File) saveLocked(st State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
