// Package config stores named connection profiles and loads the pendant
// settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"jog-pendant/pkg/serial"
)

// ProfileManager interface defines the contract for profile operations
type ProfileManager interface {
	SaveProfile(p Profile) error
	LoadProfile(name string) (Profile, error)
	ListProfiles() ([]Profile, error)
	DeleteProfile(name string) error
	ProfileExists(name string) bool
}

// Profile is a saved way of reaching one machine: the serial link plus the
// machine's axis letters and unit default.
type Profile struct {
	Name   string              `json:"name"`
	Serial serial.SerialConfig `json:"serial"`
	// Axes overrides the axes setting when not empty.
	Axes        string    `json:"axes,omitempty"`
	Inches      bool      `json:"inches,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

// Validate checks if the profile is valid
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	if err := p.Serial.Validate(); err != nil {
		return fmt.Errorf("invalid serial config: %w", err)
	}

	if p.Axes != "" {
		if err := ValidateAxes(p.Axes); err != nil {
			return err
		}
	}

	if p.CreatedAt.IsZero() {
		return fmt.Errorf("created_at timestamp cannot be zero")
	}

	return nil
}

// profileStorage represents the storage format for profiles
type profileStorage struct {
	Profiles map[string]Profile `json:"profiles"`
	Version  string             `json:"version"`
}

// FileProfileManager implements ProfileManager using file storage
type FileProfileManager struct {
	dir  string
	file string
}

// NewFileProfileManager creates a profile manager storing profiles.json in dir
func NewFileProfileManager(dir string) *FileProfileManager {
	return &FileProfileManager{
		dir:  dir,
		file: "profiles.json",
	}
}

// DefaultDir returns the per-user configuration directory of the pendant.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".jog-pendant"
	}
	return filepath.Join(dir, "jog-pendant")
}

// Initialize creates the configuration directory and initializes storage if needed
func (fpm *FileProfileManager) Initialize() error {
	if err := os.MkdirAll(fpm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(fpm.Path()); os.IsNotExist(err) {
		if err := fpm.saveStorage(newStorage()); err != nil {
			return fmt.Errorf("failed to initialize profile file: %w", err)
		}
	}

	return nil
}

// SaveProfile creates or replaces a profile. The creation time and
// description of an existing profile are kept.
func (fpm *FileProfileManager) SaveProfile(p Profile) error {
	if err := fpm.Initialize(); err != nil {
		return err
	}

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.LastUsedAt = now

	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	storage, err := fpm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load existing profiles: %w", err)
	}

	if existing, exists := storage.Profiles[p.Name]; exists {
		p.CreatedAt = existing.CreatedAt
		if p.Description == "" {
			p.Description = existing.Description
		}
	}

	storage.Profiles[p.Name] = p

	if err := fpm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

// LoadProfile loads a profile by name and marks it used
func (fpm *FileProfileManager) LoadProfile(name string) (Profile, error) {
	if name == "" {
		return Profile{}, fmt.Errorf("profile name cannot be empty")
	}

	storage, err := fpm.loadStorage()
	if err != nil {
		return Profile{}, fmt.Errorf("failed to load profiles: %w", err)
	}

	p, exists := storage.Profiles[name]
	if !exists {
		return Profile{}, fmt.Errorf("profile '%s' not found", name)
	}

	p.LastUsedAt = time.Now()
	storage.Profiles[name] = p

	// last used time is informational
	_ = fpm.saveStorage(storage)

	return p, nil
}

// ListProfiles returns all saved profiles sorted by name
func (fpm *FileProfileManager) ListProfiles() ([]Profile, error) {
	storage, err := fpm.loadStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	profiles := make([]Profile, 0, len(storage.Profiles))
	for _, p := range storage.Profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})

	return profiles, nil
}

// DeleteProfile deletes a profile by name
func (fpm *FileProfileManager) DeleteProfile(name string) error {
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	storage, err := fpm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	if _, exists := storage.Profiles[name]; !exists {
		return fmt.Errorf("profile '%s' not found", name)
	}

	delete(storage.Profiles, name)

	if err := fpm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save profiles after deletion: %w", err)
	}

	return nil
}

// ProfileExists checks if a profile with the given name exists
func (fpm *FileProfileManager) ProfileExists(name string) bool {
	if name == "" {
		return false
	}

	storage, err := fpm.loadStorage()
	if err != nil {
		return false
	}

	_, exists := storage.Profiles[name]
	return exists
}

// SetDescription sets the description of a profile
func (fpm *FileProfileManager) SetDescription(name, description string) error {
	storage, err := fpm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	p, exists := storage.Profiles[name]
	if !exists {
		return fmt.Errorf("profile '%s' not found", name)
	}

	p.Description = description
	storage.Profiles[name] = p

	if err := fpm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save profile description: %w", err)
	}

	return nil
}

// Path returns the full path to the profile file
func (fpm *FileProfileManager) Path() string {
	return filepath.Join(fpm.dir, fpm.file)
}

func newStorage() profileStorage {
	return profileStorage{
		Profiles: make(map[string]Profile),
		Version:  "1.0",
	}
}

// loadStorage loads the profile storage from file
func (fpm *FileProfileManager) loadStorage() (profileStorage, error) {
	data, err := os.ReadFile(fpm.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return newStorage(), nil
		}
		return profileStorage{}, fmt.Errorf("failed to read profile file: %w", err)
	}

	var storage profileStorage
	if err := json.Unmarshal(data, &storage); err != nil {
		return profileStorage{}, fmt.Errorf("failed to parse profile file: %w", err)
	}

	if storage.Profiles == nil {
		storage.Profiles = make(map[string]Profile)
	}

	return storage, nil
}

// saveStorage writes the storage through a temporary file and a rename so a
// crash never leaves a truncated file behind
func (fpm *FileProfileManager) saveStorage(storage profileStorage) error {
	path := fpm.Path()

	data, err := json.MarshalIndent(storage, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary profile file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary profile file: %w", err)
	}

	return nil
}
