package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RegistryEntry records the vendor IDs a prior confirmed push assigned to a
// provider name.
type RegistryEntry struct {
	ProviderID    string    `json:"provider_id"`
	DataSourceID  string    `json:"data_source_id"`
	Users         int       `json:"users"`
	Groups        int       `json:"groups"`
	Relationships int       `json:"relationships"`
	PushedAt      time.Time `json:"pushed_at"`
}

// Registry is the on-disk provider-name → vendor-ID mapping. It is loaded
// once at the start of a run and saved once after a confirmed push.
// Concurrent runs against the same file are not supported; no locking is
// attempted.
type Registry struct {
	path    string
	entries map[string]RegistryEntry
}

// LoadRegistry reads the registry file at path. A missing file yields an
// empty registry; a malformed file is an error, since pushing with a
// silently empty registry would turn an update into a duplicate create.
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{path: path, entries: map[string]RegistryEntry{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read provider registry %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		return nil, fmt.Errorf("provider registry %s is malformed: %w", path, err)
	}
	return r, nil
}

// Lookup returns the recorded entry for a provider name.
func (r *Registry) Lookup(providerName string) (RegistryEntry, bool) {
	e, ok := r.entries[providerName]
	return e, ok
}

// Record overwrites the entry for a provider name in memory. Save persists
// it.
func (r *Registry) Record(providerName string, entry RegistryEntry) {
	r.entries[providerName] = entry
}

// Forget drops the entry for a provider name in memory.
func (r *Registry) Forget(providerName string) {
	delete(r.entries, providerName)
}

// Save writes the registry back to its file, creating parent directories
// as needed.
func (r *Registry) Save() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create registry directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode provider registry: %w", err)
	}
	if err := os.WriteFile(r.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("cannot write provider registry %s: %w", r.path, err)
	}
	return nil
}
