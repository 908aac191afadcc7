package profile

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the on-disk profile document.
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// Registry holds the validated profiles available to a process.
// It is read-only after construction.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry validates the given profiles and indexes them by name.
// Later entries override earlier ones with the same name.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		p.Defaults()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		r.profiles[p.Name] = p
	}
	return r, nil
}

// Load returns the built-in profiles merged with those in path.
// An empty path yields only the built-ins.
func Load(path string) (*Registry, error) {
	builtin := Builtin()
	all := make([]Profile, 0, len(builtin))
	for _, name := range sortedKeys(builtin) {
		all = append(all, builtin[name])
	}

	if path != "" {
		extra, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, extra...)
	}
	return NewRegistry(all...)
}

// LoadFile reads profiles from a YAML file.
func LoadFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(f.Profiles) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoProfiles)
	}
	return f.Profiles, nil
}

// Get returns the named profile.
func (r *Registry) Get(name string) (Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// List returns all profiles sorted by name.
func (r *Registry) List() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, name := range sortedKeys(r.profiles) {
		out = append(out, r.profiles[name])
	}
	return out
}

func sortedKeys(m map[string]Profile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
