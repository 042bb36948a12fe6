// internal/catalog/catalog.go
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"kitsbackend/internal/kit"
	"kitsbackend/internal/logger"
)

// ErrNotFound is returned when a kit name is not in the catalog.
var ErrNotFound = errors.New("kit not found")

// Persister is the save-on-mutation seam; nil means in-memory only (tests).
type Persister interface {
	Upsert(def kit.Definition) error
	Delete(name string) (bool, error)
}

// Store owns the kit catalog. It is the only component that mutates kit
// definitions. Keys are compared case-insensitively.
type Store struct {
	mu   sync.RWMutex
	kits map[string]kit.Definition // key: lowercased name
	repo Persister
}

func NewStore(repo Persister) *Store {
	return &Store{
		kits: make(map[string]kit.Definition),
		repo: repo,
	}
}

// Load replaces the in-memory catalog with the given definitions, typically
// straight from the repository at startup.
func (s *Store) Load(defs []kit.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kits = make(map[string]kit.Definition, len(defs))
	for _, d := range defs {
		d.Name = strings.ToLower(d.Name)
		s.kits[d.Name] = d
	}
	logger.LogInfo("Catalog loaded: %d kits", len(s.kits))
}

// Get returns a copy of the named kit.
func (s *Store) Get(name string) (kit.Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.kits[strings.ToLower(name)]
	return d, ok
}

// Has reports whether the named kit exists.
func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// All returns every kit sorted by name.
func (s *Store) All() []kit.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]kit.Definition, 0, len(s.kits))
	for _, d := range s.kits {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Put creates or replaces a kit and persists the change.
func (s *Store) Put(def kit.Definition) error {
	def.Name = strings.ToLower(strings.TrimSpace(def.Name))
	if def.Name == "" {
		return fmt.Errorf("kit name must not be empty")
	}
	if def.Items == nil {
		def.Items = []kit.ItemEntry{}
	}

	s.mu.Lock()
	s.kits[def.Name] = def
	s.mu.Unlock()

	return s.persist(def)
}

// Remove deletes a kit; reports whether it existed.
func (s *Store) Remove(name string) (bool, error) {
	key := strings.ToLower(name)

	s.mu.Lock()
	_, existed := s.kits[key]
	delete(s.kits, key)
	s.mu.Unlock()

	if !existed {
		return false, nil
	}
	if s.repo != nil {
		if _, err := s.repo.Delete(key); err != nil {
			return true, fmt.Errorf("failed to persist kit removal: %w", err)
		}
	}
	return true, nil
}

// SetField applies one raw admin field edit and persists the result.
func (s *Store) SetField(name, field, value string) error {
	key := strings.ToLower(name)

	s.mu.Lock()
	def, ok := s.kits[key]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if err := kit.SetField(&def, field, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.kits[key] = def
	s.mu.Unlock()

	return s.persist(def)
}

// EnsureExists creates the kit only if it is missing; existing definitions are
// never overwritten by seeding.
func (s *Store) EnsureExists(name string, items []kit.ItemEntry, display, description, category string) error {
	key := strings.ToLower(name)

	s.mu.Lock()
	if _, ok := s.kits[key]; ok {
		s.mu.Unlock()
		return nil
	}
	def := kit.Definition{
		Name:        key,
		DisplayName: display,
		Description: description,
		Category:    category,
		Items:       items,
		Cooldown:    "0",
		ResetOnWipe: true,
	}
	if def.Items == nil {
		def.Items = []kit.ItemEntry{}
	}
	s.kits[key] = def
	s.mu.Unlock()

	logger.LogInfo("Seeded kit %q (category %s)", key, category)
	return s.persist(def)
}

// BuildFromItems constructs a kit definition from a snapshot of a
// participant's current inventory contents.
func BuildFromItems(name string, items []kit.ItemEntry) kit.Definition {
	name = strings.ToLower(strings.TrimSpace(name))
	display := name
	if len(display) > 0 {
		display = strings.ToUpper(display[:1]) + display[1:]
	}
	def := kit.Definition{
		Name:        name,
		DisplayName: display,
		Description: "Built from current inventory",
		Category:    "Custom",
		Cooldown:    "0",
		ResetOnWipe: true,
		Items:       make([]kit.ItemEntry, 0, len(items)),
	}
	for _, it := range items {
		it.Region = kit.NormalizeRegion(it.Region)
		def.Items = append(def.Items, it)
	}
	return def
}

func (s *Store) persist(def kit.Definition) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Upsert(def); err != nil {
		return fmt.Errorf("failed to persist kit %q: %w", def.Name, err)
	}
	return nil
}

// seedFile is the YAML shape of the optional kits seed document.
type seedFile struct {
	Kits []kit.Definition `yaml:"kits"`
}

// SeedFromFile loads kit definitions from a YAML seed file, creating only the
// ones not already present. A missing file is not an error.
func (s *Store) SeedFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read kit seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse kit seed file: %w", err)
	}

	created := 0
	for _, def := range seed.Kits {
		if def.Name == "" {
			logger.LogWarn("Skipping seed kit with empty name in %s", path)
			continue
		}
		if s.Has(def.Name) {
			continue
		}
		if err := s.Put(def); err != nil {
			return fmt.Errorf("failed to seed kit %q: %w", def.Name, err)
		}
		created++
	}

	if created > 0 {
		logger.LogInfo("Seeded %d kits from %s", created, path)
	}
	return nil
}
