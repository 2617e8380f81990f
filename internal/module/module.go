// Package module provides the world-template catalog. Built-in presets
// ship with the binary; custom templates load from Lua scripts.
package module

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/tabletop.chat/internal/session"
)

// ErrUnknownModule indicates a template ID with no catalog entry.
var ErrUnknownModule = errors.New("unknown module")

// WorldTemplate describes a startable adventure: the world, its
// opening scene, and the seed material the narrator draws from.
type WorldTemplate struct {
	ID          string
	Name        string
	Description string

	// Opening is the narration delivered when a session starts.
	Opening string

	Location  string
	TimeOfDay string
	Weather   string

	// Tension seeds the story's initial tension score.
	Tension int

	Lore  []string
	NPCs  []session.NPC
	Hooks []string
}

// Validate rejects templates missing required fields.
func (t WorldTemplate) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("module id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("module %s: name is required", t.ID)
	}
	if strings.TrimSpace(t.Opening) == "" {
		return fmt.Errorf("module %s: opening is required", t.ID)
	}
	if t.Tension < 0 || t.Tension > 10 {
		return fmt.Errorf("module %s: tension %d out of range [0, 10]", t.ID, t.Tension)
	}
	return nil
}

// Apply stamps the template onto a freshly created session.
func (t WorldTemplate) Apply(s *session.Session, now time.Time) {
	s.ModuleID = t.ID
	s.WorldName = t.Name
	if t.Location != "" {
		s.World.Location = t.Location
	}
	if t.TimeOfDay != "" {
		s.World.TimeOfDay = t.TimeOfDay
	}
	if t.Weather != "" {
		s.World.Weather = t.Weather
	}
	// A template that leaves tension unset keeps the session baseline.
	if t.Tension > 0 {
		s.Story.Tension = t.Tension
	}
	s.Lore = append(s.Lore, t.Lore...)
	for _, npc := range t.NPCs {
		s.SetNPC(npc, now)
	}
	for _, hook := range t.Hooks {
		s.Story.OpenThreads = append(s.Story.OpenThreads, hook)
	}
	s.AddHistory(session.HistoryEntry{
		Kind:      session.EntryDM,
		Content:   t.Opening,
		Timestamp: now.UTC(),
	}, now)
}

// Catalog is a registry of world templates keyed by ID.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]WorldTemplate
}

// NewCatalog builds a catalog seeded with the built-in presets.
func NewCatalog() *Catalog {
	c := &Catalog{templates: make(map[string]WorldTemplate)}
	for _, preset := range presets() {
		// Presets are authored in this package and always validate.
		_ = c.Register(preset)
	}
	return c
}

// Register adds or replaces a template.
func (c *Catalog) Register(t WorldTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[t.ID] = t
	return nil
}

// Get fetches a template by ID.
func (c *Catalog) Get(id string) (WorldTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[strings.TrimSpace(id)]
	if !ok {
		return WorldTemplate{}, fmt.Errorf("%w: %q", ErrUnknownModule, id)
	}
	return t, nil
}

// Resolve maps a module ID or free-form world description to a
// template. An empty value resolves to the default preset; unknown
// free text becomes a blank template carrying the text as world name.
func (c *Catalog) Resolve(idOrName string) (WorldTemplate, error) {
	idOrName = strings.TrimSpace(idOrName)
	if idOrName == "" {
		return c.Get(DefaultModuleID)
	}
	if t, err := c.Get(idOrName); err == nil {
		return t, nil
	}
	return WorldTemplate{
		ID:      "custom",
		Name:    idOrName,
		Opening: fmt.Sprintf("The story opens in %s. The table falls quiet as the first scene begins.", idOrName),
		Tension: 3,
	}, nil
}

// List returns every registered template ordered by ID.
func (c *Catalog) List() []WorldTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]WorldTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
