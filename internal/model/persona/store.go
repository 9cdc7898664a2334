package persona

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Store exposes persona lookup for the submission pipeline and its consumers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the persona roster.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier. Lookup is case-insensitive,
// matching the lenient id handling of the backend.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if strings.EqualFold(item.ID, id) {
			return item, true
		}
	}
	return Persona{}, false
}

// ResolveNames maps selected persona ids to the canonical names the backend
// expects in agent lists. Unresolvable ids are dropped with a warning rather
// than failing the whole selection; ok is false iff nothing resolved, in
// which case a group turn must not be started.
func ResolveNames(store Store, selectedIDs []string) (names []string, ok bool) {
	for _, id := range selectedIDs {
		p, found := store.FindByID(id)
		if !found {
			log.Warn().Str("persona_id", id).Msg("dropping unknown persona from group selection")
			continue
		}
		names = append(names, p.Name)
	}
	return names, len(names) > 0
}
