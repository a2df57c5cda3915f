package domain

import (
	"strings"

	"github.com/google/uuid"
)

// ReferenceMap is the batch-scoped translation from external ids to
// internal ids, built incrementally in dependency order, plus the
// email→user table preloaded once per batch.
type ReferenceMap struct {
	entities map[EntityType]map[string]uuid.UUID
	users    map[string]uuid.UUID
}

// NewReferenceMap creates an empty reference map over a preloaded user
// directory. User emails are normalized on insert and lookup.
func NewReferenceMap(users map[string]uuid.UUID) *ReferenceMap {
	normalized := make(map[string]uuid.UUID, len(users))
	for email, id := range users {
		normalized[NormalizeEmail(email)] = id
	}
	return &ReferenceMap{
		entities: make(map[EntityType]map[string]uuid.UUID),
		users:    normalized,
	}
}

// NormalizeEmail lower-cases and trims an email address for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Add records the internal id assigned to an external id.
func (m *ReferenceMap) Add(e EntityType, externalID string, id uuid.UUID) {
	byID := m.entities[e]
	if byID == nil {
		byID = make(map[string]uuid.UUID)
		m.entities[e] = byID
	}
	byID[externalID] = id
}

// Lookup resolves an external id within one entity category.
func (m *ReferenceMap) Lookup(e EntityType, externalID string) (uuid.UUID, bool) {
	id, ok := m.entities[e][externalID]
	return id, ok
}

// UserByEmail resolves a normalized email against the preloaded user
// directory.
func (m *ReferenceMap) UserByEmail(email string) (uuid.UUID, bool) {
	id, ok := m.users[NormalizeEmail(email)]
	return id, ok
}

// Count returns the number of mapped external ids for one category.
func (m *ReferenceMap) Count(e EntityType) int {
	return len(m.entities[e])
}

// exportedCategories are the categories surfaced in the response
// reference map, keyed by their response field name.
var exportedCategories = []struct {
	key    string
	entity EntityType
}{
	{"clients", EntityClient},
	{"contacts", EntityContact},
	{"cases", EntityCase},
	{"subjects", EntitySubject},
	{"activities", EntityActivity},
}

// Export renders the external→internal dictionaries returned to callers.
// Every exported category is present even when empty.
func (m *ReferenceMap) Export() map[string]map[string]string {
	out := make(map[string]map[string]string, len(exportedCategories))
	for _, cat := range exportedCategories {
		ids := make(map[string]string, len(m.entities[cat.entity]))
		for ext, id := range m.entities[cat.entity] {
			ids[ext] = id.String()
		}
		out[cat.key] = ids
	}
	return out
}
