package fog

import (
	"sort"

	"github.com/jediswimmer/ironcurtain/pkg/models"
)

// FrozenStore is one agent's memory of enemy actors it has seen: a relation
// "agent remembers entity", keyed by actor id. It records ids plus
// last-observed tuples only and never keeps entities alive in any storage
// sense.
type FrozenStore struct {
	records map[int]models.FrozenActor
}

// NewFrozenStore creates an empty store.
func NewFrozenStore() *FrozenStore {
	return &FrozenStore{records: make(map[int]models.FrozenActor)}
}

// Observe writes or overwrites the record for a currently visible actor.
func (s *FrozenStore) Observe(id int, actorType string, pos models.Cell, tick int64) {
	s.records[id] = models.FrozenActor{
		ID:           id,
		Type:         actorType,
		LastPosition: pos,
		LastSeenTick: tick,
	}
}

// Remove deletes a record. Called only on visible confirmation of absence.
func (s *FrozenStore) Remove(id int) {
	delete(s.records, id)
}

// Get returns the record for an id, if present.
func (s *FrozenStore) Get(id int) (models.FrozenActor, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Len returns the number of remembered actors.
func (s *FrozenStore) Len() int {
	return len(s.records)
}

// All returns all records ordered by actor id, for deterministic views.
func (s *FrozenStore) All() []models.FrozenActor {
	out := make([]models.FrozenActor, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
