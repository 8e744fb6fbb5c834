package server

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown dataset IDs.
var ErrNotFound = errors.New("dataset not found")

// Entry is one loaded dataset and the parameters of its last exploration.
type Entry struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Rows    int             `json:"rows"`
	Columns int             `json:"columns"`
	Created time.Time       `json:"created"`
	Table   *dataset.Table  `json:"-"`
	Params  analysis.Params `json:"-"`
}

// DefaultMaxDatasets is the store bound used when none is configured.
const DefaultMaxDatasets = 64

// Store keeps loaded tables in memory. Tables are immutable, so entries are
// shared by value; only the map itself is guarded.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
	max     int
}

// NewStore returns a store holding at most size datasets (oldest evicted
// first). size <= 0 means DefaultMaxDatasets.
func NewStore(size int) *Store {
	if size <= 0 {
		size = DefaultMaxDatasets
	}
	return &Store{entries: make(map[string]*Entry), max: size}
}

// Add registers t under a fresh UUID, evicting the oldest entries when the
// store is full.
func (s *Store) Add(t *dataset.Table) Entry {
	e := &Entry{
		ID:      uuid.NewString(),
		Name:    t.Name(),
		Rows:    t.NumRows(),
		Columns: t.NumCols(),
		Created: time.Now().UTC(),
		Table:   t,
	}
	s.mu.Lock()
	for len(s.order) >= s.max {
		delete(s.entries, s.order[0])
		s.order = s.order[1:]
	}
	s.entries[e.ID] = e
	s.order = append(s.order, e.ID)
	s.mu.Unlock()
	return *e
}

// Get returns the entry for id.
func (s *Store) Get(id string) (Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return *e, nil
}

// SetParams records the parameters of the latest exploration of id.
func (s *Store) SetParams(id string, p analysis.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.Params = p
	return nil
}

// Delete removes id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// List returns all entries, oldest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b Entry) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
