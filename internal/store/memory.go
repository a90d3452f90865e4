package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/wirelogic/internal/topology"
)

// InMemoryCircuitStore implements CircuitStore for testing and for the MCP
// server's scratch space.
type InMemoryCircuitStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewInMemoryCircuitStore creates an empty in-memory store.
func NewInMemoryCircuitStore() *InMemoryCircuitStore {
	return &InMemoryCircuitStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Save stores a deep copy of doc under name.
func (s *InMemoryCircuitStore) Save(ctx context.Context, name string, doc *topology.Document) (Record, error) {
	if err := checkSave(name, doc); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	rec, exists := s.records[name]
	if !exists {
		rec = Record{ID: uuid.NewString(), Name: name, CreatedAt: now}
	}
	rec.UpdatedAt = now
	rec.Document = cloneDocument(doc)
	rec.Parts = len(doc.Parts)
	rec.Wires = len(doc.Wires)
	s.records[name] = rec

	out := rec
	out.Document = cloneDocument(rec.Document)
	return out, nil
}

// Load returns a copy of the record stored under name.
func (s *InMemoryCircuitStore) Load(ctx context.Context, name string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	if !ok {
		return Record{}, notFound(name)
	}
	rec.Document = cloneDocument(rec.Document)
	return rec, nil
}

// List returns all records ordered by name.
func (s *InMemoryCircuitStore) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		rec.Document = nil
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the record stored under name.
func (s *InMemoryCircuitStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; !ok {
		return notFound(name)
	}
	delete(s.records, name)
	return nil
}

// Close is a no-op.
func (s *InMemoryCircuitStore) Close() error { return nil }

func cloneDocument(doc *topology.Document) *topology.Document {
	if doc == nil {
		return nil
	}
	out := &topology.Document{
		Version: doc.Version,
		Parts:   make([]topology.PartSpec, len(doc.Parts)),
		Wires:   append([]topology.WireSpec(nil), doc.Wires...),
	}
	for i, p := range doc.Parts {
		if p.Energized != nil {
			on := *p.Energized
			p.Energized = &on
		}
		out.Parts[i] = p
	}
	return out
}
