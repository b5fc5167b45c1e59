package quest

import (
	"context"
	"sort"
	"sync"
)

// Store owns the quest catalog. It is constructed once and passed to
// dependents; there is no package-level instance.
//
// Two guarantees matter here. Mutations to one quest id are serialized
// through a per-id mutex, so concurrent event deliveries cannot
// interleave a read-modify-write on the same quest. And every mutation
// runs against deep clones that are only committed after the whole
// catalog saves, so a failed save leaves the previous state visible.
type Store struct {
	mu        sync.RWMutex
	quests    map[string]*Quest
	persister CatalogPersister

	lmu   sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates an empty store backed by the given persister
func NewStore(persister CatalogPersister) *Store {
	return &Store{
		quests:    make(map[string]*Quest),
		persister: persister,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Load replaces the in-memory catalog with the persisted one
func (s *Store) Load(ctx context.Context) error {
	quests, err := s.persister.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quests = make(map[string]*Quest, len(quests))
	for _, q := range quests {
		s.quests[q.ID] = q.Clone()
	}
	return nil
}

// Get returns a snapshot of one quest
func (s *Store) Get(id string) (*Quest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quests[id]
	if !ok {
		return nil, false
	}
	return q.Clone(), true
}

// All returns snapshots of every quest, ordered by id for determinism
func (s *Store) All() []*Quest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Quest, 0, len(s.quests))
	for _, q := range s.quests {
		out = append(out, q.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDsByStatus returns ids of quests in any of the given statuses
func (s *Store) IDsByStatus(statuses ...Status) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, q := range s.quests {
		for _, st := range statuses {
			if q.Status == st {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Count returns the catalog size
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quests)
}

// Create adds a quest to the catalog and persists. Quests enter the
// catalog only through this path.
func (s *Store) Create(ctx context.Context, q *Quest) error {
	lock := s.lockFor(q.ID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	_, exists := s.quests[q.ID]
	s.mu.RUnlock()
	if exists {
		return Precondition("quest %s already exists", q.ID)
	}

	clone := q.Clone()
	if err := s.persister.SaveCatalog(ctx, s.snapshotWith(map[string]*Quest{q.ID: clone})); err != nil {
		return PersistenceFailed(err)
	}

	s.mu.Lock()
	s.quests[q.ID] = clone
	s.mu.Unlock()
	return nil
}

// Delete removes a quest from the catalog and persists
func (s *Store) Delete(ctx context.Context, id string) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	_, exists := s.quests[id]
	s.mu.RUnlock()
	if !exists {
		return NotFound("quest %s", id)
	}

	if err := s.persister.SaveCatalog(ctx, s.snapshotWith(map[string]*Quest{id: nil})); err != nil {
		return PersistenceFailed(err)
	}

	s.mu.Lock()
	delete(s.quests, id)
	s.mu.Unlock()

	s.lmu.Lock()
	delete(s.locks, id)
	s.lmu.Unlock()
	return nil
}

// Mutate applies fn to a clone of one quest, saves the catalog, then
// commits. fn returning an error aborts with no state change. The
// returned quest is a snapshot of the committed state.
func (s *Store) Mutate(ctx context.Context, id string, fn func(q *Quest) error) (*Quest, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	orig, ok := s.quests[id]
	s.mu.RUnlock()
	if !ok {
		return nil, NotFound("quest %s", id)
	}

	clone := orig.Clone()
	if err := fn(clone); err != nil {
		return nil, err
	}

	if err := s.persister.SaveCatalog(ctx, s.snapshotWith(map[string]*Quest{id: clone})); err != nil {
		return nil, PersistenceFailed(err)
	}

	s.mu.Lock()
	s.quests[id] = clone
	s.mu.Unlock()
	return clone.Clone(), nil
}

// MutateMany applies fn to clones of several quests under their per-id
// locks (acquired in sorted order), saves once, then commits all. Ids
// missing from the catalog are simply absent from the map handed to fn;
// fn decides whether that matters.
func (s *Store) MutateMany(ctx context.Context, ids []string, fn func(quests map[string]*Quest) error) (map[string]*Quest, error) {
	unique := uniqueSorted(ids)
	for _, id := range unique {
		lock := s.lockFor(id)
		lock.Lock()
		defer lock.Unlock()
	}

	clones := make(map[string]*Quest, len(unique))
	s.mu.RLock()
	for _, id := range unique {
		if orig, ok := s.quests[id]; ok {
			clones[id] = orig.Clone()
		}
	}
	s.mu.RUnlock()

	if err := fn(clones); err != nil {
		return nil, err
	}

	if err := s.persister.SaveCatalog(ctx, s.snapshotWith(clones)); err != nil {
		return nil, PersistenceFailed(err)
	}

	s.mu.Lock()
	for id, q := range clones {
		s.quests[id] = q
	}
	s.mu.Unlock()

	out := make(map[string]*Quest, len(clones))
	for id, q := range clones {
		out[id] = q.Clone()
	}
	return out, nil
}

// lockFor returns the mutation mutex for a quest id, creating it lazily
func (s *Store) lockFor(id string) *sync.Mutex {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// snapshotWith builds the full catalog slice for a save, substituting
// the pending clones (a nil override marks a deletion). Callers hold the
// per-id locks for every overridden id.
func (s *Store) snapshotWith(overrides map[string]*Quest) []*Quest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Quest, 0, len(s.quests)+len(overrides))
	for id, q := range s.quests {
		if override, ok := overrides[id]; ok {
			if override != nil {
				out = append(out, override)
			}
			continue
		}
		out = append(out, q)
	}
	for id, q := range overrides {
		if q == nil {
			continue
		}
		if _, exists := s.quests[id]; !exists {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
