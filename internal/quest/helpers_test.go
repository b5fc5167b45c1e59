package quest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// memPersister is an in-memory CatalogPersister. failNext makes the
// next SaveCatalog fail once, for rollback tests.
type memPersister struct {
	mu       sync.Mutex
	initial  []*Quest
	saves    int
	lastSave []*Quest
	failNext bool
}

func (p *memPersister) LoadCatalog(ctx context.Context) ([]*Quest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initial, nil
}

func (p *memPersister) SaveCatalog(ctx context.Context, quests []*Quest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return errors.New("disk full")
	}
	p.saves++
	p.lastSave = quests
	return nil
}

// memJournalSaver records journal upserts. failNext makes the next
// SaveJournal fail once.
type memJournalSaver struct {
	mu       sync.Mutex
	saved    map[string]ParticipantRecord
	failNext bool
}

func (s *memJournalSaver) SaveJournal(ctx context.Context, actorID string, record json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("disk full")
	}
	var rec ParticipantRecord
	if err := json.Unmarshal(record, &rec); err != nil {
		return err
	}
	if s.saved == nil {
		s.saved = make(map[string]ParticipantRecord)
	}
	s.saved[actorID] = rec
	return nil
}

// fakeWorld records every collaborator call so tests can assert on the
// outward effects of engine operations.
type fakeWorld struct {
	mu sync.Mutex

	known map[string]bool // resolvable participants; nil resolves everyone

	items         map[string]map[string]int // actor -> item -> count
	gold          map[string]int
	experience    map[string]int
	reputation    map[string]map[string]int
	relationships map[string]map[string]int
	titles        map[string][]string
	flags         map[string]map[string]string
	handouts      []string
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		items:         make(map[string]map[string]int),
		gold:          make(map[string]int),
		experience:    make(map[string]int),
		reputation:    make(map[string]map[string]int),
		relationships: make(map[string]map[string]int),
		titles:        make(map[string][]string),
		flags:         make(map[string]map[string]string),
	}
}

func (w *fakeWorld) ResolveParticipant(ctx context.Context, actorID string) (Participant, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.known != nil && !w.known[actorID] {
		return Participant{}, errors.New("unknown actor")
	}
	return Participant{ID: actorID, Name: actorID}, nil
}

func (w *fakeWorld) FindItem(ctx context.Context, actorID, itemID string) (int, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	count, ok := w.items[actorID][itemID]
	return count, ok, nil
}

func (w *fakeWorld) CreateItem(ctx context.Context, actorID, templateID string, quantity int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.items[actorID] == nil {
		w.items[actorID] = make(map[string]int)
	}
	w.items[actorID][templateID] += quantity
	return nil
}

func (w *fakeWorld) ReduceItem(ctx context.Context, actorID, itemID string, amount int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.items[actorID][itemID] < amount {
		return errors.New("not enough items")
	}
	w.items[actorID][itemID] -= amount
	return nil
}

func (w *fakeWorld) DeleteItem(ctx context.Context, actorID, itemID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.items[actorID], itemID)
	return nil
}

func (w *fakeWorld) GiveCurrency(ctx context.Context, actorID string, amount int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gold[actorID] += amount
	return nil
}

func (w *fakeWorld) GrantExperience(ctx context.Context, actorID string, amount int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.experience[actorID] += amount
	return nil
}

func (w *fakeWorld) ApplyReputationDelta(ctx context.Context, actorID, factionID string, amount int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reputation[actorID] == nil {
		w.reputation[actorID] = make(map[string]int)
	}
	w.reputation[actorID][factionID] += amount
	return nil
}

func (w *fakeWorld) ApplyRelationshipDelta(ctx context.Context, actorID, targetID string, amount int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.relationships[actorID] == nil {
		w.relationships[actorID] = make(map[string]int)
	}
	w.relationships[actorID][targetID] += amount
	return nil
}

func (w *fakeWorld) GrantTitle(ctx context.Context, actorID, title string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.titles[actorID] = append(w.titles[actorID], title)
	return nil
}

func (w *fakeWorld) SetParticipantFlag(ctx context.Context, actorID, key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flags[actorID] == nil {
		w.flags[actorID] = make(map[string]string)
	}
	w.flags[actorID][key] = value
	return nil
}

func (w *fakeWorld) GetParticipantFlag(ctx context.Context, actorID, key string) (string, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	value, ok := w.flags[actorID][key]
	return value, ok, nil
}

func (w *fakeWorld) RevealHandout(ctx context.Context, handoutID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handouts = append(w.handouts, handoutID)
	return nil
}

func (w *fakeWorld) collaborators() Collaborators {
	return Collaborators{
		Roster:        w,
		Inventory:     w,
		Currency:      w,
		Experience:    w,
		Reputation:    w,
		Relationships: w,
		Titles:        w,
		Flags:         w,
		Handouts:      w,
	}
}

// capturePublisher collects events for assertions
type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *capturePublisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *capturePublisher) byType(eventType string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, ev := range p.events {
		if ev.EventType() == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// testFixture bundles an engine wired to in-memory fakes
type testFixture struct {
	engine    *Engine
	store     *Store
	journal   *Journal
	world     *fakeWorld
	persister *memPersister
	pub       *capturePublisher
	now       time.Time
}

func newTestFixture(t *testing.T, quests []*Quest, opts ...EngineOption) *testFixture {
	t.Helper()

	f := &testFixture{
		world:     newFakeWorld(),
		persister: &memPersister{initial: quests},
		pub:       &capturePublisher{},
		journal:   NewJournal(),
		now:       time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.store = NewStore(f.persister)
	if err := f.store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	all := append([]EngineOption{
		WithPublisher(f.pub),
		WithClock(func() time.Time { return f.now }),
	}, opts...)
	f.engine = NewEngine(f.store, f.journal, f.world.collaborators(), all...)
	return f
}

func killQuest(id string, required int) *Quest {
	return &Quest{
		ID:       id,
		Name:     "Test Hunt",
		Category: CategorySide,
		Status:   StatusAvailable,
		Giver:    Giver{ActorID: "npc_giver", DeathPolicy: GiverDeathContinue},
		Objectives: []Objective{
			{ID: id + "#0", Kind: KindKillCount, Target: "mob_rat", TargetName: "giant rat", Required: required},
		},
		Rewards: RewardSet{Gold: 100, Experience: 50, Distribution: DistributeSplit},
		Abandon: AbandonConfig{Allowed: true},
	}
}

func acceptedQuest(id string, participants ...string) *Quest {
	q := killQuest(id, 1)
	q.Status = StatusAccepted
	q.AcceptedBy = participants
	return q
}
