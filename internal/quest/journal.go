package quest

import (
	"context"
	"encoding/json"
	"sync"
)

// JournalSaver upserts one participant's serialized record. The
// database implements this.
type JournalSaver interface {
	SaveJournal(ctx context.Context, actorID string, record json.RawMessage) error
}

// ParticipantRecord is one participant's quest history
type ParticipantRecord struct {
	Active    map[string]bool `json:"active"`
	Completed map[string]bool `json:"completed"`
	Failed    map[string]bool `json:"failed"`
}

func newParticipantRecord() *ParticipantRecord {
	return &ParticipantRecord{
		Active:    make(map[string]bool),
		Completed: make(map[string]bool),
		Failed:    make(map[string]bool),
	}
}

// Journal tracks every participant's active/completed/failed quest ids.
// The lifecycle controller moves entries between lists; prerequisite and
// duplicate-acceptance checks read from here.
type Journal struct {
	mu      sync.RWMutex
	records map[string]*ParticipantRecord
	saver   JournalSaver
}

// NewJournal creates an empty journal
func NewJournal() *Journal {
	return &Journal{records: make(map[string]*ParticipantRecord)}
}

// AttachSaver wires external persistence. Flush is a no-op without one.
func (j *Journal) AttachSaver(saver JournalSaver) {
	j.saver = saver
}

func (j *Journal) record(actorID string) *ParticipantRecord {
	rec, ok := j.records[actorID]
	if !ok {
		rec = newParticipantRecord()
		j.records[actorID] = rec
	}
	return rec
}

// MarkActive puts a quest on a participant's active list
func (j *Journal) MarkActive(actorID, questID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.record(actorID).Active[questID] = true
}

// MarkCompleted moves a quest from active to completed
func (j *Journal) MarkCompleted(actorID, questID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec := j.record(actorID)
	delete(rec.Active, questID)
	rec.Completed[questID] = true
}

// MarkFailed moves a quest from active to failed
func (j *Journal) MarkFailed(actorID, questID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec := j.record(actorID)
	delete(rec.Active, questID)
	rec.Failed[questID] = true
}

// RemoveActive drops a quest from the active list without recording an
// outcome (abandonment)
func (j *Journal) RemoveActive(actorID, questID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if rec, ok := j.records[actorID]; ok {
		delete(rec.Active, questID)
	}
}

// HasActive reports whether the quest is on the participant's active list
func (j *Journal) HasActive(actorID, questID string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	rec, ok := j.records[actorID]
	return ok && rec.Active[questID]
}

// HasCompleted reports whether the participant has completed the quest
func (j *Journal) HasCompleted(actorID, questID string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	rec, ok := j.records[actorID]
	return ok && rec.Completed[questID]
}

// ActiveQuests returns the participant's active quest ids
func (j *Journal) ActiveQuests(actorID string) []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	rec, ok := j.records[actorID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(rec.Active))
	for id := range rec.Active {
		out = append(out, id)
	}
	return out
}

// PurgeQuest removes every reference to a deleted quest
func (j *Journal) PurgeQuest(questID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, rec := range j.records {
		delete(rec.Active, questID)
		delete(rec.Completed, questID)
		delete(rec.Failed, questID)
	}
}

// Flush upserts the given participants' records through the saver;
// with no ids it flushes every record. Lifecycle operations flush the
// actors they touched so their history survives an unclean shutdown.
func (j *Journal) Flush(ctx context.Context, actorIDs ...string) error {
	if j.saver == nil {
		return nil
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(actorIDs) == 0 {
		actorIDs = make([]string, 0, len(j.records))
		for actorID := range j.records {
			actorIDs = append(actorIDs, actorID)
		}
	}
	for _, actorID := range actorIDs {
		rec, ok := j.records[actorID]
		if !ok {
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := j.saver.SaveJournal(ctx, actorID, data); err != nil {
			return err
		}
	}
	return nil
}

// Export returns every participant record serialized for persistence
func (j *Journal) Export() (map[string]json.RawMessage, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(j.records))
	for actorID, rec := range j.records {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		out[actorID] = data
	}
	return out, nil
}

// Import restores serialized participant records
func (j *Journal) Import(records map[string]json.RawMessage) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for actorID, data := range records {
		rec := newParticipantRecord()
		if err := json.Unmarshal(data, rec); err != nil {
			return err
		}
		if rec.Active == nil {
			rec.Active = make(map[string]bool)
		}
		if rec.Completed == nil {
			rec.Completed = make(map[string]bool)
		}
		if rec.Failed == nil {
			rec.Failed = make(map[string]bool)
		}
		j.records[actorID] = rec
	}
	return nil
}

// MarshalJSON serializes the journal for persistence alongside the catalog
func (j *Journal) MarshalJSON() ([]byte, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return json.Marshal(j.records)
}

// UnmarshalJSON restores a serialized journal
func (j *Journal) UnmarshalJSON(data []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	records := make(map[string]*ParticipantRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	for _, rec := range records {
		if rec.Active == nil {
			rec.Active = make(map[string]bool)
		}
		if rec.Completed == nil {
			rec.Completed = make(map[string]bool)
		}
		if rec.Failed == nil {
			rec.Failed = make(map[string]bool)
		}
	}
	j.records = records
	return nil
}
