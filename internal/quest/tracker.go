package quest

import (
	"context"
	"errors"

	"github.com/stonelantern/questhall/internal/logger"
)

// errNoChange aborts a mutation without saving; callers treat it as a
// successful no-op.
var errNoChange = errors.New("no change")

// Tracker ingests external game events and advances objective progress.
// Each ingestion scans every accepted or in-progress quest; mutations to
// one quest are serialized by the store, so events for the same quest
// apply in arrival order.
type Tracker struct {
	engine *Engine
}

// NewTracker creates a tracker over the engine's store
func NewTracker(engine *Engine) *Tracker {
	return &Tracker{engine: engine}
}

// OnKill increments every matching non-complete kill objective by one.
// mobID is the killed entity's identifier, mobName its display name;
// the match falls back from exact id through exact name to substring.
func (t *Tracker) OnKill(ctx context.Context, mobID, mobName string) error {
	return t.scan(ctx, func(q *Quest) bool {
		changed := false
		for i := range q.Objectives {
			obj := &q.Objectives[i]
			if obj.Kind != KindKillCount || obj.Completed {
				continue
			}
			if !obj.matchesKill(mobID, mobName) {
				continue
			}
			obj.Current++
			changed = true
		}
		return changed
	})
}

// OnItemCountChanged sets the current count of every matching
// non-complete item objective. The count is absolute, not incremental,
// so drops and trades are reflected too.
func (t *Tracker) OnItemCountChanged(ctx context.Context, itemID string, newCount int) error {
	return t.scan(ctx, func(q *Quest) bool {
		changed := false
		for i := range q.Objectives {
			obj := &q.Objectives[i]
			if obj.Kind != KindItemCollect || obj.Completed {
				continue
			}
			if obj.Target != itemID || obj.Current == newCount {
				continue
			}
			obj.Current = newCount
			changed = true
		}
		return changed
	})
}

// OnLocationEnter completes every matching non-complete location
// objective. An objective without a region requirement matches the
// whole scene.
func (t *Tracker) OnLocationEnter(ctx context.Context, sceneID, regionID string) error {
	return t.scan(ctx, func(q *Quest) bool {
		changed := false
		for i := range q.Objectives {
			obj := &q.Objectives[i]
			if obj.Kind != KindLocation || obj.Completed {
				continue
			}
			if !obj.matchesLocation(sceneID, regionID) {
				continue
			}
			obj.Current = 1
			changed = true
		}
		return changed
	})
}

// OnManualComplete completes a manual objective. Only manual objectives
// go through here; tracked kinds complete through their own events or a
// GM override.
func (t *Tracker) OnManualComplete(ctx context.Context, questID, objectiveID string) (*Quest, error) {
	return t.mutateObjective(ctx, questID, objectiveID, func(obj *Objective) error {
		if obj.Kind != KindManual {
			return Precondition("objective %s is %s, not manual", objectiveID, obj.Kind)
		}
		if obj.Completed {
			return errNoChange
		}
		obj.Current = obj.Required
		if obj.Current == 0 {
			obj.Current = 1
		}
		return nil
	})
}

// UpdateObjective sets an objective's progress counter directly (GM
// adjustment). Setting identical data on a completed objective is a
// no-op: no state change, no notifications.
func (t *Tracker) UpdateObjective(ctx context.Context, questID, objectiveID string, current int) (*Quest, error) {
	return t.mutateObjective(ctx, questID, objectiveID, func(obj *Objective) error {
		if obj.Completed && obj.Current == current {
			return errNoChange
		}
		obj.Current = current
		return nil
	})
}

// CompleteObjective force-completes any objective regardless of kind
func (t *Tracker) CompleteObjective(ctx context.Context, questID, objectiveID string) (*Quest, error) {
	return t.mutateObjective(ctx, questID, objectiveID, func(obj *Objective) error {
		if obj.Completed {
			return errNoChange
		}
		obj.Current = obj.Required
		if obj.Current == 0 {
			obj.Current = 1
		}
		return nil
	})
}

// mutateObjective runs fn against one objective under the quest's
// mutation lock, then settles completion and notifications
func (t *Tracker) mutateObjective(ctx context.Context, questID, objectiveID string, fn func(obj *Objective) error) (*Quest, error) {
	e := t.engine
	var updates []ObjectiveUpdated
	snapshot, err := e.store.Mutate(ctx, questID, func(q *Quest) error {
		for i := range q.Objectives {
			obj := &q.Objectives[i]
			if obj.ID != objectiveID {
				continue
			}
			if err := fn(obj); err != nil {
				return err
			}
			updates = t.settle(q, obj, updates)
			t.markProgress(q)
			return nil
		}
		return NotFound("objective %s on quest %s", objectiveID, questID)
	})
	if errors.Is(err, errNoChange) {
		existing, _ := e.store.Get(questID)
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	t.notify(ctx, updates)
	return snapshot, nil
}

// scan applies fn to every accepted or in-progress quest under its
// mutation lock. fn reports whether it changed anything; untouched
// quests skip the catalog save entirely.
func (t *Tracker) scan(ctx context.Context, fn func(q *Quest) bool) error {
	e := t.engine
	ids := e.store.IDsByStatus(StatusAccepted, StatusInProgress)
	for _, id := range ids {
		var updates []ObjectiveUpdated
		_, err := e.store.Mutate(ctx, id, func(q *Quest) error {
			if !q.Status.Active() {
				return errNoChange // Raced with a transition
			}
			before := snapshotObjectives(q)
			if !fn(q) {
				return errNoChange
			}
			for i := range q.Objectives {
				obj := &q.Objectives[i]
				if obj.Current != before[i].Current || obj.Completed != before[i].Completed {
					updates = t.settle(q, obj, updates)
				}
			}
			t.markProgress(q)
			return nil
		})
		if errors.Is(err, errNoChange) {
			continue
		}
		if err != nil {
			return err
		}
		t.notify(ctx, updates)
	}
	return nil
}

// settle updates an objective's completed flag after a counter change
// and queues the notification
func (t *Tracker) settle(q *Quest, obj *Objective, updates []ObjectiveUpdated) []ObjectiveUpdated {
	newly := false
	if !obj.Completed && objectiveMet(obj) {
		obj.Completed = true
		newly = true
	}
	return append(updates, ObjectiveUpdated{
		QuestID:        q.ID,
		ObjectiveID:    obj.ID,
		Current:        obj.Current,
		Required:       obj.Required,
		Completed:      obj.Completed,
		newlyCompleted: newly,
	})
}

// markProgress performs the implicit accepted-to-in-progress transition
// on the first recorded progress
func (t *Tracker) markProgress(q *Quest) {
	if q.Status == StatusAccepted {
		q.Status = StatusInProgress
	}
}

// notify publishes queued objective updates and reveals handouts for
// objectives that just completed
func (t *Tracker) notify(ctx context.Context, updates []ObjectiveUpdated) {
	e := t.engine
	for _, update := range updates {
		e.pub.Publish(update)
		if !update.newlyCompleted {
			continue
		}
		q, ok := e.store.Get(update.QuestID)
		if !ok {
			continue
		}
		for i := range q.Objectives {
			obj := &q.Objectives[i]
			if obj.ID == update.ObjectiveID && obj.HandoutID != "" {
				if err := e.world.Handouts.RevealHandout(ctx, obj.HandoutID); err != nil {
					logger.Error("Handout reveal failed", "quest", q.ID, "handout", obj.HandoutID, "error", err)
				}
			}
		}
	}
}

func objectiveMet(obj *Objective) bool {
	if obj.Required <= 0 {
		return obj.Current > 0
	}
	return obj.Current >= obj.Required
}

func snapshotObjectives(q *Quest) []Objective {
	out := make([]Objective, len(q.Objectives))
	copy(out, q.Objectives)
	return out
}
