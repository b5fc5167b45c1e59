package quest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stonelantern/questhall/internal/logger"
)

// flag key prefix for per-participant abandonment cooldowns
const cooldownFlagPrefix = "quest_cooldown:"

// Engine is the lifecycle controller. It owns the status state machine
// and is the only writer of quest status.
type Engine struct {
	store   *Store
	journal *Journal
	world   Collaborators
	pub     Publisher

	// Feature toggle from server config; quests additionally need
	// Abandon.Allowed set per quest.
	allowAbandon bool

	now func() time.Time
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithAbandonment enables or disables the abandonment feature globally
func WithAbandonment(allowed bool) EngineOption {
	return func(e *Engine) { e.allowAbandon = allowed }
}

// WithPublisher sets the event publisher
func WithPublisher(pub Publisher) EngineOption {
	return func(e *Engine) { e.pub = pub }
}

// WithClock overrides the engine's time source (tests)
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires the lifecycle controller to its store, journal and
// external collaborators
func NewEngine(store *Store, journal *Journal, world Collaborators, opts ...EngineOption) *Engine {
	e := &Engine{
		store:        store,
		journal:      journal,
		world:        world,
		pub:          NopPublisher{},
		allowAbandon: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the engine's catalog store (read paths for the gateway)
func (e *Engine) Store() *Store { return e.store }

// Journal exposes the participant journal
func (e *Engine) Journal() *Journal { return e.journal }

// CreateQuest adds a new quest to the catalog. Validation is soft:
// a questionable definition logs a warning but still loads.
func (e *Engine) CreateQuest(ctx context.Context, q *Quest) (*Quest, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Status == "" {
		q.Status = StatusAvailable
	}
	if q.RequestedAt.IsZero() {
		q.RequestedAt = e.now()
	}
	for i := range q.Objectives {
		if q.Objectives[i].ID == "" {
			q.Objectives[i].ID = fmt.Sprintf("%s#%d", q.ID, i)
		}
	}
	for _, warning := range ValidateQuest(q) {
		logger.Warning("Quest definition warning", "quest", q.ID, "warning", warning)
	}
	if err := e.store.Create(ctx, q); err != nil {
		return nil, err
	}
	snapshot, _ := e.store.Get(q.ID)
	return snapshot, nil
}

// UpdateQuest replaces a quest's authoring fields. Status, progress and
// participants are never touched here.
func (e *Engine) UpdateQuest(ctx context.Context, updated *Quest) (*Quest, error) {
	return e.store.Mutate(ctx, updated.ID, func(q *Quest) error {
		q.Name = updated.Name
		q.Description = updated.Description
		q.Category = updated.Category
		q.Hidden = updated.Hidden
		q.Giver = updated.Giver
		q.Rewards = updated.Rewards.clone()
		q.Branches = updated.Clone().Branches
		q.Prereqs = cloneStrings(updated.Prereqs)
		q.MutuallyExclusive = cloneStrings(updated.MutuallyExclusive)
		q.ConflictsWith = cloneStrings(updated.ConflictsWith)
		q.Repeatable = updated.Repeatable
		q.Abandon = updated.Abandon
		return nil
	})
}

// DeleteQuest removes a quest and purges journal references
func (e *Engine) DeleteQuest(ctx context.Context, questID string) error {
	if err := e.store.Delete(ctx, questID); err != nil {
		return err
	}
	e.journal.PurgeQuest(questID)
	return e.flushJournal(ctx)
}

// Accept moves an available quest to accepted for the given party. The
// first participant leads: prerequisites and mutual exclusivity are
// checked against them.
func (e *Engine) Accept(ctx context.Context, questID string, participantIDs []string) (*Quest, error) {
	if len(participantIDs) == 0 {
		return nil, Precondition("no participants")
	}

	party := uniqueInOrder(participantIDs)
	if len(party) != len(participantIDs) {
		return nil, Precondition("duplicate participant in party")
	}

	for _, actorID := range party {
		if _, err := e.world.Roster.ResolveParticipant(ctx, actorID); err != nil {
			return nil, NotFound("participant %s", actorID)
		}
		if e.journal.HasActive(actorID, questID) {
			return nil, Precondition("participant %s already accepted quest %s", actorID, questID)
		}
		if blocked, expiry := e.onCooldown(ctx, actorID, questID); blocked {
			return nil, Precondition("quest %s on cooldown for %s until %s", questID, actorID, expiry)
		}
	}

	leader := party[0]

	snapshot, err := e.store.Mutate(ctx, questID, func(q *Quest) error {
		if q.Status != StatusAvailable {
			return Precondition("quest %s is %s, not available", questID, q.Status)
		}
		for _, prereq := range q.Prereqs {
			if !e.journal.HasCompleted(leader, prereq) {
				return Precondition("prerequisite %s not completed", prereq)
			}
		}
		for _, exclusive := range q.MutuallyExclusive {
			if other, ok := e.store.Get(exclusive); ok && other.Status.Active() && other.HasParticipant(leader) {
				return Precondition("mutually exclusive with active quest %s", exclusive)
			}
		}
		q.Status = StatusAccepted
		q.AcceptedAt = e.now()
		for _, actorID := range party {
			q.addParticipant(actorID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, actorID := range party {
		e.journal.MarkActive(actorID, questID)
	}
	if err := e.flushJournal(ctx, party...); err != nil {
		return nil, err
	}
	e.pub.Publish(QuestAccepted{QuestID: questID, Participants: party})
	logger.Info("Quest accepted", "quest", questID, "participants", len(party))
	return snapshot, nil
}

// Complete turns in a quest: verifies every objective, resolves the
// branch, distributes rewards, consumes collected items, force-fails
// conflicting quests and records completion. The returned summary is the
// distribution ledger.
func (e *Engine) Complete(ctx context.Context, questID string, participantIDs []string, branchID string) (*Quest, *Summary, error) {
	current, ok := e.store.Get(questID)
	if !ok {
		return nil, nil, NotFound("quest %s", questID)
	}

	party := uniqueInOrder(participantIDs)
	if len(party) == 0 {
		party = cloneStrings(current.AcceptedBy)
	}
	if len(party) == 0 {
		return nil, nil, Precondition("quest %s has no participants", questID)
	}

	var summary *Summary
	var failedConflicts []string

	ids := append([]string{questID}, current.ConflictsWith...)
	results, err := e.store.MutateMany(ctx, ids, func(quests map[string]*Quest) error {
		q, ok := quests[questID]
		if !ok {
			return NotFound("quest %s", questID)
		}
		if !q.Status.Active() {
			return Precondition("quest %s is %s, cannot complete", questID, q.Status)
		}
		if !q.ObjectivesComplete() {
			return Precondition("quest %s has incomplete objectives", questID)
		}

		rewards := q.Rewards
		if branchID != "" {
			if branch, found := q.FindBranch(branchID); found {
				rewards = branch.Rewards
				q.ActiveBranch = branchID
			}
		}

		distributor := NewDistributor(e.world)
		var err error
		summary, err = distributor.Distribute(ctx, rewards, party)
		if err != nil {
			return err
		}

		if err := e.consumeCollectedItems(ctx, q, party); err != nil {
			return err
		}

		now := e.now()
		q.Status = StatusCompleted
		q.CompletedAt = now
		q.LastCompleted = now

		// Conflict cascade: anything listed and still non-terminal is
		// force-failed; an already-completed conflict stays untouched.
		for _, conflictID := range q.ConflictsWith {
			conflict, ok := quests[conflictID]
			if !ok || conflict.Status.Terminal() {
				continue
			}
			conflict.Status = StatusFailed
			failedConflicts = append(failedConflicts, conflictID)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	touched := cloneStrings(party)
	for _, actorID := range party {
		e.journal.MarkCompleted(actorID, questID)
	}
	for _, conflictID := range failedConflicts {
		if conflict, ok := results[conflictID]; ok {
			for _, actorID := range conflict.AcceptedBy {
				e.journal.MarkFailed(actorID, conflictID)
				touched = append(touched, actorID)
			}
		}
	}
	if err := e.flushJournal(ctx, uniqueInOrder(touched)...); err != nil {
		return nil, nil, err
	}
	for _, conflictID := range failedConflicts {
		e.pub.Publish(QuestFailed{QuestID: conflictID, Reason: "conflict with " + questID})
	}
	e.pub.Publish(QuestCompleted{QuestID: questID, Participants: party, BranchID: branchID})
	logger.Info("Quest completed", "quest", questID, "branch", branchID, "gold", summary.TotalGold, "xp", summary.TotalExperience)
	return results[questID], summary, nil
}

// Fail moves any non-terminal quest to failed
func (e *Engine) Fail(ctx context.Context, questID, reason string) (*Quest, error) {
	snapshot, err := e.store.Mutate(ctx, questID, func(q *Quest) error {
		if q.Status.Terminal() {
			return Precondition("quest %s is already %s", questID, q.Status)
		}
		q.Status = StatusFailed
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, actorID := range snapshot.AcceptedBy {
		e.journal.MarkFailed(actorID, questID)
	}
	if err := e.flushJournal(ctx, snapshot.AcceptedBy...); err != nil {
		return nil, err
	}
	e.pub.Publish(QuestFailed{QuestID: questID, Reason: reason})
	logger.Info("Quest failed", "quest", questID, "reason", reason)
	return snapshot, nil
}

// Abandon removes one participant from a quest and applies the
// abandonment consequences. When the last participant leaves, the quest
// resets to available with all progress cleared.
func (e *Engine) Abandon(ctx context.Context, questID, participantID string) (*Quest, error) {
	if !e.allowAbandon {
		return nil, Precondition("abandonment is disabled")
	}

	current, ok := e.store.Get(questID)
	if !ok {
		return nil, NotFound("quest %s", questID)
	}
	if !current.Abandon.Allowed {
		return nil, Precondition("quest %s cannot be abandoned", questID)
	}
	if !current.HasParticipant(participantID) {
		return nil, Precondition("participant %s has not accepted quest %s", participantID, questID)
	}
	if !current.Status.Active() {
		return nil, Precondition("quest %s is %s, cannot abandon", questID, current.Status)
	}

	if err := e.applyAbandonConsequences(ctx, current, participantID); err != nil {
		return nil, err
	}

	var reset bool
	var failedRelated []string

	ids := append([]string{questID}, current.Abandon.FailsQuests...)
	results, err := e.store.MutateMany(ctx, ids, func(quests map[string]*Quest) error {
		q, ok := quests[questID]
		if !ok {
			return NotFound("quest %s", questID)
		}
		q.removeParticipant(participantID)
		if len(q.AcceptedBy) == 0 {
			q.resetProgress()
			reset = true
		}
		for _, relatedID := range q.Abandon.FailsQuests {
			related, ok := quests[relatedID]
			if !ok || related.Status.Terminal() {
				continue
			}
			related.Status = StatusFailed
			failedRelated = append(failedRelated, relatedID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.journal.RemoveActive(participantID, questID)
	touched := []string{participantID}
	for _, relatedID := range failedRelated {
		if related, ok := results[relatedID]; ok {
			for _, actorID := range related.AcceptedBy {
				e.journal.MarkFailed(actorID, relatedID)
				touched = append(touched, actorID)
			}
		}
	}
	if err := e.flushJournal(ctx, uniqueInOrder(touched)...); err != nil {
		return nil, err
	}
	for _, relatedID := range failedRelated {
		e.pub.Publish(QuestFailed{QuestID: relatedID, Reason: "abandonment of " + questID})
	}
	e.pub.Publish(QuestAbandoned{QuestID: questID, ParticipantID: participantID, Reset: reset})
	logger.Info("Quest abandoned", "quest", questID, "participant", participantID, "reset", reset)
	return results[questID], nil
}

// Reset administratively returns a quest to the available pool
func (e *Engine) Reset(ctx context.Context, questID string) (*Quest, error) {
	snapshot, err := e.store.Mutate(ctx, questID, func(q *Quest) error {
		q.resetProgress()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.pub.Publish(QuestReset{QuestID: questID})
	return snapshot, nil
}

// OnGiverDeath applies each affected quest's configured giver-death
// policy. Quests already completed or failed are out of reach.
func (e *Engine) OnGiverDeath(ctx context.Context, actorID string) error {
	for _, q := range e.store.All() {
		if q.Giver.ActorID != actorID {
			continue
		}
		if q.Status != StatusAvailable && !q.Status.Active() {
			continue
		}
		switch q.Giver.DeathPolicy {
		case GiverDeathFail:
			if _, err := e.Fail(ctx, q.ID, "quest giver died"); err != nil {
				return err
			}
		case GiverDeathTransfer:
			if len(q.Giver.AltTurnInIDs) == 0 {
				continue
			}
			alt := q.Giver.AltTurnInIDs[0]
			if _, err := e.store.Mutate(ctx, q.ID, func(mq *Quest) error {
				mq.Giver.TurnInActorID = alt
				return nil
			}); err != nil {
				return err
			}
			logger.Info("Quest turn-in transferred", "quest", q.ID, "turn_in", alt)
		case GiverDeathManual:
			e.pub.Publish(GiverDeathPending{QuestID: q.ID, ActorID: actorID})
		case GiverDeathContinue:
			// Quest unaffected.
		}
	}
	return nil
}

// flushJournal persists the touched participants' journal records.
// The catalog change is already committed at this point; a failed save
// is surfaced so the caller does not report the operation as applied
// while its journal side lives only in memory.
func (e *Engine) flushJournal(ctx context.Context, actorIDs ...string) error {
	if err := e.journal.Flush(ctx, actorIDs...); err != nil {
		return &Failure{Code: FailPersistence, Reason: "journal save failed", Err: err}
	}
	return nil
}

// consumeCollectedItems removes the items an item-collect objective
// required, drawing from the participants that hold them
func (e *Engine) consumeCollectedItems(ctx context.Context, q *Quest, party []string) error {
	for i := range q.Objectives {
		obj := &q.Objectives[i]
		if obj.Kind != KindItemCollect {
			continue
		}
		remaining := obj.Required
		for _, actorID := range party {
			if remaining <= 0 {
				break
			}
			count, ok, err := e.world.Inventory.FindItem(ctx, actorID, obj.Target)
			if err != nil {
				return fmt.Errorf("find item %s: %w", obj.Target, err)
			}
			if !ok || count == 0 {
				continue
			}
			take := count
			if take > remaining {
				take = remaining
			}
			if err := e.world.Inventory.ReduceItem(ctx, actorID, obj.Target, take); err != nil {
				return fmt.Errorf("reduce item %s: %w", obj.Target, err)
			}
			remaining -= take
		}
	}
	return nil
}

// onCooldown checks the per-participant abandonment cooldown flag
func (e *Engine) onCooldown(ctx context.Context, actorID, questID string) (bool, string) {
	value, ok, err := e.world.Flags.GetParticipantFlag(ctx, actorID, cooldownFlagPrefix+questID)
	if err != nil || !ok {
		return false, ""
	}
	expiry, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return false, ""
	}
	if e.now().Before(expiry) {
		return true, value
	}
	return false, ""
}

func uniqueInOrder(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
