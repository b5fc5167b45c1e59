package quest

// Event is a typed notification emitted after a transition commits.
// Events replace ambient broadcast: they go to one injected Publisher.
type Event interface {
	EventType() string
}

// Publisher receives committed engine events. Implementations must not
// block; the engine calls Publish inline.
type Publisher interface {
	Publish(ev Event)
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// QuestAccepted fires when a party accepts a quest
type QuestAccepted struct {
	QuestID      string   `json:"quest_id"`
	Participants []string `json:"participants"`
}

func (QuestAccepted) EventType() string { return "quest_accepted" }

// QuestCompleted fires when a quest is turned in
type QuestCompleted struct {
	QuestID      string   `json:"quest_id"`
	Participants []string `json:"participants"`
	BranchID     string   `json:"branch_id,omitempty"`
}

func (QuestCompleted) EventType() string { return "quest_completed" }

// QuestFailed fires on explicit failure, conflict cascade, abandonment
// consequences and giver death
type QuestFailed struct {
	QuestID string `json:"quest_id"`
	Reason  string `json:"reason"`
}

func (QuestFailed) EventType() string { return "quest_failed" }

// QuestAbandoned fires when a participant walks away from a quest
type QuestAbandoned struct {
	QuestID       string `json:"quest_id"`
	ParticipantID string `json:"participant_id"`
	Reset         bool   `json:"reset"` // True when the last participant left
}

func (QuestAbandoned) EventType() string { return "quest_abandoned" }

// QuestReset fires when the scheduler or an admin returns a quest to the
// available pool
type QuestReset struct {
	QuestID string `json:"quest_id"`
}

func (QuestReset) EventType() string { return "quest_reset" }

// ObjectiveUpdated fires once per progress change; completed objectives
// are never re-notified
type ObjectiveUpdated struct {
	QuestID     string `json:"quest_id"`
	ObjectiveID string `json:"objective_id"`
	Current     int    `json:"current"`
	Required    int    `json:"required"`
	Completed   bool   `json:"completed"`

	// True only for the update that completed the objective; one-shot
	// effects like handout reveals key off this, not Completed.
	newlyCompleted bool
}

func (ObjectiveUpdated) EventType() string { return "objective_updated" }

// GiverDeathPending fires for quests whose giver died under the manual
// policy; the table decides what happens next
type GiverDeathPending struct {
	QuestID string `json:"quest_id"`
	ActorID string `json:"actor_id"`
}

func (GiverDeathPending) EventType() string { return "giver_death_pending" }
