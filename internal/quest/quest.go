// Package quest implements the quest engine: the catalog store, the
// lifecycle state machine, objective tracking, reward distribution,
// repeatable resets, and abandonment consequences.
package quest

import "time"

// Status tracks where a quest is in its lifecycle
type Status string

const (
	StatusAvailable  Status = "available"   // Not yet accepted by anyone
	StatusAccepted   Status = "accepted"    // Accepted, no progress recorded yet
	StatusInProgress Status = "in_progress" // At least one objective update received
	StatusCompleted  Status = "completed"   // Turned in; terminal unless repeatable
	StatusFailed     Status = "failed"      // Terminal
)

// Terminal reports whether a quest in this status can still transition.
// Completed repeatable quests are reset by the scheduler, so completion
// is only terminal for the non-repeatable case; that check lives on Quest.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Active reports whether the quest is being worked on.
func (s Status) Active() bool {
	return s == StatusAccepted || s == StatusInProgress
}

// Category groups quests for display and filtering
type Category string

const (
	CategoryMain Category = "main"
	CategorySide Category = "side"
	CategoryGM   Category = "gm" // GM-authored one-offs for the session
)

// GiverDeathPolicy decides what happens to a quest when its giver dies
type GiverDeathPolicy string

const (
	GiverDeathFail     GiverDeathPolicy = "fail"     // Auto-fail the quest
	GiverDeathContinue GiverDeathPolicy = "continue" // Quest unaffected
	GiverDeathTransfer GiverDeathPolicy = "transfer" // Turn-in moves to first alternative
	GiverDeathManual   GiverDeathPolicy = "manual"   // Defer to an external decision
)

// Giver describes the actor a quest originates from and where it turns in
type Giver struct {
	ActorID       string           `json:"actor_id" yaml:"actor_id"`
	TurnInActorID string           `json:"turn_in_actor_id" yaml:"turn_in"`
	AltTurnInIDs  []string         `json:"alt_turn_in_ids,omitempty" yaml:"alt_turn_ins"`
	DeathPolicy   GiverDeathPolicy `json:"death_policy" yaml:"death_policy"`
}

// RepeatKind selects the reset cadence for a repeatable quest
type RepeatKind string

const (
	RepeatNone     RepeatKind = "none"
	RepeatDaily    RepeatKind = "daily"
	RepeatWeekly   RepeatKind = "weekly"
	RepeatCooldown RepeatKind = "cooldown"
	RepeatInfinite RepeatKind = "infinite"
)

// RepeatableConfig controls whether and when a completed quest resets
type RepeatableConfig struct {
	Enabled      bool       `json:"enabled" yaml:"enabled"`
	Kind         RepeatKind `json:"kind" yaml:"kind"`
	CooldownDays int        `json:"cooldown_days,omitempty" yaml:"cooldown_days"`
}

// AbandonConfig controls whether a quest can be abandoned and what it costs
type AbandonConfig struct {
	Allowed          bool                `json:"allowed" yaml:"allowed"`
	ReputationLoss   []ReputationDelta   `json:"reputation_loss,omitempty" yaml:"reputation_loss"`
	RelationshipLoss []RelationshipDelta `json:"relationship_loss,omitempty" yaml:"relationship_loss"`
	FailsQuests      []string            `json:"fails_quests,omitempty" yaml:"fails_quests"`
	CooldownHours    int                 `json:"cooldown_hours,omitempty" yaml:"cooldown_hours"`
}

// Branch is an alternative reward set selectable at completion time
type Branch struct {
	ID      string    `json:"id" yaml:"id"`
	Name    string    `json:"name" yaml:"name"`
	Rewards RewardSet `json:"rewards" yaml:"rewards"`
}

// Quest is a single catalog entry. Status only moves through the engine's
// transition table; objective identity and targets are immutable after
// creation, only progress counters change.
type Quest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Hidden      bool     `json:"hidden,omitempty"` // Not shown to players until revealed

	Giver  Giver  `json:"giver"`
	Status Status `json:"status"`

	Objectives []Objective `json:"objectives"`
	Rewards    RewardSet   `json:"rewards"`
	Branches   []Branch    `json:"branches,omitempty"`

	Prereqs           []string `json:"prereqs,omitempty"`
	MutuallyExclusive []string `json:"mutually_exclusive,omitempty"`
	ConflictsWith     []string `json:"conflicts_with,omitempty"`

	Repeatable RepeatableConfig `json:"repeatable"`
	Abandon    AbandonConfig    `json:"abandon"`

	AcceptedBy   []string `json:"accepted_by,omitempty"` // Participant set, insertion order kept
	ActiveBranch string   `json:"active_branch,omitempty"`

	RequestedAt   time.Time `json:"requested_at,omitempty"`
	AcceptedAt    time.Time `json:"accepted_at,omitempty"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
	LastCompleted time.Time `json:"last_completed,omitempty"`
}

// Clone returns a deep copy. The store mutates clones and only commits
// them after the catalog save succeeds, so copies must share nothing.
func (q *Quest) Clone() *Quest {
	c := *q
	c.Objectives = make([]Objective, len(q.Objectives))
	copy(c.Objectives, q.Objectives)
	c.Rewards = q.Rewards.clone()
	if q.Branches != nil {
		c.Branches = make([]Branch, len(q.Branches))
		for i, b := range q.Branches {
			c.Branches[i] = Branch{ID: b.ID, Name: b.Name, Rewards: b.Rewards.clone()}
		}
	}
	c.Giver.AltTurnInIDs = cloneStrings(q.Giver.AltTurnInIDs)
	c.Prereqs = cloneStrings(q.Prereqs)
	c.MutuallyExclusive = cloneStrings(q.MutuallyExclusive)
	c.ConflictsWith = cloneStrings(q.ConflictsWith)
	c.AcceptedBy = cloneStrings(q.AcceptedBy)
	c.Abandon.ReputationLoss = cloneReputation(q.Abandon.ReputationLoss)
	c.Abandon.RelationshipLoss = cloneRelationships(q.Abandon.RelationshipLoss)
	c.Abandon.FailsQuests = cloneStrings(q.Abandon.FailsQuests)
	return &c
}

// HasParticipant reports whether the actor is in the accepted set
func (q *Quest) HasParticipant(actorID string) bool {
	for _, id := range q.AcceptedBy {
		if id == actorID {
			return true
		}
	}
	return false
}

// addParticipant appends actorID preserving set semantics
func (q *Quest) addParticipant(actorID string) {
	if !q.HasParticipant(actorID) {
		q.AcceptedBy = append(q.AcceptedBy, actorID)
	}
}

// removeParticipant drops actorID from the accepted set
func (q *Quest) removeParticipant(actorID string) {
	for i, id := range q.AcceptedBy {
		if id == actorID {
			q.AcceptedBy = append(q.AcceptedBy[:i], q.AcceptedBy[i+1:]...)
			return
		}
	}
}

// ObjectivesComplete reports whether every objective is done
func (q *Quest) ObjectivesComplete() bool {
	for i := range q.Objectives {
		if !q.Objectives[i].Completed {
			return false
		}
	}
	return true
}

// FindBranch resolves a branch id to its reward set
func (q *Quest) FindBranch(branchID string) (*Branch, bool) {
	for i := range q.Branches {
		if q.Branches[i].ID == branchID {
			return &q.Branches[i], true
		}
	}
	return nil, false
}

// resetProgress returns the quest to a fresh AVAILABLE state. Objective
// identity and targets survive; counters, participants and branch choice
// do not.
func (q *Quest) resetProgress() {
	q.Status = StatusAvailable
	q.AcceptedBy = nil
	q.ActiveBranch = ""
	q.AcceptedAt = time.Time{}
	q.CompletedAt = time.Time{}
	q.LastCompleted = time.Time{}
	for i := range q.Objectives {
		q.Objectives[i].Current = 0
		q.Objectives[i].Completed = false
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneReputation(s []ReputationDelta) []ReputationDelta {
	if s == nil {
		return nil
	}
	c := make([]ReputationDelta, len(s))
	copy(c, s)
	return c
}

func cloneRelationships(s []RelationshipDelta) []RelationshipDelta {
	if s == nil {
		return nil
	}
	c := make([]RelationshipDelta, len(s))
	copy(c, s)
	return c
}
