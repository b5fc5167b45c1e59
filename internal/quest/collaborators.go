package quest

import "context"

// Participant is the engine's view of a session member
type Participant struct {
	ID   string
	Name string
}

// ParticipantResolver looks up session members
type ParticipantResolver interface {
	ResolveParticipant(ctx context.Context, actorID string) (Participant, error)
}

// InventoryService is the engine's window into actor inventories. Counts
// are absolute; FindItem returns the held quantity.
type InventoryService interface {
	FindItem(ctx context.Context, actorID, itemID string) (count int, ok bool, err error)
	CreateItem(ctx context.Context, actorID, templateID string, quantity int) error
	ReduceItem(ctx context.Context, actorID, itemID string, amount int) error
	DeleteItem(ctx context.Context, actorID, itemID string) error
}

// CurrencyService credits gold to an actor
type CurrencyService interface {
	GiveCurrency(ctx context.Context, actorID string, amount int) error
}

// ExperienceService grants experience to an actor
type ExperienceService interface {
	GrantExperience(ctx context.Context, actorID string, amount int) error
}

// ReputationService applies faction standing changes; the faction math
// itself is external.
type ReputationService interface {
	ApplyReputationDelta(ctx context.Context, actorID, factionID string, amount int) error
}

// RelationshipService applies actor-to-actor standing changes
type RelationshipService interface {
	ApplyRelationshipDelta(ctx context.Context, actorID, targetID string, amount int) error
}

// TitleService awards display titles
type TitleService interface {
	GrantTitle(ctx context.Context, actorID, title string) error
}

// FlagStore holds per-participant key/value flags (abandonment cooldowns
// live here, keyed by quest id)
type FlagStore interface {
	SetParticipantFlag(ctx context.Context, actorID, key, value string) error
	GetParticipantFlag(ctx context.Context, actorID, key string) (value string, ok bool, err error)
}

// HandoutService reveals a handout to the table
type HandoutService interface {
	RevealHandout(ctx context.Context, handoutID string) error
}

// CatalogPersister is the whole-catalog persistence contract. SaveCatalog
// must persist the complete snapshot atomically; a returned error means
// nothing was saved.
type CatalogPersister interface {
	LoadCatalog(ctx context.Context) ([]*Quest, error)
	SaveCatalog(ctx context.Context, quests []*Quest) error
}

// Collaborators bundles every external service the engine talks to
type Collaborators struct {
	Roster        ParticipantResolver
	Inventory     InventoryService
	Currency      CurrencyService
	Experience    ExperienceService
	Reputation    ReputationService
	Relationships RelationshipService
	Titles        TitleService
	Flags         FlagStore
	Handouts      HandoutService
}
