package server

import (
	"context"
	"math"

	"github.com/stonelantern/questhall/internal/quest"
)

// effectFrame carries a reward or consequence out to the game host.
type effectFrame struct {
	Type    string `json:"type"`
	Effect  string `json:"effect"`
	ActorID string `json:"actor_id,omitempty"`

	TemplateID string `json:"template_id,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
	Amount     int    `json:"amount,omitempty"`
	FactionID  string `json:"faction_id,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	Title      string `json:"title,omitempty"`
	HandoutID  string `json:"handout_id,omitempty"`
}

// EffectRelay implements the engine's outward collaborators by pushing
// effect frames to every connected session; the game host owns the
// actual currency, inventory, reputation and handout state and applies
// them there.
//
// Inventory reads cannot cross the relay synchronously, so FindItem
// reports the requested item as fully available and the host reconciles
// the subsequent reduce command against real holdings.
type EffectRelay struct {
	server *Server
}

// NewEffectRelay creates a relay publishing through the gateway.
func NewEffectRelay(server *Server) *EffectRelay {
	return &EffectRelay{server: server}
}

func (r *EffectRelay) push(frame effectFrame) {
	frame.Type = "effect"
	r.server.mu.RLock()
	defer r.server.mu.RUnlock()
	for sess := range r.server.sessions {
		sess.send(frame)
	}
}

// ResolveParticipant accepts any non-empty actor id; the roster lives
// on the game host.
func (r *EffectRelay) ResolveParticipant(ctx context.Context, actorID string) (quest.Participant, error) {
	if actorID == "" {
		return quest.Participant{}, quest.NotFound("empty participant id")
	}
	return quest.Participant{ID: actorID}, nil
}

func (r *EffectRelay) FindItem(ctx context.Context, actorID, itemID string) (int, bool, error) {
	return math.MaxInt, true, nil
}

func (r *EffectRelay) CreateItem(ctx context.Context, actorID, templateID string, quantity int) error {
	r.push(effectFrame{Effect: "create_item", ActorID: actorID, TemplateID: templateID, Quantity: quantity})
	return nil
}

func (r *EffectRelay) ReduceItem(ctx context.Context, actorID, itemID string, amount int) error {
	r.push(effectFrame{Effect: "reduce_item", ActorID: actorID, ItemID: itemID, Amount: amount})
	return nil
}

func (r *EffectRelay) DeleteItem(ctx context.Context, actorID, itemID string) error {
	r.push(effectFrame{Effect: "delete_item", ActorID: actorID, ItemID: itemID})
	return nil
}

func (r *EffectRelay) GiveCurrency(ctx context.Context, actorID string, amount int) error {
	r.push(effectFrame{Effect: "give_currency", ActorID: actorID, Amount: amount})
	return nil
}

func (r *EffectRelay) GrantExperience(ctx context.Context, actorID string, amount int) error {
	r.push(effectFrame{Effect: "grant_experience", ActorID: actorID, Amount: amount})
	return nil
}

func (r *EffectRelay) ApplyReputationDelta(ctx context.Context, actorID, factionID string, amount int) error {
	r.push(effectFrame{Effect: "reputation_delta", ActorID: actorID, FactionID: factionID, Amount: amount})
	return nil
}

func (r *EffectRelay) ApplyRelationshipDelta(ctx context.Context, actorID, targetID string, amount int) error {
	r.push(effectFrame{Effect: "relationship_delta", ActorID: actorID, TargetID: targetID, Amount: amount})
	return nil
}

func (r *EffectRelay) GrantTitle(ctx context.Context, actorID, title string) error {
	r.push(effectFrame{Effect: "grant_title", ActorID: actorID, Title: title})
	return nil
}

func (r *EffectRelay) RevealHandout(ctx context.Context, handoutID string) error {
	r.push(effectFrame{Effect: "reveal_handout", HandoutID: handoutID})
	return nil
}
