package quest

import (
	"context"
	"fmt"
)

// ParticipantShare is one participant's slice of a distribution
type ParticipantShare struct {
	ParticipantID string       `json:"participant_id"`
	Gold          int          `json:"gold"`
	Experience    int          `json:"experience"`
	Items         []ItemReward `json:"items,omitempty"`
	Titles        []string     `json:"titles,omitempty"`
}

// Summary is the distribution ledger: what was actually granted, in
// participant order. Under the split policy the totals can be less than
// the configured amounts because floor division drops the remainder.
type Summary struct {
	Policy          DistributionPolicy `json:"policy"`
	TotalGold       int                `json:"total_gold"`
	TotalExperience int                `json:"total_experience"`
	Shares          []ParticipantShare `json:"shares"`
}

// Distributor computes and applies reward shares. It never mutates quest
// state; recording completion is the lifecycle controller's job.
type Distributor struct {
	world Collaborators
}

// NewDistributor creates a distributor over the given collaborators
func NewDistributor(world Collaborators) *Distributor {
	return &Distributor{world: world}
}

// Distribute applies the reward set to the participants under its
// distribution policy and returns the ledger. Reputation and
// relationship deltas are never divided: each delta is applied once per
// participant, in full. Titles are deduplicated per participant.
func (d *Distributor) Distribute(ctx context.Context, rewards RewardSet, participants []string) (*Summary, error) {
	if len(participants) == 0 {
		return nil, Precondition("no participants to reward")
	}

	policy := rewards.Distribution
	if policy == "" {
		policy = DistributeSplit
	}

	summary := &Summary{Policy: policy}

	for i, actorID := range participants {
		share := ParticipantShare{ParticipantID: actorID}

		switch policy {
		case DistributeSplit:
			// Floor division; the remainder is lost, not distributed.
			share.Gold = rewards.Gold / len(participants)
			share.Experience = rewards.Experience / len(participants)
			if i == 0 {
				share.Items = cloneItems(rewards.Items)
			}
		case DistributeFullEach, DistributeGMChoice:
			share.Gold = rewards.Gold
			share.Experience = rewards.Experience
			share.Items = cloneItems(rewards.Items)
		default:
			return nil, Precondition("unknown distribution policy %q", policy)
		}

		share.Titles = dedupeTitles(rewards.Titles)

		if err := d.applyShare(ctx, actorID, share, rewards); err != nil {
			return nil, fmt.Errorf("apply rewards for %s: %w", actorID, err)
		}

		summary.TotalGold += share.Gold
		summary.TotalExperience += share.Experience
		summary.Shares = append(summary.Shares, share)
	}

	return summary, nil
}

func (d *Distributor) applyShare(ctx context.Context, actorID string, share ParticipantShare, rewards RewardSet) error {
	if share.Gold > 0 {
		if err := d.world.Currency.GiveCurrency(ctx, actorID, share.Gold); err != nil {
			return fmt.Errorf("give currency: %w", err)
		}
	}
	if share.Experience > 0 {
		if err := d.world.Experience.GrantExperience(ctx, actorID, share.Experience); err != nil {
			return fmt.Errorf("grant experience: %w", err)
		}
	}
	for _, item := range share.Items {
		if err := d.world.Inventory.CreateItem(ctx, actorID, item.TemplateID, item.Quantity); err != nil {
			return fmt.Errorf("create item %s: %w", item.TemplateID, err)
		}
	}
	for _, rep := range rewards.Reputation {
		if err := d.world.Reputation.ApplyReputationDelta(ctx, actorID, rep.FactionID, rep.Amount); err != nil {
			return fmt.Errorf("reputation %s: %w", rep.FactionID, err)
		}
	}
	for _, rel := range rewards.Relationships {
		if err := d.world.Relationships.ApplyRelationshipDelta(ctx, actorID, rel.TargetID, rel.Amount); err != nil {
			return fmt.Errorf("relationship %s: %w", rel.TargetID, err)
		}
	}
	for _, title := range share.Titles {
		if err := d.world.Titles.GrantTitle(ctx, actorID, title); err != nil {
			return fmt.Errorf("grant title %s: %w", title, err)
		}
	}
	return nil
}

func cloneItems(items []ItemReward) []ItemReward {
	if len(items) == 0 {
		return nil
	}
	out := make([]ItemReward, len(items))
	copy(out, items)
	return out
}

func dedupeTitles(titles []string) []string {
	if len(titles) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(titles))
	var out []string
	for _, t := range titles {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
