package quest

// DistributionPolicy governs how a reward set is divided among participants
type DistributionPolicy string

const (
	// DistributeSplit divides gold and experience with integer floor
	// division (the remainder is lost); item rewards go to the first
	// participant only.
	DistributeSplit DistributionPolicy = "split"

	// DistributeFullEach gives every participant the full amounts and a
	// full copy of every item reward.
	DistributeFullEach DistributionPolicy = "full_each"

	// DistributeGMChoice computes like full_each but the ledger is meant
	// for manual adjustment at the table.
	DistributeGMChoice DistributionPolicy = "gm_choice"
)

// ItemReward grants copies of an item template
type ItemReward struct {
	TemplateID string `json:"template_id" yaml:"template"`
	Quantity   int    `json:"quantity" yaml:"quantity"`
}

// ReputationDelta adjusts standing with a faction
type ReputationDelta struct {
	FactionID string `json:"faction_id" yaml:"faction"`
	Amount    int    `json:"amount" yaml:"amount"`
}

// RelationshipDelta adjusts standing with a single actor
type RelationshipDelta struct {
	TargetID string `json:"target_id" yaml:"target"`
	Amount   int    `json:"amount" yaml:"amount"`
}

// RewardSet is everything a quest (or one of its branches) pays out
type RewardSet struct {
	Gold          int                 `json:"gold,omitempty" yaml:"gold"`
	Experience    int                 `json:"experience,omitempty" yaml:"experience"`
	Items         []ItemReward        `json:"items,omitempty" yaml:"items"`
	Reputation    []ReputationDelta   `json:"reputation,omitempty" yaml:"reputation"`
	Relationships []RelationshipDelta `json:"relationships,omitempty" yaml:"relationships"`
	Titles        []string            `json:"titles,omitempty" yaml:"titles"`
	Distribution  DistributionPolicy  `json:"distribution,omitempty" yaml:"distribution"`
}

func (r RewardSet) clone() RewardSet {
	c := r
	if r.Items != nil {
		c.Items = make([]ItemReward, len(r.Items))
		copy(c.Items, r.Items)
	}
	c.Reputation = cloneReputation(r.Reputation)
	c.Relationships = cloneRelationships(r.Relationships)
	c.Titles = cloneStrings(r.Titles)
	return c
}
