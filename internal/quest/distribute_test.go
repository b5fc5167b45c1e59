package quest

import (
	"context"
	"testing"
)

func TestDistributeSplitFloorDivision(t *testing.T) {
	ctx := context.Background()
	world := newFakeWorld()
	d := NewDistributor(world.collaborators())

	rewards := RewardSet{
		Gold:         100,
		Experience:   90,
		Items:        []ItemReward{{TemplateID: "item_sword", Quantity: 1}},
		Distribution: DistributeSplit,
	}

	summary, err := d.Distribute(ctx, rewards, []string{"alice", "bob", "carol"})
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}

	// 100/3 floors to 33 each; the remainder is dropped, not granted.
	for _, id := range []string{"alice", "bob", "carol"} {
		if world.gold[id] != 33 {
			t.Errorf("gold[%s] = %d, want 33", id, world.gold[id])
		}
		if world.experience[id] != 30 {
			t.Errorf("experience[%s] = %d, want 30", id, world.experience[id])
		}
	}
	if summary.TotalGold != 99 {
		t.Errorf("TotalGold = %d, want 99", summary.TotalGold)
	}

	// Items are indivisible: the first participant gets them.
	if world.items["alice"]["item_sword"] != 1 {
		t.Errorf("alice items = %v, want the sword", world.items["alice"])
	}
	if len(world.items["bob"]) != 0 || len(world.items["carol"]) != 0 {
		t.Error("item granted to more than the first participant")
	}
}

func TestDistributeFullEach(t *testing.T) {
	ctx := context.Background()
	world := newFakeWorld()
	d := NewDistributor(world.collaborators())

	rewards := RewardSet{
		Gold:         100,
		Items:        []ItemReward{{TemplateID: "item_ring", Quantity: 1}},
		Titles:       []string{"Ratcatcher", "Ratcatcher"},
		Distribution: DistributeFullEach,
	}

	summary, err := d.Distribute(ctx, rewards, []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	if world.gold["alice"] != 100 || world.gold["bob"] != 100 {
		t.Errorf("gold = %v, want 100 each", world.gold)
	}
	if world.items["alice"]["item_ring"] != 1 || world.items["bob"]["item_ring"] != 1 {
		t.Error("item not granted to every participant")
	}
	if summary.TotalGold != 200 {
		t.Errorf("TotalGold = %d, want 200", summary.TotalGold)
	}
	// Duplicate titles collapse to one grant per participant.
	if len(world.titles["alice"]) != 1 {
		t.Errorf("alice titles = %v, want one", world.titles["alice"])
	}
}

func TestDistributeReputationNeverDivided(t *testing.T) {
	ctx := context.Background()
	world := newFakeWorld()
	d := NewDistributor(world.collaborators())

	rewards := RewardSet{
		Reputation:    []ReputationDelta{{FactionID: "guards", Amount: 25}},
		Relationships: []RelationshipDelta{{TargetID: "npc_maelis", Amount: 10}},
		Distribution:  DistributeSplit,
	}

	if _, err := d.Distribute(ctx, rewards, []string{"alice", "bob"}); err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	for _, id := range []string{"alice", "bob"} {
		if world.reputation[id]["guards"] != 25 {
			t.Errorf("reputation[%s] = %d, want the full 25", id, world.reputation[id]["guards"])
		}
		if world.relationships[id]["npc_maelis"] != 10 {
			t.Errorf("relationship[%s] = %d, want the full 10", id, world.relationships[id]["npc_maelis"])
		}
	}
}

func TestDistributeRejections(t *testing.T) {
	ctx := context.Background()
	d := NewDistributor(newFakeWorld().collaborators())

	if _, err := d.Distribute(ctx, RewardSet{Gold: 10}, nil); !IsCode(err, FailPrecondition) {
		t.Errorf("Distribute() with no participants error = %v, want precondition failure", err)
	}
	rewards := RewardSet{Gold: 10, Distribution: DistributionPolicy("lottery")}
	if _, err := d.Distribute(ctx, rewards, []string{"alice"}); !IsCode(err, FailPrecondition) {
		t.Errorf("Distribute() with unknown policy error = %v, want precondition failure", err)
	}
}

func TestDistributeDefaultsToSplit(t *testing.T) {
	ctx := context.Background()
	world := newFakeWorld()
	d := NewDistributor(world.collaborators())

	summary, err := d.Distribute(ctx, RewardSet{Gold: 10}, []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	if summary.Policy != DistributeSplit {
		t.Errorf("policy = %q, want default %q", summary.Policy, DistributeSplit)
	}
	if world.gold["alice"] != 5 {
		t.Errorf("gold[alice] = %d, want 5", world.gold["alice"])
	}
}
