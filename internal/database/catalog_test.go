package database

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stonelantern/questhall/internal/quest"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "questhall.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testQuest(id string, status quest.Status) *quest.Quest {
	return &quest.Quest{
		ID:     id,
		Name:   "Test Quest " + id,
		Status: status,
		Giver:  quest.Giver{ActorID: "npc_giver", DeathPolicy: quest.GiverDeathContinue},
		Objectives: []quest.Objective{
			{ID: id + "#0", Kind: quest.KindKillCount, Target: "mob_rat", Required: 5},
		},
		Rewards: quest.RewardSet{Gold: 100, Distribution: quest.DistributeSplit},
	}
}

func TestCatalogSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	saved := []*quest.Quest{
		testQuest("alpha", quest.StatusAvailable),
		testQuest("beta", quest.StatusAccepted),
	}
	saved[1].AcceptedBy = []string{"alice"}
	saved[1].Objectives[0].Current = 3

	if err := db.SaveCatalog(ctx, saved); err != nil {
		t.Fatalf("SaveCatalog() error = %v", err)
	}

	loaded, err := db.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d quests, want 2", len(loaded))
	}
	if loaded[0].ID != "alpha" || loaded[1].ID != "beta" {
		t.Errorf("ids = %s, %s; want alpha, beta", loaded[0].ID, loaded[1].ID)
	}
	if loaded[1].Status != quest.StatusAccepted {
		t.Errorf("status = %q, want %q", loaded[1].Status, quest.StatusAccepted)
	}
	if loaded[1].Objectives[0].Current != 3 {
		t.Errorf("objective progress = %d, want 3", loaded[1].Objectives[0].Current)
	}
	if len(loaded[1].AcceptedBy) != 1 || loaded[1].AcceptedBy[0] != "alice" {
		t.Errorf("AcceptedBy = %v, want [alice]", loaded[1].AcceptedBy)
	}
}

func TestCatalogSaveReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.SaveCatalog(ctx, []*quest.Quest{
		testQuest("old_one", quest.StatusAvailable),
		testQuest("old_two", quest.StatusAvailable),
	}); err != nil {
		t.Fatalf("SaveCatalog() error = %v", err)
	}

	// A later save with fewer quests fully replaces the earlier one.
	if err := db.SaveCatalog(ctx, []*quest.Quest{testQuest("kept", quest.StatusAvailable)}); err != nil {
		t.Fatalf("second SaveCatalog() error = %v", err)
	}

	loaded, err := db.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "kept" {
		t.Errorf("loaded = %v, want only kept", len(loaded))
	}
}

func TestCatalogLoadEmpty(t *testing.T) {
	db := openTestDB(t)
	loaded, err := db.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded %d quests from a fresh database", len(loaded))
	}
}

func TestJournalSaveLoad(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	record := json.RawMessage(`{"active":{"hunt":true},"completed":{"intro":true},"failed":{}}`)
	if err := db.SaveJournal(ctx, "alice", record); err != nil {
		t.Fatalf("SaveJournal() error = %v", err)
	}

	// Upsert: a second save for the same actor replaces the record.
	updated := json.RawMessage(`{"active":{},"completed":{"intro":true,"hunt":true},"failed":{}}`)
	if err := db.SaveJournal(ctx, "alice", updated); err != nil {
		t.Fatalf("SaveJournal() upsert error = %v", err)
	}

	records, err := db.LoadJournals(ctx)
	if err != nil {
		t.Fatalf("LoadJournals() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}

	journal := quest.NewJournal()
	if err := journal.Import(records); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !journal.HasCompleted("alice", "hunt") {
		t.Error("upserted record not reflected")
	}
	if journal.HasActive("alice", "hunt") {
		t.Error("stale active entry survived the upsert")
	}
}

func TestParticipantFlags(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, ok, err := db.GetParticipantFlag(ctx, "alice", "quest_cooldown:hunt"); err != nil || ok {
		t.Fatalf("GetParticipantFlag() on empty table = ok=%v err=%v", ok, err)
	}

	if err := db.SetParticipantFlag(ctx, "alice", "quest_cooldown:hunt", "2026-03-15T12:00:00Z"); err != nil {
		t.Fatalf("SetParticipantFlag() error = %v", err)
	}
	value, ok, err := db.GetParticipantFlag(ctx, "alice", "quest_cooldown:hunt")
	if err != nil || !ok {
		t.Fatalf("GetParticipantFlag() = ok=%v err=%v", ok, err)
	}
	if value != "2026-03-15T12:00:00Z" {
		t.Errorf("value = %q", value)
	}

	// Upsert replaces the value for the same actor and key.
	if err := db.SetParticipantFlag(ctx, "alice", "quest_cooldown:hunt", "2026-03-16T12:00:00Z"); err != nil {
		t.Fatalf("SetParticipantFlag() upsert error = %v", err)
	}
	value, _, _ = db.GetParticipantFlag(ctx, "alice", "quest_cooldown:hunt")
	if value != "2026-03-16T12:00:00Z" {
		t.Errorf("upserted value = %q", value)
	}

	// Keys are scoped per participant.
	if _, ok, _ := db.GetParticipantFlag(ctx, "bob", "quest_cooldown:hunt"); ok {
		t.Error("flag leaked to another participant")
	}
}
