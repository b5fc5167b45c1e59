package quest

import (
	"context"
	"encoding/json"
	"testing"
)

func TestJournalLifecycle(t *testing.T) {
	j := NewJournal()

	j.MarkActive("alice", "hunt")
	if !j.HasActive("alice", "hunt") {
		t.Fatal("quest not on active list after MarkActive")
	}
	if j.HasCompleted("alice", "hunt") {
		t.Fatal("quest on completed list before completion")
	}

	j.MarkCompleted("alice", "hunt")
	if j.HasActive("alice", "hunt") {
		t.Error("quest still active after completion")
	}
	if !j.HasCompleted("alice", "hunt") {
		t.Error("quest not on completed list")
	}

	j.MarkActive("alice", "doomed")
	j.MarkFailed("alice", "doomed")
	if j.HasActive("alice", "doomed") {
		t.Error("quest still active after failure")
	}
}

func TestJournalRemoveActive(t *testing.T) {
	j := NewJournal()
	j.MarkActive("alice", "hunt")
	j.RemoveActive("alice", "hunt")

	if j.HasActive("alice", "hunt") {
		t.Error("quest still active after removal")
	}
	if j.HasCompleted("alice", "hunt") {
		t.Error("removal recorded an outcome")
	}

	// Removing for an unknown participant is a no-op.
	j.RemoveActive("ghost", "hunt")
}

func TestJournalActiveQuests(t *testing.T) {
	j := NewJournal()
	j.MarkActive("alice", "a")
	j.MarkActive("alice", "b")
	j.MarkCompleted("alice", "a")

	active := j.ActiveQuests("alice")
	if len(active) != 1 || active[0] != "b" {
		t.Errorf("ActiveQuests = %v, want [b]", active)
	}
	if got := j.ActiveQuests("ghost"); got != nil {
		t.Errorf("ActiveQuests for unknown participant = %v, want nil", got)
	}
}

func TestJournalPurgeQuest(t *testing.T) {
	j := NewJournal()
	j.MarkActive("alice", "hunt")
	j.MarkCompleted("bob", "hunt")
	j.MarkActive("carol", "other")

	j.PurgeQuest("hunt")

	if j.HasActive("alice", "hunt") || j.HasCompleted("bob", "hunt") {
		t.Error("purged quest still referenced")
	}
	if !j.HasActive("carol", "other") {
		t.Error("purge touched an unrelated quest")
	}
}

func TestJournalExportImportRoundTrip(t *testing.T) {
	j := NewJournal()
	j.MarkActive("alice", "hunt")
	j.MarkCompleted("alice", "intro")
	j.MarkActive("bob", "hunt")
	j.MarkFailed("bob", "doomed")

	records, err := j.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	restored := NewJournal()
	if err := restored.Import(records); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if !restored.HasActive("alice", "hunt") || !restored.HasCompleted("alice", "intro") {
		t.Error("alice's record did not survive the round trip")
	}
	if !restored.HasActive("bob", "hunt") {
		t.Error("bob's active list did not survive the round trip")
	}
}

func TestJournalImportTolerantOfMissingLists(t *testing.T) {
	j := NewJournal()
	if err := j.Import(map[string]json.RawMessage{}); err != nil {
		t.Fatalf("Import() of empty map error = %v", err)
	}

	// A record persisted before a list existed unmarshals with nil maps;
	// marking must still work afterwards.
	restored := NewJournal()
	if err := restored.UnmarshalJSON([]byte(`{"alice":{"active":{"hunt":true}}}`)); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	restored.MarkCompleted("alice", "hunt")
	if !restored.HasCompleted("alice", "hunt") {
		t.Error("marking after partial restore failed")
	}
}

func TestJournalFlushSelectsActors(t *testing.T) {
	ctx := context.Background()
	j := NewJournal()
	j.MarkActive("alice", "hunt")
	j.MarkActive("bob", "hunt")

	// Without a saver, flush is a no-op.
	if err := j.Flush(ctx); err != nil {
		t.Fatalf("Flush() without saver error = %v", err)
	}

	saver := &memJournalSaver{}
	j.AttachSaver(saver)
	if err := j.Flush(ctx, "alice"); err != nil {
		t.Fatalf("Flush(alice) error = %v", err)
	}
	if _, ok := saver.saved["bob"]; ok {
		t.Error("flushing alice also saved bob")
	}
	if rec := saver.saved["alice"]; !rec.Active["hunt"] {
		t.Errorf("saved record = %+v, want hunt active", rec)
	}

	if err := j.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(saver.saved) != 2 {
		t.Errorf("saved records = %d, want 2", len(saver.saved))
	}
}
