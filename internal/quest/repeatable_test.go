package quest

import (
	"context"
	"testing"
	"time"
)

func completedRepeatable(id string, kind RepeatKind, cooldownDays int, completedAgo time.Duration, now time.Time) *Quest {
	q := killQuest(id, 1)
	q.Status = StatusCompleted
	q.Repeatable = RepeatableConfig{Enabled: true, Kind: kind, CooldownDays: cooldownDays}
	q.LastCompleted = now.Add(-completedAgo)
	return q
}

func TestCheckRepeatableQuests(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		quest     func() *Quest
		wantReset bool
	}{
		{
			name:      "daily before 24h",
			quest:     func() *Quest { return completedRepeatable("q", RepeatDaily, 0, 23*time.Hour, now) },
			wantReset: false,
		},
		{
			name:      "daily after 24h",
			quest:     func() *Quest { return completedRepeatable("q", RepeatDaily, 0, 25*time.Hour, now) },
			wantReset: true,
		},
		{
			name:      "weekly before 7d",
			quest:     func() *Quest { return completedRepeatable("q", RepeatWeekly, 0, 6*24*time.Hour, now) },
			wantReset: false,
		},
		{
			name:      "weekly after 7d",
			quest:     func() *Quest { return completedRepeatable("q", RepeatWeekly, 0, 8*24*time.Hour, now) },
			wantReset: true,
		},
		{
			name:      "cooldown before n days",
			quest:     func() *Quest { return completedRepeatable("q", RepeatCooldown, 3, 2*24*time.Hour, now) },
			wantReset: false,
		},
		{
			name:      "cooldown after n days",
			quest:     func() *Quest { return completedRepeatable("q", RepeatCooldown, 3, 4*24*time.Hour, now) },
			wantReset: true,
		},
		{
			name:      "infinite resets immediately",
			quest:     func() *Quest { return completedRepeatable("q", RepeatInfinite, 0, time.Minute, now) },
			wantReset: true,
		},
		{
			name:      "none never resets",
			quest:     func() *Quest { return completedRepeatable("q", RepeatNone, 0, 365*24*time.Hour, now) },
			wantReset: false,
		},
		{
			name: "disabled never resets",
			quest: func() *Quest {
				q := completedRepeatable("q", RepeatDaily, 0, 48*time.Hour, now)
				q.Repeatable.Enabled = false
				return q
			},
			wantReset: false,
		},
		{
			name: "failed quests are out of scope",
			quest: func() *Quest {
				q := completedRepeatable("q", RepeatDaily, 0, 48*time.Hour, now)
				q.Status = StatusFailed
				return q
			},
			wantReset: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFixture(t, []*Quest{tc.quest()})
			f.now = now
			scheduler := NewScheduler(f.engine)

			reset, err := scheduler.CheckRepeatableQuests(context.Background())
			if err != nil {
				t.Fatalf("CheckRepeatableQuests() error = %v", err)
			}
			if got := len(reset) == 1; got != tc.wantReset {
				t.Fatalf("reset = %v, want reset %v", reset, tc.wantReset)
			}
			q, _ := f.store.Get("q")
			if tc.wantReset {
				if q.Status != StatusAvailable {
					t.Errorf("status = %q, want %q", q.Status, StatusAvailable)
				}
				if len(q.AcceptedBy) != 0 || q.Objectives[0].Current != 0 {
					t.Error("progress survived the reset")
				}
			} else if q.Status == StatusAvailable && tc.quest().Status == StatusCompleted {
				t.Error("quest reset before its cadence elapsed")
			}
		})
	}
}

func TestCheckRepeatableEmitsReset(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	f := newTestFixture(t, []*Quest{completedRepeatable("q", RepeatDaily, 0, 25*time.Hour, now)})
	f.now = now
	scheduler := NewScheduler(f.engine)

	if _, err := scheduler.CheckRepeatableQuests(context.Background()); err != nil {
		t.Fatalf("CheckRepeatableQuests() error = %v", err)
	}
	if got := f.pub.byType("quest_reset"); len(got) != 1 {
		t.Errorf("quest_reset events = %d, want 1", len(got))
	}
}
