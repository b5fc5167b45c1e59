package quest

import (
	"context"
	"errors"
	"time"

	"github.com/stonelantern/questhall/internal/logger"
)

// Scheduler resets completed repeatable quests once their cooldown has
// elapsed. Elapsed time is raw wall-clock subtraction against fixed
// day-length constants; a system clock adjustment moves every reset
// accordingly. Accepted limitation, not corrected here.
type Scheduler struct {
	engine *Engine
	now    func() time.Time
}

// NewScheduler creates a scheduler over the engine
func NewScheduler(engine *Engine) *Scheduler {
	return &Scheduler{engine: engine, now: engine.now}
}

// CheckRepeatableQuests scans completed repeatable quests and resets
// the ones whose cooldown has elapsed. Returns the ids that were reset.
func (s *Scheduler) CheckRepeatableQuests(ctx context.Context) ([]string, error) {
	e := s.engine
	var reset []string
	for _, id := range e.store.IDsByStatus(StatusCompleted) {
		q, ok := e.store.Get(id)
		if !ok {
			continue
		}
		if !q.Repeatable.Enabled || q.LastCompleted.IsZero() {
			continue
		}
		if !s.due(q.Repeatable, s.now().Sub(q.LastCompleted)) {
			continue
		}
		if _, err := e.store.Mutate(ctx, id, func(mq *Quest) error {
			if mq.Status != StatusCompleted {
				return errNoChange // Raced with another transition
			}
			mq.resetProgress()
			return nil
		}); err != nil {
			if errors.Is(err, errNoChange) {
				continue
			}
			return reset, err
		}
		reset = append(reset, id)
		e.pub.Publish(QuestReset{QuestID: id})
		logger.Info("Repeatable quest reset", "quest", id, "kind", q.Repeatable.Kind)
	}
	return reset, nil
}

// due reports whether the elapsed time satisfies the repeat cadence
func (s *Scheduler) due(cfg RepeatableConfig, elapsed time.Duration) bool {
	switch cfg.Kind {
	case RepeatDaily:
		return elapsed >= 24*time.Hour
	case RepeatWeekly:
		return elapsed >= 7*24*time.Hour
	case RepeatCooldown:
		return elapsed >= time.Duration(cfg.CooldownDays)*24*time.Hour
	case RepeatInfinite:
		return true
	default:
		// RepeatNone and unknown kinds never reset through the scheduler.
		return false
	}
}
