package quest

import (
	"context"
	"fmt"
	"time"

	"github.com/stonelantern/questhall/internal/logger"
)

// applyAbandonConsequences applies the costs of walking away from a
// quest: reputation losses (configured as positive magnitudes, applied
// negated), relationship losses (also negated), and a per-participant
// cooldown flag that blocks re-acceptance until it expires. Related
// quest failures are handled by the caller inside the same mutation so
// they share one catalog save.
func (e *Engine) applyAbandonConsequences(ctx context.Context, q *Quest, participantID string) error {
	for _, loss := range q.Abandon.ReputationLoss {
		if err := e.world.Reputation.ApplyReputationDelta(ctx, participantID, loss.FactionID, -loss.Amount); err != nil {
			return fmt.Errorf("reputation loss %s: %w", loss.FactionID, err)
		}
	}
	for _, loss := range q.Abandon.RelationshipLoss {
		if err := e.world.Relationships.ApplyRelationshipDelta(ctx, participantID, loss.TargetID, -loss.Amount); err != nil {
			return fmt.Errorf("relationship loss %s: %w", loss.TargetID, err)
		}
	}
	if q.Abandon.CooldownHours > 0 {
		expiry := e.now().Add(time.Duration(q.Abandon.CooldownHours) * time.Hour)
		key := cooldownFlagPrefix + q.ID
		if err := e.world.Flags.SetParticipantFlag(ctx, participantID, key, expiry.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("set cooldown flag: %w", err)
		}
		logger.Debug("Abandonment cooldown recorded", "quest", q.ID, "participant", participantID, "until", expiry)
	}
	return nil
}
