package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetParticipantFlag upserts a per-participant flag. Implements the
// engine's FlagStore contract (abandonment cooldowns live here).
func (d *Database) SetParticipantFlag(ctx context.Context, actorID, key, value string) error {
	var stmt string
	switch d.dialect.(type) {
	case *PostgresDialect:
		stmt = "INSERT INTO participant_flags (actor_id, flag_key, flag_value) VALUES ($1, $2, $3) " +
			"ON CONFLICT (actor_id, flag_key) DO UPDATE SET flag_value = $3"
	default:
		stmt = "INSERT INTO participant_flags (actor_id, flag_key, flag_value) VALUES (?, ?, ?) " +
			"ON CONFLICT (actor_id, flag_key) DO UPDATE SET flag_value = excluded.flag_value"
	}
	if _, err := d.db.ExecContext(ctx, stmt, actorID, key, value); err != nil {
		return fmt.Errorf("set flag %s for %s: %w", key, actorID, err)
	}
	return nil
}

// GetParticipantFlag reads a per-participant flag.
func (d *Database) GetParticipantFlag(ctx context.Context, actorID, key string) (string, bool, error) {
	query := fmt.Sprintf(
		"SELECT flag_value FROM participant_flags WHERE actor_id = %s AND flag_key = %s",
		d.dialect.Placeholder(1), d.dialect.Placeholder(2),
	)
	var value string
	err := d.db.QueryRowContext(ctx, query, actorID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get flag %s for %s: %w", key, actorID, err)
	}
	return value, true, nil
}
