package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stonelantern/questhall/internal/quest"
)

// LoadCatalog reads the full quest catalog. Implements the engine's
// CatalogPersister contract.
func (d *Database) LoadCatalog(ctx context.Context) ([]*quest.Quest, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT definition FROM quest_catalog ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	var quests []*quest.Quest
	for rows.Next() {
		var definition string
		if err := rows.Scan(&definition); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		var q quest.Quest
		if err := json.Unmarshal([]byte(definition), &q); err != nil {
			return nil, fmt.Errorf("decode quest: %w", err)
		}
		quests = append(quests, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return quests, nil
}

// SaveCatalog replaces the persisted catalog with the given snapshot in
// a single transaction; either everything saves or nothing does.
func (d *Database) SaveCatalog(ctx context.Context, quests []*quest.Quest) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM quest_catalog"); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO quest_catalog (id, status, definition) VALUES (%s, %s, %s)",
		d.dialect.Placeholder(1), d.dialect.Placeholder(2), d.dialect.Placeholder(3),
	)
	for _, q := range quests {
		definition, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("encode quest %s: %w", q.ID, err)
		}
		if _, err := tx.ExecContext(ctx, insert, q.ID, string(q.Status), string(definition)); err != nil {
			return fmt.Errorf("insert quest %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}
	return nil
}

// SaveJournal persists one participant's journal record as JSON.
func (d *Database) SaveJournal(ctx context.Context, actorID string, record json.RawMessage) error {
	var stmt string
	switch d.dialect.(type) {
	case *PostgresDialect:
		stmt = "INSERT INTO participant_journal (actor_id, record) VALUES ($1, $2) " +
			"ON CONFLICT (actor_id) DO UPDATE SET record = $2, updated_at = CURRENT_TIMESTAMP"
	default:
		stmt = "INSERT INTO participant_journal (actor_id, record) VALUES (?, ?) " +
			"ON CONFLICT (actor_id) DO UPDATE SET record = excluded.record, updated_at = CURRENT_TIMESTAMP"
	}
	if _, err := d.db.ExecContext(ctx, stmt, actorID, string(record)); err != nil {
		return fmt.Errorf("save journal for %s: %w", actorID, err)
	}
	return nil
}

// LoadJournals reads every participant journal record.
func (d *Database) LoadJournals(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT actor_id, record FROM participant_journal")
	if err != nil {
		return nil, fmt.Errorf("load journals: %w", err)
	}
	defer rows.Close()

	records := make(map[string]json.RawMessage)
	for rows.Next() {
		var actorID, record string
		if err := rows.Scan(&actorID, &record); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		records[actorID] = json.RawMessage(record)
	}
	return records, rows.Err()
}
