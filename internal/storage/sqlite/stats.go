package sqlite

import (
	"context"
	"fmt"

	"github.com/louisbranch/emberforge/internal/arena/battle"
	"github.com/louisbranch/emberforge/internal/storage"
)

// CollectStats aggregates card and battle counts for the stats endpoint.
func (s *Store) CollectStats(ctx context.Context) (storage.StatsRecord, error) {
	rec := storage.StatsRecord{Battles: make(map[battle.Status]int64)}

	row := s.db.QueryRowContext(ctx, `
SELECT
	COUNT(CASE WHEN burned_at IS NULL THEN 1 END),
	COUNT(CASE WHEN burned_at IS NOT NULL THEN 1 END)
FROM cards`)
	if err := row.Scan(&rec.LiveCards, &rec.BurnedCards); err != nil {
		return storage.StatsRecord{}, fmt.Errorf("count cards: %w", err)
	}

	row = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM escrow")
	if err := row.Scan(&rec.EscrowedCards); err != nil {
		return storage.StatsRecord{}, fmt.Errorf("count escrow: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM battles GROUP BY status")
	if err != nil {
		return storage.StatsRecord{}, fmt.Errorf("count battles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status int
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return storage.StatsRecord{}, fmt.Errorf("scan battle count: %w", err)
		}
		rec.Battles[battle.Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return storage.StatsRecord{}, fmt.Errorf("iterate battle counts: %w", err)
	}
	return rec, nil
}
