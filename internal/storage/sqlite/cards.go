package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/emberforge/internal/storage"
)

const cardColumns = "id, owner, power, defense, speed, rarity, created_at, burned_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (storage.CardRecord, error) {
	var rec storage.CardRecord
	var id int64
	var created int64
	var burned sql.NullInt64
	if err := row.Scan(&id, &rec.Owner, &rec.Power, &rec.Defense, &rec.Speed, &rec.Rarity, &created, &burned); err != nil {
		return rec, err
	}
	rec.ID = uint64(id)
	rec.CreatedAt = fromMillis(created)
	rec.BurnedAt = fromNullMillis(burned)
	return rec, nil
}

func insertCard(ctx context.Context, tx *sql.Tx, rec storage.CardRecord) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO cards (id, owner, power, defense, speed, rarity, created_at, burned_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(rec.ID), rec.Owner, rec.Power, rec.Defense, rec.Speed, rec.Rarity,
		toMillis(rec.CreatedAt), toNullMillis(rec.BurnedAt))
	if err != nil {
		return fmt.Errorf("insert card %d: %w", rec.ID, err)
	}
	return nil
}

// CreateCard allocates the next card id, builds the record with it, and
// persists it in the same transaction.
func (s *Store) CreateCard(ctx context.Context, build func(id uint64) (storage.CardRecord, error)) (storage.CardRecord, error) {
	var rec storage.CardRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := nextID(ctx, tx, "card")
		if err != nil {
			return err
		}
		rec, err = build(id)
		if err != nil {
			return err
		}
		return insertCard(ctx, tx, rec)
	})
	if err != nil {
		return storage.CardRecord{}, err
	}
	return rec, nil
}

// GetCard returns a live card. Burned and never-minted ids both report
// ErrNotFound.
func (s *Store) GetCard(ctx context.Context, id uint64) (storage.CardRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM cards WHERE id = ? AND burned_at IS NULL", int64(id))
	rec, err := scanCard(row)
	if err == sql.ErrNoRows {
		return storage.CardRecord{}, notFoundCard(id)
	}
	if err != nil {
		return storage.CardRecord{}, fmt.Errorf("get card %d: %w", id, err)
	}
	return rec, nil
}

// ListCardsByOwner pages through a player's live cards, newest first.
func (s *Store) ListCardsByOwner(ctx context.Context, owner string, page storage.Page) ([]storage.CardRecord, string, error) {
	size := normalizePageSize(page.Size)

	query := "SELECT " + cardColumns + " FROM cards WHERE owner = ? AND burned_at IS NULL"
	args := []any{owner}
	if page.Token != "" {
		before, err := parsePageToken(page.Token)
		if err != nil {
			return nil, "", err
		}
		query += " AND id < ?"
		args = append(args, before)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, size+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list cards for %s: %w", owner, err)
	}
	defer rows.Close()

	var records []storage.CardRecord
	for rows.Next() {
		rec, err := scanCard(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan card: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate cards: %w", err)
	}

	var nextToken string
	if len(records) > size {
		records = records[:size]
		nextToken = strconv.FormatUint(records[size-1].ID, 10)
	}
	return records, nextToken, nil
}

// TransferCard reassigns a live, unescrowed card between players. The
// ownership check and the write share one transaction.
func (s *Store) TransferCard(ctx context.Context, cardID uint64, from, to string) (storage.CardRecord, error) {
	var rec storage.CardRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOwned(ctx, tx, cardID, from); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE cards SET owner = ? WHERE id = ?", to, int64(cardID)); err != nil {
			return fmt.Errorf("transfer card %d: %w", cardID, err)
		}

		row := tx.QueryRowContext(ctx,
			"SELECT "+cardColumns+" FROM cards WHERE id = ?", int64(cardID))
		var err error
		rec, err = scanCard(row)
		if err != nil {
			return fmt.Errorf("reload card %d: %w", cardID, err)
		}
		return nil
	})
	if err != nil {
		return storage.CardRecord{}, err
	}
	return rec, nil
}

// FuseCards burns both sacrifices and persists the forged card in one
// transaction. Ownership and escrow freedom are re-verified inside it.
func (s *Store) FuseCards(ctx context.Context, owner string, burnA, burnB uint64, burnedAt time.Time, build func(id uint64) (storage.CardRecord, error)) (storage.CardRecord, error) {
	var rec storage.CardRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, cardID := range []uint64{burnA, burnB} {
			if err := requireOwned(ctx, tx, cardID, owner); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE cards SET burned_at = ? WHERE id IN (?, ?)",
			toMillis(burnedAt), int64(burnA), int64(burnB)); err != nil {
			return fmt.Errorf("burn cards %d and %d: %w", burnA, burnB, err)
		}

		id, err := nextID(ctx, tx, "card")
		if err != nil {
			return err
		}
		rec, err = build(id)
		if err != nil {
			return err
		}
		return insertCard(ctx, tx, rec)
	})
	if err != nil {
		return storage.CardRecord{}, err
	}
	return rec, nil
}
