package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"
	"github.com/louisbranch/emberforge/internal/storage"
)

// holdCard places one card under a battle's custody. Callers verify
// ownership with requireOwned in the same transaction first; the ledger's
// primary key still rejects a double hold that slips through.
func holdCard(ctx context.Context, tx *sql.Tx, cardID, battleID uint64, owner string, heldAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO escrow (card_id, battle_id, owner, held_at)
VALUES (?, ?, ?, ?)`,
		int64(cardID), int64(battleID), owner, toMillis(heldAt))
	if err != nil {
		if isConstraintViolation(err) {
			return apperrors.WithMetadata(apperrors.CodeInEscrow, "card held in escrow", cardMeta(cardID))
		}
		return fmt.Errorf("hold card %d: %w", cardID, err)
	}
	return nil
}

// releaseBattleEscrow clears every ledger record of the battle. Custody
// returns to the owners unchanged on the cards table.
func releaseBattleEscrow(ctx context.Context, tx *sql.Tx, battleID uint64) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM escrow WHERE battle_id = ?", int64(battleID)); err != nil {
		return fmt.Errorf("release escrow for battle %d: %w", battleID, err)
	}
	return nil
}

// awardCard hands the escrowed card to winner and clears its ledger
// record.
func awardCard(ctx context.Context, tx *sql.Tx, cardID uint64, winner string) error {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM escrow WHERE card_id = ?", int64(cardID))
	if err != nil {
		return fmt.Errorf("clear escrow for card %d: %w", cardID, err)
	}
	cleared, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear escrow for card %d: %w", cardID, err)
	}
	if cleared == 0 {
		return storage.ErrNotEscrowed
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE cards SET owner = ? WHERE id = ?", winner, int64(cardID)); err != nil {
		return fmt.Errorf("award card %d: %w", cardID, err)
	}
	return nil
}

// GetEscrow returns the ledger record for a card.
func (s *Store) GetEscrow(ctx context.Context, cardID uint64) (storage.EscrowRecord, error) {
	var rec storage.EscrowRecord
	var card, battleID, held int64
	err := s.db.QueryRowContext(ctx,
		"SELECT card_id, battle_id, owner, held_at FROM escrow WHERE card_id = ?",
		int64(cardID)).Scan(&card, &battleID, &rec.Owner, &held)
	if err == sql.ErrNoRows {
		return storage.EscrowRecord{}, storage.ErrNotEscrowed
	}
	if err != nil {
		return storage.EscrowRecord{}, fmt.Errorf("get escrow for card %d: %w", cardID, err)
	}
	rec.CardID = uint64(card)
	rec.BattleID = uint64(battleID)
	rec.HeldAt = fromMillis(held)
	return rec, nil
}

// ListEscrowForBattle returns every card the battle holds, in card order.
func (s *Store) ListEscrowForBattle(ctx context.Context, battleID uint64) ([]storage.EscrowRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT card_id, battle_id, owner, held_at FROM escrow WHERE battle_id = ? ORDER BY card_id",
		int64(battleID))
	if err != nil {
		return nil, fmt.Errorf("list escrow for battle %d: %w", battleID, err)
	}
	defer rows.Close()

	var records []storage.EscrowRecord
	for rows.Next() {
		var rec storage.EscrowRecord
		var card, battle, held int64
		if err := rows.Scan(&card, &battle, &rec.Owner, &held); err != nil {
			return nil, fmt.Errorf("scan escrow record: %w", err)
		}
		rec.CardID = uint64(card)
		rec.BattleID = uint64(battle)
		rec.HeldAt = fromMillis(held)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escrow records: %w", err)
	}
	return records, nil
}
