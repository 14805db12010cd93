package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/arena/battle"
	"github.com/louisbranch/emberforge/internal/storage"
)

const battleColumns = `id, starter, opponent,
	starter_card1, starter_card2, starter_card3,
	opponent_card1, opponent_card2, opponent_card3,
	current_round, starter_wins, opponent_wins,
	status, winner, claimed_at, created_at, updated_at`

func scanBattle(row rowScanner) (storage.BattleRecord, error) {
	var rec storage.BattleRecord
	var id int64
	var starterCards, opponentCards [battle.CardsPerSide]int64
	var status int
	var claimed sql.NullInt64
	var created, updated int64
	if err := row.Scan(
		&id, &rec.Starter, &rec.Opponent,
		&starterCards[0], &starterCards[1], &starterCards[2],
		&opponentCards[0], &opponentCards[1], &opponentCards[2],
		&rec.CurrentRound, &rec.StarterWins, &rec.OpponentWins,
		&status, &rec.Winner, &claimed, &created, &updated,
	); err != nil {
		return rec, err
	}
	rec.ID = uint64(id)
	for i := range starterCards {
		rec.StarterCards[i] = uint64(starterCards[i])
		rec.OpponentCards[i] = uint64(opponentCards[i])
	}
	rec.Status = battle.Status(status)
	rec.ClaimedAt = fromNullMillis(claimed)
	rec.CreatedAt = fromMillis(created)
	rec.UpdatedAt = fromMillis(updated)
	return rec, nil
}

func insertBattle(ctx context.Context, tx *sql.Tx, rec storage.BattleRecord) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO battles (
	id, starter, opponent,
	starter_card1, starter_card2, starter_card3,
	opponent_card1, opponent_card2, opponent_card3,
	current_round, starter_wins, opponent_wins,
	status, winner, claimed_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(rec.ID), rec.Starter, rec.Opponent,
		int64(rec.StarterCards[0]), int64(rec.StarterCards[1]), int64(rec.StarterCards[2]),
		int64(rec.OpponentCards[0]), int64(rec.OpponentCards[1]), int64(rec.OpponentCards[2]),
		rec.CurrentRound, rec.StarterWins, rec.OpponentWins,
		int(rec.Status), rec.Winner, toNullMillis(rec.ClaimedAt),
		toMillis(rec.CreatedAt), toMillis(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert battle %d: %w", rec.ID, err)
	}
	return nil
}

func notFoundBattle(battleID uint64) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, "battle not found",
		map[string]string{"battle_id": strconv.FormatUint(battleID, 10)})
}

// battleConflict explains a guarded update that matched no row: the battle
// is gone, its status changed, or another writer already advanced the round.
func battleConflict(ctx context.Context, tx *sql.Tx, battleID uint64, op string) error {
	var status, round int
	err := tx.QueryRowContext(ctx,
		"SELECT status, current_round FROM battles WHERE id = ?", int64(battleID)).Scan(&status, &round)
	if err == sql.ErrNoRows {
		return notFoundBattle(battleID)
	}
	if err != nil {
		return fmt.Errorf("reload battle %d: %w", battleID, err)
	}
	name := battle.Status(status).String()
	return apperrors.WithMetadata(apperrors.CodeInvalidState,
		"stored battle state rejected "+op,
		map[string]string{"status": name, "current_round": strconv.Itoa(round), "operation": op})
}

// CreateBattle allocates the battle id, persists the record, and escrows
// its starter cards in one transaction.
func (s *Store) CreateBattle(ctx context.Context, heldAt time.Time, build func(id uint64) (storage.BattleRecord, error)) (storage.BattleRecord, error) {
	var rec storage.BattleRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := nextID(ctx, tx, "battle")
		if err != nil {
			return err
		}
		rec, err = build(id)
		if err != nil {
			return err
		}
		// The battle row goes in first; escrow rows reference it.
		if err := insertBattle(ctx, tx, rec); err != nil {
			return err
		}
		for _, cardID := range rec.StarterCards {
			if err := requireOwned(ctx, tx, cardID, rec.Starter); err != nil {
				return err
			}
			if err := holdCard(ctx, tx, cardID, rec.ID, rec.Starter, heldAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storage.BattleRecord{}, err
	}
	return rec, nil
}

// GetBattle returns a battle by id.
func (s *Store) GetBattle(ctx context.Context, id uint64) (storage.BattleRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+battleColumns+" FROM battles WHERE id = ?", int64(id))
	rec, err := scanBattle(row)
	if err == sql.ErrNoRows {
		return storage.BattleRecord{}, notFoundBattle(id)
	}
	if err != nil {
		return storage.BattleRecord{}, fmt.Errorf("get battle %d: %w", id, err)
	}
	return rec, nil
}

// ListBattles pages through battles matching filter, newest first.
func (s *Store) ListBattles(ctx context.Context, filter storage.BattleFilter, page storage.Page) ([]storage.BattleRecord, string, error) {
	size := normalizePageSize(page.Size)

	query := "SELECT " + battleColumns + " FROM battles WHERE 1=1"
	var args []any
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, int(*filter.Status))
	}
	if filter.Participant != "" {
		query += " AND (starter = ? OR opponent = ?)"
		args = append(args, filter.Participant, filter.Participant)
	}
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
		return nil, "", fmt.Errorf("list battles: %w", err)
	}
	defer rows.Close()

	var records []storage.BattleRecord
	for rows.Next() {
		rec, err := scanBattle(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan battle: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate battles: %w", err)
	}

	var nextToken string
	if len(records) > size {
		records = records[:size]
		nextToken = strconv.FormatUint(records[size-1].ID, 10)
	}
	return records, nextToken, nil
}

// JoinBattle persists the Waiting->ReadyToReveal transition and escrows
// the opponent's cards. The guarded update keeps concurrent joins from
// both landing.
func (s *Store) JoinBattle(ctx context.Context, rec storage.BattleRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE battles
SET opponent_card1 = ?, opponent_card2 = ?, opponent_card3 = ?, status = ?, updated_at = ?
WHERE id = ? AND status = ?`,
			int64(rec.OpponentCards[0]), int64(rec.OpponentCards[1]), int64(rec.OpponentCards[2]),
			int(battle.StatusReadyToReveal), toMillis(rec.UpdatedAt),
			int64(rec.ID), int(battle.StatusWaiting))
		if err != nil {
			return fmt.Errorf("join battle %d: %w", rec.ID, err)
		}
		if affected, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("join battle %d: %w", rec.ID, err)
		} else if affected == 0 {
			return battleConflict(ctx, tx, rec.ID, "join")
		}

		for _, cardID := range rec.OpponentCards {
			if err := requireOwned(ctx, tx, cardID, rec.Opponent); err != nil {
				return err
			}
			if err := holdCard(ctx, tx, cardID, rec.ID, rec.Opponent, rec.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// SettleRound persists one played round. The update only applies while the
// stored battle still sits at expectRound, so a concurrent reveal of the
// same round loses cleanly. A resolved draw releases all escrow here.
func (s *Store) SettleRound(ctx context.Context, rec storage.BattleRecord, expectRound int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE battles
SET current_round = ?, starter_wins = ?, opponent_wins = ?, status = ?, winner = ?, updated_at = ?
WHERE id = ? AND status IN (?, ?) AND current_round = ?`,
			rec.CurrentRound, rec.StarterWins, rec.OpponentWins,
			int(rec.Status), rec.Winner, toMillis(rec.UpdatedAt),
			int64(rec.ID), int(battle.StatusReadyToReveal), int(battle.StatusInProgress), expectRound)
		if err != nil {
			return fmt.Errorf("settle round for battle %d: %w", rec.ID, err)
		}
		if affected, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("settle round for battle %d: %w", rec.ID, err)
		} else if affected == 0 {
			return battleConflict(ctx, tx, rec.ID, "reveal")
		}

		if rec.Status == battle.StatusResolved && rec.Winner == "" {
			return releaseBattleEscrow(ctx, tx, rec.ID)
		}
		return nil
	})
}

// ClaimPrize marks the battle claimed, awards the prize card to the
// winner, and releases the rest of the escrow, all in one transaction.
func (s *Store) ClaimPrize(ctx context.Context, rec storage.BattleRecord, prizeCardID uint64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE battles
SET claimed_at = ?, updated_at = ?
WHERE id = ? AND status = ? AND claimed_at IS NULL`,
			toNullMillis(rec.ClaimedAt), toMillis(rec.UpdatedAt),
			int64(rec.ID), int(battle.StatusResolved))
		if err != nil {
			return fmt.Errorf("claim battle %d: %w", rec.ID, err)
		}
		if affected, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("claim battle %d: %w", rec.ID, err)
		} else if affected == 0 {
			return claimConflict(ctx, tx, rec.ID)
		}

		if err := awardCard(ctx, tx, prizeCardID, rec.Winner); err != nil {
			return err
		}
		return releaseBattleEscrow(ctx, tx, rec.ID)
	})
}

// claimConflict explains a claim update that matched no row.
func claimConflict(ctx context.Context, tx *sql.Tx, battleID uint64) error {
	var status int
	var claimed sql.NullInt64
	err := tx.QueryRowContext(ctx,
		"SELECT status, claimed_at FROM battles WHERE id = ?", int64(battleID)).Scan(&status, &claimed)
	if err == sql.ErrNoRows {
		return notFoundBattle(battleID)
	}
	if err != nil {
		return fmt.Errorf("reload battle %d: %w", battleID, err)
	}
	if battle.Status(status) != battle.StatusResolved {
		name := battle.Status(status).String()
		return apperrors.WithMetadata(apperrors.CodeInvalidState,
			"battle status "+name+" does not allow claim",
			map[string]string{"status": name, "operation": "claim"})
	}
	return apperrors.New(apperrors.CodeAlreadyClaimed, "battle prize already claimed")
}

// CancelBattle persists a cancellation and releases the battle's escrow.
func (s *Store) CancelBattle(ctx context.Context, rec storage.BattleRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE battles
SET status = ?, updated_at = ?
WHERE id = ? AND status IN (?, ?)`,
			int(battle.StatusCancelled), toMillis(rec.UpdatedAt),
			int64(rec.ID), int(battle.StatusWaiting), int(battle.StatusReadyToReveal))
		if err != nil {
			return fmt.Errorf("cancel battle %d: %w", rec.ID, err)
		}
		if affected, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("cancel battle %d: %w", rec.ID, err)
		} else if affected == 0 {
			return battleConflict(ctx, tx, rec.ID, "cancel")
		}
		return releaseBattleEscrow(ctx, tx, rec.ID)
	})
}
