package service

import (
	"context"
	"strconv"

	"github.com/louisbranch/emberforge/internal/arena/battle"
	"github.com/louisbranch/emberforge/internal/arena/random"
	"github.com/louisbranch/emberforge/internal/storage"
)

// CreateBattle challenges opponent with three of the caller's cards. The
// nominated cards move into escrow until the battle settles.
func (s *Service) CreateBattle(ctx context.Context, opponent string, cardIDs []uint64) (battle.Battle, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return battle.Battle{}, err
	}
	set, err := battle.CardSet(cardIDs)
	if err != nil {
		return battle.Battle{}, err
	}
	b, err := battle.NewBattle(caller, opponent, set)
	if err != nil {
		return battle.Battle{}, err
	}

	now := s.clock().UTC()
	rec, err := s.store.CreateBattle(ctx, now, func(id uint64) (storage.BattleRecord, error) {
		b.ID = id
		return recordFromBattle(b, now, now), nil
	})
	if err != nil {
		return battle.Battle{}, err
	}
	return battleFromRecord(rec), nil
}

// GetBattle returns a battle by id.
func (s *Service) GetBattle(ctx context.Context, id uint64) (battle.Battle, error) {
	if _, err := callerID(ctx); err != nil {
		return battle.Battle{}, err
	}
	rec, err := s.store.GetBattle(ctx, id)
	if err != nil {
		return battle.Battle{}, err
	}
	return battleFromRecord(rec), nil
}

// ListBattles pages through battles matching filter, newest first.
func (s *Service) ListBattles(ctx context.Context, filter storage.BattleFilter, page storage.Page) ([]battle.Battle, string, error) {
	if _, err := callerID(ctx); err != nil {
		return nil, "", err
	}
	records, next, err := s.store.ListBattles(ctx, filter, page)
	if err != nil {
		return nil, "", err
	}
	battles := make([]battle.Battle, 0, len(records))
	for _, rec := range records {
		battles = append(battles, battleFromRecord(rec))
	}
	return battles, next, nil
}

// JoinBattle accepts a challenge with three of the caller's cards, moving
// the battle to ReadyToReveal and the cards into escrow.
func (s *Service) JoinBattle(ctx context.Context, battleID uint64, cardIDs []uint64) (battle.Battle, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return battle.Battle{}, err
	}
	set, err := battle.CardSet(cardIDs)
	if err != nil {
		return battle.Battle{}, err
	}

	rec, err := s.store.GetBattle(ctx, battleID)
	if err != nil {
		return battle.Battle{}, err
	}
	joined, err := battleFromRecord(rec).Join(caller, set)
	if err != nil {
		return battle.Battle{}, err
	}

	now := s.clock().UTC()
	if err := s.store.JoinBattle(ctx, recordFromBattle(joined, rec.CreatedAt, now)); err != nil {
		return battle.Battle{}, err
	}
	return joined, nil
}

// RevealRound plays the next round of a battle: the nominated cards'
// scores plus a split of random points decide it. Either participant may
// reveal. The third round resolves the battle, and a drawn match releases
// all escrowed cards on the spot.
func (s *Service) RevealRound(ctx context.Context, battleID uint64) (battle.Battle, battle.RoundResult, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return battle.Battle{}, battle.RoundResult{}, err
	}

	rec, err := s.store.GetBattle(ctx, battleID)
	if err != nil {
		return battle.Battle{}, battle.RoundResult{}, err
	}
	b := battleFromRecord(rec)
	round, err := b.PlayableRound(caller)
	if err != nil {
		return battle.Battle{}, battle.RoundResult{}, err
	}

	starter, err := s.store.GetCard(ctx, b.StarterCards[round])
	if err != nil {
		return battle.Battle{}, battle.RoundResult{}, err
	}
	opponent, err := s.store.GetCard(ctx, b.OpponentCards[round])
	if err != nil {
		return battle.Battle{}, battle.RoundResult{}, err
	}

	now := s.clock().UTC()
	draw := int(random.Intn(s.src.Draw(strconv.FormatInt(now.Unix(), 10), caller), battle.DrawSplit))
	result := battle.PlayRound(round, cardFromRecord(starter).Stats, cardFromRecord(opponent).Stats, draw)
	next := b.ApplyRound(result)

	if err := s.store.SettleRound(ctx, recordFromBattle(next, rec.CreatedAt, now), round); err != nil {
		return battle.Battle{}, battle.RoundResult{}, err
	}
	return next, result, nil
}

// ClaimPrize lets the winner take one card from the loser's nomination.
// The remaining escrowed cards go home in the same transaction.
func (s *Service) ClaimPrize(ctx context.Context, battleID uint64, index int) (Card, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return Card{}, err
	}

	rec, err := s.store.GetBattle(ctx, battleID)
	if err != nil {
		return Card{}, err
	}
	b := battleFromRecord(rec)
	prizeID, err := b.Prize(caller, index)
	if err != nil {
		return Card{}, err
	}

	now := s.clock().UTC()
	claim := recordFromBattle(b, rec.CreatedAt, now)
	claim.ClaimedAt = &now
	if err := s.store.ClaimPrize(ctx, claim, prizeID); err != nil {
		return Card{}, err
	}

	won, err := s.store.GetCard(ctx, prizeID)
	if err != nil {
		return Card{}, err
	}
	return Card{Card: cardFromRecord(won)}, nil
}

// CancelBattle abandons a battle before any reveal and returns the
// escrowed cards. Participants cancel their own battles; operators may
// cancel any battle still waiting.
func (s *Service) CancelBattle(ctx context.Context, battleID uint64) (battle.Battle, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return battle.Battle{}, err
	}

	rec, err := s.store.GetBattle(ctx, battleID)
	if err != nil {
		return battle.Battle{}, err
	}
	cancelled, err := battleFromRecord(rec).Cancel(caller, isOperator(ctx))
	if err != nil {
		return battle.Battle{}, err
	}

	now := s.clock().UTC()
	if err := s.store.CancelBattle(ctx, recordFromBattle(cancelled, rec.CreatedAt, now)); err != nil {
		return battle.Battle{}, err
	}
	return cancelled, nil
}

// Stats aggregates registry and battle counts.
func (s *Service) Stats(ctx context.Context) (storage.StatsRecord, error) {
	if _, err := callerID(ctx); err != nil {
		return storage.StatsRecord{}, err
	}
	return s.store.CollectStats(ctx)
}
