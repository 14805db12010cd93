package service

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/arena/card"
	"github.com/louisbranch/emberforge/internal/storage"
)

// MintCard forges a card with randomized stats. An empty owner mints for
// the caller; minting for another player takes the operator role.
func (s *Service) MintCard(ctx context.Context, owner string) (Card, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return Card{}, err
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		owner = caller
	}
	if owner != caller && !isOperator(ctx) {
		return Card{}, apperrors.New(apperrors.CodePermissionDenied, "minting for another player takes the operator role")
	}

	now := s.clock().UTC()
	rec, err := s.store.CreateCard(ctx, func(id uint64) (storage.CardRecord, error) {
		c := card.Card{
			ID:        id,
			Owner:     owner,
			Stats:     card.MintStats(s.src, now, owner, id),
			CreatedAt: now,
		}
		return recordFromCard(c), nil
	})
	if err != nil {
		return Card{}, err
	}
	return Card{Card: cardFromRecord(rec)}, nil
}

// GetCard returns a card and its custody status.
func (s *Service) GetCard(ctx context.Context, id uint64) (Card, error) {
	if _, err := callerID(ctx); err != nil {
		return Card{}, err
	}
	rec, err := s.store.GetCard(ctx, id)
	if err != nil {
		return Card{}, err
	}
	result := Card{Card: cardFromRecord(rec)}

	held, err := s.store.GetEscrow(ctx, id)
	switch {
	case err == nil:
		result.InEscrow = true
		result.BattleID = held.BattleID
	case errors.Is(err, storage.ErrNotEscrowed):
	default:
		return Card{}, err
	}
	return result, nil
}

// ListCards pages through a player's live cards, newest first. An empty
// owner lists the caller's collection.
func (s *Service) ListCards(ctx context.Context, owner string, page storage.Page) ([]Card, string, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, "", err
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		owner = caller
	}

	records, next, err := s.store.ListCardsByOwner(ctx, owner, page)
	if err != nil {
		return nil, "", err
	}
	cards := make([]Card, 0, len(records))
	for _, rec := range records {
		cards = append(cards, Card{Card: cardFromRecord(rec)})
	}
	return cards, next, nil
}

// FuseCards burns the caller's two sacrifice cards and forges a stronger
// card from their averaged stats. Both sacrifices must be live, owned by
// the caller, and outside escrow; the burn and the forge commit together.
func (s *Service) FuseCards(ctx context.Context, burnA, burnB uint64) (Card, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return Card{}, err
	}
	if burnA == burnB {
		return Card{}, apperrors.New(apperrors.CodeSelfFusion, "a card cannot fuse with itself")
	}

	// Stats never change after minting, so reading them outside the burn
	// transaction is safe. Ownership and escrow are re-verified inside it.
	first, err := s.store.GetCard(ctx, burnA)
	if err != nil {
		return Card{}, err
	}
	second, err := s.store.GetCard(ctx, burnB)
	if err != nil {
		return Card{}, err
	}
	fused := card.Fuse(cardFromRecord(first).Stats, cardFromRecord(second).Stats)

	now := s.clock().UTC()
	rec, err := s.store.FuseCards(ctx, caller, burnA, burnB, now, func(id uint64) (storage.CardRecord, error) {
		c := card.Card{ID: id, Owner: caller, Stats: fused, CreatedAt: now}
		return recordFromCard(c), nil
	})
	if err != nil {
		return Card{}, err
	}
	return Card{Card: cardFromRecord(rec)}, nil
}

// TransferCard hands one of the caller's cards to another player.
func (s *Service) TransferCard(ctx context.Context, cardID uint64, recipient string) (Card, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return Card{}, err
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return Card{}, apperrors.New(apperrors.CodeRecipientEmpty, "transfer recipient is required")
	}

	rec, err := s.store.TransferCard(ctx, cardID, caller, recipient)
	if err != nil {
		return Card{}, err
	}
	return Card{Card: cardFromRecord(rec)}, nil
}
