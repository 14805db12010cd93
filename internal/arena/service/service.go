// Package service orchestrates arena operations: it binds the card and
// battle rules to persistent storage, the clock, and the randomness
// source. Every mutating operation commits through a single store
// transaction.
package service

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/arena/battle"
	"github.com/louisbranch/emberforge/internal/arena/card"
	"github.com/louisbranch/emberforge/internal/arena/random"
	"github.com/louisbranch/emberforge/internal/platform/requestctx"
	"github.com/louisbranch/emberforge/internal/storage"
)

// Service exposes the arena operations.
type Service struct {
	store storage.Store
	clock func() time.Time
	src   random.Source
}

// New creates a Service. A nil clock falls back to time.Now and a nil
// source to the keccak draw.
func New(store storage.Store, clock func() time.Time, src random.Source) *Service {
	if clock == nil {
		clock = time.Now
	}
	if src == nil {
		src = random.Keccak{}
	}
	return &Service{store: store, clock: clock, src: src}
}

// Card is a card together with its custody status.
type Card struct {
	card.Card
	InEscrow bool
	BattleID uint64 // battle holding the card, zero when free
}

// callerID extracts the authenticated player from the request context.
func callerID(ctx context.Context) (string, error) {
	id := strings.TrimSpace(requestctx.PlayerIDFromContext(ctx))
	if id == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "caller identity is missing")
	}
	return id, nil
}

func isOperator(ctx context.Context) bool {
	return requestctx.RoleFromContext(ctx) == requestctx.RoleOperator
}

func cardFromRecord(rec storage.CardRecord) card.Card {
	return card.Card{
		ID:    rec.ID,
		Owner: rec.Owner,
		Stats: card.Stats{
			Power:   rec.Power,
			Defense: rec.Defense,
			Speed:   rec.Speed,
			Rarity:  rec.Rarity,
		},
		CreatedAt: rec.CreatedAt,
	}
}

func recordFromCard(c card.Card) storage.CardRecord {
	return storage.CardRecord{
		ID:        c.ID,
		Owner:     c.Owner,
		Power:     c.Stats.Power,
		Defense:   c.Stats.Defense,
		Speed:     c.Stats.Speed,
		Rarity:    c.Stats.Rarity,
		CreatedAt: c.CreatedAt,
	}
}

func battleFromRecord(rec storage.BattleRecord) battle.Battle {
	return battle.Battle{
		ID:            rec.ID,
		Starter:       rec.Starter,
		Opponent:      rec.Opponent,
		StarterCards:  rec.StarterCards,
		OpponentCards: rec.OpponentCards,
		CurrentRound:  rec.CurrentRound,
		StarterWins:   rec.StarterWins,
		OpponentWins:  rec.OpponentWins,
		Status:        rec.Status,
		Winner:        rec.Winner,
		Claimed:       rec.ClaimedAt != nil,
	}
}

func recordFromBattle(b battle.Battle, createdAt, updatedAt time.Time) storage.BattleRecord {
	return storage.BattleRecord{
		ID:            b.ID,
		Starter:       b.Starter,
		Opponent:      b.Opponent,
		StarterCards:  b.StarterCards,
		OpponentCards: b.OpponentCards,
		CurrentRound:  b.CurrentRound,
		StarterWins:   b.StarterWins,
		OpponentWins:  b.OpponentWins,
		Status:        b.Status,
		Winner:        b.Winner,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}
