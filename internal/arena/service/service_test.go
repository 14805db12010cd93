package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/arena/battle"
	"github.com/louisbranch/emberforge/internal/arena/card"
	"github.com/louisbranch/emberforge/internal/arena/random"
	"github.com/louisbranch/emberforge/internal/platform/requestctx"
	"github.com/louisbranch/emberforge/internal/storage"
	"github.com/louisbranch/emberforge/internal/storage/sqlite"
)

var testStart = time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)

// newTestService wires a Service to a throwaway sqlite store with a fixed
// clock and the given randomness source.
func newTestService(t *testing.T, src random.Source) (*Service, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return New(store, func() time.Time { return testStart }, src), store
}

func playerCtx(playerID string) context.Context {
	return requestctx.WithPlayerID(context.Background(), playerID)
}

func operatorCtx(playerID string) context.Context {
	return requestctx.WithRole(playerCtx(playerID), requestctx.RoleOperator)
}

// placeCard seeds a card with exact stats straight through the store.
func placeCard(t *testing.T, store *sqlite.Store, owner string, stats card.Stats) uint64 {
	t.Helper()

	rec, err := store.CreateCard(context.Background(), func(id uint64) (storage.CardRecord, error) {
		return storage.CardRecord{
			ID:        id,
			Owner:     owner,
			Power:     stats.Power,
			Defense:   stats.Defense,
			Speed:     stats.Speed,
			Rarity:    stats.Rarity,
			CreatedAt: testStart,
		}, nil
	})
	if err != nil {
		t.Fatalf("place card for %s: %v", owner, err)
	}
	return rec.ID
}

// placeSide seeds three cards with identical stats and returns their ids.
func placeSide(t *testing.T, store *sqlite.Store, owner string, stats card.Stats) []uint64 {
	t.Helper()

	ids := make([]uint64, battle.CardsPerSide)
	for i := range ids {
		ids[i] = placeCard(t, store, owner, stats)
	}
	return ids
}

func wantCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := apperrors.CodeOf(err); got != code {
		t.Fatalf("error code = %s, want %s (err: %v)", got, code, err)
	}
}

func TestOperationsRequireCallerIdentity(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, random.Fixed(0))
	ctx := context.Background()

	if _, err := svc.MintCard(ctx, ""); apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("mint error = %v, want %s", err, apperrors.CodeUnauthenticated)
	}
	if _, err := svc.CreateBattle(ctx, "bob", []uint64{1, 2, 3}); apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("create battle error = %v, want %s", err, apperrors.CodeUnauthenticated)
	}
	if _, err := svc.Stats(ctx); apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("stats error = %v, want %s", err, apperrors.CodeUnauthenticated)
	}
}

func TestStatsAggregatesCounts(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t, random.Fixed(0))
	alice := playerCtx("alice")

	placeSide(t, store, "alice", card.Stats{Power: 60, Defense: 40, Speed: 20, Rarity: 2})
	stats, err := svc.Stats(alice)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.LiveCards != 3 {
		t.Fatalf("live cards = %d, want 3", stats.LiveCards)
	}
	if stats.EscrowedCards != 0 {
		t.Fatalf("escrowed cards = %d, want 0", stats.EscrowedCards)
	}
}
