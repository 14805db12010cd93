package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/arena/battle"
)

// ErrNotFound indicates a requested record is missing. Burned cards report
// it too: their ids stay reserved but the cards no longer exist.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrNotEscrowed indicates the ledger holds no record for the card.
var ErrNotEscrowed = apperrors.New(apperrors.CodeNotEscrowed, "card not in escrow")

// CardRecord is the persisted representation of a card.
type CardRecord struct {
	ID        uint64
	Owner     string
	Power     int
	Defense   int
	Speed     int
	Rarity    int
	CreatedAt time.Time
	BurnedAt  *time.Time
}

// EscrowRecord tracks ledger custody of one card. Owner is the player the
// card returns to on release; the cards table keeps that owner unchanged
// while the record exists.
type EscrowRecord struct {
	CardID   uint64
	BattleID uint64
	Owner    string
	HeldAt   time.Time
}

// BattleRecord is the persisted representation of a battle.
type BattleRecord struct {
	ID            uint64
	Starter       string
	Opponent      string
	StarterCards  [battle.CardsPerSide]uint64
	OpponentCards [battle.CardsPerSide]uint64
	CurrentRound  int
	StarterWins   int
	OpponentWins  int
	Status        battle.Status
	Winner        string
	ClaimedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StatsRecord aggregates registry and battle counts for observation.
type StatsRecord struct {
	LiveCards     int64
	BurnedCards   int64
	EscrowedCards int64
	Battles       map[battle.Status]int64
}

// Page bounds a list query. Token is the opaque continuation returned by
// the previous page; empty starts from the newest record.
type Page struct {
	Size  int
	Token string
}

// BattleFilter narrows battle listings. Zero fields match everything.
type BattleFilter struct {
	Status      *battle.Status
	Participant string
}

// CardStore persists cards and allocates their ids. Ids are monotonic and
// never reused, including ids of burned cards.
type CardStore interface {
	// CreateCard allocates the next card id, invokes build with it, and
	// persists the returned record, all in one transaction.
	CreateCard(ctx context.Context, build func(id uint64) (CardRecord, error)) (CardRecord, error)

	// GetCard returns a live card. Burned and unknown ids report
	// ErrNotFound.
	GetCard(ctx context.Context, id uint64) (CardRecord, error)

	// ListCardsByOwner pages through a player's live cards, newest first.
	// The second return value is the continuation token for the next page,
	// empty on the last page.
	ListCardsByOwner(ctx context.Context, owner string, page Page) ([]CardRecord, string, error)

	// TransferCard reassigns a live, unescrowed card from one player to
	// another after re-verifying ownership in the same transaction.
	TransferCard(ctx context.Context, cardID uint64, from, to string) (CardRecord, error)

	// FuseCards burns the two sacrifice cards and persists the forged card
	// built by build, all in one transaction. Ownership, liveness, and
	// escrow freedom of both sacrifices are re-verified inside it.
	FuseCards(ctx context.Context, owner string, burnA, burnB uint64, burnedAt time.Time, build func(id uint64) (CardRecord, error)) (CardRecord, error)
}

// EscrowStore reads the custody ledger. Writes happen only inside the
// composite battle operations, which keeps the one-record-per-card
// invariant in a single writer's hands.
type EscrowStore interface {
	// GetEscrow returns the ledger record for a card, or ErrNotEscrowed.
	GetEscrow(ctx context.Context, cardID uint64) (EscrowRecord, error)

	// ListEscrowForBattle returns every card the battle holds.
	ListEscrowForBattle(ctx context.Context, battleID uint64) ([]EscrowRecord, error)
}

// BattleStore persists battles and drives escrow custody transactionally.
type BattleStore interface {
	// CreateBattle allocates the next battle id, invokes build with it,
	// persists the returned record, and escrows its starter cards. The
	// starter's ownership of every card is re-verified in the transaction.
	CreateBattle(ctx context.Context, heldAt time.Time, build func(id uint64) (BattleRecord, error)) (BattleRecord, error)

	// GetBattle returns a battle by id.
	GetBattle(ctx context.Context, id uint64) (BattleRecord, error)

	// ListBattles pages through battles matching filter, newest first.
	ListBattles(ctx context.Context, filter BattleFilter, page Page) ([]BattleRecord, string, error)

	// JoinBattle persists a Waiting->ReadyToReveal transition and escrows
	// the opponent cards named by record. It fails with INVALID_STATE when
	// the stored battle already left Waiting.
	JoinBattle(ctx context.Context, record BattleRecord) error

	// SettleRound persists the outcome of one played round. expectRound
	// guards against concurrent reveals: the update only applies when the
	// stored battle still sits at that round. A resolved draw releases
	// every escrowed card in the same transaction.
	SettleRound(ctx context.Context, record BattleRecord, expectRound int) error

	// ClaimPrize marks the battle claimed, awards the prize card to the
	// record's winner, and releases the remaining escrow. It fails with
	// ALREADY_CLAIMED when a claim already landed.
	ClaimPrize(ctx context.Context, record BattleRecord, prizeCardID uint64) error

	// CancelBattle persists a cancellation and releases the battle's
	// escrow. It fails with INVALID_STATE when the stored battle already
	// left Waiting or ReadyToReveal.
	CancelBattle(ctx context.Context, record BattleRecord) error
}

// StatsStore aggregates counts for the observation surface.
type StatsStore interface {
	CollectStats(ctx context.Context) (StatsRecord, error)
}

// Store aggregates every persistence concern behind one implementation.
type Store interface {
	CardStore
	EscrowStore
	BattleStore
	StatsStore

	Close() error
}
