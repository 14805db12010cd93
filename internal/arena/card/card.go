// Package card implements the collectible card domain: stat generation at
// mint time, the combat score, and deterministic fusion.
package card

import (
	"strconv"
	"time"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/arena/random"
)

// Mint bounds. Freshly minted cards always roll inside these ranges;
// fusion may push power, defense and speed past them, but never rarity.
const (
	MinPower   = 50
	MaxPower   = 99
	MinDefense = 30
	MaxDefense = 69
	MinSpeed   = 10
	MaxSpeed   = 29
	MinRarity  = 1
	MaxRarity  = 5
)

// Card is a collectible with immutable combat stats and a single owner.
// While a card sits in battle escrow the ledger holds custody, but Owner
// still names the player the card returns to.
type Card struct {
	ID        uint64
	Owner     string
	Stats     Stats
	CreatedAt time.Time
}

// Stats are fixed at creation and never change afterwards.
type Stats struct {
	Power   int
	Defense int
	Speed   int
	Rarity  int
}

// Score is the card's base combat rating for a battle round.
func (s Stats) Score() int {
	return s.Power + s.Defense/2 + s.Speed
}

// Validate checks the invariants every card must satisfy, minted or fused.
func (s Stats) Validate() error {
	if s.Power < 1 || s.Defense < 1 || s.Speed < 1 {
		return apperrors.Newf(apperrors.CodeUnknown, "non-positive stats: power=%d defense=%d speed=%d", s.Power, s.Defense, s.Speed)
	}
	if s.Rarity < MinRarity || s.Rarity > MaxRarity {
		return apperrors.Newf(apperrors.CodeUnknown, "rarity %d out of range", s.Rarity)
	}
	return nil
}

// MintStats rolls the stats for a freshly minted card. Each stat consumes
// its own draw from a seed of (mint time, owner, card id), so two mints in
// the same second still differ as long as owner or id differ.
func MintStats(src random.Source, now time.Time, owner string, id uint64) Stats {
	ts := strconv.FormatInt(now.UTC().Unix(), 10)
	ref := strconv.FormatUint(id, 10)

	roll := func(stat string, min, max int64) int {
		return int(min + random.Intn(src.Draw(ts, owner, ref, stat), max-min+1))
	}

	return Stats{
		Power:   roll("power", MinPower, MaxPower),
		Defense: roll("defense", MinDefense, MaxDefense),
		Speed:   roll("speed", MinSpeed, MaxSpeed),
		Rarity:  roll("rarity", MinRarity, MaxRarity),
	}
}

// Fuse computes the stats of the card forged by sacrificing a and b. The
// result averages each stat with integer truncation and adds a flat bonus,
// so the forged card beats at least the weaker parent. Rarity caps at
// MaxRarity. Fusion uses no randomness.
func Fuse(a, b Stats) Stats {
	rarity := (a.Rarity+b.Rarity)/2 + 1
	if rarity > MaxRarity {
		rarity = MaxRarity
	}
	return Stats{
		Power:   (a.Power+b.Power)/2 + 10,
		Defense: (a.Defense+b.Defense)/2 + 5,
		Speed:   (a.Speed+b.Speed)/2 + 5,
		Rarity:  rarity,
	}
}
