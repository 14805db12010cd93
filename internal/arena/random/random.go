// Package random derives the pseudo-random draws behind card stat
// generation and round resolution.
//
// The production source hashes its seed parts with Keccak-256, mirroring
// the commit format of the original on-chain game. Every part of the seed
// is observable by a motivated caller (timestamps, player ids), so draws
// are NOT suitable for anything with real stakes; the Source interface
// exists so the game rules never depend on how draws are produced and a
// hardened source can replace this one without touching them.
package random

import (
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Source yields wide non-negative integers derived from seed parts. Equal
// part lists yield equal draws.
type Source interface {
	Draw(parts ...string) *big.Int
}

// Keccak is the production Source. The zero value is ready to use.
type Keccak struct{}

// Draw hashes the colon-joined parts with Keccak-256 and returns the
// digest as a 256-bit integer.
func (Keccak) Draw(parts ...string) *big.Int {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(strings.Join(parts, ":")))
	return new(big.Int).SetBytes(hash.Sum(nil))
}

// Intn reduces a draw to the range [0, n). n must be positive.
func Intn(draw *big.Int, n int64) int64 {
	return new(big.Int).Mod(draw, big.NewInt(n)).Int64()
}

// Fixed returns a Source whose every draw is value. Tests use it to pin
// outcomes.
func Fixed(value int64) Source {
	return fixedSource(value)
}

type fixedSource int64

func (f fixedSource) Draw(parts ...string) *big.Int {
	return big.NewInt(int64(f))
}

// Sequence returns a Source that cycles through values in order, one per
// draw, ignoring the seed parts.
func Sequence(values ...int64) Source {
	return &sequenceSource{values: values}
}

type sequenceSource struct {
	values []int64
	next   int
}

func (s *sequenceSource) Draw(parts ...string) *big.Int {
	value := s.values[s.next%len(s.values)]
	s.next++
	return big.NewInt(value)
}
