// Package storage defines the persistence interfaces for the arena.
//
// It covers the card registry, the battle book, and the escrow ledger.
// Mutating battle operations are composite: one interface method performs
// every write of the operation inside a single transaction, so callers
// never observe partial state. Implementations live in subpackages.
//
// # Error Types
//
//   - ErrNotFound: a requested record is missing or burned.
//   - ErrNotEscrowed: the ledger holds no record for the card.
package storage
