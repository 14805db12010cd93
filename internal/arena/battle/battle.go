// Package battle implements the battle state machine: challenge and join
// validation, round scoring, resolution, and the prize claim rules.
package battle

import (
	"strconv"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/arena/card"
)

const (
	// CardsPerSide is the fixed nomination size for each participant.
	CardsPerSide = 3
	// Rounds per battle; one nominated card fights per round.
	Rounds = 3
	// DrawSplit is the pool of random points split between the sides each
	// round: the starter adds the draw, the opponent its complement.
	DrawSplit = 10
)

// Status is the battle lifecycle state. The numeric values are part of the
// persisted format and never change.
type Status int

const (
	StatusWaiting Status = iota
	StatusReadyToReveal
	StatusInProgress
	StatusResolved
	StatusCancelled
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusReadyToReveal:
		return "ready_to_reveal"
	case StatusInProgress:
		return "in_progress"
	case StatusResolved:
		return "resolved"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseStatus maps a wire name back to its status.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "waiting":
		return StatusWaiting, nil
	case "ready_to_reveal":
		return StatusReadyToReveal, nil
	case "in_progress":
		return StatusInProgress, nil
	case "resolved":
		return StatusResolved, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return 0, apperrors.Newf(apperrors.CodeInvalidState, "unknown battle status %q", name)
	}
}

// Side identifies a battle participant relative to the battle record.
type Side int

const (
	SideNone Side = iota
	SideStarter
	SideOpponent
)

// String returns the side name.
func (s Side) String() string {
	switch s {
	case SideStarter:
		return "starter"
	case SideOpponent:
		return "opponent"
	default:
		return "none"
	}
}

// Battle is the full state of one match. Terminal battles (Resolved,
// Cancelled) never change again except for the claim flag.
type Battle struct {
	ID            uint64
	Starter       string
	Opponent      string
	StarterCards  [CardsPerSide]uint64
	OpponentCards [CardsPerSide]uint64
	CurrentRound  int
	StarterWins   int
	OpponentWins  int
	Status        Status
	Winner        string // player id; empty until resolved, empty forever on a draw
	Claimed       bool
}

// NewBattle validates a challenge and returns the battle in Waiting with
// the starter's nomination locked in. The battle id is assigned at
// persistence time.
func NewBattle(starter, opponent string, cards [CardsPerSide]uint64) (Battle, error) {
	if starter == "" {
		return Battle{}, apperrors.WithMetadata(apperrors.CodePlayerIDEmpty, "starter id is empty", map[string]string{"field": "starter"})
	}
	if opponent == "" {
		return Battle{}, apperrors.WithMetadata(apperrors.CodePlayerIDEmpty, "opponent id is empty", map[string]string{"field": "opponent"})
	}
	if starter == opponent {
		return Battle{}, apperrors.New(apperrors.CodeSelfChallenge, "starter and opponent are the same player")
	}
	return Battle{
		Starter:      starter,
		Opponent:     opponent,
		StarterCards: cards,
		Status:       StatusWaiting,
	}, nil
}

// CardSet validates a nomination and pins it to the fixed battle size.
func CardSet(ids []uint64) ([CardsPerSide]uint64, error) {
	var set [CardsPerSide]uint64
	if len(ids) != CardsPerSide {
		return set, apperrors.WithMetadata(apperrors.CodeCardSetSize,
			"nomination must hold exactly "+strconv.Itoa(CardsPerSide)+" cards",
			map[string]string{"want": strconv.Itoa(CardsPerSide), "got": strconv.Itoa(len(ids))})
	}
	seen := make(map[uint64]bool, CardsPerSide)
	for i, id := range ids {
		if seen[id] {
			return set, apperrors.WithMetadata(apperrors.CodeCardSetDuplicate,
				"card "+strconv.FormatUint(id, 10)+" nominated twice",
				map[string]string{"card_id": strconv.FormatUint(id, 10)})
		}
		seen[id] = true
		set[i] = id
	}
	return set, nil
}

// Participant reports whether playerID takes part in the battle.
func (b Battle) Participant(playerID string) bool {
	return playerID != "" && (playerID == b.Starter || playerID == b.Opponent)
}

// Join validates the challenged player's acceptance and moves the battle
// to ReadyToReveal with the opponent's nomination locked in.
func (b Battle) Join(playerID string, cards [CardsPerSide]uint64) (Battle, error) {
	if b.Status != StatusWaiting {
		return b, b.invalidState("join")
	}
	if playerID != b.Opponent {
		return b, apperrors.New(apperrors.CodeNotOpponent, "caller is not the challenged opponent")
	}
	b.OpponentCards = cards
	b.Status = StatusReadyToReveal
	return b, nil
}

// PlayableRound checks that the battle accepts a reveal from caller and
// returns the index of the round to play.
func (b Battle) PlayableRound(callerID string) (int, error) {
	if b.Status != StatusReadyToReveal && b.Status != StatusInProgress {
		return 0, b.invalidState("reveal")
	}
	if !b.Participant(callerID) {
		return 0, apperrors.New(apperrors.CodeNotParticipant, "caller is not a battle participant")
	}
	if b.CurrentRound >= Rounds {
		return 0, b.invalidState("reveal")
	}
	return b.CurrentRound, nil
}

// RoundResult captures one resolved round.
type RoundResult struct {
	Round         int
	StarterScore  int
	OpponentScore int
	Winner        Side // SideNone on a tied round
}

// PlayRound scores one round. draw must already be reduced to
// [0, DrawSplit); the starter adds it and the opponent adds the
// complement, so every round splits the same pool. A tied score awards
// neither side.
func PlayRound(round int, starter, opponent card.Stats, draw int) RoundResult {
	result := RoundResult{
		Round:         round,
		StarterScore:  starter.Score() + draw,
		OpponentScore: opponent.Score() + (DrawSplit - draw),
	}
	switch {
	case result.StarterScore > result.OpponentScore:
		result.Winner = SideStarter
	case result.OpponentScore > result.StarterScore:
		result.Winner = SideOpponent
	}
	return result
}

// ApplyRound folds a round result into the battle: tallies the win, moves
// the first reveal into InProgress, and resolves the match after the final
// round. More round wins takes the match; an even split is a draw with no
// winner.
func (b Battle) ApplyRound(result RoundResult) Battle {
	switch result.Winner {
	case SideStarter:
		b.StarterWins++
	case SideOpponent:
		b.OpponentWins++
	}
	b.CurrentRound++

	if b.CurrentRound >= Rounds {
		b.Status = StatusResolved
		switch {
		case b.StarterWins > b.OpponentWins:
			b.Winner = b.Starter
		case b.OpponentWins > b.StarterWins:
			b.Winner = b.Opponent
		default:
			b.Winner = ""
		}
	} else {
		b.Status = StatusInProgress
	}
	return b
}

// IsDraw reports whether a resolved battle ended without a winner.
func (b Battle) IsDraw() bool {
	return b.Status == StatusResolved && b.Winner == ""
}

// Loser returns the player id of the losing side of a resolved battle,
// or the empty string when there is no winner.
func (b Battle) Loser() string {
	switch b.Winner {
	case "":
		return ""
	case b.Starter:
		return b.Opponent
	default:
		return b.Starter
	}
}

// Prize validates a claim by callerID and returns the loser's card at
// index. The checks run in claim order: battle state, winner identity,
// prior claim, then index bounds.
func (b Battle) Prize(callerID string, index int) (uint64, error) {
	if b.Status != StatusResolved {
		return 0, b.invalidState("claim")
	}
	if b.Winner == "" || callerID != b.Winner {
		return 0, apperrors.New(apperrors.CodeNotWinner, "caller did not win this battle")
	}
	if b.Claimed {
		return 0, apperrors.New(apperrors.CodeAlreadyClaimed, "battle prize already claimed")
	}
	if index < 0 || index >= CardsPerSide {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidIndex,
			"prize index "+strconv.Itoa(index)+" out of range",
			map[string]string{"index": strconv.Itoa(index)})
	}
	if b.Winner == b.Starter {
		return b.OpponentCards[index], nil
	}
	return b.StarterCards[index], nil
}

// Cancel abandons a battle before any round is played. Participants may
// cancel their own battles; an operator may cancel any cancellable battle
// on behalf of the timeout authority.
func (b Battle) Cancel(callerID string, operator bool) (Battle, error) {
	if b.Status != StatusWaiting && b.Status != StatusReadyToReveal {
		return b, b.invalidState("cancel")
	}
	if !operator && !b.Participant(callerID) {
		return b, apperrors.New(apperrors.CodeNotParticipant, "caller is not a battle participant")
	}
	b.Status = StatusCancelled
	return b, nil
}

func (b Battle) invalidState(op string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidState,
		"battle status "+b.Status.String()+" does not allow "+op,
		map[string]string{"status": b.Status.String(), "operation": op})
}
