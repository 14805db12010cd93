// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Card errors
	CodeNotOwner       Code = "NOT_OWNER"
	CodeInEscrow       Code = "IN_ESCROW"
	CodeNotEscrowed    Code = "NOT_ESCROWED"
	CodeSelfFusion     Code = "SELF_FUSION"
	CodeRecipientEmpty Code = "RECIPIENT_EMPTY"

	// Battle errors
	CodeInvalidState     Code = "INVALID_STATE"
	CodeNotOpponent      Code = "NOT_OPPONENT"
	CodeNotParticipant   Code = "NOT_PARTICIPANT"
	CodeNotWinner        Code = "NOT_WINNER"
	CodeAlreadyClaimed   Code = "ALREADY_CLAIMED"
	CodeInvalidIndex     Code = "INVALID_INDEX"
	CodeSelfChallenge    Code = "SELF_CHALLENGE"
	CodeCardSetSize      Code = "CARD_SET_SIZE"
	CodeCardSetDuplicate Code = "CARD_SET_DUPLICATE"

	// Request errors
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodePlayerIDEmpty    Code = "PLAYER_ID_EMPTY"
	CodePageTokenInvalid Code = "PAGE_TOKEN_INVALID"

	// Auth errors
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeTokenInvalid     Code = "TOKEN_INVALID"
	CodeTokenExpired     Code = "TOKEN_EXPIRED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad input
	case CodeSelfFusion,
		CodeRecipientEmpty,
		CodeSelfChallenge,
		CodeCardSetSize,
		CodeCardSetDuplicate,
		CodeInvalidArgument,
		CodePlayerIDEmpty,
		CodePageTokenInvalid,
		CodeInvalidIndex:
		return http.StatusBadRequest

	// Missing or unusable credentials
	case CodeUnauthenticated,
		CodeTokenInvalid,
		CodeTokenExpired:
		return http.StatusUnauthorized

	// Caller is authenticated but not allowed
	case CodeNotOwner,
		CodeNotOpponent,
		CodeNotParticipant,
		CodeNotWinner,
		CodePermissionDenied:
		return http.StatusForbidden

	case CodeNotFound:
		return http.StatusNotFound

	// Current state rejects the operation
	case CodeInEscrow,
		CodeNotEscrowed,
		CodeInvalidState,
		CodeAlreadyClaimed:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
