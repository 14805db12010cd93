package i18n

import apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

var enUS = map[apperrors.Code]string{
	apperrors.CodeUnknown:  "something went wrong",
	apperrors.CodeNotFound: "not found",

	apperrors.CodeNotOwner:       "you do not own this card",
	apperrors.CodeInEscrow:       "this card is locked in an open battle",
	apperrors.CodeNotEscrowed:    "this card is not held in escrow",
	apperrors.CodeSelfFusion:     "a card cannot be fused with itself",
	apperrors.CodeRecipientEmpty: "a recipient is required",

	apperrors.CodeInvalidState:     "the battle does not allow this action right now",
	apperrors.CodeNotOpponent:      "only the challenged player may join this battle",
	apperrors.CodeNotParticipant:   "only battle participants may do this",
	apperrors.CodeNotWinner:        "only the battle winner may claim the prize",
	apperrors.CodeAlreadyClaimed:   "the prize for this battle was already claimed",
	apperrors.CodeInvalidIndex:     "choose a prize slot between 0 and 2",
	apperrors.CodeSelfChallenge:    "you cannot challenge yourself",
	apperrors.CodeCardSetSize:      "nominate exactly {{.want}} cards",
	apperrors.CodeCardSetDuplicate: "each nominated card must be different",

	apperrors.CodeInvalidArgument:  "the request is malformed",
	apperrors.CodePlayerIDEmpty:    "a player id is required",
	apperrors.CodePageTokenInvalid: "the page token is not usable",

	apperrors.CodeUnauthenticated:  "sign in to continue",
	apperrors.CodeTokenInvalid:     "your session token is invalid",
	apperrors.CodeTokenExpired:     "your session token expired",
	apperrors.CodePermissionDenied: "you are not allowed to do this",
}
