package i18n

import apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

var ptBR = map[apperrors.Code]string{
	apperrors.CodeUnknown:  "algo deu errado",
	apperrors.CodeNotFound: "não encontrado",

	apperrors.CodeNotOwner:       "você não é o dono desta carta",
	apperrors.CodeInEscrow:       "esta carta está presa em uma batalha aberta",
	apperrors.CodeNotEscrowed:    "esta carta não está em custódia",
	apperrors.CodeSelfFusion:     "uma carta não pode ser fundida com ela mesma",
	apperrors.CodeRecipientEmpty: "um destinatário é obrigatório",

	apperrors.CodeInvalidState:     "a batalha não permite esta ação agora",
	apperrors.CodeNotOpponent:      "apenas o jogador desafiado pode entrar nesta batalha",
	apperrors.CodeNotParticipant:   "apenas participantes da batalha podem fazer isso",
	apperrors.CodeNotWinner:        "apenas o vencedor da batalha pode resgatar o prêmio",
	apperrors.CodeAlreadyClaimed:   "o prêmio desta batalha já foi resgatado",
	apperrors.CodeInvalidIndex:     "escolha um prêmio entre 0 e 2",
	apperrors.CodeSelfChallenge:    "você não pode desafiar a si mesmo",
	apperrors.CodeCardSetSize:      "indique exatamente {{.want}} cartas",
	apperrors.CodeCardSetDuplicate: "cada carta indicada deve ser diferente",

	apperrors.CodeInvalidArgument:  "a requisição está malformada",
	apperrors.CodePlayerIDEmpty:    "um id de jogador é obrigatório",
	apperrors.CodePageTokenInvalid: "o token de página não é utilizável",

	apperrors.CodeUnauthenticated:  "entre para continuar",
	apperrors.CodeTokenInvalid:     "seu token de sessão é inválido",
	apperrors.CodeTokenExpired:     "seu token de sessão expirou",
	apperrors.CodePermissionDenied: "você não tem permissão para isso",
}
