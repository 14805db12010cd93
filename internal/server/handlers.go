package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/arena/battle"
	"github.com/louisbranch/emberforge/internal/arena/service"
	"github.com/louisbranch/emberforge/internal/storage"
)

type cardResponse struct {
	ID        uint64    `json:"id"`
	Owner     string    `json:"owner"`
	Power     int       `json:"power"`
	Defense   int       `json:"defense"`
	Speed     int       `json:"speed"`
	Rarity    int       `json:"rarity"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	InEscrow  bool      `json:"in_escrow,omitempty"`
	BattleID  uint64    `json:"battle_id,omitempty"`
}

func cardResponseFrom(c service.Card) cardResponse {
	return cardResponse{
		ID:        c.ID,
		Owner:     c.Owner,
		Power:     c.Stats.Power,
		Defense:   c.Stats.Defense,
		Speed:     c.Stats.Speed,
		Rarity:    c.Stats.Rarity,
		Score:     c.Stats.Score(),
		CreatedAt: c.CreatedAt,
		InEscrow:  c.InEscrow,
		BattleID:  c.BattleID,
	}
}

type battleResponse struct {
	ID            uint64   `json:"id"`
	Starter       string   `json:"starter"`
	Opponent      string   `json:"opponent"`
	StarterCards  []uint64 `json:"starter_cards"`
	OpponentCards []uint64 `json:"opponent_cards,omitempty"`
	CurrentRound  int      `json:"current_round"`
	StarterWins   int      `json:"starter_wins"`
	OpponentWins  int      `json:"opponent_wins"`
	Status        string   `json:"status"`
	Winner        string   `json:"winner,omitempty"`
	Claimed       bool     `json:"claimed,omitempty"`
}

func battleResponseFrom(b battle.Battle) battleResponse {
	resp := battleResponse{
		ID:           b.ID,
		Starter:      b.Starter,
		Opponent:     b.Opponent,
		StarterCards: b.StarterCards[:],
		CurrentRound: b.CurrentRound,
		StarterWins:  b.StarterWins,
		OpponentWins: b.OpponentWins,
		Status:       b.Status.String(),
		Winner:       b.Winner,
		Claimed:      b.Claimed,
	}
	// The opponent's nomination stays hidden until they commit to it.
	if b.Status != battle.StatusWaiting {
		resp.OpponentCards = b.OpponentCards[:]
	}
	return resp
}

// roundResponse reports one played round. Round is 1-based on the wire.
type roundResponse struct {
	Round         int    `json:"round"`
	StarterScore  int    `json:"starter_score"`
	OpponentScore int    `json:"opponent_score"`
	Winner        string `json:"winner"`
}

type cardPageResponse struct {
	Cards         []cardResponse `json:"cards"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type battlePageResponse struct {
	Battles       []battleResponse `json:"battles"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

type statsResponse struct {
	LiveCards     int64            `json:"live_cards"`
	BurnedCards   int64            `json:"burned_cards"`
	EscrowedCards int64            `json:"escrowed_cards"`
	Battles       map[string]int64 `json:"battles"`
}

// decode unmarshals a JSON request body. An empty body decodes to the
// zero request.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err))
		return false
	}
	return true
}

func parseID(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Newf(apperrors.CodeInvalidArgument, "malformed id %q", raw)
	}
	return id, nil
}

func parsePage(r *http.Request) (storage.Page, error) {
	page := storage.Page{Token: r.URL.Query().Get("page_token")}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return page, apperrors.Newf(apperrors.CodeInvalidArgument, "malformed page size %q", raw)
		}
		page.Size = size
	}
	return page, nil
}

type mintCardRequest struct {
	Owner string `json:"owner"`
}

func (s *Server) handleMintCard(w http.ResponseWriter, r *http.Request) {
	var req mintCardRequest
	if !s.decode(w, r, &req) {
		return
	}
	minted, err := s.arena.MintCard(r.Context(), req.Owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, cardResponseFrom(minted))
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "cardID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	found, err := s.arena.GetCard(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cardResponseFrom(found))
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cards, next, err := s.arena.ListCards(r.Context(), r.URL.Query().Get("owner"), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := cardPageResponse{Cards: make([]cardResponse, 0, len(cards)), NextPageToken: next}
	for _, c := range cards {
		resp.Cards = append(resp.Cards, cardResponseFrom(c))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type fuseCardsRequest struct {
	FirstCardID  uint64 `json:"first_card_id"`
	SecondCardID uint64 `json:"second_card_id"`
}

func (s *Server) handleFuseCards(w http.ResponseWriter, r *http.Request) {
	var req fuseCardsRequest
	if !s.decode(w, r, &req) {
		return
	}
	fused, err := s.arena.FuseCards(r.Context(), req.FirstCardID, req.SecondCardID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, cardResponseFrom(fused))
}

type transferCardRequest struct {
	Recipient string `json:"recipient"`
}

func (s *Server) handleTransferCard(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "cardID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req transferCardRequest
	if !s.decode(w, r, &req) {
		return
	}
	moved, err := s.arena.TransferCard(r.Context(), id, req.Recipient)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cardResponseFrom(moved))
}

type createBattleRequest struct {
	Opponent string   `json:"opponent"`
	CardIDs  []uint64 `json:"card_ids"`
}

func (s *Server) handleCreateBattle(w http.ResponseWriter, r *http.Request) {
	var req createBattleRequest
	if !s.decode(w, r, &req) {
		return
	}
	created, err := s.arena.CreateBattle(r.Context(), req.Opponent, req.CardIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, battleResponseFrom(created))
}

func (s *Server) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "battleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	found, err := s.arena.GetBattle(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, battleResponseFrom(found))
}

func (s *Server) handleListBattles(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter := storage.BattleFilter{Participant: r.URL.Query().Get("participant")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := battle.ParseStatus(raw)
		if err != nil {
			s.writeError(w, r, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown status %q", raw))
			return
		}
		filter.Status = &status
	}

	battles, next, err := s.arena.ListBattles(r.Context(), filter, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := battlePageResponse{Battles: make([]battleResponse, 0, len(battles)), NextPageToken: next}
	for _, b := range battles {
		resp.Battles = append(resp.Battles, battleResponseFrom(b))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type joinBattleRequest struct {
	CardIDs []uint64 `json:"card_ids"`
}

func (s *Server) handleJoinBattle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "battleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req joinBattleRequest
	if !s.decode(w, r, &req) {
		return
	}
	joined, err := s.arena.JoinBattle(r.Context(), id, req.CardIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, battleResponseFrom(joined))
}

type revealResponse struct {
	Battle battleResponse `json:"battle"`
	Round  roundResponse  `json:"round"`
}

func (s *Server) handleRevealRound(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "battleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, result, err := s.arena.RevealRound(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, revealResponse{
		Battle: battleResponseFrom(state),
		Round: roundResponse{
			Round:         result.Round + 1,
			StarterScore:  result.StarterScore,
			OpponentScore: result.OpponentScore,
			Winner:        result.Winner.String(),
		},
	})
}

type claimPrizeRequest struct {
	PrizeIndex *int `json:"prize_index"`
}

func (s *Server) handleClaimPrize(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "battleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req claimPrizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.PrizeIndex == nil {
		s.writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "prize_index is required"))
		return
	}
	won, err := s.arena.ClaimPrize(r.Context(), id, *req.PrizeIndex)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cardResponseFrom(won))
}

func (s *Server) handleCancelBattle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "battleID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cancelled, err := s.arena.CancelBattle(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, battleResponseFrom(cancelled))
}

type versionResponse struct {
	Version string `json:"version"`
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, versionResponse{Version: Version})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.arena.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := statsResponse{
		LiveCards:     stats.LiveCards,
		BurnedCards:   stats.BurnedCards,
		EscrowedCards: stats.EscrowedCards,
		Battles:       make(map[string]int64, len(stats.Battles)),
	}
	for status, count := range stats.Battles {
		resp.Battles[status.String()] = count
	}
	s.writeJSON(w, http.StatusOK, resp)
}
