package server

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/arena/battle"
	"github.com/louisbranch/emberforge/internal/arena/card"
	"github.com/louisbranch/emberforge/internal/arena/random"
	"github.com/louisbranch/emberforge/internal/arena/service"
	"github.com/louisbranch/emberforge/internal/auth"
	"github.com/louisbranch/emberforge/internal/platform/requestctx"
	"github.com/louisbranch/emberforge/internal/storage"
	"github.com/louisbranch/emberforge/internal/storage/sqlite"
)

var testStart = time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	store   *sqlite.Store
	signer  auth.Signer
}

// newTestServer wires the full stack: a throwaway sqlite store, the arena
// service with a fixed clock, and a signer sharing its key with the
// server's verifier so minted tokens authenticate for real.
func newTestServer(t *testing.T, src random.Source) *testServer {
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

	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	now := func() time.Time { return testStart }
	arena := service.New(store, now, src)
	verifier := auth.Verifier{Issuer: "emberforge", Audience: "emberforge-arena", Key: public, Now: now}
	signer := auth.Signer{Issuer: "emberforge", Audience: "emberforge-arena", Key: private, TTL: time.Hour, Now: now}

	srv := New(arena, verifier, log.New(io.Discard, "", 0))
	return &testServer{handler: srv.Routes(), store: store, signer: signer}
}

func (ts *testServer) token(t *testing.T, playerID, role string) string {
	t.Helper()

	token, err := ts.signer.Mint(playerID, role)
	if err != nil {
		t.Fatalf("mint token for %s: %v", playerID, err)
	}
	return token
}

// do sends one request through the router. A nil body sends no payload;
// an empty token omits the Authorization header.
func (ts *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()

	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func wantErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code apperrors.Code) {
	t.Helper()

	wantStatus(t, rec, status)
	var resp errorResponse
	decodeInto(t, rec, &resp)
	if resp.Error.Code != string(code) {
		t.Fatalf("error code = %q, want %q", resp.Error.Code, code)
	}
	if resp.Error.Message == "" {
		t.Fatal("error message is empty")
	}
}

// seedCard writes a card with exact stats straight to the store.
func seedCard(t *testing.T, store *sqlite.Store, owner string, stats card.Stats) uint64 {
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
		t.Fatalf("seed card for %s: %v", owner, err)
	}
	return rec.ID
}

func seedSide(t *testing.T, store *sqlite.Store, owner string, stats card.Stats) []uint64 {
	t.Helper()

	ids := make([]uint64, battle.CardsPerSide)
	for i := range ids {
		ids[i] = seedCard(t, store, owner, stats)
	}
	return ids
}

func TestHealthzAnswersWithoutToken(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Keccak{})
	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	wantStatus(t, rec, http.StatusOK)
}

func TestVersionAnswersWithoutToken(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Keccak{})
	rec := ts.do(t, http.MethodGet, "/version", "", nil)
	wantStatus(t, rec, http.StatusOK)
	var resp versionResponse
	decodeInto(t, rec, &resp)
	if resp.Version != Version {
		t.Fatalf("version = %q, want %q", resp.Version, Version)
	}
}

func TestRoutesRequireBearerToken(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Keccak{})

	rec := ts.do(t, http.MethodGet, "/v1/cards", "", nil)
	wantErrorCode(t, rec, http.StatusUnauthorized, apperrors.CodeUnauthenticated)

	rec = ts.do(t, http.MethodGet, "/v1/cards", "not-a-token", nil)
	wantErrorCode(t, rec, http.StatusUnauthorized, apperrors.CodeTokenInvalid)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Keccak{})

	stale := ts.signer
	stale.Now = func() time.Time { return testStart.Add(-2 * time.Hour) }
	token, err := stale.Mint("alice", requestctx.RolePlayer)
	if err != nil {
		t.Fatalf("mint stale token: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/v1/cards", token, nil)
	wantErrorCode(t, rec, http.StatusUnauthorized, apperrors.CodeTokenExpired)
}

func TestErrorMessagesLocalize(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Keccak{})

	req := httptest.NewRequest(http.MethodGet, "/v1/cards", nil)
	req.Header.Set("Accept-Language", "pt-BR")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	wantStatus(t, rec, http.StatusUnauthorized)
	var resp errorResponse
	decodeInto(t, rec, &resp)
	if resp.Error.Message != "entre para continuar" {
		t.Fatalf("message = %q, want %q", resp.Error.Message, "entre para continuar")
	}
}

func TestMintGetAndListCards(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Keccak{})
	alice := ts.token(t, "alice", requestctx.RolePlayer)

	rec := ts.do(t, http.MethodPost, "/v1/cards", alice, nil)
	wantStatus(t, rec, http.StatusCreated)
	var minted cardResponse
	decodeInto(t, rec, &minted)
	if minted.ID != 1 || minted.Owner != "alice" {
		t.Fatalf("minted = %+v, want id 1 owned by alice", minted)
	}
	if minted.Power < card.MinPower || minted.Power > card.MaxPower {
		t.Fatalf("power %d out of range", minted.Power)
	}
	if minted.Score != minted.Power+minted.Defense/2+minted.Speed {
		t.Fatalf("score = %d, want %d", minted.Score, minted.Power+minted.Defense/2+minted.Speed)
	}
	if !minted.CreatedAt.Equal(testStart) {
		t.Fatalf("created at = %v, want %v", minted.CreatedAt, testStart)
	}
	if minted.InEscrow || minted.BattleID != 0 {
		t.Fatalf("fresh card reports escrow: %+v", minted)
	}

	rec = ts.do(t, http.MethodGet, "/v1/cards/1", alice, nil)
	wantStatus(t, rec, http.StatusOK)
	var fetched cardResponse
	decodeInto(t, rec, &fetched)
	if fetched.ID != minted.ID || fetched.Owner != "alice" {
		t.Fatalf("fetched = %+v, want %+v", fetched, minted)
	}

	rec = ts.do(t, http.MethodGet, "/v1/cards", alice, nil)
	wantStatus(t, rec, http.StatusOK)
	var page cardPageResponse
	decodeInto(t, rec, &page)
	if len(page.Cards) != 1 || page.Cards[0].ID != 1 {
		t.Fatalf("list = %+v, want the single minted card", page)
	}
	if page.NextPageToken != "" {
		t.Fatalf("next page token = %q, want empty", page.NextPageToken)
	}
}

func TestMintForAnotherPlayerTakesOperatorRole(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Keccak{})

	rec := ts.do(t, http.MethodPost, "/v1/cards", ts.token(t, "alice", requestctx.RolePlayer), mintCardRequest{Owner: "bob"})
	wantErrorCode(t, rec, http.StatusForbidden, apperrors.CodePermissionDenied)

	rec = ts.do(t, http.MethodPost, "/v1/cards", ts.token(t, "root", requestctx.RoleOperator), mintCardRequest{Owner: "bob"})
	wantStatus(t, rec, http.StatusCreated)
	var minted cardResponse
	decodeInto(t, rec, &minted)
	if minted.Owner != "bob" {
		t.Fatalf("owner = %q, want bob", minted.Owner)
	}
}

func TestFuseAndTransferCards(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Keccak{})
	alice := ts.token(t, "alice", requestctx.RolePlayer)
	seedCard(t, ts.store, "alice", card.Stats{Power: 60, Defense: 40, Speed: 20, Rarity: 2})
	seedCard(t, ts.store, "alice", card.Stats{Power: 80, Defense: 50, Speed: 25, Rarity: 4})

	rec := ts.do(t, http.MethodPost, "/v1/cards/fuse", alice, fuseCardsRequest{FirstCardID: 1, SecondCardID: 2})
	wantStatus(t, rec, http.StatusCreated)
	var forged cardResponse
	decodeInto(t, rec, &forged)
	want := cardResponse{ID: 3, Owner: "alice", Power: 80, Defense: 50, Speed: 27, Rarity: 4}
	if forged.ID != want.ID || forged.Power != want.Power || forged.Defense != want.Defense ||
		forged.Speed != want.Speed || forged.Rarity != want.Rarity {
		t.Fatalf("forged = %+v, want %+v", forged, want)
	}

	rec = ts.do(t, http.MethodGet, "/v1/cards/1", alice, nil)
	wantErrorCode(t, rec, http.StatusNotFound, apperrors.CodeNotFound)

	rec = ts.do(t, http.MethodPost, "/v1/cards/3/transfer", alice, transferCardRequest{Recipient: "bob"})
	wantStatus(t, rec, http.StatusOK)
	var moved cardResponse
	decodeInto(t, rec, &moved)
	if moved.Owner != "bob" {
		t.Fatalf("owner after transfer = %q, want bob", moved.Owner)
	}
}

func TestBattleFlowOverHTTP(t *testing.T) {
	t.Parallel()

	// Draw 5 splits the pool evenly, so alice's stronger cards sweep.
	ts := newTestServer(t, random.Fixed(5))
	alice := ts.token(t, "alice", requestctx.RolePlayer)
	bob := ts.token(t, "bob", requestctx.RolePlayer)
	starters := seedSide(t, ts.store, "alice", card.Stats{Power: 80, Defense: 50, Speed: 20, Rarity: 4})
	joiners := seedSide(t, ts.store, "bob", card.Stats{Power: 50, Defense: 30, Speed: 10, Rarity: 1})

	rec := ts.do(t, http.MethodPost, "/v1/battles", alice, createBattleRequest{Opponent: "bob", CardIDs: starters})
	wantStatus(t, rec, http.StatusCreated)
	var created battleResponse
	decodeInto(t, rec, &created)
	if created.ID != 1 || created.Status != "waiting" {
		t.Fatalf("created = %+v, want waiting battle 1", created)
	}
	if created.OpponentCards != nil {
		t.Fatalf("opponent cards leaked before join: %v", created.OpponentCards)
	}

	rec = ts.do(t, http.MethodPost, "/v1/battles/1/join", bob, joinBattleRequest{CardIDs: joiners})
	wantStatus(t, rec, http.StatusOK)
	var joined battleResponse
	decodeInto(t, rec, &joined)
	if joined.Status != "ready_to_reveal" {
		t.Fatalf("status after join = %q, want ready_to_reveal", joined.Status)
	}
	if len(joined.OpponentCards) != battle.CardsPerSide || joined.OpponentCards[0] != joiners[0] {
		t.Fatalf("opponent cards = %v, want %v", joined.OpponentCards, joiners)
	}

	rec = ts.do(t, http.MethodPost, "/v1/battles/1/reveal", alice, nil)
	wantStatus(t, rec, http.StatusOK)
	var first revealResponse
	decodeInto(t, rec, &first)
	if first.Round.Round != 1 || first.Round.Winner != "starter" {
		t.Fatalf("round one = %+v, want starter win", first.Round)
	}
	if first.Round.StarterScore != 130 || first.Round.OpponentScore != 80 {
		t.Fatalf("scores = %d vs %d, want 130 vs 80", first.Round.StarterScore, first.Round.OpponentScore)
	}
	if first.Battle.Status != "in_progress" || first.Battle.StarterWins != 1 {
		t.Fatalf("battle after round one = %+v", first.Battle)
	}

	ts.do(t, http.MethodPost, "/v1/battles/1/reveal", alice, nil)
	rec = ts.do(t, http.MethodPost, "/v1/battles/1/reveal", bob, nil)
	wantStatus(t, rec, http.StatusOK)
	var last revealResponse
	decodeInto(t, rec, &last)
	if last.Battle.Status != "resolved" || last.Battle.Winner != "alice" {
		t.Fatalf("battle after round three = %+v, want alice resolved", last.Battle)
	}

	index := 0
	rec = ts.do(t, http.MethodPost, "/v1/battles/1/claim", alice, claimPrizeRequest{PrizeIndex: &index})
	wantStatus(t, rec, http.StatusOK)
	var won cardResponse
	decodeInto(t, rec, &won)
	if won.ID != joiners[0] || won.Owner != "alice" {
		t.Fatalf("prize = %+v, want card %d owned by alice", won, joiners[0])
	}

	rec = ts.do(t, http.MethodPost, "/v1/battles/1/claim", alice, claimPrizeRequest{PrizeIndex: &index})
	wantErrorCode(t, rec, http.StatusConflict, apperrors.CodeAlreadyClaimed)
}

func TestListBattlesFilterOverHTTP(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Fixed(5))
	alice := ts.token(t, "alice", requestctx.RolePlayer)
	starters := seedSide(t, ts.store, "alice", card.Stats{Power: 60, Defense: 40, Speed: 15, Rarity: 2})

	rec := ts.do(t, http.MethodPost, "/v1/battles", alice, createBattleRequest{Opponent: "bob", CardIDs: starters})
	wantStatus(t, rec, http.StatusCreated)

	rec = ts.do(t, http.MethodGet, "/v1/battles?status=waiting&participant=bob", alice, nil)
	wantStatus(t, rec, http.StatusOK)
	var page battlePageResponse
	decodeInto(t, rec, &page)
	if len(page.Battles) != 1 || page.Battles[0].ID != 1 {
		t.Fatalf("filtered battles = %+v, want battle 1", page.Battles)
	}

	rec = ts.do(t, http.MethodGet, "/v1/battles?status=resolved", alice, nil)
	wantStatus(t, rec, http.StatusOK)
	page = battlePageResponse{}
	decodeInto(t, rec, &page)
	if len(page.Battles) != 0 {
		t.Fatalf("resolved battles = %+v, want none", page.Battles)
	}
}

func TestMalformedRequestsAreRejected(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Keccak{})
	alice := ts.token(t, "alice", requestctx.RolePlayer)

	req := httptest.NewRequest(http.MethodPost, "/v1/cards", bytes.NewReader([]byte("{broken")))
	req.Header.Set("Authorization", "Bearer "+alice)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	wantErrorCode(t, rec, http.StatusBadRequest, apperrors.CodeInvalidArgument)

	for _, target := range []string{
		"/v1/cards/abc",
		"/v1/cards/0",
		"/v1/cards?page_size=x",
		"/v1/cards?page_size=-1",
		"/v1/battles?status=bogus",
	} {
		rec := ts.do(t, http.MethodGet, target, alice, nil)
		wantErrorCode(t, rec, http.StatusBadRequest, apperrors.CodeInvalidArgument)
	}

	rec = ts.do(t, http.MethodPost, "/v1/battles/1/claim", alice, claimPrizeRequest{})
	wantErrorCode(t, rec, http.StatusBadRequest, apperrors.CodeInvalidArgument)
}

func TestDomainErrorsKeepTheirStatus(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Keccak{})
	alice := ts.token(t, "alice", requestctx.RolePlayer)
	carol := ts.token(t, "carol", requestctx.RolePlayer)
	starters := seedSide(t, ts.store, "alice", card.Stats{Power: 60, Defense: 40, Speed: 15, Rarity: 2})

	rec := ts.do(t, http.MethodGet, "/v1/cards/999", alice, nil)
	wantErrorCode(t, rec, http.StatusNotFound, apperrors.CodeNotFound)
	var resp errorResponse
	decodeInto(t, rec, &resp)
	if resp.Error.Metadata["card_id"] != "999" {
		t.Fatalf("metadata = %v, want card_id 999", resp.Error.Metadata)
	}

	rec = ts.do(t, http.MethodPost, "/v1/battles", alice, createBattleRequest{Opponent: "alice", CardIDs: starters})
	wantErrorCode(t, rec, http.StatusBadRequest, apperrors.CodeSelfChallenge)

	rec = ts.do(t, http.MethodPost, "/v1/battles", alice, createBattleRequest{Opponent: "bob", CardIDs: starters})
	wantStatus(t, rec, http.StatusCreated)

	rec = ts.do(t, http.MethodPost, "/v1/battles/1/join", carol, joinBattleRequest{CardIDs: starters})
	wantErrorCode(t, rec, http.StatusForbidden, apperrors.CodeNotOpponent)

	rec = ts.do(t, http.MethodPost, "/v1/battles/1/reveal", alice, nil)
	wantErrorCode(t, rec, http.StatusConflict, apperrors.CodeInvalidState)
}

func TestStatsOverHTTP(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, random.Fixed(5))
	alice := ts.token(t, "alice", requestctx.RolePlayer)
	starters := seedSide(t, ts.store, "alice", card.Stats{Power: 60, Defense: 40, Speed: 15, Rarity: 2})

	rec := ts.do(t, http.MethodPost, "/v1/battles", alice, createBattleRequest{Opponent: "bob", CardIDs: starters})
	wantStatus(t, rec, http.StatusCreated)

	rec = ts.do(t, http.MethodGet, "/v1/stats", alice, nil)
	wantStatus(t, rec, http.StatusOK)
	var stats statsResponse
	decodeInto(t, rec, &stats)
	if stats.LiveCards != 3 || stats.EscrowedCards != 3 {
		t.Fatalf("stats = %+v, want 3 live and 3 escrowed", stats)
	}
	if stats.Battles["waiting"] != 1 {
		t.Fatalf("waiting battles = %d, want 1", stats.Battles["waiting"])
	}
}
