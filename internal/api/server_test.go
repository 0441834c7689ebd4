package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/internal/game"
	"github.com/souzavinny/rootagotchi/internal/history"
	"github.com/souzavinny/rootagotchi/internal/wallet"
)

var testAccount = common.HexToAddress("0x8f3c0a791b2e4c94f1e0cbb9a0d6a12a52a6a001")

type fakeGame struct {
	outcome    game.Outcome
	outcomeErr error
	snapshot   *game.Snapshot

	lastName   string
	lastAction game.Action
}

func (f *fakeGame) Create(_ context.Context, name string) (game.Outcome, error) {
	f.lastName = name
	return f.outcome, f.outcomeErr
}

func (f *fakeGame) Perform(_ context.Context, action game.Action) (game.Outcome, error) {
	f.lastAction = action
	return f.outcome, f.outcomeErr
}

func (f *fakeGame) Refresh(_ context.Context) (*game.Snapshot, error) {
	return f.snapshot, nil
}

func (f *fakeGame) View() game.ViewState {
	return game.ViewState{Snapshot: f.snapshot}
}

type fakeSessionSvc struct {
	session wallet.Session
	err     error
}

func (f *fakeSessionSvc) Current() wallet.Session { return f.session }

func (f *fakeSessionSvc) RequestConnect(_ context.Context) (common.Address, error) {
	if f.err != nil {
		return common.Address{}, f.err
	}
	return f.session.Account, nil
}

type fakeBalance struct{ wei *big.Int }

func (f *fakeBalance) BalanceAt(_ context.Context, _ common.Address) (*big.Int, error) {
	return f.wei, nil
}

func TestHandleStateIncludesSessionAndBalance(t *testing.T) {
	gameSvc := &fakeGame{snapshot: &game.Snapshot{ID: 1, Name: "Rex", Race: game.RaceDog}}
	sessionSvc := &fakeSessionSvc{session: wallet.Session{Account: testAccount, HasAccount: true, ChainID: 31}}
	server := NewServer(":0", gameSvc, sessionSvc,
		WithBalanceSource(&fakeBalance{wei: big.NewInt(5_000_000)}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Snapshot == nil || resp.Snapshot.Name != "Rex" {
		t.Fatalf("snapshot = %+v", resp.Snapshot)
	}
	if resp.Session.ChainID != 31 || resp.Session.Account != testAccount.Hex() {
		t.Fatalf("session = %+v", resp.Session)
	}
	if resp.Balance != "5000000" {
		t.Fatalf("balance = %q", resp.Balance)
	}
}

func TestHandleCreatureSuccess(t *testing.T) {
	gameSvc := &fakeGame{outcome: game.Outcome{
		WriteID: "w-1",
		Kind:    game.OutcomeCreated,
		New:     &game.Snapshot{ID: 1, Name: "Rex"},
	}}
	server := NewServer(":0", gameSvc, &fakeSessionSvc{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/creature", strings.NewReader(`{"name":"Rex"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if gameSvc.lastName != "Rex" {
		t.Fatalf("pipeline received name %q", gameSvc.lastName)
	}
	var outcome game.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if outcome.Kind != game.OutcomeCreated {
		t.Fatalf("outcome = %s", outcome.Kind)
	}
}

func TestHandleCreatureErrorMapping(t *testing.T) {
	cases := []struct {
		label string
		err   error
		want  int
	}{
		{"invalid name", xerrors.New(xerrors.CodeInvalidName, "name is empty"), http.StatusBadRequest},
		{"busy pipeline", xerrors.New(xerrors.CodePipelineBusy, ""), http.StatusConflict},
		{"rejected signing", xerrors.New(xerrors.CodeUserRejected, "declined"), http.StatusForbidden},
	}
	for _, tc := range cases {
		server := NewServer(":0", &fakeGame{outcomeErr: tc.err}, &fakeSessionSvc{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/creature", strings.NewReader(`{"name":"Rex"}`))
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.label, rec.Code, tc.want)
		}
	}
}

func TestHandleActionsFailedOutcomeCarriesBody(t *testing.T) {
	// A write that started and failed yields both the mapped status and the
	// outcome itself, so callers see the write id and reason.
	failure := xerrors.New(xerrors.CodeNoCreature, "no active creature to perform an action on")
	gameSvc := &fakeGame{
		outcome: game.Outcome{
			WriteID: "w-9",
			Kind:    game.OutcomeFailed,
			Write:   game.WriteAction,
			Action:  game.ActionFeed,
			Reason:  string(xerrors.CodeNoCreature),
		},
		outcomeErr: failure,
	}
	server := NewServer(":0", gameSvc, &fakeSessionSvc{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions", strings.NewReader(`{"action":"Feed"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var outcome game.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if outcome.WriteID != "w-9" || outcome.Kind != game.OutcomeFailed {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestHandleActionsParsesLabel(t *testing.T) {
	gameSvc := &fakeGame{outcome: game.Outcome{WriteID: "w-2", Kind: game.OutcomeActionApplied, Action: game.ActionFeed}}
	server := NewServer(":0", gameSvc, &fakeSessionSvc{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions", strings.NewReader(`{"action":"Feed"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if gameSvc.lastAction != game.ActionFeed {
		t.Fatalf("pipeline received action %v", gameSvc.lastAction)
	}
}

func TestHandleActionsRejectsUnknownLabel(t *testing.T) {
	server := NewServer(":0", &fakeGame{}, &fakeSessionSvc{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions", strings.NewReader(`{"action":"Dance"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleHistory(t *testing.T) {
	store := history.NewMemoryStore()
	if err := store.Create(context.Background(), &history.WriteRecord{ID: "w-1", Kind: "create", Account: testAccount.Hex()}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	server := NewServer(":0", &fakeGame{}, &fakeSessionSvc{}, WithHistory(store))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=5", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var records []*history.WriteRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(records) != 1 || records[0].ID != "w-1" {
		t.Fatalf("records = %+v", records)
	}
}

func TestHandleHistoryWithoutJournal(t *testing.T) {
	server := NewServer(":0", &fakeGame{}, &fakeSessionSvc{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleSessionConnect(t *testing.T) {
	sessionSvc := &fakeSessionSvc{session: wallet.Session{Account: testAccount, HasAccount: true, ChainID: 31}}
	server := NewServer(":0", &fakeGame{}, sessionSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Account != testAccount.Hex() || !resp.HasAccount {
		t.Fatalf("session response = %+v", resp)
	}
}

func TestHandleSessionConnectRejected(t *testing.T) {
	sessionSvc := &fakeSessionSvc{err: xerrors.New(xerrors.CodeUserRejected, "wrong passphrase")}
	server := NewServer(":0", &fakeGame{}, sessionSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
