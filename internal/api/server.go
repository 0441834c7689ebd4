package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/internal/game"
	"github.com/souzavinny/rootagotchi/internal/history"
	"github.com/souzavinny/rootagotchi/internal/wallet"
)

// GameService is the pipeline surface the server drives. game.Pipeline
// satisfies it.
type GameService interface {
	Create(ctx context.Context, name string) (game.Outcome, error)
	Perform(ctx context.Context, action game.Action) (game.Outcome, error)
	Refresh(ctx context.Context) (*game.Snapshot, error)
	View() game.ViewState
}

// SessionService exposes the wallet session. wallet.Manager satisfies it.
type SessionService interface {
	Current() wallet.Session
	RequestConnect(ctx context.Context) (common.Address, error)
}

// BalanceSource reads the native-currency balance of an account.
type BalanceSource interface {
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
}

// ServerOption configures optional server collaborators.
type ServerOption func(*Server)

// WithHistory exposes the write journal over the API.
func WithHistory(store history.Store) ServerOption {
	return func(s *Server) { s.history = store }
}

// WithBalanceSource enables the balance field in state responses.
func WithBalanceSource(source BalanceSource) ServerOption {
	return func(s *Server) { s.balance = source }
}

// Server exposes the creature pipeline over REST.
type Server struct {
	addr    string
	game    GameService
	session SessionService
	history history.Store
	balance BalanceSource
}

// NewServer builds the API server.
func NewServer(addr string, gameSvc GameService, sessionSvc SessionService, opts ...ServerOption) *Server {
	s := &Server{addr: addr, game: gameSvc, session: sessionSvc}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start serves HTTP until the context is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/state", s.handleState)
	mux.HandleFunc("/api/v1/session", s.handleSession)
	mux.HandleFunc("/api/v1/creature", s.handleCreature)
	mux.HandleFunc("/api/v1/actions", s.handleActions)
	mux.HandleFunc("/api/v1/history", s.handleHistory)
	return mux
}

type stateResponse struct {
	game.ViewState
	Session sessionResponse `json:"session"`
	Balance string          `json:"balance,omitempty"`
}

type sessionResponse struct {
	Account    string `json:"account,omitempty"`
	HasAccount bool   `json:"has_account"`
	ChainID    uint64 `json:"chain_id"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET is supported", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	if r.URL.Query().Get("refresh") == "true" {
		if _, err := s.game.Refresh(ctx); err != nil {
			writeError(w, err)
			return
		}
	}

	session := s.session.Current()
	resp := stateResponse{
		ViewState: s.game.View(),
		Session: sessionResponse{
			HasAccount: session.HasAccount,
			ChainID:    session.ChainID,
		},
	}
	if session.HasAccount {
		resp.Session.Account = session.Account.Hex()
		if s.balance != nil {
			if balance, err := s.balance.BalanceAt(ctx, session.Account); err == nil {
				resp.Balance = balance.String()
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		session := s.session.Current()
		resp := sessionResponse{HasAccount: session.HasAccount, ChainID: session.ChainID}
		if session.HasAccount {
			resp.Account = session.Account.Hex()
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		account, err := s.session.RequestConnect(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		session := s.session.Current()
		writeJSON(w, http.StatusOK, sessionResponse{
			Account:    account.Hex(),
			HasAccount: true,
			ChainID:    session.ChainID,
		})
	default:
		http.Error(w, "only GET/POST are supported", http.StatusMethodNotAllowed)
	}
}

type createRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	outcome, err := s.game.Create(r.Context(), req.Name)
	writeOutcome(w, outcome, err)
}

type actionRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	action, err := game.ParseAction(req.Action)
	if err != nil {
		http.Error(w, "unknown action "+req.Action, http.StatusBadRequest)
		return
	}

	outcome, err := s.game.Perform(r.Context(), action)
	writeOutcome(w, outcome, err)
}

// writeOutcome renders a pipeline result. A rejection before the pipeline
// started has no outcome and maps to a bare error; a run that produced a
// failed outcome carries it in the body under the mapped status.
func writeOutcome(w http.ResponseWriter, outcome game.Outcome, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, outcome)
		return
	}
	if outcome.WriteID == "" {
		writeError(w, err)
		return
	}
	writeJSON(w, statusFor(xerrors.CodeOf(err)), outcome)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET is supported", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "history journal is not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := s.history.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps domain error codes to HTTP statuses.
func statusFor(code xerrors.Code) int {
	switch code {
	case xerrors.CodeInvalidName:
		return http.StatusBadRequest
	case xerrors.CodePipelineBusy:
		return http.StatusConflict
	case xerrors.CodeNoCreature:
		return http.StatusNotFound
	case xerrors.CodeUserRejected, xerrors.CodeSwitchRejected, xerrors.CodeSubmitRejected:
		return http.StatusForbidden
	case xerrors.CodeReadFailure, xerrors.CodeNoProvider:
		return http.StatusBadGateway
	case xerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := xerrors.CodeOf(err)
	writeJSON(w, statusFor(code), errorResponse{Code: string(code), Message: err.Error()})
}

// withContext rejects requests once the root context is gone.
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
