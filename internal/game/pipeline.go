package game

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/souzavinny/rootagotchi/internal/alerting"
	"github.com/souzavinny/rootagotchi/internal/chain"
	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/internal/history"
	"github.com/souzavinny/rootagotchi/internal/wallet"
	"github.com/souzavinny/rootagotchi/pkg/logger"
)

// Phase is the position of the active write in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseConfirming
	PhasePolling
	PhaseResolved
	PhaseFailed
)

var phaseNames = [...]string{"idle", "submitting", "confirming", "polling", "resolved", "failed"}

// String returns the phase label.
func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// loading reports whether the phase keeps the loading indicator on.
func (p Phase) loading() bool {
	return p == PhaseSubmitting || p == PhaseConfirming || p == PhasePolling
}

// ViewState is what the presentation boundary receives after every
// transition: the loading flag, the latest known snapshot, and the single
// live outcome.
type ViewState struct {
	Loading  bool      `json:"loading"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Outcome  *Outcome  `json:"outcome,omitempty"`
}

// Listener consumes view state changes.
type Listener interface {
	ViewChanged(state ViewState)
}

// ContractTransactor is the write surface of the game contract.
type ContractTransactor interface {
	CreateCreature(opts *bind.TransactOpts, name [NameLength]byte) (*types.Transaction, error)
	PerformAction(opts *bind.TransactOpts, id *big.Int, action uint8) (*types.Transaction, error)
}

// SessionSource provides the wallet session and signing capability.
// wallet.Manager satisfies it.
type SessionSource interface {
	Current() wallet.Session
	Signer(ctx context.Context) (*bind.TransactOpts, error)
}

// NetworkGuard ensures the session is on the expected network before a
// write. wallet.Guard satisfies it.
type NetworkGuard interface {
	EnsureNetwork(ctx context.Context, target chain.Params) error
}

// Pipeline serializes write lifecycles against the contract. At most one
// write may be in flight: a second submission is rejected outright so that
// interleaved polls can never be attributed to the wrong write. Every
// accepted write produces exactly one Outcome, success or not, and the
// latest outcome replaces the previous one in the view.
type Pipeline struct {
	session    SessionSource
	guard      NetworkGuard
	target     chain.Params
	transactor ContractTransactor
	reader     ActiveReader
	submitter  *Submitter
	poller     *Poller
	journal    history.Store
	alerts     alerting.Dispatcher
	listener   Listener
	log        *slog.Logger

	mu   sync.Mutex
	busy bool

	stateMu  sync.RWMutex
	phase    Phase
	snapshot *Snapshot
	outcome  *Outcome
}

// PipelineOption configures optional collaborators.
type PipelineOption func(*Pipeline)

// WithJournal records every write in the history store.
func WithJournal(store history.Store) PipelineOption {
	return func(p *Pipeline) { p.journal = store }
}

// WithAlerts dispatches outcome events.
func WithAlerts(dispatcher alerting.Dispatcher) PipelineOption {
	return func(p *Pipeline) { p.alerts = dispatcher }
}

// WithListener registers the presentation boundary.
func WithListener(listener Listener) PipelineOption {
	return func(p *Pipeline) { p.listener = listener }
}

// NewPipeline wires the write pipeline together.
func NewPipeline(session SessionSource, guard NetworkGuard, target chain.Params,
	transactor ContractTransactor, reader ActiveReader, submitter *Submitter,
	poller *Poller, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		session:    session,
		guard:      guard,
		target:     target,
		transactor: transactor,
		reader:     reader,
		submitter:  submitter,
		poller:     poller,
		log:        logger.Named("pipeline"),
		phase:      PhaseIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// View returns the current presentation state.
func (p *Pipeline) View() ViewState {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return ViewState{
		Loading:  p.phase.loading(),
		Snapshot: p.snapshot,
		Outcome:  p.outcome,
	}
}

// Refresh reads the active creature outside any write pipeline and updates
// the view. A session without an account yields an empty view, not an
// error.
func (p *Pipeline) Refresh(ctx context.Context) (*Snapshot, error) {
	session := p.session.Current()
	if !session.HasAccount {
		p.setSnapshot(nil)
		return nil, nil
	}
	snap, err := p.reader.ReadActive(ctx, session.Account)
	if err != nil {
		return nil, err
	}
	p.setSnapshot(snap)
	return snap, nil
}

// Create submits the creature creation write and drives it to an outcome.
// Name validation failures and a busy pipeline are rejected before any
// write starts and produce no outcome.
func (p *Pipeline) Create(ctx context.Context, name string) (Outcome, error) {
	name32, err := EncodeName(name)
	if err != nil {
		return Outcome{}, err
	}
	if err := p.acquire(); err != nil {
		return Outcome{}, err
	}
	defer p.release()

	session := p.session.Current()
	if !session.HasAccount {
		return Outcome{}, xerrors.New(xerrors.CodeUserRejected, "no authorized account in session")
	}

	write := &PendingWrite{
		ID:          uuid.NewString(),
		Kind:        WriteCreate,
		Name:        name,
		Account:     session.Account,
		SubmittedAt: time.Now(),
	}
	p.beginWrite(ctx, write, name)

	prior, err := p.reader.ReadActive(ctx, write.Account)
	if err != nil {
		return p.fail(ctx, write, "", err)
	}

	send := func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return p.transactor.CreateCreature(opts, name32)
	}
	pred := func(snap *Snapshot) bool {
		return snap != nil && snap.Name == name
	}
	return p.run(ctx, write, prior, send, pred)
}

// Perform submits an action write for the active creature and drives it to
// an outcome.
func (p *Pipeline) Perform(ctx context.Context, action Action) (Outcome, error) {
	if err := p.acquire(); err != nil {
		return Outcome{}, err
	}
	defer p.release()

	session := p.session.Current()
	if !session.HasAccount {
		return Outcome{}, xerrors.New(xerrors.CodeUserRejected, "no authorized account in session")
	}

	write := &PendingWrite{
		ID:          uuid.NewString(),
		Kind:        WriteAction,
		Action:      action,
		Account:     session.Account,
		SubmittedAt: time.Now(),
	}
	p.beginWrite(ctx, write, action.String())

	prior, err := p.reader.ReadActive(ctx, write.Account)
	if err != nil {
		return p.fail(ctx, write, "", err)
	}
	if prior == nil {
		return p.fail(ctx, write, "", xerrors.New(xerrors.CodeNoCreature, "no active creature to perform an action on"))
	}

	id := new(big.Int).SetUint64(prior.ID)
	send := func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return p.transactor.PerformAction(opts, id, uint8(action))
	}
	pred := func(snap *Snapshot) bool {
		return snap != nil && !snap.Equal(prior)
	}
	return p.run(ctx, write, prior, send, pred)
}

// run drives a pending write through the phases. The signer is captured
// here, at submission time; an account change mid-flight does not affect
// this write.
func (p *Pipeline) run(ctx context.Context, write *PendingWrite, prior *Snapshot,
	send func(*bind.TransactOpts) (*types.Transaction, error), pred func(*Snapshot) bool) (Outcome, error) {

	if err := p.guard.EnsureNetwork(ctx, p.target); err != nil {
		return p.fail(ctx, write, "", err)
	}
	opts, err := p.session.Signer(ctx)
	if err != nil {
		return p.fail(ctx, write, "", err)
	}
	opts.Context = ctx

	p.setPhase(PhaseSubmitting)
	tx, err := p.submitter.Send(ctx, func() (*types.Transaction, error) { return send(opts) })
	if err != nil {
		return p.fail(ctx, write, "", err)
	}
	txHash := tx.Hash().Hex()

	p.setPhase(PhaseConfirming)
	if _, err := p.submitter.WaitConfirmed(ctx, tx); err != nil {
		return p.fail(ctx, write, txHash, err)
	}

	p.setPhase(PhasePolling)
	snap, err := p.poller.Wait(ctx, write.Account, pred)
	if err != nil {
		if xerrors.CodeOf(err) == xerrors.CodeNotYetVisible {
			outcome := Outcome{
				WriteID:  write.ID,
				Kind:     OutcomeNotYetVisible,
				Write:    write.Kind,
				Action:   write.Action,
				Old:      prior,
				Attempts: p.poller.Attempts(),
				TxHash:   txHash,
			}
			return p.resolve(ctx, write, outcome)
		}
		return p.fail(ctx, write, txHash, err)
	}

	outcome := Outcome{
		WriteID: write.ID,
		Kind:    Classify(prior, snap),
		Write:   write.Kind,
		Action:  write.Action,
		Old:     prior,
		New:     snap,
		TxHash:  txHash,
	}
	p.setSnapshot(snap)
	return p.resolve(ctx, write, outcome)
}

// acquire takes the single pipeline slot.
func (p *Pipeline) acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy {
		return xerrors.New(xerrors.CodePipelineBusy, "")
	}
	p.busy = true
	return nil
}

func (p *Pipeline) release() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

// beginWrite journals the write and discards the previous outcome display.
func (p *Pipeline) beginWrite(ctx context.Context, write *PendingWrite, payload string) {
	p.stateMu.Lock()
	p.outcome = nil
	p.stateMu.Unlock()
	p.emit()

	p.log.Info("write accepted",
		slog.String("write_id", write.ID),
		slog.String("kind", string(write.Kind)),
		slog.String("payload", payload),
		slog.String("account", write.Account.Hex()))
	logger.Audit().Info("write accepted",
		slog.String("write_id", write.ID),
		slog.String("kind", string(write.Kind)),
		slog.String("payload", payload))

	if p.journal == nil {
		return
	}
	record := &history.WriteRecord{
		ID:          write.ID,
		Kind:        string(write.Kind),
		Account:     write.Account.Hex(),
		Payload:     payload,
		SubmittedAt: write.SubmittedAt.Unix(),
	}
	if err := p.journal.Create(ctx, record); err != nil {
		p.log.Warn("journal write failed", slog.Any("error", err))
	}
}

func (p *Pipeline) setPhase(phase Phase) {
	p.stateMu.Lock()
	p.phase = phase
	p.stateMu.Unlock()
	p.emit()
}

func (p *Pipeline) setSnapshot(snap *Snapshot) {
	p.stateMu.Lock()
	p.snapshot = snap
	p.stateMu.Unlock()
	p.emit()
}

func (p *Pipeline) setOutcome(outcome Outcome) {
	p.stateMu.Lock()
	p.outcome = &outcome
	p.stateMu.Unlock()
}

func (p *Pipeline) emit() {
	if p.listener == nil {
		return
	}
	p.listener.ViewChanged(p.View())
}

// fail converts any pipeline error into the single Failed outcome for the
// write. No path may leave the pipeline mid-phase.
func (p *Pipeline) fail(ctx context.Context, write *PendingWrite, txHash string, err error) (Outcome, error) {
	outcome := Outcome{
		WriteID: write.ID,
		Kind:    OutcomeFailed,
		Write:   write.Kind,
		Action:  write.Action,
		TxHash:  txHash,
		Err:     err,
		Reason:  string(xerrors.CodeOf(err)),
	}
	p.setOutcome(outcome)
	p.setPhase(PhaseFailed)
	p.log.Warn("write failed",
		slog.String("write_id", write.ID),
		slog.String("code", outcome.Reason),
		slog.Any("error", err))

	if p.journal != nil {
		if jerr := p.journal.MarkFailed(ctx, write.ID, outcome.Reason, txHash); jerr != nil {
			p.log.Warn("journal update failed", slog.Any("error", jerr))
		}
	}
	p.dispatchFailure(ctx, write, err)
	p.setPhase(PhaseIdle)
	return outcome, err
}

func (p *Pipeline) resolve(ctx context.Context, write *PendingWrite, outcome Outcome) (Outcome, error) {
	p.setOutcome(outcome)
	p.setPhase(PhaseResolved)
	p.log.Info("write resolved",
		slog.String("write_id", write.ID),
		slog.String("outcome", string(outcome.Kind)))
	logger.Audit().Info("write resolved",
		slog.String("write_id", write.ID),
		slog.String("outcome", string(outcome.Kind)),
		slog.String("tx", outcome.TxHash))

	if p.journal != nil {
		attempts := outcome.Attempts
		if jerr := p.journal.MarkResolved(ctx, write.ID, string(outcome.Kind), outcome.TxHash, attempts); jerr != nil {
			p.log.Warn("journal update failed", slog.Any("error", jerr))
		}
	}
	p.dispatchOutcome(ctx, write, outcome)
	p.setPhase(PhaseIdle)
	return outcome, nil
}

func (p *Pipeline) dispatchOutcome(ctx context.Context, write *PendingWrite, outcome Outcome) {
	if p.alerts == nil {
		return
	}
	severity := xerrors.SeverityInfo
	if outcome.Kind == OutcomeNotYetVisible {
		severity = xerrors.SeverityWarning
	}
	event := alerting.Event{
		Severity:   severity,
		Message:    outcome.Message(),
		WriteID:    write.ID,
		Account:    write.Account.Hex(),
		Outcome:    string(outcome.Kind),
		OccurredAt: time.Now(),
	}
	if outcome.Kind == OutcomeNotYetVisible {
		event.Code = xerrors.CodeNotYetVisible
	}
	if err := p.alerts.Notify(ctx, event); err != nil {
		p.log.Warn("alert dispatch failed", slog.Any("error", err))
	}
}

func (p *Pipeline) dispatchFailure(ctx context.Context, write *PendingWrite, cause error) {
	if p.alerts == nil {
		return
	}
	xerr, ok := xerrors.From(cause)
	if !ok || !xerr.ShouldAlert() {
		return
	}
	event := alerting.Event{
		Code:       xerr.Code(),
		Severity:   xerr.Severity(),
		Message:    xerr.Message(),
		WriteID:    write.ID,
		Account:    write.Account.Hex(),
		Outcome:    string(OutcomeFailed),
		Metadata:   xerr.Metadata(),
		OccurredAt: time.Now(),
	}
	if err := p.alerts.Notify(ctx, event); err != nil {
		p.log.Warn("alert dispatch failed", slog.Any("error", err))
	}
}
