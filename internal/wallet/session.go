package wallet

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/pkg/logger"
)

// Session is a point-in-time view of the wallet state. Account changes from
// the provider are applied immediately and authoritatively; in-flight writes
// keep using the signer they captured at submission time.
type Session struct {
	Account    common.Address
	HasAccount bool
	ChainID    uint64
}

// Manager owns the session. It is the only writer of the account field;
// everything else reads through Current.
type Manager struct {
	provider Provider
	log      *slog.Logger

	mu         sync.RWMutex
	account    common.Address
	hasAccount bool
	started    bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager wraps a provider. Connect must be called before use.
func NewManager(provider Provider) *Manager {
	return &Manager{
		provider: provider,
		log:      logger.Named("session"),
		done:     make(chan struct{}),
	}
}

// Connect captures the currently authorized account without prompting and
// starts consuming account-change notifications for the life of the
// process.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	accts, err := m.provider.Accounts(ctx)
	if err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	if len(accts) > 0 {
		m.account = accts[0]
		m.hasAccount = true
	}
	if !m.started {
		m.started = true
		m.wg.Add(1)
		go m.watchChanges()
	}
	m.mu.Unlock()

	return m.Current(), nil
}

// RequestConnect explicitly prompts for authorization. Idempotent when
// already authorized.
func (m *Manager) RequestConnect(ctx context.Context) (common.Address, error) {
	accts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accts) == 0 {
		return common.Address{}, xerrors.New(xerrors.CodeUserRejected, "authorization returned no accounts")
	}

	m.mu.Lock()
	m.account = accts[0]
	m.hasAccount = true
	m.mu.Unlock()
	return accts[0], nil
}

// Current returns the session as of now.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Session{
		Account:    m.account,
		HasAccount: m.hasAccount,
		ChainID:    m.provider.ActiveChainID(),
	}
}

// Signer captures transact opts for the current account. The returned opts
// stay valid for the write that captured them even if the account changes
// underneath.
func (m *Manager) Signer(ctx context.Context) (*bind.TransactOpts, error) {
	session := m.Current()
	if !session.HasAccount {
		return nil, xerrors.New(xerrors.CodeUserRejected, "no authorized account in session")
	}
	return m.provider.Signer(ctx, session.Account)
}

// Close stops the change watcher. The provider is closed by its owner.
func (m *Manager) Close() {
	m.mu.Lock()
	select {
	case <-m.done:
		m.mu.Unlock()
		return
	default:
	}
	close(m.done)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) watchChanges() {
	defer m.wg.Done()
	changes := m.provider.AccountChanges()
	for {
		select {
		case <-m.done:
			return
		case accts, ok := <-changes:
			if !ok {
				return
			}
			m.applyAccounts(accts)
		}
	}
}

// applyAccounts overwrites the session account. An empty list means the
// wallet revoked authorization entirely.
func (m *Manager) applyAccounts(accts []common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(accts) == 0 {
		if m.hasAccount {
			m.log.Info("wallet account removed, session disconnected")
		}
		m.account = common.Address{}
		m.hasAccount = false
		return
	}
	if !m.hasAccount || m.account != accts[0] {
		m.log.Info("wallet account changed", slog.String("account", accts[0].Hex()))
	}
	m.account = accts[0]
	m.hasAccount = true
}
