package wallet

import (
	"context"
	"log/slog"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	gethevent "github.com/ethereum/go-ethereum/event"

	"github.com/souzavinny/rootagotchi/internal/chain"
	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/pkg/logger"
)

// KeystoreProvider implements Provider on top of a go-ethereum keystore
// directory. Key files are the authorized accounts; unlocking with the
// passphrase is the authorization prompt; adding or removing key files fires
// account-change notifications.
type KeystoreProvider struct {
	ks         *keystore.KeyStore
	passphrase string
	log        *slog.Logger

	mu       sync.Mutex
	clients  map[uint64]*chain.Client
	activeID uint64
	unlocked bool

	changes      chan []common.Address
	walletEvents chan accounts.WalletEvent
	sub          gethevent.Subscription
	done         chan struct{}
}

// NewKeystoreProvider probes for the keystore directory and connects to the
// initial network. A missing directory is the "wallet not installed" case
// and fails permanently with NO_PROVIDER; callers must not retry it.
func NewKeystoreProvider(ctx context.Context, dir, passphrase string, initial chain.Params) (*KeystoreProvider, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, xerrors.New(xerrors.CodeNoProvider, "keystore directory not found", xerrors.WithMetadata("dir", dir))
	}

	client, err := chain.Dial(ctx, initial)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeSwitchRejected, err, "connect initial network")
	}

	p := &KeystoreProvider{
		ks:           keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		passphrase:   passphrase,
		log:          logger.Named("wallet"),
		clients:      map[uint64]*chain.Client{initial.ChainID: client},
		activeID:     initial.ChainID,
		changes:      make(chan []common.Address, 8),
		walletEvents: make(chan accounts.WalletEvent, 16),
		done:         make(chan struct{}),
	}
	p.sub = p.ks.Subscribe(p.walletEvents)
	go p.watchWallets()
	return p, nil
}

// Accounts lists the key-file accounts without unlocking anything.
func (p *KeystoreProvider) Accounts(_ context.Context) ([]common.Address, error) {
	return p.addresses(), nil
}

// RequestAccounts unlocks the first keystore account with the configured
// passphrase. Repeated calls while already unlocked are no-ops.
func (p *KeystoreProvider) RequestAccounts(_ context.Context) ([]common.Address, error) {
	all := p.ks.Accounts()
	if len(all) == 0 {
		return nil, xerrors.New(xerrors.CodeUserRejected, "keystore has no accounts to authorize")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.unlocked {
		if err := p.ks.Unlock(all[0], p.passphrase); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeUserRejected, err, "unlock keystore account")
		}
		p.unlocked = true
		p.log.Info("keystore account authorized", slog.String("account", all[0].Address.Hex()))
	}
	return p.addresses(), nil
}

// AddOrSwitchChain dials the described network if needed and makes it the
// active one. Connections are kept per chain id so switching back is cheap
// and in-flight confirmation waits keep a valid backend.
func (p *KeystoreProvider) AddOrSwitchChain(ctx context.Context, params chain.Params) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.activeID == params.ChainID {
		return nil
	}
	if _, ok := p.clients[params.ChainID]; !ok {
		client, err := chain.Dial(ctx, params)
		if err != nil {
			return xerrors.Wrap(xerrors.CodeSwitchRejected, err, "activate network "+params.Name)
		}
		p.clients[params.ChainID] = client
	}
	p.activeID = params.ChainID
	p.log.Info("active network switched", slog.String("network", params.Name), slog.Uint64("chain_id", params.ChainID))
	return nil
}

// AccountChanges returns the account-change notification channel.
func (p *KeystoreProvider) AccountChanges() <-chan []common.Address {
	return p.changes
}

// Signer builds transact opts for the account on the active network.
func (p *KeystoreProvider) Signer(_ context.Context, account common.Address) (*bind.TransactOpts, error) {
	found, err := p.ks.Find(accounts.Account{Address: account})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUserRejected, err, "account not in keystore")
	}
	chainID := new(big.Int).SetUint64(p.ActiveChainID())
	opts, err := bind.NewKeyStoreTransactorWithChainID(p.ks, found, chainID)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUserRejected, err, "build transactor")
	}
	return opts, nil
}

// ActiveChainID reports the chain id of the active network.
func (p *KeystoreProvider) ActiveChainID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeID
}

// ActiveClient returns the connection for the active network.
func (p *KeystoreProvider) ActiveClient() *chain.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clients[p.activeID]
}

// Close shuts down subscriptions and network connections.
func (p *KeystoreProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
		return
	default:
	}
	close(p.done)
	p.sub.Unsubscribe()
	for id, client := range p.clients {
		client.Close()
		delete(p.clients, id)
	}
}

func (p *KeystoreProvider) addresses() []common.Address {
	all := p.ks.Accounts()
	addrs := make([]common.Address, 0, len(all))
	for _, acct := range all {
		addrs = append(addrs, acct.Address)
	}
	return addrs
}

// watchWallets translates keystore wallet events into account-change
// notifications.
func (p *KeystoreProvider) watchWallets() {
	defer close(p.changes)
	for {
		select {
		case <-p.done:
			return
		case _, ok := <-p.walletEvents:
			if !ok {
				return
			}
			select {
			case p.changes <- p.addresses():
			case <-p.done:
				return
			}
		}
	}
}
