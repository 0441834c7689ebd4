package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/souzavinny/rootagotchi/internal/chain"
)

// Provider is the wallet capability boundary. It owns the authorized
// accounts, the signing keys, and the active network connection. The
// keystore implementation below is the production provider; tests inject
// fakes.
type Provider interface {
	// Accounts returns the currently authorized accounts without
	// prompting. An empty slice means nothing is authorized yet.
	Accounts(ctx context.Context) ([]common.Address, error)
	// RequestAccounts explicitly asks for authorization (unlocking the
	// keystore). Idempotent when already authorized.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// AddOrSwitchChain activates the described network. A no-op when the
	// network is already active.
	AddOrSwitchChain(ctx context.Context, params chain.Params) error
	// AccountChanges delivers the new authorized account list whenever it
	// changes. The channel closes when the provider shuts down.
	AccountChanges() <-chan []common.Address
	// Signer returns transact opts bound to the given account and the
	// active network's chain id.
	Signer(ctx context.Context, account common.Address) (*bind.TransactOpts, error)
	// ActiveChainID reports the chain id of the active network.
	ActiveChainID() uint64
	Close()
}
