package wallet

import (
	"context"
	"log/slog"

	"github.com/souzavinny/rootagotchi/internal/chain"
	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/pkg/logger"
)

// Guard makes sure the session is on the expected network before a write is
// attempted. A failed switch aborts the write with no side effects.
type Guard struct {
	provider Provider
	log      *slog.Logger
}

// NewGuard builds a guard over the provider.
func NewGuard(provider Provider) *Guard {
	return &Guard{provider: provider, log: logger.Named("netguard")}
}

// EnsureNetwork activates the target network. Requesting the already active
// network is a no-op.
func (g *Guard) EnsureNetwork(ctx context.Context, target chain.Params) error {
	if g.provider.ActiveChainID() == target.ChainID {
		return nil
	}
	g.log.Info("requesting network switch",
		slog.String("network", target.Name),
		slog.Uint64("chain_id", target.ChainID))
	if err := g.provider.AddOrSwitchChain(ctx, target); err != nil {
		if _, ok := xerrors.From(err); ok {
			return err
		}
		return xerrors.Wrap(xerrors.CodeSwitchRejected, err, "switch network")
	}
	return nil
}
