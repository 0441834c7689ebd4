package game

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/pkg/logger"
)

// SendFunc performs the actual contract write and returns the pending
// transaction. The signer is already bound inside the closure.
type SendFunc func() (*types.Transaction, error)

// Submitter drives one write through its two ordered phases: submission
// into the pending pool and confirmation of inclusion. Both failures are
// terminal for the attempt; a write is never resubmitted automatically
// because the on-chain effect of a failed attempt is unknown.
type Submitter struct {
	backend bind.DeployBackend
	log     *slog.Logger
}

// NewSubmitter builds a submitter over the network backend.
func NewSubmitter(backend bind.DeployBackend) *Submitter {
	return &Submitter{backend: backend, log: logger.Named("submitter")}
}

// Send submits the write. A rejection here means the transaction never
// entered the pool (declined signing, invalid nonce, rejected by the node).
func (s *Submitter) Send(_ context.Context, send SendFunc) (*types.Transaction, error) {
	tx, err := send()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeSubmitRejected, err, "")
	}
	s.log.Info("transaction submitted", slog.String("tx", tx.Hash().Hex()))
	return tx, nil
}

// WaitConfirmed suspends until the network reports inclusion. A mined but
// reverted transaction is a confirmation failure too.
func (s *Submitter) WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeSubmitFailed, err, "wait for confirmation",
			xerrors.WithMetadata("tx", tx.Hash().Hex()))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, xerrors.New(xerrors.CodeSubmitFailed, "transaction reverted",
			xerrors.WithMetadata("tx", tx.Hash().Hex()))
	}
	s.log.Info("transaction confirmed",
		slog.String("tx", tx.Hash().Hex()),
		slog.Uint64("block", receipt.BlockNumber.Uint64()))
	return receipt, nil
}

// Submit runs both phases back to back.
func (s *Submitter) Submit(ctx context.Context, send SendFunc) (*types.Receipt, error) {
	tx, err := s.Send(ctx, send)
	if err != nil {
		return nil, err
	}
	return s.WaitConfirmed(ctx, tx)
}
