package game

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
)

// fakeBackend satisfies bind.DeployBackend with a canned receipt.
type fakeBackend struct {
	receipt *types.Receipt
	err     error
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	return f.receipt, f.err
}

func (f *fakeBackend) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

func dummyTx() *types.Transaction {
	to := common.HexToAddress("0x02")
	return types.NewTx(&types.LegacyTx{
		Nonce:    1,
		To:       &to,
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
}

func TestSubmitterSendRejection(t *testing.T) {
	submitter := NewSubmitter(&fakeBackend{})
	_, err := submitter.Send(context.Background(), func() (*types.Transaction, error) {
		return nil, errors.New("user denied transaction signature")
	})
	if xerrors.CodeOf(err) != xerrors.CodeSubmitRejected {
		t.Fatalf("want SUBMIT_REJECTED, got %v", err)
	}
}

func TestSubmitterConfirmsMinedTransaction(t *testing.T) {
	backend := &fakeBackend{receipt: &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(42),
	}}
	submitter := NewSubmitter(backend)

	receipt, err := submitter.Submit(context.Background(), func() (*types.Transaction, error) {
		return dummyTx(), nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if receipt.BlockNumber.Uint64() != 42 {
		t.Fatalf("receipt block = %v", receipt.BlockNumber)
	}
}

func TestSubmitterRevertedTransactionFails(t *testing.T) {
	backend := &fakeBackend{receipt: &types.Receipt{
		Status:      types.ReceiptStatusFailed,
		BlockNumber: big.NewInt(42),
	}}
	submitter := NewSubmitter(backend)

	_, err := submitter.Submit(context.Background(), func() (*types.Transaction, error) {
		return dummyTx(), nil
	})
	if xerrors.CodeOf(err) != xerrors.CodeSubmitFailed {
		t.Fatalf("want SUBMIT_FAILED, got %v", err)
	}
}

func TestSubmitterWaitHonorsContext(t *testing.T) {
	// A backend that never finds the receipt keeps WaitMined looping until
	// the context expires.
	backend := &fakeBackend{err: errors.New("not found")}
	submitter := NewSubmitter(backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := submitter.WaitConfirmed(ctx, dummyTx())
	if xerrors.CodeOf(err) != xerrors.CodeSubmitFailed {
		t.Fatalf("want SUBMIT_FAILED wrap, got %v", err)
	}
}
