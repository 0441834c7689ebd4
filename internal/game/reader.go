package game

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/pkg/logger"
)

// ContractCaller is the read surface of the game contract.
type ContractCaller interface {
	ActiveCreature(ctx context.Context, owner common.Address) (*big.Int, error)
	Creature(ctx context.Context, id *big.Int) (Record, error)
}

// SnapshotCache holds the last known snapshot per account. Implementations
// are best effort; cache failures never fail a read.
type SnapshotCache interface {
	Put(ctx context.Context, account common.Address, snap *Snapshot) error
	Get(ctx context.Context, account common.Address) (*Snapshot, error)
	Invalidate(ctx context.Context, account common.Address) error
}

// Reader performs the two-step read of the active creature: resolve the
// active id, then fetch and decode the record. "No active creature" (id 0)
// is a nil snapshot, not an error; only transport failures are errors.
type Reader struct {
	contract ContractCaller
	cache    SnapshotCache
	log      *slog.Logger
}

// ReaderOption configures optional reader collaborators.
type ReaderOption func(*Reader)

// WithSnapshotCache attaches a best-effort snapshot cache.
func WithSnapshotCache(cache SnapshotCache) ReaderOption {
	return func(r *Reader) {
		r.cache = cache
	}
}

// NewReader builds a reader over the contract.
func NewReader(contract ContractCaller, opts ...ReaderOption) *Reader {
	r := &Reader{contract: contract, log: logger.Named("reader")}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ReadActive returns a fresh snapshot of the account's active creature, or
// nil when the account has none.
func (r *Reader) ReadActive(ctx context.Context, account common.Address) (*Snapshot, error) {
	id, err := r.contract.ActiveCreature(ctx, account)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeReadFailure, err, "resolve active creature")
	}
	if id == nil || id.Sign() == 0 {
		r.invalidateCache(ctx, account)
		return nil, nil
	}

	record, err := r.contract.Creature(ctx, id)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeReadFailure, err, "fetch creature record",
			xerrors.WithMetadata("creature_id", id.String()))
	}

	snap := decodeSnapshot(id, record)
	r.cacheSnapshot(ctx, account, snap)
	return snap, nil
}

// Cached returns the last known snapshot for the account, nil when the
// cache is absent, cold, or failing.
func (r *Reader) Cached(ctx context.Context, account common.Address) *Snapshot {
	if r.cache == nil {
		return nil
	}
	snap, err := r.cache.Get(ctx, account)
	if err != nil {
		r.log.Debug("snapshot cache read failed", slog.Any("error", err))
		return nil
	}
	return snap
}

func (r *Reader) cacheSnapshot(ctx context.Context, account common.Address, snap *Snapshot) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, account, snap); err != nil {
		r.log.Debug("snapshot cache write failed", slog.Any("error", err))
	}
}

func (r *Reader) invalidateCache(ctx context.Context, account common.Address) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, account); err != nil {
		r.log.Debug("snapshot cache invalidation failed", slog.Any("error", err))
	}
}

func decodeSnapshot(id *big.Int, record Record) *Snapshot {
	return &Snapshot{
		ID:         id.Uint64(),
		Name:       DecodeName(record.Name),
		Stage:      Stage(record.Stage),
		Race:       Race(record.Race),
		Experience: bigToUint64(record.Experience),
		Happiness:  bigToUint64(record.Happiness),
		Health:     bigToUint64(record.Health),
		Shiny:      record.Shiny,
	}
}

func bigToUint64(n *big.Int) uint64 {
	if n == nil {
		return 0
	}
	return n.Uint64()
}
