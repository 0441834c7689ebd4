package game

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/pkg/logger"
)

// ActiveReader is the read dependency of the poller.
type ActiveReader interface {
	ReadActive(ctx context.Context, account common.Address) (*Snapshot, error)
}

// Poll loop defaults. Confirmation guarantees durability, not read
// visibility; the defaults bound the reconciliation wait at roughly 100s,
// which is the latency contract callers build their timeouts on.
const (
	DefaultPollAttempts = 10
	DefaultPollInterval = 10 * time.Second
)

// Poller re-reads the active creature after a confirmed write until a
// predicate holds or the attempt budget runs out. The interval is fixed: the
// lag being bridged is indexing latency, not contention, so backing off
// buys nothing.
type Poller struct {
	reader   ActiveReader
	attempts int
	interval time.Duration
	log      *slog.Logger
}

// NewPoller builds a poller. Non-positive attempts or interval fall back to
// the defaults.
func NewPoller(reader ActiveReader, attempts int, interval time.Duration) *Poller {
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		reader:   reader,
		attempts: attempts,
		interval: interval,
		log:      logger.Named("poller"),
	}
}

// Attempts returns the configured attempt budget.
func (p *Poller) Attempts() int {
	return p.attempts
}

// Wait polls until pred is satisfied. It calls the reader at most
// p.attempts times and stops on the first satisfying snapshot. Read errors
// consume an attempt but do not abort: the write is known confirmed, so the
// only question is when it becomes visible. Exhaustion yields
// NOT_YET_VISIBLE, which callers surface as a warning rather than a
// failure, and never triggers a resubmission.
func (p *Poller) Wait(ctx context.Context, account common.Address, pred func(*Snapshot) bool) (*Snapshot, error) {
	for attempt := 1; attempt <= p.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, xerrors.Wrap(xerrors.CodeTimeout, ctx.Err(), "poll interrupted",
				xerrors.WithMetadata("attempt", strconv.Itoa(attempt)))
		case <-time.After(p.interval):
		}

		snap, err := p.reader.ReadActive(ctx, account)
		if err != nil {
			p.log.Warn("poll read failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			continue
		}
		if pred(snap) {
			p.log.Debug("poll predicate satisfied", slog.Int("attempt", attempt))
			return snap, nil
		}
	}
	return nil, xerrors.New(xerrors.CodeNotYetVisible, "",
		xerrors.WithMetadata("attempts", strconv.Itoa(p.attempts)))
}
