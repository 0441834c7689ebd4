package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
)

// scriptedReader returns one scripted result per call, then repeats the last.
type scriptedReader struct {
	snaps []*Snapshot
	errs  []error
	calls int
}

func (r *scriptedReader) ReadActive(_ context.Context, _ common.Address) (*Snapshot, error) {
	i := r.calls
	if i >= len(r.snaps) {
		i = len(r.snaps) - 1
	}
	r.calls++
	return r.snaps[i], r.errs[i]
}

func TestPollerStopsOnFirstSatisfyingRead(t *testing.T) {
	target := &Snapshot{ID: 1, Name: "Rex"}
	reader := &scriptedReader{
		snaps: []*Snapshot{nil, nil, target},
		errs:  []error{nil, nil, nil},
	}
	poller := NewPoller(reader, 5, time.Millisecond)

	snap, err := poller.Wait(context.Background(), common.Address{}, func(s *Snapshot) bool { return s != nil })
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !snap.Equal(target) {
		t.Fatalf("snapshot = %+v, want %+v", snap, target)
	}
	if reader.calls != 3 {
		t.Fatalf("reader called %d times, want 3", reader.calls)
	}
}

func TestPollerExhaustionIsNotYetVisible(t *testing.T) {
	reader := &scriptedReader{snaps: []*Snapshot{nil}, errs: []error{nil}}
	poller := NewPoller(reader, 4, time.Millisecond)

	_, err := poller.Wait(context.Background(), common.Address{}, func(s *Snapshot) bool { return s != nil })
	if xerrors.CodeOf(err) != xerrors.CodeNotYetVisible {
		t.Fatalf("want NOT_YET_VISIBLE, got %v", err)
	}
	if reader.calls != 4 {
		t.Fatalf("reader called %d times, want exactly the %d budgeted attempts", reader.calls, 4)
	}
	// Exhaustion is a warning for the operator, never a retry trigger.
	if xerrors.RetryableError(err) {
		t.Fatal("NOT_YET_VISIBLE must not be marked retryable")
	}
}

func TestPollerReadErrorsConsumeAttempts(t *testing.T) {
	target := &Snapshot{ID: 2}
	reader := &scriptedReader{
		snaps: []*Snapshot{nil, nil, target},
		errs:  []error{errors.New("rpc timeout"), errors.New("rpc timeout"), nil},
	}
	poller := NewPoller(reader, 3, time.Millisecond)

	snap, err := poller.Wait(context.Background(), common.Address{}, func(s *Snapshot) bool { return s != nil })
	if err != nil {
		t.Fatalf("Wait failed after transient read errors: %v", err)
	}
	if snap == nil || snap.ID != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestPollerHonorsContextCancellation(t *testing.T) {
	reader := &scriptedReader{snaps: []*Snapshot{nil}, errs: []error{nil}}
	poller := NewPoller(reader, 10, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := poller.Wait(ctx, common.Address{}, func(s *Snapshot) bool { return s != nil })
	if xerrors.CodeOf(err) != xerrors.CodeTimeout {
		t.Fatalf("want TIMEOUT, got %v", err)
	}
	if reader.calls != 0 {
		t.Fatalf("reader called %d times after cancellation", reader.calls)
	}
}

func TestPollerDefaults(t *testing.T) {
	poller := NewPoller(&scriptedReader{snaps: []*Snapshot{nil}, errs: []error{nil}}, 0, 0)
	if poller.Attempts() != DefaultPollAttempts {
		t.Fatalf("attempts = %d, want %d", poller.Attempts(), DefaultPollAttempts)
	}
	if poller.interval != DefaultPollInterval {
		t.Fatalf("interval = %v, want %v", poller.interval, DefaultPollInterval)
	}
}
