package game

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
)

type fakeContract struct {
	activeID  *big.Int
	activeErr error
	record    Record
	recordErr error
}

func (f *fakeContract) ActiveCreature(_ context.Context, _ common.Address) (*big.Int, error) {
	return f.activeID, f.activeErr
}

func (f *fakeContract) Creature(_ context.Context, _ *big.Int) (Record, error) {
	return f.record, f.recordErr
}

type fakeCache struct {
	snaps       map[common.Address]*Snapshot
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{snaps: make(map[common.Address]*Snapshot)}
}

func (f *fakeCache) Put(_ context.Context, account common.Address, snap *Snapshot) error {
	f.snaps[account] = snap
	return nil
}

func (f *fakeCache) Get(_ context.Context, account common.Address) (*Snapshot, error) {
	return f.snaps[account], nil
}

func (f *fakeCache) Invalidate(_ context.Context, account common.Address) error {
	delete(f.snaps, account)
	f.invalidated++
	return nil
}

func paddedName(name string) [NameLength]byte {
	var out [NameLength]byte
	copy(out[:], name)
	return out
}

func TestReadActiveNoCreature(t *testing.T) {
	reader := NewReader(&fakeContract{activeID: big.NewInt(0)})
	snap, err := reader.ReadActive(context.Background(), common.Address{})
	if err != nil {
		t.Fatalf("ReadActive failed: %v", err)
	}
	if snap != nil {
		t.Fatalf("id 0 must yield a nil snapshot, got %+v", snap)
	}
}

func TestReadActiveDecodesRecord(t *testing.T) {
	contract := &fakeContract{
		activeID: big.NewInt(7),
		record: Record{
			Name:       paddedName("Rex"),
			Stage:      uint8(StageTeen),
			Race:       uint8(RaceDog),
			Experience: big.NewInt(120),
			Happiness:  big.NewInt(80),
			Health:     big.NewInt(90),
			Shiny:      true,
		},
	}
	reader := NewReader(contract)
	snap, err := reader.ReadActive(context.Background(), common.Address{})
	if err != nil {
		t.Fatalf("ReadActive failed: %v", err)
	}
	want := Snapshot{ID: 7, Name: "Rex", Stage: StageTeen, Race: RaceDog, Experience: 120, Happiness: 80, Health: 90, Shiny: true}
	if *snap != want {
		t.Fatalf("snapshot = %+v, want %+v", *snap, want)
	}
}

func TestReadActiveWrapsTransportErrors(t *testing.T) {
	reader := NewReader(&fakeContract{activeErr: errors.New("connection refused")})
	if _, err := reader.ReadActive(context.Background(), common.Address{}); xerrors.CodeOf(err) != xerrors.CodeReadFailure {
		t.Fatalf("want READ_FAILURE, got %v", err)
	}

	reader = NewReader(&fakeContract{activeID: big.NewInt(3), recordErr: errors.New("execution reverted")})
	if _, err := reader.ReadActive(context.Background(), common.Address{}); xerrors.CodeOf(err) != xerrors.CodeReadFailure {
		t.Fatalf("want READ_FAILURE, got %v", err)
	}
}

func TestReadActiveMaintainsCache(t *testing.T) {
	account := common.HexToAddress("0x01")
	cache := newFakeCache()
	contract := &fakeContract{
		activeID: big.NewInt(1),
		record:   Record{Name: paddedName("Rex"), Race: uint8(RaceBird)},
	}
	reader := NewReader(contract, WithSnapshotCache(cache))

	if _, err := reader.ReadActive(context.Background(), account); err != nil {
		t.Fatalf("ReadActive failed: %v", err)
	}
	if cached := reader.Cached(context.Background(), account); cached == nil || cached.Name != "Rex" {
		t.Fatalf("cache not populated after read: %+v", cached)
	}

	// Creature released: the stale entry must go.
	contract.activeID = big.NewInt(0)
	if _, err := reader.ReadActive(context.Background(), account); err != nil {
		t.Fatalf("ReadActive failed: %v", err)
	}
	if cache.invalidated != 1 {
		t.Fatalf("invalidated = %d, want 1", cache.invalidated)
	}
	if cached := reader.Cached(context.Background(), account); cached != nil {
		t.Fatalf("stale snapshot survived invalidation: %+v", cached)
	}
}
