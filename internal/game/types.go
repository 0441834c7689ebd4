package game

import (
	"bytes"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
)

// NameLength is the fixed byte length of the on-chain name field.
const NameLength = 32

// Stage is the creature's life stage ordinal as stored on chain.
type Stage uint8

const (
	StageBlob Stage = iota
	StageChild
	StageTeen
	StageAdult
	StageOld
)

var stageNames = [...]string{"Blob", "Child", "Teen", "Adult", "Old"}

// String returns the stage label, "Unknown" for out-of-range ordinals.
func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "Unknown"
}

// Race is the creature's race ordinal as stored on chain.
type Race uint8

const (
	RaceNone Race = iota
	RaceBird
	RaceDog
	RaceCat
	RaceEagle
	RaceWolf
	RaceTiger
)

var raceNames = [...]string{"None", "Bird", "Dog", "Cat", "Eagle", "Wolf", "Tiger"}

// String returns the race label, "Unknown" for out-of-range ordinals.
func (r Race) String() string {
	if int(r) < len(raceNames) {
		return raceNames[r]
	}
	return "Unknown"
}

// Action is a state-changing move the creature can perform. The wire values
// are part of the contract ABI and must not be renumbered.
type Action uint8

const (
	ActionFly   Action = 0
	ActionClimb Action = 1
	ActionRun   Action = 2
	ActionFeed  Action = 3
	ActionBathe Action = 4
)

var actionNames = [...]string{"Fly", "Climb", "Run", "Feed", "Bathe"}

// String returns the action label.
func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "Unknown"
}

// ParseAction maps a label (case sensitive, as displayed) to its wire value.
func ParseAction(name string) (Action, error) {
	for i, candidate := range actionNames {
		if candidate == name {
			return Action(i), nil
		}
	}
	return 0, xerrors.New(xerrors.CodeUnknown, "unknown action "+name)
}

// Actions lists every action in wire-value order.
func Actions() []Action {
	return []Action{ActionFly, ActionClimb, ActionRun, ActionFeed, ActionBathe}
}

// Snapshot is an immutable read of the creature's full state at one point
// in time. Reads always produce a fresh snapshot; snapshots are compared by
// value, never mutated.
type Snapshot struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	Stage      Stage  `json:"stage"`
	Race       Race   `json:"race"`
	Experience uint64 `json:"experience"`
	Happiness  uint64 `json:"happiness"`
	Health     uint64 `json:"health"`
	Shiny      bool   `json:"shiny"`
}

// Equal compares two snapshots by value. A nil snapshot only equals nil.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return *s == *other
}

// EncodeName encodes a creature name into the fixed-length on-chain field:
// UTF-8 bytes right-padded with zeros. Empty names and names longer than 32
// bytes are rejected before anything is submitted.
func EncodeName(name string) ([NameLength]byte, error) {
	var out [NameLength]byte
	raw := []byte(name)
	if len(raw) == 0 {
		return out, xerrors.New(xerrors.CodeInvalidName, "name is empty")
	}
	if len(raw) > NameLength {
		return out, xerrors.New(xerrors.CodeInvalidName, "name exceeds 32 bytes")
	}
	copy(out[:], raw)
	return out, nil
}

// DecodeName strips the trailing zero padding from the fixed-length field.
func DecodeName(raw [NameLength]byte) string {
	return string(bytes.TrimRight(raw[:], "\x00"))
}
