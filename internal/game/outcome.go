package game

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WriteKind distinguishes the two state-changing calls.
type WriteKind string

const (
	WriteCreate WriteKind = "create"
	WriteAction WriteKind = "action"
)

// PendingWrite tracks one write from submission to outcome. It lives only
// for the duration of the pipeline run and is discarded after
// classification.
type PendingWrite struct {
	ID          string
	Kind        WriteKind
	Name        string
	Action      Action
	Account     common.Address
	SubmittedAt time.Time
}

// OutcomeKind tags the single classified result of a write pipeline.
type OutcomeKind string

const (
	OutcomeCreated       OutcomeKind = "created"
	OutcomeActionApplied OutcomeKind = "action_applied"
	OutcomeEvolved       OutcomeKind = "evolved"
	OutcomeNotYetVisible OutcomeKind = "not_yet_visible"
	OutcomeFailed        OutcomeKind = "failed"
)

// Outcome is the one result produced per write pipeline. The presentation
// layer keeps a single outcome slot: a new write's outcome replaces the
// previous one wholesale.
type Outcome struct {
	WriteID  string      `json:"write_id"`
	Kind     OutcomeKind `json:"kind"`
	Write    WriteKind   `json:"write"`
	Action   Action      `json:"action,omitempty"`
	Old      *Snapshot   `json:"old,omitempty"`
	New      *Snapshot   `json:"new,omitempty"`
	Attempts int         `json:"attempts,omitempty"`
	TxHash   string      `json:"tx_hash,omitempty"`
	Err      error       `json:"-"`
	Reason   string      `json:"reason,omitempty"`
}

// Classify compares the pre-write and post-write snapshots. A nil prior
// with a visible creature is a creation; a race change is an evolution; any
// other difference is a plain applied action. Identical snapshots produce
// no transition outcome and classify as not-yet-visible.
func Classify(prior, current *Snapshot) OutcomeKind {
	if current == nil {
		return OutcomeNotYetVisible
	}
	if prior == nil {
		return OutcomeCreated
	}
	if prior.Race != current.Race {
		return OutcomeEvolved
	}
	if !prior.Equal(current) {
		return OutcomeActionApplied
	}
	return OutcomeNotYetVisible
}

// Message renders the user-facing alert text for the outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeCreated:
		if o.New == nil {
			return "Blockagotchi created successfully!"
		}
		return fmt.Sprintf("Blockagotchi %q created successfully!", o.New.Name)
	case OutcomeEvolved:
		return "Congratulations! Your Blockagotchi evolved!"
	case OutcomeActionApplied:
		return fmt.Sprintf("Action %s performed successfully!", o.Action)
	case OutcomeNotYetVisible:
		return "Write confirmed, but not yet visible. Please check again later."
	case OutcomeFailed:
		if o.Err != nil {
			return o.Err.Error()
		}
		return "The last write failed. Please try again."
	default:
		return string(o.Kind)
	}
}
