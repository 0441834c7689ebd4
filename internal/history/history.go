// Package history journals every write pipeline: one record per pending
// write, completed with the classified outcome or the failure code. The
// journal is an audit trail, not an operational dependency; journal errors
// never fail a write.
package history

import (
	"context"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
)

// Status tracks a record through the write lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// WriteRecord is one journaled write.
type WriteRecord struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Account     string `json:"account"`
	Payload     string `json:"payload"`
	TxHash      string `json:"tx_hash,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
	Attempts    int    `json:"attempts,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	Status      Status `json:"status"`
	SubmittedAt int64  `json:"submitted_at"`
	CompletedAt int64  `json:"completed_at,omitempty"`
}

// Store persists write records.
type Store interface {
	Create(ctx context.Context, record *WriteRecord) error
	MarkResolved(ctx context.Context, id, outcome, txHash string, attempts int) error
	MarkFailed(ctx context.Context, id, errorCode, txHash string) error
	Get(ctx context.Context, id string) (*WriteRecord, error)
	List(ctx context.Context, limit int) ([]*WriteRecord, error)
	Close() error
}

var (
	// ErrNotFound means no record exists for the id.
	ErrNotFound = xerrors.New(xerrors.CodeStorageFailure, "write record not found",
		xerrors.WithSeverity(xerrors.SeverityInfo), xerrors.WithAlert(false))
	// ErrConflict means a record with the id already exists.
	ErrConflict = xerrors.New(xerrors.CodeStorageFailure, "write record already exists",
		xerrors.WithSeverity(xerrors.SeverityWarning), xerrors.WithAlert(false))
)
