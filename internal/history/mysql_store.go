package history

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/souzavinny/rootagotchi/deploy/migrations"
	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
)

// MySQLConfig describes the MySQL journal backend.
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MySQLStore persists write records in MySQL.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore connects, pings, and applies pending migrations.
func NewMySQLStore(ctx context.Context, cfg MySQLConfig) (*MySQLStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeStorageFailure, "mysql DSN is empty")
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "open mysql")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "ping mysql")
	}

	store := &MySQLStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *MySQLStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(32) NOT NULL PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "create schema_migrations")
	}

	applied := map[string]bool{}
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "load applied migrations")
	}
	defer rows.Close()
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "scan migration version")
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "iterate migration versions")
	}

	names, err := fs.Glob(migrations.Files, "*.sql")
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "list migrations")
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.SplitN(name, "_", 2)[0]
		if applied[version] {
			continue
		}
		content, err := fs.ReadFile(migrations.Files, name)
		if err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "read migration "+name)
		}
		for _, stmt := range strings.Split(string(content), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return xerrors.Wrap(xerrors.CodeStorageFailure, err, "apply migration "+name)
			}
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			version, time.Now().Unix()); err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "record migration "+name)
		}
	}
	return nil
}

// Create implements Store.
func (s *MySQLStore) Create(ctx context.Context, record *WriteRecord) error {
	if record == nil || record.ID == "" {
		return xerrors.New(xerrors.CodeStorageFailure, "record id is required")
	}
	status := record.Status
	if status == "" {
		status = StatusPending
	}
	submittedAt := record.SubmittedAt
	if submittedAt == 0 {
		submittedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO write_records
		(id, kind, account, payload, status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.Kind, record.Account, record.Payload, string(status), submittedAt)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return ErrConflict
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "insert write record")
	}
	return nil
}

// MarkResolved implements Store.
func (s *MySQLStore) MarkResolved(ctx context.Context, id, outcome, txHash string, attempts int) error {
	result, err := s.db.ExecContext(ctx, `UPDATE write_records
		SET status = ?, outcome = ?, tx_hash = ?, attempts = ?, completed_at = ?
		WHERE id = ?`,
		string(StatusResolved), outcome, txHash, attempts, time.Now().Unix(), id)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "resolve write record")
	}
	return checkAffected(result)
}

// MarkFailed implements Store.
func (s *MySQLStore) MarkFailed(ctx context.Context, id, errorCode, txHash string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE write_records
		SET status = ?, error_code = ?, tx_hash = ?, completed_at = ?
		WHERE id = ?`,
		string(StatusFailed), errorCode, txHash, time.Now().Unix(), id)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "fail write record")
	}
	return checkAffected(result)
}

// Get implements Store.
func (s *MySQLStore) Get(ctx context.Context, id string) (*WriteRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, account, payload,
		COALESCE(tx_hash, ''), COALESCE(outcome, ''), COALESCE(attempts, 0),
		COALESCE(error_code, ''), status, submitted_at, COALESCE(completed_at, 0)
		FROM write_records WHERE id = ?`, id)
	return scanRecord(row)
}

// List implements Store, newest first.
func (s *MySQLStore) List(ctx context.Context, limit int) ([]*WriteRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, account, payload,
		COALESCE(tx_hash, ''), COALESCE(outcome, ''), COALESCE(attempts, 0),
		COALESCE(error_code, ''), status, submitted_at, COALESCE(completed_at, 0)
		FROM write_records ORDER BY submitted_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "list write records")
	}
	defer rows.Close()

	var out []*WriteRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "iterate write records")
	}
	return out, nil
}

// Close implements Store.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*WriteRecord, error) {
	var record WriteRecord
	var status string
	err := row.Scan(&record.ID, &record.Kind, &record.Account, &record.Payload,
		&record.TxHash, &record.Outcome, &record.Attempts,
		&record.ErrorCode, &status, &record.SubmittedAt, &record.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "scan write record")
	}
	record.Status = Status(status)
	return &record, nil
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "rows affected")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
