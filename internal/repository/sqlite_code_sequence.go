package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/remediate/internal/db"
)

// SQLiteCodeSequenceRepo keeps one counter per code scope plus the ledger
// of issued codes. Counters only move forward, so a code is never issued
// twice within a scope.
type SQLiteCodeSequenceRepo struct {
	db db.DBTX
}

func NewSQLiteCodeSequenceRepo(conn db.DBTX) *SQLiteCodeSequenceRepo {
	return &SQLiteCodeSequenceRepo{db: conn}
}

// NextSeq seeds the scope counter on first use and increments it in a
// single statement, so concurrent writers are serialized by the store.
func (r *SQLiteCodeSequenceRepo) NextSeq(ctx context.Context, scopeKey string) (int, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO code_sequences (scope_key, next_seq) VALUES (?, 1)`, scopeKey); err != nil {
		return 0, fmt.Errorf("seeding code sequence %s: %w", scopeKey, err)
	}

	var seq int
	err := r.db.QueryRowContext(ctx, `UPDATE code_sequences
		SET next_seq = next_seq + 1
		WHERE scope_key = ?
		RETURNING next_seq - 1`, scopeKey).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocating next seq for %s: %w", scopeKey, err)
	}
	return seq, nil
}

func (r *SQLiteCodeSequenceRepo) Lookup(ctx context.Context, subjectID string) (string, bool, error) {
	var code string
	err := r.db.QueryRowContext(ctx,
		`SELECT code FROM code_assignments WHERE subject_id = ?`, subjectID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up code for %s: %w", subjectID, err)
	}
	return code, true, nil
}

func (r *SQLiteCodeSequenceRepo) Record(ctx context.Context, subjectID, scopeKey string, seq int, code string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO code_assignments (subject_id, scope_key, seq, code, created_at)
		VALUES (?, ?, ?, ?, ?)`, subjectID, scopeKey, seq, code, formatTime(time.Now()))
	if err != nil {
		return conflictOr(err, "code", code, "recording code assignment")
	}
	return nil
}
