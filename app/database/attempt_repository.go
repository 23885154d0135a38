package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// SQLiteAttemptRepository archives session bootstrap attempts.
type SQLiteAttemptRepository struct {
	db *DB
}

var _ AttemptRepository = (*SQLiteAttemptRepository)(nil)

func NewAttemptRepository(db *DB) *SQLiteAttemptRepository {
	return &SQLiteAttemptRepository{db: db}
}

func (r *SQLiteAttemptRepository) RecordBootstrapAttempt(mode string, succeeded bool, cause, message string) error {
	_, err := r.db.Exec(`
		INSERT INTO bootstrap_attempts (id, mode, succeeded, cause, message)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), mode, succeeded, cause, message)

	if err != nil {
		return fmt.Errorf("failed to record bootstrap attempt: %w", err)
	}

	return nil
}

func (r *SQLiteAttemptRepository) GetLastAttempt() (*BootstrapAttempt, error) {
	row := r.db.QueryRow(`
		SELECT id, mode, succeeded, cause, message, attempted_at
		FROM bootstrap_attempts
		ORDER BY attempted_at DESC
		LIMIT 1
	`)

	var attempt BootstrapAttempt
	err := row.Scan(&attempt.ID, &attempt.Mode, &attempt.Succeeded,
		&attempt.Cause, &attempt.Message, &attempt.AttemptedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last bootstrap attempt: %w", err)
	}

	return &attempt, nil
}
