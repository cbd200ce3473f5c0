// Package store persists the little durable state the product has: synced
// user identities, moderation flags, daily usage counters, and the monthly
// match statistic. Rooms and messages are never stored, by design.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	Email                     string
	SessionID                 string
	Name                      string
	Gender                    string
	IsPremium                 bool
	IsSuspended               bool
	NeedsUnsuspendAcknowledge bool
	SystemWarning             string
}

type SyncUserInput struct {
	SessionID string `json:"sessionId" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"required"`
}

type Usage struct {
	Requests int
	Toggles  int
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Day formats t as the daily usage bucket key.
func Day(t time.Time) string { return t.UTC().Format("2006-01-02") }

// Month formats t as the monthly stats bucket key.
func Month(t time.Time) string { return t.UTC().Format("2006-01") }

// SyncUser upserts the identity pushed by the auth provider on sign-in.
// Re-syncing the same email refreshes the session id and name only.
func (s *SQLiteStore) SyncUser(ctx context.Context, in SyncUserInput) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, session_id, name)
		VALUES (@email, @session_id, @name)
		ON CONFLICT (email) DO UPDATE SET
			session_id = excluded.session_id,
			name = excluded.name,
			updated_at = CURRENT_TIMESTAMP`,
		sql.Named("email", in.Email),
		sql.Named("session_id", in.SessionID),
		sql.Named("name", in.Name),
	)
	if err != nil {
		return fmt.Errorf("sync user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.Email, &u.SessionID, &u.Name, &u.Gender,
		&u.IsPremium, &u.IsSuspended, &u.NeedsUnsuspendAcknowledge, &u.SystemWarning)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

const userColumns = `email, session_id, name, gender, is_premium,
	is_suspended, needs_unsuspend_ack, system_warning`

func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = @email`,
		sql.Named("email", email))
	return s.scanUser(row)
}

func (s *SQLiteStore) UserBySession(ctx context.Context, sessionID string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE session_id = @session_id`,
		sql.Named("session_id", sessionID))
	return s.scanUser(row)
}

func (s *SQLiteStore) ClearWarning(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET system_warning = '', updated_at = CURRENT_TIMESTAMP
		 WHERE email = @email`,
		sql.Named("email", email))
	if err != nil {
		return fmt.Errorf("clear warning: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetWarning(ctx context.Context, email, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET system_warning = @message, updated_at = CURRENT_TIMESTAMP
		 WHERE email = @email`,
		sql.Named("message", message),
		sql.Named("email", email))
	if err != nil {
		return fmt.Errorf("set warning: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetSuspension flips the suspension flag. Lifting a suspension leaves an
// acknowledgement flag the client must clear before chatting again.
func (s *SQLiteStore) SetSuspension(ctx context.Context, email string, suspended bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			is_suspended = @suspended,
			needs_unsuspend_ack = CASE WHEN @suspended THEN needs_unsuspend_ack ELSE 1 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE email = @email`,
		sql.Named("suspended", suspended),
		sql.Named("email", email))
	if err != nil {
		return fmt.Errorf("set suspension: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteStore) AcknowledgeUnsuspend(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET needs_unsuspend_ack = 0, updated_at = CURRENT_TIMESTAMP
		 WHERE email = @email`,
		sql.Named("email", email))
	if err != nil {
		return fmt.Errorf("acknowledge unsuspend: %w", err)
	}
	return nil
}

// IncrRequests bumps the daily chat-request counter and returns the new
// total for that day.
func (s *SQLiteStore) IncrRequests(ctx context.Context, sessionID, day string) (int, error) {
	return s.incrUsage(ctx, sessionID, day, "requests")
}

// IncrToggles bumps the daily availability-toggle counter and returns the
// new total for that day.
func (s *SQLiteStore) IncrToggles(ctx context.Context, sessionID, day string) (int, error) {
	return s.incrUsage(ctx, sessionID, day, "toggles")
}

func (s *SQLiteStore) incrUsage(ctx context.Context, sessionID, day, column string) (int, error) {
	// column is one of the two fixed counter names, never user input
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO daily_usage (session_id, day, `+column+`)
		VALUES (@session_id, @day, 1)
		ON CONFLICT (session_id, day) DO UPDATE SET `+column+` = `+column+` + 1
		RETURNING `+column,
		sql.Named("session_id", sessionID),
		sql.Named("day", day))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("incr %s: %w", column, err)
	}
	return n, nil
}

func (s *SQLiteStore) UsageFor(ctx context.Context, sessionID, day string) (Usage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT requests, toggles FROM daily_usage
		 WHERE session_id = @session_id AND day = @day`,
		sql.Named("session_id", sessionID),
		sql.Named("day", day))
	var u Usage
	err := row.Scan(&u.Requests, &u.Toggles)
	if errors.Is(err, sql.ErrNoRows) {
		return Usage{}, nil
	}
	if err != nil {
		return Usage{}, fmt.Errorf("usage: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) IncrMonthlyMatches(ctx context.Context, month string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monthly_matches (month, count) VALUES (@month, 1)
		ON CONFLICT (month) DO UPDATE SET count = count + 1`,
		sql.Named("month", month))
	if err != nil {
		return fmt.Errorf("incr monthly matches: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MonthlyMatches(ctx context.Context, month string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT count FROM monthly_matches WHERE month = @month`,
		sql.Named("month", month))
	var n int
	err := row.Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("monthly matches: %w", err)
	}
	return n, nil
}
