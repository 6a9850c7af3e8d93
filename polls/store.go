// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-vote/metrics"
	"github.com/danielhkuo/quickly-vote/models"
)

// queryer is satisfied by both *db.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Config carries the dependencies shared by Service, Recorder and Aggregator.
type Config struct {
	// Location buckets votes by calendar day and hour. Defaults to UTC.
	Location *time.Location
	// Metrics may be nil.
	Metrics *metrics.MetricService
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

func (c Config) now() time.Time {
	return c.Now().UTC()
}

// newID returns a time-ordered id, so ascending id is creation order.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

const pollColumns = `id, title, description, creator_id, closes_at, cached_results, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanPoll reads pollColumns followed by any extra columns into extra.
func scanPoll(row rowScanner, extra ...any) (models.Poll, error) {
	var (
		p        models.Poll
		closesAt sql.NullTime
		cached   string
	)
	dest := append([]any{&p.ID, &p.Title, &p.Description, &p.CreatorID, &closesAt, &cached, &p.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.Poll{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	if closesAt.Valid {
		t := closesAt.Time.UTC()
		p.ClosesAt = &t
	}
	p.CachedResults = map[string]models.OptionSummary{}
	if err := json.Unmarshal([]byte(cached), &p.CachedResults); err != nil {
		slog.Warn("ignoring unreadable cached results", "poll_id", p.ID, "error", err)
		p.CachedResults = map[string]models.OptionSummary{}
	}
	return p, nil
}

// loadPoll reads one poll. lock is appended to the SELECT (see db.Dialect.LockClause).
func loadPoll(ctx context.Context, q queryer, pollID, lock string) (models.Poll, error) {
	row := q.QueryRowContext(ctx, `SELECT `+pollColumns+` FROM poll WHERE id = $1`+lock, pollID)
	p, err := scanPoll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, ErrPollNotFound
	}
	if err != nil {
		return models.Poll{}, storageError("load_poll", err, "poll_id", pollID)
	}
	return p, nil
}

// loadOption reads an option that must belong to pollID.
func loadOption(ctx context.Context, q queryer, pollID, optionID string) (models.Option, error) {
	var o models.Option
	err := q.QueryRowContext(ctx, `
		SELECT id, poll_id, label, color, created_at
		FROM option
		WHERE id = $1 AND poll_id = $2
	`, optionID, pollID).Scan(&o.ID, &o.PollID, &o.Label, &o.Color, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Option{}, ErrOptionNotFound
	}
	if err != nil {
		return models.Option{}, storageError("load_option", err, "poll_id", pollID, "option_id", optionID)
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

func countOptions(ctx context.Context, q queryer, pollID string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM option WHERE poll_id = $1`, pollID).Scan(&n); err != nil {
		return 0, storageError("count_options", err, "poll_id", pollID)
	}
	return n, nil
}

func hasVoted(ctx context.Context, q queryer, pollID, voterID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vote WHERE poll_id = $1 AND voter_id = $2
	`, pollID, voterID).Scan(&n)
	if err != nil {
		return false, storageError("has_voted", err, "poll_id", pollID)
	}
	return n > 0, nil
}

// nullTime converts an optional time into a driver value.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// rollback is deferred after BeginTx; it is a no-op once the tx committed.
func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Warn("transaction rollback failed", "error", err)
	}
}
