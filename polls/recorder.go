// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/models"
)

// Recorder stores votes, one per voter per poll.
type Recorder struct {
	db         *db.DB
	aggregator *Aggregator
	cfg        Config

	// beforeInsert runs between the duplicate check and the INSERT.
	beforeInsert func(ctx context.Context, tx *sql.Tx) error
}

func NewRecorder(conn *db.DB, aggregator *Aggregator, cfg Config) *Recorder {
	return &Recorder{db: conn, aggregator: aggregator, cfg: cfg.withDefaults()}
}

// CastVote records voterID's vote for optionID. Checks run in order and
// the first failure wins: poll exists, poll open, option belongs to the
// poll, voter has not voted. The checks and the insert share one
// transaction; UNIQUE (poll_id, voter_id) settles concurrent submissions.
//
// The cached summary is refreshed after commit. A refresh failure is
// logged and counted but does not undo the vote.
func (r *Recorder) CastVote(ctx context.Context, pollID, optionID, voterID string) (models.Vote, error) {
	vote, _, err := r.cast(ctx, pollID, optionID, voterID)
	return vote, err
}

// cast records the vote and returns the refreshed results, which are nil
// when the refresh failed.
func (r *Recorder) cast(ctx context.Context, pollID, optionID, voterID string) (models.Vote, *models.ResultSet, error) {
	vote, err := r.insertVote(ctx, pollID, optionID, voterID)
	if err != nil {
		r.cfg.Metrics.IncVotesRejected(rejectReason(err))
		return models.Vote{}, nil, err
	}
	r.cfg.Metrics.IncVotesCast()

	slog.Info("vote recorded", "poll_id", pollID, "option_id", optionID, "vote_id", vote.ID)

	if r.aggregator == nil {
		return vote, nil, nil
	}
	rs, err := r.aggregator.Refresh(ctx, pollID)
	if err != nil {
		r.cfg.Metrics.IncRefreshFailures()
		slog.Warn("cached results refresh failed", "poll_id", pollID, "error", err)
		return vote, nil, nil
	}
	return vote, &rs, nil
}

func (r *Recorder) insertVote(ctx context.Context, pollID, optionID, voterID string) (models.Vote, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vote{}, storageError("begin_vote", err, "poll_id", pollID)
	}
	defer rollback(tx)

	now := r.cfg.now()

	poll, err := loadPoll(ctx, tx, pollID, "")
	if err != nil {
		return models.Vote{}, err
	}
	if poll.Closed(now) {
		return models.Vote{}, ErrPollClosed
	}
	if _, err := loadOption(ctx, tx, pollID, optionID); err != nil {
		return models.Vote{}, err
	}
	voted, err := hasVoted(ctx, tx, pollID, voterID)
	if err != nil {
		return models.Vote{}, err
	}
	if voted {
		return models.Vote{}, ErrAlreadyVoted
	}
	if r.beforeInsert != nil {
		if err := r.beforeInsert(ctx, tx); err != nil {
			return models.Vote{}, err
		}
	}

	id, err := newID()
	if err != nil {
		return models.Vote{}, storageError("vote_id", err)
	}
	vote := models.Vote{
		ID:        id,
		PollID:    pollID,
		OptionID:  optionID,
		VoterID:   voterID,
		CreatedAt: now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (id, poll_id, option_id, voter_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, vote.ID, vote.PollID, vote.OptionID, vote.VoterID, vote.CreatedAt)
	if db.IsUniqueViolation(err) {
		return models.Vote{}, ErrAlreadyVoted
	}
	if err != nil {
		return models.Vote{}, storageError("insert_vote", err, "poll_id", pollID)
	}

	if err := tx.Commit(); err != nil {
		if db.IsUniqueViolation(err) {
			return models.Vote{}, ErrAlreadyVoted
		}
		return models.Vote{}, storageError("commit_vote", err, "poll_id", pollID)
	}

	return vote, nil
}

// HasVoted reports whether voterID already voted in pollID.
func (r *Recorder) HasVoted(ctx context.Context, pollID, voterID string) (bool, error) {
	return hasVoted(ctx, r.db, pollID, voterID)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrPollNotFound):
		return "poll_not_found"
	case errors.Is(err, ErrPollClosed):
		return "poll_closed"
	case errors.Is(err, ErrOptionNotFound):
		return "option_not_found"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	default:
		return "storage"
	}
}
