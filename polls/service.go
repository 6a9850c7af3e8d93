// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/models"
)

// Service is the entry point for poll, option, vote and statistics operations.
type Service struct {
	db         *db.DB
	cfg        Config
	recorder   *Recorder
	aggregator *Aggregator
}

func NewService(conn *db.DB, cfg Config) *Service {
	cfg = cfg.withDefaults()
	aggregator := NewAggregator(conn, cfg)
	return &Service{
		db:         conn,
		cfg:        cfg,
		recorder:   NewRecorder(conn, aggregator, cfg),
		aggregator: aggregator,
	}
}

func (s *Service) Recorder() *Recorder     { return s.recorder }
func (s *Service) Aggregator() *Aggregator { return s.aggregator }

// EnsureVoter mirrors a verified identity into the voter table.
func (s *Service) EnsureVoter(ctx context.Context, identity *auth.Identity) error {
	now := s.cfg.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voter (id, name, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, last_seen_at = excluded.last_seen_at
	`, identity.ID, identity.Name, now, now)
	if err != nil {
		return storageError("upsert_voter", err, "voter_id", identity.ID)
	}
	return nil
}

// CreatePoll stores a poll and its options in one transaction.
func (s *Service) CreatePoll(ctx context.Context, requester *auth.Identity, req models.CreatePollRequest) (models.CreatePollResponse, error) {
	if requester == nil {
		return models.CreatePollResponse{}, auth.ErrMissingCredentials
	}

	now := s.cfg.now()
	in, err := validateCreate(req, now)
	if err != nil {
		return models.CreatePollResponse{}, err
	}

	pollID, err := newID()
	if err != nil {
		return models.CreatePollResponse{}, storageError("poll_id", err)
	}
	poll := models.Poll{
		ID:          pollID,
		Title:       in.title,
		Description: in.description,
		CreatorID:   requester.ID,
		ClosesAt:    in.closesAt,
		CreatedAt:   now,
	}

	options := make([]models.Option, 0, len(in.options))
	summary := make(map[string]models.OptionSummary, len(in.options))
	for _, opt := range in.options {
		optionID, err := newID()
		if err != nil {
			return models.CreatePollResponse{}, storageError("option_id", err)
		}
		options = append(options, models.Option{
			ID:        optionID,
			PollID:    pollID,
			Label:     opt.Label,
			Color:     opt.Color,
			CreatedAt: now,
		})
		summary[optionID] = models.OptionSummary{Label: opt.Label}
	}
	poll.CachedResults = summary

	cached, err := json.Marshal(summary)
	if err != nil {
		return models.CreatePollResponse{}, storageError("encode_cached_results", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.CreatePollResponse{}, storageError("begin_create_poll", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, title, description, creator_id, closes_at, cached_results, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, poll.ID, poll.Title, poll.Description, poll.CreatorID, nullTime(poll.ClosesAt), string(cached), poll.CreatedAt)
	if err != nil {
		return models.CreatePollResponse{}, storageError("insert_poll", err, "poll_id", poll.ID)
	}

	for _, o := range options {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO option (id, poll_id, label, color, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, o.ID, o.PollID, o.Label, o.Color, o.CreatedAt)
		if err != nil {
			return models.CreatePollResponse{}, storageError("insert_option", err, "poll_id", poll.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.CreatePollResponse{}, storageError("commit_create_poll", err, "poll_id", poll.ID)
	}

	s.cfg.Metrics.IncPollsCreated()
	slog.Info("poll created", "poll_id", poll.ID, "creator", requester.ID, "options", len(options))

	return models.CreatePollResponse{Poll: poll, Options: options}, nil
}

// ListPolls returns one page of polls, newest first. requester may be nil.
func (s *Service) ListPolls(ctx context.Context, requester *auth.Identity, filter models.ListPollsFilter) (models.PollList, error) {
	page, limit, offset := pageBounds(filter.Page, filter.Limit)

	var (
		conds []string
		args  []any
	)
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		args = append(args, pattern, pattern)
		conds = append(conds, fmt.Sprintf("(LOWER(p.title) LIKE $%d OR LOWER(p.description) LIKE $%d)", len(args)-1, len(args)))
	}
	if filter.Mine {
		if requester == nil {
			return models.PollList{Polls: []models.PollSummary{}, Pagination: pagination(page, limit, 0)}, nil
		}
		args = append(args, requester.ID)
		conds = append(conds, fmt.Sprintf("p.creator_id = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM poll p`+where, args...).Scan(&total); err != nil {
		return models.PollList{}, storageError("count_polls", err)
	}

	pageArgs := append(append([]any{}, args...), limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.description, p.creator_id, p.closes_at, p.cached_results, p.created_at,
			(SELECT COUNT(*) FROM option o WHERE o.poll_id = p.id),
			(SELECT COUNT(*) FROM vote v WHERE v.poll_id = p.id)
		FROM poll p`+where+fmt.Sprintf(`
		ORDER BY p.id DESC
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2), pageArgs...)
	if err != nil {
		return models.PollList{}, storageError("list_polls", err)
	}

	type listed struct {
		poll        models.Poll
		optionCount int
		totalVotes  int
	}
	var found []listed
	for rows.Next() {
		var l listed
		l.poll, err = scanPoll(rows, &l.optionCount, &l.totalVotes)
		if err != nil {
			rows.Close()
			return models.PollList{}, storageError("list_polls", err)
		}
		found = append(found, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.PollList{}, storageError("list_polls", err)
	}

	now := s.cfg.now()
	summaries := make([]models.PollSummary, 0, len(found))
	for _, l := range found {
		voted := false
		if requester != nil {
			if voted, err = s.recorder.HasVoted(ctx, l.poll.ID, requester.ID); err != nil {
				return models.PollList{}, err
			}
		}
		summaries = append(summaries, s.pollSummary(l.poll, l.optionCount, l.totalVotes, requester, voted, now))
	}

	return models.PollList{Polls: summaries, Pagination: pagination(page, limit, total)}, nil
}

func (s *Service) pollSummary(p models.Poll, optionCount, totalVotes int, requester *auth.Identity, voted bool, now time.Time) models.PollSummary {
	closed := p.Closed(now)
	summary := models.PollSummary{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		CreatorID:   p.CreatorID,
		CreatedAt:   p.CreatedAt,
		ClosesAt:    p.ClosesAt,
		Closed:      closed,
		OptionCount: optionCount,
		TotalVotes:  totalVotes,
	}
	if p.ClosesAt != nil {
		summary.ClosesIn = humanize.RelTime(*p.ClosesAt, now, "ago", "from now")
	}
	if requester != nil {
		summary.AlreadyVoted = voted
		summary.CanVote = !voted && !closed
		summary.IsOwner = requester.ID == p.CreatorID
	}
	return summary
}

// GetPoll returns the poll with results recomputed from vote rows. The
// recomputed summary is written back to the poll. requester may be nil.
func (s *Service) GetPoll(ctx context.Context, pollID string, requester *auth.Identity) (models.PollDetail, error) {
	poll, err := loadPoll(ctx, s.db, pollID, "")
	if err != nil {
		return models.PollDetail{}, err
	}
	rs, _, err := s.aggregator.compute(ctx, poll)
	if err != nil {
		return models.PollDetail{}, err
	}
	if err := s.aggregator.persist(ctx, rs); err != nil {
		return models.PollDetail{}, err
	}

	voted := false
	if requester != nil {
		if voted, err = s.recorder.HasVoted(ctx, pollID, requester.ID); err != nil {
			return models.PollDetail{}, err
		}
	}

	return models.PollDetail{
		PollSummary: s.pollSummary(poll, len(rs.Options), rs.TotalVotes, requester, voted, s.cfg.now()),
		Options:     rs.Options,
		Winner:      rs.Winner,
	}, nil
}

// Poll returns the stored poll without touching results.
func (s *Service) Poll(ctx context.Context, pollID string) (models.Poll, error) {
	return loadPoll(ctx, s.db, pollID, "")
}

// DeletePoll removes the poll with its options and votes. Only the creator may delete.
func (s *Service) DeletePoll(ctx context.Context, pollID string, requester *auth.Identity) error {
	poll, err := loadPoll(ctx, s.db, pollID, "")
	if err != nil {
		return err
	}
	if !owns(requester, poll) {
		return ErrNotOwner
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM poll WHERE id = $1`, pollID); err != nil {
		return storageError("delete_poll", err, "poll_id", pollID)
	}

	slog.Info("poll deleted", "poll_id", pollID, "by", requester.ID)
	return nil
}

// CastVote records the requester's vote and returns the refreshed results.
func (s *Service) CastVote(ctx context.Context, pollID string, requester *auth.Identity, req models.CastVoteRequest) (models.CastVoteResponse, error) {
	if requester == nil {
		return models.CastVoteResponse{}, auth.ErrMissingCredentials
	}
	optionID := strings.TrimSpace(req.OptionID)
	if optionID == "" {
		return models.CastVoteResponse{}, invalid("option_id", "is required")
	}

	vote, rs, err := s.recorder.cast(ctx, pollID, optionID, requester.ID)
	if err != nil {
		return models.CastVoteResponse{}, err
	}
	return models.CastVoteResponse{Vote: vote, Results: rs}, nil
}

// Results returns the current tallies for a poll.
func (s *Service) Results(ctx context.Context, pollID string) (models.ResultSet, error) {
	return s.aggregator.ComputeResults(ctx, pollID)
}

// DetailedResults returns tallies with the hourly histogram.
func (s *Service) DetailedResults(ctx context.Context, pollID string) (models.DetailedResults, error) {
	return s.aggregator.Detailed(ctx, pollID)
}

func owns(requester *auth.Identity, poll models.Poll) bool {
	return requester != nil && requester.ID == poll.CreatorID
}
