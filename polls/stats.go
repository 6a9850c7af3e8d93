// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/quickly-vote/models"
)

const (
	rankingSize        = 10
	userTopPollsSize   = 5
	userRecentVotes    = 10
	pollsPerDayHorizon = 30 * 24 * time.Hour
)

// MyVotes lists the voter's votes, newest first.
func (s *Service) MyVotes(ctx context.Context, voterID string, page, limit int) (models.VoteHistory, error) {
	page, limit, offset := pageBounds(page, limit)

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote WHERE voter_id = $1`, voterID).Scan(&total)
	if err != nil {
		return models.VoteHistory{}, storageError("count_votes", err, "voter_id", voterID)
	}

	votes, err := s.listVotes(ctx, voterID, limit, offset)
	if err != nil {
		return models.VoteHistory{}, err
	}

	return models.VoteHistory{Votes: votes, Pagination: pagination(page, limit, total)}, nil
}

func (s *Service) listVotes(ctx context.Context, voterID string, limit, offset int) ([]models.VoteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.poll_id, p.title, p.closes_at, v.option_id, o.label, o.color, v.created_at
		FROM vote v
		JOIN poll p ON p.id = v.poll_id
		JOIN option o ON o.id = v.option_id
		WHERE v.voter_id = $1
		ORDER BY v.id DESC
		LIMIT $2 OFFSET $3
	`, voterID, limit, offset)
	if err != nil {
		return nil, storageError("list_votes", err, "voter_id", voterID)
	}
	defer rows.Close()

	now := s.cfg.now()
	votes := []models.VoteRecord{}
	for rows.Next() {
		var (
			r        models.VoteRecord
			closesAt sql.NullTime
		)
		if err := rows.Scan(&r.VoteID, &r.PollID, &r.PollTitle, &closesAt, &r.OptionID, &r.OptionLabel, &r.OptionColor, &r.VotedAt); err != nil {
			return nil, storageError("list_votes", err, "voter_id", voterID)
		}
		r.VotedAt = r.VotedAt.UTC()
		r.PollClosed = closesAt.Valid && !closesAt.Time.After(now)
		votes = append(votes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list_votes", err, "voter_id", voterID)
	}
	return votes, nil
}

// GeneralStats summarizes activity across all polls.
func (s *Service) GeneralStats(ctx context.Context) (models.GeneralStats, error) {
	var stats models.GeneralStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM poll),
			(SELECT COUNT(*) FROM vote),
			(SELECT COUNT(*) FROM voter)
	`).Scan(&stats.TotalPolls, &stats.TotalVotes, &stats.TotalVoters)
	if err != nil {
		return models.GeneralStats{}, storageError("count_totals", err)
	}

	now := s.cfg.now()
	closed, err := s.countClosed(ctx, now)
	if err != nil {
		return models.GeneralStats{}, err
	}
	stats.ActivePolls = stats.TotalPolls - closed

	if stats.PopularPolls, err = s.rankPolls(ctx, "", nil, "COUNT(v.id) DESC, p.id ASC", rankingSize); err != nil {
		return models.GeneralStats{}, err
	}
	if stats.RecentPolls, err = s.rankPolls(ctx, "", nil, "p.id DESC", rankingSize); err != nil {
		return models.GeneralStats{}, err
	}
	if stats.PollsByDay, err = s.pollsByDay(ctx, now); err != nil {
		return models.GeneralStats{}, err
	}

	return stats, nil
}

// UserSummary summarizes one voter's polls and votes.
func (s *Service) UserSummary(ctx context.Context, voterID string) (models.UserSummary, error) {
	summary := models.UserSummary{VoterID: voterID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM poll WHERE creator_id = $1),
			(SELECT COUNT(*) FROM vote WHERE voter_id = $2)
	`, voterID, voterID).Scan(&summary.PollsCreated, &summary.VotesCast)
	if err != nil {
		return models.UserSummary{}, storageError("count_user_activity", err, "voter_id", voterID)
	}

	summary.TopPolls, err = s.rankPolls(ctx, "WHERE p.creator_id = $1", []any{voterID}, "COUNT(v.id) DESC, p.id ASC", userTopPollsSize)
	if err != nil {
		return models.UserSummary{}, err
	}
	if summary.RecentVotes, err = s.listVotes(ctx, voterID, userRecentVotes, 0); err != nil {
		return models.UserSummary{}, err
	}

	return summary, nil
}

func (s *Service) countClosed(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT closes_at FROM poll WHERE closes_at IS NOT NULL`)
	if err != nil {
		return 0, storageError("count_closed", err)
	}
	defer rows.Close()

	closed := 0
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return 0, storageError("count_closed", err)
		}
		if !t.After(now) {
			closed++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, storageError("count_closed", err)
	}
	return closed, nil
}

// rankPolls lists polls with their vote totals. where and orderBy are
// fixed SQL fragments; values go through args.
func (s *Service) rankPolls(ctx context.Context, where string, args []any, orderBy string, limit int) ([]models.PollRank, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT p.id, p.title, p.closes_at, p.created_at, COUNT(v.id)
		FROM poll p
		LEFT JOIN vote v ON v.poll_id = p.id
		%s
		GROUP BY p.id, p.title, p.closes_at, p.created_at
		ORDER BY %s
		LIMIT %d
	`, where, orderBy, limit), args...)
	if err != nil {
		return nil, storageError("rank_polls", err)
	}
	defer rows.Close()

	now := s.cfg.now()
	ranks := []models.PollRank{}
	for rows.Next() {
		var (
			r        models.PollRank
			closesAt sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Title, &closesAt, &r.CreatedAt, &r.TotalVotes); err != nil {
			return nil, storageError("rank_polls", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		r.Closed = closesAt.Valid && !closesAt.Time.After(now)
		ranks = append(ranks, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("rank_polls", err)
	}
	return ranks, nil
}

// pollsByDay counts polls created in the last 30 days per calendar day.
// Ids are time ordered, so the scan stops at the first older poll.
func (s *Service) pollsByDay(ctx context.Context, now time.Time) ([]models.DayBucket, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT created_at FROM poll ORDER BY id DESC`)
	if err != nil {
		return nil, storageError("polls_by_day", err)
	}
	defer rows.Close()

	since := now.Add(-pollsPerDayHorizon)
	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, storageError("polls_by_day", err)
		}
		if t.Before(since) {
			break
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("polls_by_day", err)
	}
	return bucketByDay(times, s.cfg.Location), nil
}
