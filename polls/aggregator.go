// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/models"
)

// Aggregator derives results from vote rows.
type Aggregator struct {
	db  *db.DB
	cfg Config
}

func NewAggregator(conn *db.DB, cfg Config) *Aggregator {
	return &Aggregator{db: conn, cfg: cfg.withDefaults()}
}

// ComputeResults tallies every option of the poll, including options
// without votes, and buckets votes by calendar day.
func (a *Aggregator) ComputeResults(ctx context.Context, pollID string) (models.ResultSet, error) {
	poll, err := loadPoll(ctx, a.db, pollID, "")
	if err != nil {
		return models.ResultSet{}, err
	}
	rs, _, err := a.compute(ctx, poll)
	return rs, err
}

// Refresh recomputes the results and stores the per-option summary on the poll row.
func (a *Aggregator) Refresh(ctx context.Context, pollID string) (models.ResultSet, error) {
	rs, err := a.ComputeResults(ctx, pollID)
	if err != nil {
		return models.ResultSet{}, err
	}
	if err := a.persist(ctx, rs); err != nil {
		return models.ResultSet{}, err
	}
	return rs, nil
}

// Detailed adds the trailing 24 hour histogram and orders options by votes.
func (a *Aggregator) Detailed(ctx context.Context, pollID string) (models.DetailedResults, error) {
	poll, err := loadPoll(ctx, a.db, pollID, "")
	if err != nil {
		return models.DetailedResults{}, err
	}
	rs, times, err := a.compute(ctx, poll)
	if err != nil {
		return models.DetailedResults{}, err
	}
	if err := a.persist(ctx, rs); err != nil {
		return models.DetailedResults{}, err
	}

	byVotes := make([]models.OptionResult, len(rs.Options))
	copy(byVotes, rs.Options)
	sort.SliceStable(byVotes, func(i, j int) bool {
		if byVotes[i].Votes == byVotes[j].Votes {
			return byVotes[i].OptionID < byVotes[j].OptionID
		}
		return byVotes[i].Votes > byVotes[j].Votes
	})
	rs.Options = byVotes

	return models.DetailedResults{
		ResultSet:   rs,
		VotesByHour: bucketByHour(times, a.cfg.now(), a.cfg.Location),
	}, nil
}

func (a *Aggregator) compute(ctx context.Context, poll models.Poll) (models.ResultSet, []time.Time, error) {
	start := time.Now()
	defer func() { a.cfg.Metrics.ObserveComputeDuration(time.Since(start)) }()

	options, err := tallyOptions(ctx, a.db, poll.ID)
	if err != nil {
		return models.ResultSet{}, nil, err
	}
	times, err := voteTimes(ctx, a.db, poll.ID)
	if err != nil {
		return models.ResultSet{}, nil, err
	}

	total, winner := summarize(options)
	return models.ResultSet{
		PollID:     poll.ID,
		Title:      poll.Title,
		Closed:     poll.Closed(a.cfg.now()),
		TotalVotes: total,
		Options:    options,
		Winner:     winner,
		VotesByDay: bucketByDay(times, a.cfg.Location),
	}, times, nil
}

func (a *Aggregator) persist(ctx context.Context, rs models.ResultSet) error {
	payload, err := json.Marshal(summaryOf(rs))
	if err != nil {
		return storageError("encode_cached_results", err, "poll_id", rs.PollID)
	}
	_, err = a.db.ExecContext(ctx, `UPDATE poll SET cached_results = $1 WHERE id = $2`, string(payload), rs.PollID)
	if err != nil {
		return storageError("store_cached_results", err, "poll_id", rs.PollID)
	}
	return nil
}

// tallyOptions counts votes per option in ascending option id order.
func tallyOptions(ctx context.Context, q queryer, pollID string) ([]models.OptionResult, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT o.id, o.label, o.color, COUNT(v.id)
		FROM option o
		LEFT JOIN vote v ON v.option_id = o.id
		WHERE o.poll_id = $1
		GROUP BY o.id, o.label, o.color
		ORDER BY o.id
	`, pollID)
	if err != nil {
		return nil, storageError("tally_options", err, "poll_id", pollID)
	}
	defer rows.Close()

	options := []models.OptionResult{}
	for rows.Next() {
		var o models.OptionResult
		if err := rows.Scan(&o.OptionID, &o.Label, &o.Color, &o.Votes); err != nil {
			return nil, storageError("tally_options", err, "poll_id", pollID)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("tally_options", err, "poll_id", pollID)
	}
	return options, nil
}

func voteTimes(ctx context.Context, q queryer, pollID string) ([]time.Time, error) {
	rows, err := q.QueryContext(ctx, `SELECT created_at FROM vote WHERE poll_id = $1`, pollID)
	if err != nil {
		return nil, storageError("vote_times", err, "poll_id", pollID)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, storageError("vote_times", err, "poll_id", pollID)
		}
		times = append(times, t.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("vote_times", err, "poll_id", pollID)
	}
	return times, nil
}

// summarize fills in percentages and picks the winner. options must be in
// ascending id order: the first option with the highest count wins ties.
// There is no winner while the poll has no votes.
func summarize(options []models.OptionResult) (int, *models.OptionResult) {
	total := 0
	for _, o := range options {
		total += o.Votes
	}

	var winner *models.OptionResult
	for i := range options {
		options[i].Percentage = percentage(options[i].Votes, total)
		if total > 0 && (winner == nil || options[i].Votes > winner.Votes) {
			w := options[i]
			winner = &w
		}
	}
	return total, winner
}

// percentage is count/total*100 rounded to two decimals.
func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*100*100) / 100
}

func summaryOf(rs models.ResultSet) map[string]models.OptionSummary {
	summary := make(map[string]models.OptionSummary, len(rs.Options))
	for _, o := range rs.Options {
		summary[o.OptionID] = models.OptionSummary{
			Label:      o.Label,
			Votes:      o.Votes,
			Percentage: o.Percentage,
		}
	}
	return summary
}

// bucketByDay counts times per calendar day in loc, oldest first.
func bucketByDay(times []time.Time, loc *time.Location) []models.DayBucket {
	counts := make(map[string]int)
	for _, t := range times {
		counts[t.In(loc).Format(time.DateOnly)]++
	}

	buckets := make([]models.DayBucket, 0, len(counts))
	for day, n := range counts {
		buckets = append(buckets, models.DayBucket{Date: day, Votes: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Date < buckets[j].Date })
	return buckets
}

// bucketByHour counts times in the 24 hours before now by hour of day in loc.
// The window spans parts of two days, so the same hour-of-day from both
// days lands in one bucket.
func bucketByHour(times []time.Time, now time.Time, loc *time.Location) []models.HourBucket {
	since := now.Add(-24 * time.Hour)
	counts := make(map[int]int)
	for _, t := range times {
		if t.Before(since) || t.After(now) {
			continue
		}
		counts[t.In(loc).Hour()]++
	}

	buckets := make([]models.HourBucket, 0, len(counts))
	for hour, n := range counts {
		buckets = append(buckets, models.HourBucket{Hour: hour, Votes: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Hour < buckets[j].Hour })
	return buckets
}
