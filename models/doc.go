// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: title, description, closes_at, options
  - AddOptionRequest: label, color
  - UpdateOptionRequest: optional label and color
  - CastVoteRequest: option_id
  - ListPollsFilter: search, mine, page, limit (from the query string)

# Response Types

Every response is wrapped in an Envelope:

	{"success": true, "data": {...}}
	{"success": false, "message": "Poll not found", "error": "POLL_NOT_FOUND"}

Payloads:

  - CreatePollResponse: poll and its options
  - PollList: poll summaries plus pagination
  - PollDetail: summary, per-option results, winner
  - OptionList: options with counts and percentages
  - CastVoteResponse: the stored vote and refreshed results
  - ResultSet / DetailedResults: tallies and histograms
  - VoteHistory: a voter's past votes
  - GeneralStats / UserSummary: dashboards

# Domain Types

  - Poll: metadata, optional close time, cached summary
  - Option: label and color
  - Vote: one per voter per poll
  - Voter: identity mirrored from the identity provider

A poll is closed once closes_at is at or before the current time:

	if poll.Closed(time.Now()) { ... }

# Constants

	DefaultOptionColor = "#007bff"
	MinOptions         = 2
	MaxOptions         = 10
*/
package models
