// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, conn *DB) error {
	_, err := conn.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Timestamps are written by the application in UTC so the same DDL runs on
// both PostgreSQL and SQLite.
const schema = `
-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    creator_id TEXT NOT NULL,
    closes_at TIMESTAMP,
    cached_results TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_creator_id ON poll(creator_id);

-- Options
CREATE TABLE IF NOT EXISTS option (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    label TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '#007bff',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_option_poll_id ON option(poll_id);

-- Voters mirrored from the identity provider
CREATE TABLE IF NOT EXISTS voter (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    last_seen_at TIMESTAMP NOT NULL
);

-- Votes
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES option(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (poll_id, voter_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_option_id ON vote(option_id);
CREATE INDEX IF NOT EXISTS idx_vote_voter_id ON vote(voter_id);
`

// DropSchema removes every table. Used by tests running against a shared
// PostgreSQL database.
func DropSchema(ctx context.Context, conn *DB) error {
	_, err := conn.ExecContext(ctx, `
		DROP TABLE IF EXISTS vote;
		DROP TABLE IF EXISTS voter;
		DROP TABLE IF EXISTS option;
		DROP TABLE IF EXISTS poll;
	`)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}
