// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database connection and creates the schema.

# Connections

Open selects the driver from the dialect:

	conn, err := db.Open(ctx, db.SQLite, "quickly-vote.db")
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

PostgreSQL uses lib/pq. SQLite uses the pure Go modernc.org/sqlite driver
with foreign keys enabled and a single open connection, so writers are
serialized and cascades fire.

Both engines accept $N placeholders, so queries are shared. Row locks are
dialect specific; append Dialect.LockClause to SELECTs that must lock.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - poll: Poll metadata, optional close time, cached result summary
  - option: Voting options per poll (label and color)
  - voter: Users mirrored from the identity provider
  - vote: One vote per voter per poll

# Relationships

	poll 1──* option
	poll 1──* vote
	option 1──* vote

Foreign keys use ON DELETE CASCADE. Votes and polls reference voters by
id only; voter rows are a display cache, not an owner.

# Constraint Errors

UNIQUE (poll_id, voter_id) on vote is the final guard against double
voting. IsUniqueViolation recognizes the failure from either driver.
*/
package db
