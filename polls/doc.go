// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package polls implements polls, options, votes and result aggregation.

# Service

Service is the only type the HTTP layer talks to:

	svc := polls.NewService(conn, polls.Config{
		Location: loc,
		Metrics:  metricService,
	})

Every method that acts for a user takes the verified *auth.Identity. A nil
identity means an anonymous request; reads accept it, writes reject it.

# Components

  - Recorder: casts votes and answers "has this voter voted"
  - Aggregator: counts votes, computes percentages and the winner, and
    writes the summary back to the poll row

The Service owns one of each; Recorder() and Aggregator() expose them.

# Casting a Vote

A vote is checked and inserted inside one transaction, in this order:

 1. poll exists (ErrPollNotFound)
 2. poll is open (ErrPollClosed)
 3. option belongs to the poll (ErrOptionNotFound)
 4. voter has not voted (ErrAlreadyVoted)

The UNIQUE (poll_id, voter_id) constraint catches racing duplicates that
slip past step 4; they are reported as ErrAlreadyVoted as well.

After commit the cached summary is refreshed. A failed refresh is logged
and counted but the vote stands.

# Results

	rs, err := svc.Results(ctx, pollID)

Percentages are rounded to two decimals. The winner is the option with the
most votes; ties go to the earliest option. A poll with no votes has no
winner. Daily buckets use Config.Location.

DetailedResults adds an hour-of-day histogram over the last 24 hours and
orders options by votes.

# Options

AddOption, UpdateOption and DeleteOption lock the poll row, then check
ownership and that the poll is open. A poll holds between MinOptions and
MaxOptions options. Deleting an option deletes its votes.

# Errors

KindOf maps any returned error to a Kind (NotFound, Unauthorized,
Conflict, Validation, Storage) for the transport layer. Storage failures
are logged where they happen and returned as *StorageError.
*/
package polls
