// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quickly Vote API.

# Handler Types

Each handler is a struct holding the poll service and config:

  - PollHandler: Poll and option management
  - VotingHandler: Casting votes and the requester's vote history
  - ResultsHandler: Current poll results
  - StatsHandler: Site-wide, per-poll and per-user statistics
  - ShareHandler: HTML link-preview pages for social sharing

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(svc, cfg)

# Identity

Handlers that act for a user have the middleware.IdentityHandlerFunc
signature and receive the verified *auth.Identity. On optional routes the
identity is nil for anonymous callers.

	POST   /polls                      → CreatePoll
	GET    /polls                      → ListPolls (page, limit, search, mine)
	GET    /polls/{id}                 → GetPoll
	DELETE /polls/{id}                 → DeletePoll (creator only)
	POST   /polls/{id}/options         → AddOption (creator only)
	PUT    /polls/{id}/options/{optionId} → UpdateOption (creator only)
	DELETE /polls/{id}/options/{optionId} → DeleteOption (creator only)
	POST   /polls/{id}/votes           → CastVote
	GET    /me/votes                   → MyVotes
	GET    /me/summary                 → UserSummary

Public handlers use the plain http.HandlerFunc signature:

	GET /polls/{id}/options → ListOptions
	GET /polls/{id}/results → GetResults
	GET /stats              → General
	GET /stats/polls/{id}   → PollDetail

# Responses

Successful responses are wrapped in {"success": true, "data": ...}.
Errors go through middleware.WriteError, which picks the status and error
code from the service error.
*/
package handlers
