// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Vote API.

# Route Registration

NewRouter builds the handlers, registers every endpoint on an
http.ServeMux and wraps it with the general rate limit and CORS:

	handler := router.NewRouter(svc, verifier, metricService, cfg)

# Endpoints

Operational:

	GET /        - API banner
	GET /health
	GET /metrics

Polls (auth optional for reads):

	POST   /polls       - Create poll (auth, rate-limited)
	GET    /polls       - List polls (?page, limit, search, mine)
	GET    /polls/{id}  - Poll with results
	DELETE /polls/{id}  - Delete poll (creator)

Options:

	GET    /polls/{id}/options            - List options with counts
	POST   /polls/{id}/options            - Add option (creator)
	PUT    /polls/{id}/options/{optionId} - Update label/color (creator)
	DELETE /polls/{id}/options/{optionId} - Delete option (creator)

Voting and results:

	POST /polls/{id}/votes   - Cast vote (auth, rate-limited)
	GET  /polls/{id}/results - Current results

Link previews:

	GET /share/{id} - HTML page with OpenGraph tags, redirects to the frontend

Statistics:

	GET /stats            - Site totals and rankings
	GET /stats/polls/{id} - Per-poll daily and hourly breakdown
	GET /me/votes         - Requester's vote history (auth)
	GET /me/summary       - Requester's activity summary (auth)

Every API route is wrapped with middleware.WithLogging. Requests no route
claims get a ROUTE_NOT_FOUND or METHOD_NOT_ALLOWED envelope.

# Rate Limits

	general      every request, per client IP
	create_poll  POST /polls, per identity
	votes        POST /polls/{id}/votes, per client IP and identity
*/
package router
