// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms). Every request gets an X-Request-ID, generated unless the
client sent one.

# Authentication

Authenticator verifies the Authorization: Bearer credential and hands the
identity to an IdentityHandlerFunc:

	a := &middleware.Authenticator{Verifier: verifier, Syncer: svc, Metrics: m}
	mux.HandleFunc("POST /polls", middleware.WithLogging(a.Require(h.CreatePoll)))
	mux.HandleFunc("GET /polls", middleware.WithLogging(a.Optional(h.ListPolls)))

The correlation id sent to the identity provider comes from the unique_id
query parameter, or the X-Unique-ID header.

# Rate Limiting

RateLimiter keeps a token bucket per key. A KeyFunc picks the key:
ByClientIP, ByClientAndIdentity or ByIdentity.

	votes := middleware.NewRateLimiter("votes", 10, 15*time.Minute, middleware.ByClientAndIdentity(proxies), m)
	a.Require(votes.Limit(h.CastVote))

	general := middleware.NewRateLimiter("general", 100, 15*time.Minute, middleware.ByClientIP(proxies), m)
	handler := general.Handler(mux)

Rejected requests get 429 with RATE_LIMIT_EXCEEDED and Retry-After.

# Responses

Every API response is an envelope:

	middleware.DataResponse(w, http.StatusCreated, "Poll created", data)
	middleware.ErrorResponse(w, http.StatusBadRequest, middleware.CodeValidation, "bad input")

WriteError maps service and auth errors to status, code and message:

	if err != nil {
		middleware.WriteError(w, err, cfg.DevMode)
		return
	}

Internal errors only carry their detail in dev mode.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(cfg.CORSOrigin, mux),
	}

# Client IP Extraction

X-Forwarded-For and X-Real-IP are only read when the peer is in the
trusted proxy list; otherwise the peer address is the client:

	proxies := middleware.TrustedProxies(cfg.TrustedProxies)
	ip := middleware.GetClientIP(r, proxies)
*/
package middleware
