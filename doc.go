// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Vote API server.

Quickly Vote is a single-choice polling service. Users sign in through an
external identity provider, create polls with 2 to 10 options and an
optional close time, and vote once per poll. Results are tallied from the
vote rows and cached on the poll.

# Starting the Server

The server reads CLI flags, then environment variables, then a .env file:

	DATABASE_URL=quickly-vote.db SSO_SERVICE_URL=https://sso.example.com go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --auth-mode jwt

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file or PostgreSQL connection string
  - SSO_SERVICE_URL (--sso-url): identity provider, in sso mode
  - JWT_SECRET (--jwt-secret): HS256 secret, in jwt mode

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - TIMEZONE: zone for daily and hourly vote buckets (default: UTC)
  - LOG_LEVEL, LOG_FORMAT: slog level and text/json output

See package cliparse for the full list.

# Architecture

  - polls: Poll store, vote recorder, result aggregator, statistics
  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: Logging, CORS, identity, rate limiting, JSON envelopes
  - auth: SSO and JWT identity verification
  - metrics: Prometheus counters served on /metrics
  - models: Request/response types
  - db: Connections and schema for SQLite and PostgreSQL
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
