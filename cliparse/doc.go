// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded first, if present. It never
overrides variables already set in the environment.

# CLI Flags and Environment Variables

	-p, --port           PORT                      3318
	-d, --database-url   DATABASE_URL              required
	-t, --database-type  DATABASE_TYPE             sqlite
	--auth-mode          AUTH_MODE                 sso
	--sso-url            SSO_SERVICE_URL           required in sso mode
	--sso-timeout        SSO_TIMEOUT               5s
	--jwt-secret         JWT_SECRET                required in jwt mode
	--timezone           TIMEZONE                  UTC
	--cors-origin        CORS_ORIGIN               *
	--dev                DEV_MODE                  false
	--vote-limit         RATE_LIMIT_MAX_REQUESTS   10
	--vote-window        RATE_LIMIT_WINDOW         15m
	--create-limit       CREATE_POLL_LIMIT         5
	--create-window      CREATE_POLL_WINDOW        1h
	--general-limit      GENERAL_RATE_LIMIT        100
	--general-window     GENERAL_RATE_WINDOW       15m
	--trusted-proxies    TRUSTED_PROXIES           none (IPs or CIDRs)
	--public-url         PUBLIC_BASE_URL           ""
	--share-redirect-url SHARE_REDIRECT_URL        http://localhost:3000
	--log-level          LOG_LEVEL                 info
	--log-format         LOG_FORMAT                text

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error when:

  - no database URL is given
  - the database type is not sqlite or postgres
  - the auth mode is missing its URL or secret
  - the timezone is not a known IANA zone
  - a numeric or duration variable does not parse
  - a trusted proxy is not an IP address or CIDR prefix

# Example

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	conn, err := db.Open(ctx, db.Dialect(cfg.DatabaseType), cfg.DatabaseURL)
	// ...
	handler := router.NewRouter(svc, verifier, metricService, cfg)
*/
package cliparse
