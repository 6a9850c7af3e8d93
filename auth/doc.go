// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth verifies caller identity against an external provider.

Users are never stored with credentials here. Each request carries a
bearer token and a client correlation id, and a Verifier turns them into
an Identity:

	id, err := verifier.Verify(ctx, token, correlationID)

# SSO

SSOVerifier calls the SSO service:

	GET {base}/auth/verify?unique_id={correlationID}
	Authorization: Bearer {token}

and expects

	{"success": true, "data": {"valid": true, "user": {"id": 42, "name": "Ada"}}}

The user id may be a number or a string. Transport errors and 5xx
responses are retried a few times with a fixed delay (retry-go). A 401/403
or valid=false is returned immediately as ErrInvalidToken. When retries run
out the error wraps ErrProviderUnavailable.

# JWT

JWTVerifier validates HS256 tokens with a shared secret for deployments
without an SSO service. The subject claim is the user id and the name
claim is the display name.

# Errors

  - ErrMissingCredentials: no token (or no correlation id for SSO)
  - ErrInvalidToken: the provider rejected the token
  - ErrProviderUnavailable: the provider could not be reached

ParseBearer extracts the token from an Authorization header.
*/
package auth
