// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrMissingCredentials  = errors.New("missing credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Identity is a verified user as reported by the identity provider.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Verifier resolves a bearer credential to an Identity.
// correlationID is the client-supplied id forwarded to the provider.
type Verifier interface {
	Verify(ctx context.Context, token, correlationID string) (*Identity, error)
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredentials
	}
	return token, nil
}
