// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/metrics"
)

// CorrelationHeader is the header alternative to the unique_id query parameter.
const CorrelationHeader = "X-Unique-ID"

// IdentityHandlerFunc is a handler that receives the verified requester.
// identity is nil for anonymous requests on optional routes.
type IdentityHandlerFunc func(w http.ResponseWriter, r *http.Request, identity *auth.Identity)

// VoterSyncer records verified identities locally.
type VoterSyncer interface {
	EnsureVoter(ctx context.Context, identity *auth.Identity) error
}

// Authenticator verifies bearer credentials for handlers.
type Authenticator struct {
	Verifier auth.Verifier
	Syncer   VoterSyncer
	Metrics  *metrics.MetricService
	Dev      bool
}

// Require rejects requests without a valid credential.
func (a *Authenticator) Require(next IdentityHandlerFunc) http.HandlerFunc {
	return a.withIdentity(true, next)
}

// Optional verifies a credential when one is sent. Requests without one,
// or with one that fails verification, continue anonymously.
func (a *Authenticator) Optional(next IdentityHandlerFunc) http.HandlerFunc {
	return a.withIdentity(false, next)
}

func (a *Authenticator) withIdentity(required bool, next IdentityHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" && !required {
			next(w, r, nil)
			return
		}

		identity, err := a.verify(r, header)
		if err != nil {
			if required {
				WriteError(w, err, a.Dev)
				return
			}
			slog.Debug("optional credential rejected", "path", r.URL.Path, "error", err)
			next(w, r, nil)
			return
		}

		if a.Syncer != nil {
			if err := a.Syncer.EnsureVoter(r.Context(), identity); err != nil {
				slog.Warn("failed to record voter", "voter_id", identity.ID, "error", err)
			}
		}

		next(w, r, identity)
	}
}

func (a *Authenticator) verify(r *http.Request, header string) (*auth.Identity, error) {
	token, err := auth.ParseBearer(header)
	if err != nil {
		return nil, err
	}

	correlationID := r.URL.Query().Get("unique_id")
	if correlationID == "" {
		correlationID = r.Header.Get(CorrelationHeader)
	}

	identity, err := a.Verifier.Verify(r.Context(), token, correlationID)
	switch {
	case err == nil:
		a.Metrics.IncIdentityVerifications(metrics.OutcomeValid)
	case errors.Is(err, auth.ErrProviderUnavailable):
		a.Metrics.IncIdentityVerifications(metrics.OutcomeUnavailable)
		slog.Error("identity provider unavailable", "path", r.URL.Path, "error", err)
	default:
		a.Metrics.IncIdentityVerifications(metrics.OutcomeInvalid)
	}
	return identity, err
}
