// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/metrics"
	"github.com/danielhkuo/quickly-vote/polls"
	"github.com/danielhkuo/quickly-vote/testutil"
)

type recordingSyncer struct {
	seen []string
	err  error
}

func (s *recordingSyncer) EnsureVoter(_ context.Context, identity *auth.Identity) error {
	s.seen = append(s.seen, identity.ID)
	return s.err
}

// capture returns a handler that stores the identity it was called with.
func capture(called *bool, got **auth.Identity) IdentityHandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		*called = true
		*got = identity
		w.WriteHeader(http.StatusOK)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{polls.ErrPollNotFound, http.StatusNotFound, CodePollNotFound},
		{polls.ErrOptionNotFound, http.StatusNotFound, CodeOptionNotFound},
		{polls.ErrNotOwner, http.StatusForbidden, CodeNotPollOwner},
		{polls.ErrAlreadyVoted, http.StatusConflict, CodeAlreadyVoted},
		{polls.ErrPollClosed, http.StatusConflict, CodePollClosed},
		{polls.ErrTooManyOptions, http.StatusBadRequest, CodeMaxOptions},
		{polls.ErrTooFewOptions, http.StatusBadRequest, CodeMinOptions},
		{&polls.ValidationError{Field: "title", Message: "too short"}, http.StatusBadRequest, CodeValidation},
		{&polls.StorageError{Op: "insert_vote", Err: errors.New("disk full")}, http.StatusInternalServerError, CodeInternal},
		{auth.ErrMissingCredentials, http.StatusUnauthorized, CodeMissingToken},
		{auth.ErrInvalidToken, http.StatusUnauthorized, CodeInvalidToken},
		{fmt.Errorf("%w: timeout", auth.ErrProviderUnavailable), http.StatusServiceUnavailable, CodeAuthUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code, message := Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, message)
		})
	}
}

func TestWriteError_DetailOnlyInDevMode(t *testing.T) {
	storageErr := &polls.StorageError{Op: "insert_vote", Err: errors.New("disk full")}

	w := httptest.NewRecorder()
	WriteError(w, storageErr, false)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")

	w = httptest.NewRecorder()
	WriteError(w, storageErr, true)
	assert.Contains(t, w.Body.String(), "disk full")

	w = httptest.NewRecorder()
	WriteError(w, &polls.ValidationError{Field: "title", Message: "too short"}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "title: too short")
}

func TestAuthenticator_Require(t *testing.T) {
	verifier := testutil.NewFakeVerifier()
	header := verifier.Add("good-token", auth.Identity{ID: "u1", Name: "User One"})

	tests := []struct {
		name       string
		header     string
		verifyErr  error
		wantStatus int
		wantCode   string
		outcome    string
	}{
		{"valid token", header, nil, http.StatusOK, "", metrics.OutcomeValid},
		{"no header", "", nil, http.StatusUnauthorized, CodeMissingToken, ""},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized, CodeInvalidToken, ""},
		{"unknown token", "Bearer nope", nil, http.StatusUnauthorized, CodeInvalidToken, metrics.OutcomeInvalid},
		{"provider down", header, auth.ErrProviderUnavailable, http.StatusServiceUnavailable, CodeAuthUnavailable, metrics.OutcomeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier.Err = tt.verifyErr
			m := metrics.NewMetricService()
			syncer := &recordingSyncer{}
			a := &Authenticator{Verifier: verifier, Syncer: syncer, Metrics: m}

			var (
				called bool
				got    *auth.Identity
			)
			req := httptest.NewRequest("POST", "/polls?unique_id=abc", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			a.Require(capture(&called, &got))(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.False(t, called)
				assert.Equal(t, tt.wantCode, testutil.ErrorCode(t, w))
				assert.Empty(t, syncer.seen)
			} else {
				require.True(t, called)
				require.NotNil(t, got)
				assert.Equal(t, "u1", got.ID)
				assert.Equal(t, []string{"u1"}, syncer.seen)
			}
			if tt.outcome != "" {
				assert.Equal(t, float64(1), promtest.ToFloat64(m.IdentityVerifications(tt.outcome)))
			}
		})
	}
	verifier.Err = nil
}

func TestAuthenticator_Optional(t *testing.T) {
	verifier := testutil.NewFakeVerifier()
	header := verifier.Add("good-token", auth.Identity{ID: "u1", Name: "User One"})
	a := &Authenticator{Verifier: verifier}

	tests := []struct {
		name   string
		header string
		wantID string
	}{
		{"anonymous", "", ""},
		{"valid token", header, "u1"},
		{"bad token continues anonymously", "Bearer nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				called bool
				got    *auth.Identity
			)
			req := httptest.NewRequest("GET", "/polls", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			a.Optional(capture(&called, &got))(w, req)

			require.True(t, called)
			assert.Equal(t, http.StatusOK, w.Code)
			if tt.wantID == "" {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}

func TestAuthenticator_SyncFailureDoesNotBlock(t *testing.T) {
	verifier := testutil.NewFakeVerifier()
	header := verifier.Add("t", auth.Identity{ID: "u1"})
	a := &Authenticator{Verifier: verifier, Syncer: &recordingSyncer{err: errors.New("db down")}}

	var (
		called bool
		got    *auth.Identity
	)
	req := httptest.NewRequest("POST", "/polls", nil)
	req.Header.Set("Authorization", header)
	w := httptest.NewRecorder()

	a.Require(capture(&called, &got))(w, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}

type correlationVerifier struct{ got string }

func (v *correlationVerifier) Verify(_ context.Context, _, correlationID string) (*auth.Identity, error) {
	v.got = correlationID
	return &auth.Identity{ID: "u1"}, nil
}

func TestAuthenticator_CorrelationID(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{"query parameter", "/polls?unique_id=from-query", "", "from-query"},
		{"header", "/polls", "from-header", "from-header"},
		{"query wins", "/polls?unique_id=from-query", "from-header", "from-query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &correlationVerifier{}
			a := &Authenticator{Verifier: v}

			req := httptest.NewRequest("GET", tt.target, nil)
			req.Header.Set("Authorization", "Bearer t")
			if tt.header != "" {
				req.Header.Set(CorrelationHeader, tt.header)
			}

			a.Require(func(http.ResponseWriter, *http.Request, *auth.Identity) {})(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, v.got)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	m := metrics.NewMetricService()
	limiter := NewRateLimiter("votes", 3, time.Minute, ByClientAndIdentity(nil), m)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	handler := limiter.Limit(func(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
		w.WriteHeader(http.StatusCreated)
	})

	send := func(ip string, identity *auth.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/polls/p1/votes", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		handler(w, req, identity)
		return w
	}

	u1 := &auth.Identity{ID: "u1"}
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, send("10.0.0.1", u1).Code, "request %d", i)
	}

	w := send("10.0.0.1", u1)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, CodeRateLimitExceeded, testutil.ErrorCode(t, w))
	assert.Equal(t, "20", w.Header().Get("Retry-After"))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.RateLimited("votes")))

	// Other identities and other addresses have their own buckets
	assert.Equal(t, http.StatusCreated, send("10.0.0.1", &auth.Identity{ID: "u2"}).Code)
	assert.Equal(t, http.StatusCreated, send("10.0.0.2", u1).Code)

	// One token refills after window/max
	now = now.Add(20 * time.Second)
	assert.Equal(t, http.StatusCreated, send("10.0.0.1", u1).Code)
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1", u1).Code)
}

func TestRateLimiter_SweepsIdleKeys(t *testing.T) {
	limiter := NewRateLimiter("create", 1, time.Minute, nil, nil)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))
	assert.False(t, limiter.Allow("a"))

	now = now.Add(2 * time.Minute)
	assert.True(t, limiter.Allow("c"))

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.entries, 1)
}

func TestRateLimiter_ForwardedHeadersCannotMintBuckets(t *testing.T) {
	u1 := &auth.Identity{ID: "u1"}

	tests := []struct {
		name string
		key  KeyFunc
	}{
		{"identity", ByIdentity(nil)},
		{"client and identity", ByClientAndIdentity(nil)},
		{"client", ByClientIP(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewRateLimiter("create_poll", 2, time.Hour, tt.key, nil)
			handler := limiter.Limit(func(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
				w.WriteHeader(http.StatusCreated)
			})

			allowed := 0
			for i := 0; i < 20; i++ {
				req := httptest.NewRequest("POST", "/polls", nil)
				req.RemoteAddr = "198.51.100.7:4000"
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
				req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
				w := httptest.NewRecorder()
				handler(w, req, u1)
				if w.Code == http.StatusCreated {
					allowed++
				}
			}
			assert.Equal(t, 2, allowed)
		})
	}
}

func TestRateLimiter_IdentityKeyIgnoresAddress(t *testing.T) {
	limiter := NewRateLimiter("create_poll", 1, time.Hour, ByIdentity(nil), nil)
	handler := limiter.Limit(func(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
		w.WriteHeader(http.StatusCreated)
	})

	send := func(remote string, identity *auth.Identity) int {
		req := httptest.NewRequest("POST", "/polls", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		handler(w, req, identity)
		return w.Code
	}

	u1 := &auth.Identity{ID: "u1"}
	assert.Equal(t, http.StatusCreated, send("198.51.100.1:1", u1))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.2:1", u1), "a new address is the same identity")
	assert.Equal(t, http.StatusCreated, send("198.51.100.1:1", &auth.Identity{ID: "u2"}))
}

func TestRateLimiter_TrustedProxyForwardsClient(t *testing.T) {
	trusted := TrustedProxies{netip.MustParsePrefix("10.0.0.0/8")}
	limiter := NewRateLimiter("general", 1, time.Hour, ByClientIP(trusted), nil)
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.0.0.2:443"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.1").Code)
	assert.Equal(t, http.StatusOK, send("203.0.113.2").Code, "clients behind the proxy have their own buckets")

	w := send("203.0.113.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, CodeRateLimitExceeded, testutil.ErrorCode(t, w))
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
}
