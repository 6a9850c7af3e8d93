// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// SSOVerifier checks tokens against the external SSO service.
type SSOVerifier struct {
	baseURL  string
	client   *http.Client
	attempts uint
	delay    time.Duration
}

func NewSSOVerifier(baseURL string, timeout time.Duration) *SSOVerifier {
	return &SSOVerifier{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		attempts: 3,
		delay:    200 * time.Millisecond,
	}
}

// WithRetry overrides the retry policy for transport failures.
func (v *SSOVerifier) WithRetry(attempts uint, delay time.Duration) *SSOVerifier {
	v.attempts = attempts
	v.delay = delay
	return v
}

type ssoResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Valid bool `json:"valid"`
		User  struct {
			ID   flexibleID `json:"id"`
			Name string     `json:"name"`
		} `json:"user"`
	} `json:"data"`
}

type invalidIDError struct{ raw string }

func (e *invalidIDError) Error() string {
	return "user id must be a string or number, got " + e.raw
}

// flexibleID accepts both numeric and string user ids.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	n, ok := v.(json.Number)
	if !ok {
		return &invalidIDError{raw: string(b)}
	}
	*f = flexibleID(n.String())
	return nil
}

// Verify calls GET {base}/auth/verify?unique_id=... with the bearer token.
// Rejections are not retried; transport errors and 5xx responses are.
func (v *SSOVerifier) Verify(ctx context.Context, token, correlationID string) (*Identity, error) {
	if token == "" || correlationID == "" {
		return nil, ErrMissingCredentials
	}

	endpoint := v.baseURL + "/auth/verify?unique_id=" + url.QueryEscape(correlationID)

	var identity *Identity
	err := retry.Do(func() error {
		id, err := v.verifyOnce(ctx, endpoint, token)
		if err != nil {
			return err
		}
		identity = id
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(v.attempts),
		retry.Delay(v.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("identity verification failed, retrying", "attempt", n+1, "max_attempts", v.attempts, "error", err)
		}),
	)
	if err == nil {
		return identity, nil
	}
	if errors.Is(err, ErrInvalidToken) {
		return nil, ErrInvalidToken
	}

	slog.Error("identity provider unreachable", "error", err)
	return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

func (v *SSOVerifier) verifyOnce(ctx context.Context, endpoint, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, retry.Unrecoverable(ErrInvalidToken)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("sso returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Unrecoverable(fmt.Errorf("%w: sso returned %d", ErrInvalidToken, resp.StatusCode))
	}

	var body ssoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		var idErr *invalidIDError
		if errors.As(err, &idErr) {
			return nil, retry.Unrecoverable(fmt.Errorf("%w: %v", ErrInvalidToken, err))
		}
		return nil, fmt.Errorf("decode sso response: %w", err)
	}

	if !body.Success || !body.Data.Valid || body.Data.User.ID == "" {
		return nil, retry.Unrecoverable(ErrInvalidToken)
	}

	return &Identity{
		ID:   string(body.Data.User.ID),
		Name: body.Data.User.Name,
	}, nil
}
