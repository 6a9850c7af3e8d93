// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/danielhkuo/quickly-vote/metrics"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/polls"
	"github.com/danielhkuo/quickly-vote/testutil"
)

// newTestRouter wires a router to a fresh database and a fake identity provider.
func newTestRouter(t *testing.T) (http.Handler, *testutil.FakeVerifier, *metrics.MetricService) {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	m := metrics.NewMetricService()
	svc := polls.NewService(conn, polls.Config{Metrics: m})
	verifier := testutil.NewFakeVerifier()
	return NewRouter(svc, verifier, m, testutil.GetTestConfig()), verifier, m
}

func TestHealthEndpoint(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	expected := "quickly-vote API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux, _, m := newTestRouter(t)
	m.IncPollsCreated()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), metrics.MetricPollsCreated+" 1") {
		t.Errorf("Expected %s in metrics output", metrics.MetricPollsCreated)
	}
}

func TestRouteExistence(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	// 400, 401 and 404 from a handler all prove the route matched
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"GET", "/"},
		{"POST", "/polls"},
		{"GET", "/polls"},
		{"GET", "/polls/test-id"},
		{"DELETE", "/polls/test-id"},
		{"GET", "/polls/test-id/options"},
		{"POST", "/polls/test-id/options"},
		{"PUT", "/polls/test-id/options/opt-id"},
		{"DELETE", "/polls/test-id/options/opt-id"},
		{"POST", "/polls/test-id/votes"},
		{"GET", "/polls/test-id/results"},
		{"GET", "/stats"},
		{"GET", "/stats/polls/test-id"},
		{"GET", "/share/test-id"},
		{"GET", "/me/votes"},
		{"GET", "/me/summary"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s returned 405, expected route handler to exist", tc.method, tc.path)
			}
			if w.Code == http.StatusNotFound && strings.Contains(w.Body.String(), middleware.CodeRouteNotFound) {
				t.Errorf("Route %s %s fell through to the catch-all", tc.method, tc.path)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},
		{"PUT", "/polls/test-id"},
		{"PATCH", "/polls/test-id/options/opt-id"},
		{"DELETE", "/polls/test-id/results"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
			if code := testutil.ErrorCode(t, w); code != middleware.CodeMethodNotAllowed {
				t.Errorf("Expected %s, got %s", middleware.CodeMethodNotAllowed, code)
			}
			if w.Header().Get("Allow") == "" {
				t.Error("Expected an Allow header")
			}
		})
	}
}

func TestMethodNotAllowed_ListsMethods(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("PATCH", "/polls/test-id", nil))

	if got := w.Header().Get("Allow"); got != "GET, DELETE" {
		t.Errorf("Expected Allow 'GET, DELETE', got '%s'", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/nope"},
		{"POST", "/polls/test-id/unknown"},
		{"GET", "/api/polls"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))

			testutil.AssertStatus(t, w, http.StatusNotFound)
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected JSON envelope, got Content-Type '%s'", ct)
			}
			if code := testutil.ErrorCode(t, w); code != middleware.CodeRouteNotFound {
				t.Errorf("Expected %s, got %s", middleware.CodeRouteNotFound, code)
			}
		})
	}
}

func TestGeneralRateLimit(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	m := metrics.NewMetricService()
	svc := polls.NewService(conn, polls.Config{Metrics: m})

	cfg := testutil.GetTestConfig()
	cfg.GeneralLimit = 3
	cfg.GeneralWindow = time.Hour
	mux := NewRouter(svc, testutil.NewFakeVerifier(), m, cfg)

	send := func(remote, forwarded string) int {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		if code := send("198.51.100.1:5000", fmt.Sprintf("203.0.113.%d", i)); code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, code)
		}
	}
	// Rotating X-Forwarded-For from an untrusted peer does not reset the budget
	if code := send("198.51.100.1:5000", "203.0.113.99"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", code)
	}
	if code := send("198.51.100.2:5000", ""); code != http.StatusOK {
		t.Errorf("Expected another address to be allowed, got %d", code)
	}
	if got := promtest.ToFloat64(m.RateLimited("general")); got != 1 {
		t.Errorf("Expected 1 general rejection, got %v", got)
	}
}

func TestAuthRequiredRoutes(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/polls"},
		{"DELETE", "/polls/test-id"},
		{"POST", "/polls/test-id/options"},
		{"PUT", "/polls/test-id/options/opt-id"},
		{"DELETE", "/polls/test-id/options/opt-id"},
		{"POST", "/polls/test-id/votes"},
		{"GET", "/me/votes"},
		{"GET", "/me/summary"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			testutil.AssertStatus(t, w, http.StatusUnauthorized)
			if code := testutil.ErrorCode(t, w); code != "MISSING_TOKEN" {
				t.Errorf("Expected MISSING_TOKEN, got %s", code)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := httptest.NewRequest("OPTIONS", "/polls/test-id/votes", nil)
	req.Header.Set("Origin", "https://vote.example.com")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected configured origin '*', got '%s'", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
