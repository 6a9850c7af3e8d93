// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/db"
)

// TestDBEnv names a PostgreSQL URL to run the suite against instead of SQLite.
const TestDBEnv = "TEST_DATABASE_URL"

// SetupTestDB creates a fresh test database with the full schema.
// Each test gets its own SQLite file unless TEST_DATABASE_URL is set.
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()

	var (
		conn *db.DB
		err  error
	)
	if url := os.Getenv(TestDBEnv); url != "" {
		conn, err = db.Open(ctx, db.Postgres, url)
		if err != nil {
			t.Fatalf("Failed to open test database: %v", err)
		}
		// Clean up tables before each test
		if err := db.DropSchema(ctx, conn); err != nil {
			t.Fatalf("Failed to clean database: %v", err)
		}
	} else {
		conn, err = db.Open(ctx, db.SQLite, filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("Failed to open test database: %v", err)
		}
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(ctx, conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:             3318,
		DatabaseURL:      "file:test.db",
		DatabaseType:     cliparse.DatabaseSQLite,
		AuthMode:         cliparse.AuthModeJWT,
		JWTSecret:        "test-secret",
		Timezone:         "UTC",
		CORSOrigin:       "*",
		VoteLimit:        100,
		VoteWindow:       time.Minute,
		CreateLimit:      100,
		CreateWindow:     time.Minute,
		GeneralLimit:     10000,
		GeneralWindow:    time.Minute,
		ShareRedirectURL: "http://localhost:3000",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// NewID returns a time-ordered id like the ones the service assigns.
func NewID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("Failed to generate id: %v", err)
	}
	return id.String()
}

// CreateTestPoll inserts a poll owned by creatorID and returns its id.
// closesAt may be nil (never closes) or in the past (already closed).
func CreateTestPoll(t *testing.T, conn *db.DB, creatorID string, closesAt *time.Time) string {
	t.Helper()

	pollID := NewID(t)
	var closes sql.NullTime
	if closesAt != nil {
		closes = sql.NullTime{Time: closesAt.UTC(), Valid: true}
	}
	_, err := conn.Exec(`
		INSERT INTO poll (id, title, description, creator_id, closes_at, cached_results, created_at)
		VALUES ($1, 'Test Poll', 'A test poll', $2, $3, '{}', $4)
	`, pollID, creatorID, closes, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return pollID
}

// AddTestOption adds an option to a poll and returns the option ID
func AddTestOption(t *testing.T, conn *db.DB, pollID, label string) string {
	t.Helper()

	optionID := NewID(t)
	_, err := conn.Exec(`
		INSERT INTO option (id, poll_id, label, color, created_at)
		VALUES ($1, $2, $3, '#007bff', $4)
	`, optionID, pollID, label, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}

	return optionID
}

// CastTestVote inserts a vote directly, bypassing the recorder.
func CastTestVote(t *testing.T, conn *db.DB, pollID, optionID, voterID string, at time.Time) string {
	t.Helper()

	voteID := NewID(t)
	_, err := conn.Exec(`
		INSERT INTO vote (id, poll_id, option_id, voter_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voteID, pollID, optionID, voterID, at.UTC())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}

	return voteID
}

// FakeVerifier accepts tokens registered with Add.
type FakeVerifier struct {
	mu     sync.Mutex
	tokens map[string]auth.Identity
	// Err, when set, is returned for every call.
	Err error
}

func NewFakeVerifier() *FakeVerifier {
	return &FakeVerifier{tokens: make(map[string]auth.Identity)}
}

// Add registers token for identity and returns the Authorization header value.
func (f *FakeVerifier) Add(token string, identity auth.Identity) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = identity
	return "Bearer " + token
}

func (f *FakeVerifier) Verify(_ context.Context, token, _ string) (*auth.Identity, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if token == "" {
		return nil, auth.ErrMissingCredentials
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &id, nil
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeData decodes the data field of an envelope response into v.
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
	if !env.Success {
		t.Fatalf("Expected success envelope, got: %s", w.Body.String())
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("Failed to decode envelope data: %v", err)
	}
}

// ErrorCode decodes an error envelope and returns its error code.
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
	if env.Success {
		t.Fatalf("Expected error envelope, got: %s", w.Body.String())
	}
	return env.Error
}
