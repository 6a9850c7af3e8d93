// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/polls"
	"github.com/danielhkuo/quickly-vote/testutil"
)

var (
	owner = &auth.Identity{ID: "owner-1", Name: "Owner"}
	voter = &auth.Identity{ID: "voter-1", Name: "Voter"}
)

// setupHandlers returns a service on a fresh database and the test config.
func setupHandlers(t *testing.T) (*polls.Service, *db.DB, cliparse.Config) {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	return polls.NewService(conn, polls.Config{}), conn, testutil.GetTestConfig()
}

// createPollVia creates a poll through the handler and returns the response data.
func createPollVia(t *testing.T, h *PollHandler, by *auth.Identity, req models.CreatePollRequest) models.CreatePollResponse {
	t.Helper()
	w := httptest.NewRecorder()
	h.CreatePoll(w, testutil.MakeRequest("POST", "/polls", req, nil), by)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreatePollResponse
	testutil.DecodeData(t, w, &resp)
	return resp
}

func sampleCreate(title string) models.CreatePollRequest {
	return models.CreatePollRequest{
		Title:   title,
		Options: []models.OptionInput{{Label: "Pizza"}, {Label: "Tacos", Color: "#ff8800"}},
	}
}

func TestCreatePoll(t *testing.T) {
	svc, _, cfg := setupHandlers(t)
	handler := NewPollHandler(svc, cfg)

	testCases := []struct {
		name           string
		body           interface{}
		identity       *auth.Identity
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "valid poll",
			body:           sampleCreate("Team lunch"),
			identity:       owner,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "short title",
			body:           sampleCreate("ab"),
			identity:       owner,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   middleware.CodeValidation,
		},
		{
			name: "single option",
			body: models.CreatePollRequest{
				Title:   "Only one",
				Options: []models.OptionInput{{Label: "A"}},
			},
			identity:       owner,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   middleware.CodeMinOptions,
		},
		{
			name: "closes in the past",
			body: models.CreatePollRequest{
				Title:    "Too late",
				ClosesAt: time.Now().Add(-time.Hour).Format(time.RFC3339),
				Options:  []models.OptionInput{{Label: "A"}, {Label: "B"}},
			},
			identity:       owner,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   middleware.CodeValidation,
		},
		{
			name:           "invalid JSON",
			body:           "not an object",
			identity:       owner,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   middleware.CodeValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/polls", tc.body, nil)
			w := httptest.NewRecorder()

			handler.CreatePoll(w, req, tc.identity)

			testutil.AssertStatus(t, w, tc.expectedStatus)

			if tc.expectedCode != "" {
				if code := testutil.ErrorCode(t, w); code != tc.expectedCode {
					t.Errorf("Expected error code %s, got %s", tc.expectedCode, code)
				}
				return
			}

			var resp models.CreatePollResponse
			testutil.DecodeData(t, w, &resp)
			if resp.Poll.ID == "" {
				t.Error("Expected poll ID in response")
			}
			if resp.Poll.CreatorID != owner.ID {
				t.Errorf("Expected creator %s, got %s", owner.ID, resp.Poll.CreatorID)
			}
			if len(resp.Options) != 2 {
				t.Fatalf("Expected 2 options, got %d", len(resp.Options))
			}
			if resp.Options[0].Color != models.DefaultOptionColor {
				t.Errorf("Expected default color, got %s", resp.Options[0].Color)
			}
		})
	}
}

func TestListPolls(t *testing.T) {
	svc, _, cfg := setupHandlers(t)
	handler := NewPollHandler(svc, cfg)

	createPollVia(t, handler, owner, sampleCreate("Team lunch"))
	createPollVia(t, handler, owner, sampleCreate("Offsite venue"))
	createPollVia(t, handler, voter, sampleCreate("Lunch on Friday"))

	testCases := []struct {
		name          string
		query         string
		identity      *auth.Identity
		expectedTotal int
		expectedPage  int
	}{
		{"all polls", "", nil, 3, 1},
		{"search is case-insensitive", "?search=LUNCH", nil, 2, 1},
		{"mine", "?mine=true", owner, 2, 1},
		{"mine anonymously is empty", "?mine=true", nil, 0, 1},
		{"paging", "?page=2&limit=2", nil, 3, 2},
		{"malformed paging falls back", "?page=abc&limit=-5", nil, 3, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/polls"+tc.query, nil)
			w := httptest.NewRecorder()

			handler.ListPolls(w, req, tc.identity)

			testutil.AssertStatus(t, w, http.StatusOK)

			var list models.PollList
			testutil.DecodeData(t, w, &list)
			if list.Pagination.Total != tc.expectedTotal {
				t.Errorf("Expected total %d, got %d", tc.expectedTotal, list.Pagination.Total)
			}
			if list.Pagination.Page != tc.expectedPage {
				t.Errorf("Expected page %d, got %d", tc.expectedPage, list.Pagination.Page)
			}
		})
	}
}

func TestGetPoll(t *testing.T) {
	svc, _, cfg := setupHandlers(t)
	handler := NewPollHandler(svc, cfg)
	created := createPollVia(t, handler, owner, sampleCreate("Team lunch"))

	t.Run("owner view", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls/"+created.Poll.ID, nil)
		req.SetPathValue("id", created.Poll.ID)
		w := httptest.NewRecorder()

		handler.GetPoll(w, req, owner)

		testutil.AssertStatus(t, w, http.StatusOK)
		var detail models.PollDetail
		testutil.DecodeData(t, w, &detail)
		if !detail.IsOwner || !detail.CanVote {
			t.Errorf("Expected owner to be able to vote, got %+v", detail.PollSummary)
		}
		if len(detail.Options) != 2 {
			t.Errorf("Expected 2 options, got %d", len(detail.Options))
		}
	})

	t.Run("unknown poll", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls/nope", nil)
		req.SetPathValue("id", "nope")
		w := httptest.NewRecorder()

		handler.GetPoll(w, req, nil)

		testutil.AssertStatus(t, w, http.StatusNotFound)
		if code := testutil.ErrorCode(t, w); code != middleware.CodePollNotFound {
			t.Errorf("Expected %s, got %s", middleware.CodePollNotFound, code)
		}
	})
}

func TestDeletePoll(t *testing.T) {
	svc, _, cfg := setupHandlers(t)
	handler := NewPollHandler(svc, cfg)
	created := createPollVia(t, handler, owner, sampleCreate("Team lunch"))

	del := func(by *auth.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest("DELETE", "/polls/"+created.Poll.ID, nil)
		req.SetPathValue("id", created.Poll.ID)
		w := httptest.NewRecorder()
		handler.DeletePoll(w, req, by)
		return w
	}

	w := del(voter)
	testutil.AssertStatus(t, w, http.StatusForbidden)
	if code := testutil.ErrorCode(t, w); code != middleware.CodeNotPollOwner {
		t.Errorf("Expected %s, got %s", middleware.CodeNotPollOwner, code)
	}

	testutil.AssertStatus(t, del(owner), http.StatusOK)
	testutil.AssertStatus(t, del(owner), http.StatusNotFound)
}

func TestOptionEndpoints(t *testing.T) {
	svc, conn, cfg := setupHandlers(t)
	handler := NewPollHandler(svc, cfg)
	created := createPollVia(t, handler, owner, sampleCreate("Team lunch"))
	pollID := created.Poll.ID

	optionRequest := func(method, optionID string, body interface{}) *http.Request {
		path := "/polls/" + pollID + "/options"
		if optionID != "" {
			path += "/" + optionID
		}
		req := testutil.MakeRequest(method, path, body, nil)
		req.SetPathValue("id", pollID)
		if optionID != "" {
			req.SetPathValue("optionId", optionID)
		}
		return req
	}

	t.Run("add option", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.AddOption(w, optionRequest("POST", "", models.AddOptionRequest{Label: "Sushi", Color: "#00AA00"}), owner)

		testutil.AssertStatus(t, w, http.StatusCreated)
		var opt models.Option
		testutil.DecodeData(t, w, &opt)
		if opt.Label != "Sushi" || opt.Color != "#00AA00" {
			t.Errorf("Unexpected option: %+v", opt)
		}
	})

	t.Run("add option by non-owner", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.AddOption(w, optionRequest("POST", "", models.AddOptionRequest{Label: "Burgers"}), voter)
		testutil.AssertStatus(t, w, http.StatusForbidden)
	})

	t.Run("bad color", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.AddOption(w, optionRequest("POST", "", models.AddOptionRequest{Label: "Burgers", Color: "green"}), owner)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
		if !strings.Contains(w.Body.String(), "color") {
			t.Errorf("Expected message to name the color field, got %s", w.Body.String())
		}
	})

	t.Run("list options", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListOptions(w, optionRequest("GET", "", nil))

		testutil.AssertStatus(t, w, http.StatusOK)
		var list models.OptionList
		testutil.DecodeData(t, w, &list)
		if len(list.Options) != 3 {
			t.Fatalf("Expected 3 options, got %d", len(list.Options))
		}
		if list.Options[2].Label != "Sushi" {
			t.Errorf("Expected options in creation order, got %+v", list.Options)
		}
	})

	t.Run("update option", func(t *testing.T) {
		label := "Neapolitan pizza"
		w := httptest.NewRecorder()
		handler.UpdateOption(w, optionRequest("PUT", created.Options[0].ID, models.UpdateOptionRequest{Label: &label}), owner)

		testutil.AssertStatus(t, w, http.StatusOK)
		var opt models.Option
		testutil.DecodeData(t, w, &opt)
		if opt.Label != label {
			t.Errorf("Expected label %q, got %q", label, opt.Label)
		}
	})

	t.Run("update unknown option", func(t *testing.T) {
		label := "x"
		w := httptest.NewRecorder()
		handler.UpdateOption(w, optionRequest("PUT", "missing", models.UpdateOptionRequest{Label: &label}), owner)

		testutil.AssertStatus(t, w, http.StatusNotFound)
		if code := testutil.ErrorCode(t, w); code != middleware.CodeOptionNotFound {
			t.Errorf("Expected %s, got %s", middleware.CodeOptionNotFound, code)
		}
	})

	t.Run("delete down to the minimum", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.DeleteOption(w, optionRequest("DELETE", created.Options[1].ID, nil), owner)
		testutil.AssertStatus(t, w, http.StatusOK)

		w = httptest.NewRecorder()
		handler.DeleteOption(w, optionRequest("DELETE", created.Options[0].ID, nil), owner)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
		if code := testutil.ErrorCode(t, w); code != middleware.CodeMinOptions {
			t.Errorf("Expected %s, got %s", middleware.CodeMinOptions, code)
		}
	})

	t.Run("closed poll rejects changes", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		closedID := testutil.CreateTestPoll(t, conn, owner.ID, &past)
		testutil.AddTestOption(t, conn, closedID, "A")
		testutil.AddTestOption(t, conn, closedID, "B")

		req := testutil.MakeRequest("POST", "/polls/"+closedID+"/options", models.AddOptionRequest{Label: "C"}, nil)
		req.SetPathValue("id", closedID)
		w := httptest.NewRecorder()
		handler.AddOption(w, req, owner)

		testutil.AssertStatus(t, w, http.StatusConflict)
		if code := testutil.ErrorCode(t, w); code != middleware.CodePollClosed {
			t.Errorf("Expected %s, got %s", middleware.CodePollClosed, code)
		}
	})
}
