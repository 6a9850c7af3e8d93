// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/polls"
)

type PollHandler struct {
	svc *polls.Service
	cfg cliparse.Config
}

func NewPollHandler(svc *polls.Service, cfg cliparse.Config) *PollHandler {
	return &PollHandler{svc: svc, cfg: cfg}
}

// badJSON answers a body that failed to decode.
func badJSON(w http.ResponseWriter) {
	middleware.ErrorResponse(w, http.StatusBadRequest, middleware.CodeValidation, "Invalid JSON")
}

// queryInt reads a positive integer query parameter. Missing or malformed
// values yield 0 so the service applies its default.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		badJSON(w)
		return
	}

	resp, err := h.svc.CreatePoll(r.Context(), identity, req)
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusCreated, "Poll created successfully", resp)
}

// ListPolls handles GET /polls?page=&limit=&search=&mine=
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
	mine, _ := strconv.ParseBool(r.URL.Query().Get("mine"))
	filter := models.ListPollsFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Mine:   mine,
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	}

	list, err := h.svc.ListPolls(r.Context(), identity, filter)
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "", list)
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
	detail, err := h.svc.GetPoll(r.Context(), r.PathValue("id"), identity)
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "", detail)
}

// DeletePoll handles DELETE /polls/{id}
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
	if err := h.svc.DeletePoll(r.Context(), r.PathValue("id"), identity); err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "Poll deleted successfully", nil)
}

// ListOptions handles GET /polls/{id}/options
func (h *PollHandler) ListOptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListOptions(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "", list)
}

// AddOption handles POST /polls/{id}/options
func (h *PollHandler) AddOption(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
	var req models.AddOptionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		badJSON(w)
		return
	}

	opt, err := h.svc.AddOption(r.Context(), r.PathValue("id"), identity, req)
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusCreated, "Option added successfully", opt)
}

// UpdateOption handles PUT /polls/{id}/options/{optionId}
func (h *PollHandler) UpdateOption(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
	var req models.UpdateOptionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		badJSON(w)
		return
	}

	opt, err := h.svc.UpdateOption(r.Context(), r.PathValue("id"), r.PathValue("optionId"), identity, req)
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "Option updated successfully", opt)
}

// DeleteOption handles DELETE /polls/{id}/options/{optionId}
func (h *PollHandler) DeleteOption(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
	if err := h.svc.DeleteOption(r.Context(), r.PathValue("id"), r.PathValue("optionId"), identity); err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "Option deleted successfully", nil)
}
