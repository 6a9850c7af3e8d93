// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/polls"
)

type ResultsHandler struct {
	svc *polls.Service
	cfg cliparse.Config
}

func NewResultsHandler(svc *polls.Service, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{svc: svc, cfg: cfg}
}

// GetResults handles GET /polls/{id}/results
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "", rs)
}

type StatsHandler struct {
	svc *polls.Service
	cfg cliparse.Config
}

func NewStatsHandler(svc *polls.Service, cfg cliparse.Config) *StatsHandler {
	return &StatsHandler{svc: svc, cfg: cfg}
}

// General handles GET /stats
func (h *StatsHandler) General(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GeneralStats(r.Context())
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "", stats)
}

// PollDetail handles GET /stats/polls/{id}
func (h *StatsHandler) PollDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.DetailedResults(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "", detail)
}

// UserSummary handles GET /me/summary
func (h *StatsHandler) UserSummary(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
	summary, err := h.svc.UserSummary(r.Context(), identity.ID)
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "", summary)
}
