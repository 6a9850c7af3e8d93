// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/polls"
)

type VotingHandler struct {
	svc *polls.Service
	cfg cliparse.Config
}

func NewVotingHandler(svc *polls.Service, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{svc: svc, cfg: cfg}
}

// CastVote handles POST /polls/{id}/votes
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		badJSON(w)
		return
	}

	resp, err := h.svc.CastVote(r.Context(), r.PathValue("id"), identity, req)
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusCreated, "Vote cast successfully", resp)
}

// MyVotes handles GET /me/votes?page=&limit=
func (h *VotingHandler) MyVotes(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
	history, err := h.svc.MyVotes(r.Context(), identity.ID, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	middleware.DataResponse(w, http.StatusOK, "", history)
}
