// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"strings"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/handlers"
	"github.com/danielhkuo/quickly-vote/metrics"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/polls"
)

// NewRouter registers every endpoint and wraps the mux with CORS.
func NewRouter(svc *polls.Service, verifier auth.Verifier, m *metrics.MetricService, cfg cliparse.Config) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(svc, cfg)
	votingHandler := handlers.NewVotingHandler(svc, cfg)
	resultsHandler := handlers.NewResultsHandler(svc, cfg)
	statsHandler := handlers.NewStatsHandler(svc, cfg)
	shareHandler := handlers.NewShareHandler(svc, cfg)

	authn := &middleware.Authenticator{
		Verifier: verifier,
		Syncer:   svc,
		Metrics:  m,
		Dev:      cfg.DevMode,
	}
	proxies := middleware.TrustedProxies(cfg.TrustedProxies)
	generalLimiter := middleware.NewRateLimiter("general", cfg.GeneralLimit, cfg.GeneralWindow, middleware.ByClientIP(proxies), m)
	voteLimiter := middleware.NewRateLimiter("votes", cfg.VoteLimit, cfg.VoteWindow, middleware.ByClientAndIdentity(proxies), m)
	createLimiter := middleware.NewRateLimiter("create_poll", cfg.CreateLimit, cfg.CreateWindow, middleware.ByIdentity(proxies), m)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", m.Handler())

	// Polls
	mux.HandleFunc("POST /polls", middleware.WithLogging(authn.Require(createLimiter.Limit(pollHandler.CreatePoll))))
	mux.HandleFunc("GET /polls", middleware.WithLogging(authn.Optional(pollHandler.ListPolls)))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(authn.Optional(pollHandler.GetPoll)))
	mux.HandleFunc("DELETE /polls/{id}", middleware.WithLogging(authn.Require(pollHandler.DeletePoll)))

	// Options
	mux.HandleFunc("GET /polls/{id}/options", middleware.WithLogging(pollHandler.ListOptions))
	mux.HandleFunc("POST /polls/{id}/options", middleware.WithLogging(authn.Require(pollHandler.AddOption)))
	mux.HandleFunc("PUT /polls/{id}/options/{optionId}", middleware.WithLogging(authn.Require(pollHandler.UpdateOption)))
	mux.HandleFunc("DELETE /polls/{id}/options/{optionId}", middleware.WithLogging(authn.Require(pollHandler.DeleteOption)))

	// Voting and results
	mux.HandleFunc("POST /polls/{id}/votes", middleware.WithLogging(authn.Require(voteLimiter.Limit(votingHandler.CastVote))))
	mux.HandleFunc("GET /polls/{id}/results", middleware.WithLogging(resultsHandler.GetResults))

	// Statistics
	mux.HandleFunc("GET /stats", middleware.WithLogging(statsHandler.General))
	mux.HandleFunc("GET /stats/polls/{id}", middleware.WithLogging(statsHandler.PollDetail))

	// Requester
	mux.HandleFunc("GET /me/votes", middleware.WithLogging(authn.Require(votingHandler.MyVotes)))
	mux.HandleFunc("GET /me/summary", middleware.WithLogging(authn.Require(statsHandler.UserSummary)))

	// Link previews
	mux.HandleFunc("GET /share/{id}", middleware.WithLogging(shareHandler.SharePage))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quickly-vote API v1"))
	})
	mux.HandleFunc("/", unmatched(mux))

	return middleware.CORS(cfg.CORSOrigin, generalLimiter.Handler(mux))
}

var routeMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// unmatched answers requests no route claims. A path served under another
// method gets 405 with Allow; anything else gets 404.
func unmatched(mux *http.ServeMux) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var allowed []string
		for _, method := range routeMethods {
			alt := r.Clone(r.Context())
			alt.Method = method
			if _, pattern := mux.Handler(alt); pattern != "" && pattern != "/" {
				allowed = append(allowed, method)
			}
		}

		if len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			middleware.ErrorResponse(w, http.StatusMethodNotAllowed, middleware.CodeMethodNotAllowed, "Method not allowed")
			return
		}
		middleware.ErrorResponse(w, http.StatusNotFound, middleware.CodeRouteNotFound, "Route not found")
	}
}
