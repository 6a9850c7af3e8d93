// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/polls"
)

var shareTemplate = template.Must(template.New("share").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>{{.Title}}</title>
  <meta name="description" content="{{.Description}}" />
  <meta property="og:title" content="{{.Title}}" />
  <meta property="og:description" content="{{.Description}}" />
  <meta property="og:type" content="website" />
  <meta property="og:url" content="{{.ShareURL}}" />
  <meta property="og:site_name" content="Quickly Vote" />
  <meta name="twitter:card" content="summary" />
  <meta name="twitter:title" content="{{.Title}}" />
  <meta name="twitter:description" content="{{.Description}}" />
  <meta name="robots" content="index, follow" />
  <meta http-equiv="refresh" content="0; url={{.RedirectURL}}" />
</head>
<body>
  <script>window.location.replace({{.RedirectURL}});</script>
  <noscript><a href="{{.RedirectURL}}">Open the poll</a></noscript>
</body>
</html>
`))

type sharePage struct {
	Title       string
	Description string
	ShareURL    string
	RedirectURL string
}

// ShareHandler serves link-preview pages for polls.
type ShareHandler struct {
	svc *polls.Service
	cfg cliparse.Config
}

func NewShareHandler(svc *polls.Service, cfg cliparse.Config) *ShareHandler {
	return &ShareHandler{svc: svc, cfg: cfg}
}

// SharePage handles GET /share/{id}
// Renders OpenGraph and Twitter card tags for the poll, then redirects
// browsers to the frontend.
func (h *ShareHandler) SharePage(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	poll, err := h.svc.Poll(r.Context(), pollID)
	if err != nil {
		middleware.WriteError(w, err, h.cfg.DevMode)
		return
	}

	page := sharePage{
		Title:       poll.Title,
		Description: poll.Description,
		ShareURL:    h.cfg.PublicBaseURL + "/share/" + url.PathEscape(poll.ID),
		RedirectURL: h.cfg.ShareRedirectURL + "/#/polls/" + url.PathEscape(poll.ID),
	}

	var buf bytes.Buffer
	if err := shareTemplate.Execute(&buf, page); err != nil {
		slog.Error("share page render failed", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, middleware.CodeInternal, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
