// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"errors"
	"net/http"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/polls"
)

// Error codes returned in the envelope's error field.
const (
	CodePollNotFound       = "POLL_NOT_FOUND"
	CodeOptionNotFound     = "OPTION_NOT_FOUND"
	CodeNotPollOwner       = "NOT_POLL_OWNER"
	CodeAlreadyVoted       = "ALREADY_VOTED"
	CodePollClosed         = "POLL_CLOSED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeMaxOptions         = "MAX_OPTIONS_EXCEEDED"
	CodeMinOptions         = "MIN_OPTIONS_REQUIRED"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeAuthUnavailable    = "AUTH_SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeRouteNotFound      = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	internalServerErrorMsg = "Internal server error"
)

// Classify maps an error from the service or auth layer to a status code,
// error code and client-facing message.
func Classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusUnauthorized, CodeMissingToken, "Authorization token required"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, CodeInvalidToken, "Invalid or expired token"
	case errors.Is(err, auth.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, CodeAuthUnavailable, "Authentication service unavailable"
	}

	switch polls.KindOf(err) {
	case polls.KindNotFound:
		if errors.Is(err, polls.ErrOptionNotFound) {
			return http.StatusNotFound, CodeOptionNotFound, "Option not found"
		}
		return http.StatusNotFound, CodePollNotFound, "Poll not found"
	case polls.KindUnauthorized:
		return http.StatusForbidden, CodeNotPollOwner, "Only the poll creator can do this"
	case polls.KindConflict:
		if errors.Is(err, polls.ErrPollClosed) {
			return http.StatusConflict, CodePollClosed, "Poll is closed"
		}
		return http.StatusConflict, CodeAlreadyVoted, "You have already voted in this poll"
	case polls.KindValidation:
		switch {
		case errors.Is(err, polls.ErrTooManyOptions):
			return http.StatusBadRequest, CodeMaxOptions, "A poll can have at most 10 options"
		case errors.Is(err, polls.ErrTooFewOptions):
			return http.StatusBadRequest, CodeMinOptions, "A poll needs at least 2 options"
		}
		return http.StatusBadRequest, CodeValidation, err.Error()
	default:
		return http.StatusInternalServerError, CodeInternal, internalServerErrorMsg
	}
}

// WriteError writes the error envelope for err. With dev set, the
// internal error text is added as detail.
func WriteError(w http.ResponseWriter, err error, dev bool) {
	status, code, message := Classify(err)
	env := models.Envelope{Success: false, Message: message, Error: code}
	if dev && status >= http.StatusInternalServerError {
		env.Detail = err.Error()
	}
	JSONResponse(w, status, env)
}
