// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("option not found")
	ErrNotOwner       = errors.New("requester does not own the poll")
	ErrAlreadyVoted   = errors.New("already voted in this poll")
	ErrPollClosed     = errors.New("poll is closed")
	ErrTooManyOptions = errors.New("poll cannot have more than 10 options")
	ErrTooFewOptions  = errors.New("poll must have at least 2 options")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps a database failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageError logs err once and wraps it.
func storageError(op string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", op,
		"module", "polls",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	slog.Error("poll storage operation failed", fields...)
	return &StorageError{Op: op, Err: err}
}

// Kind classifies errors for transport mapping.
type Kind int

const (
	KindStorage Kind = iota
	KindNotFound
	KindUnauthorized
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindUnauthorized:
		return "Unauthorized"
	case KindConflict:
		return "Conflict"
	case KindValidation:
		return "Validation"
	default:
		return "Storage"
	}
}

// KindOf returns the kind of err. Unknown errors are Storage.
func KindOf(err error) Kind {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrPollNotFound), errors.Is(err, ErrOptionNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotOwner):
		return KindUnauthorized
	case errors.Is(err, ErrAlreadyVoted), errors.Is(err, ErrPollClosed):
		return KindConflict
	case errors.Is(err, ErrTooManyOptions), errors.Is(err, ErrTooFewOptions), errors.As(err, &verr):
		return KindValidation
	default:
		return KindStorage
	}
}
