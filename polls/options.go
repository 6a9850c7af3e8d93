// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/models"
)

// ListOptions returns the poll's options with vote counts, in creation order.
func (s *Service) ListOptions(ctx context.Context, pollID string) (models.OptionList, error) {
	if _, err := loadPoll(ctx, s.db, pollID, ""); err != nil {
		return models.OptionList{}, err
	}
	options, err := tallyOptions(ctx, s.db, pollID)
	if err != nil {
		return models.OptionList{}, err
	}
	total, _ := summarize(options)
	return models.OptionList{PollID: pollID, TotalVotes: total, Options: options}, nil
}

// lockForOptionChange opens a transaction holding the poll row and runs the
// checks shared by every option mutation: poll exists, requester owns it,
// poll is open.
func (s *Service) lockForOptionChange(ctx context.Context, pollID string, requester *auth.Identity) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("begin_option_change", err, "poll_id", pollID)
	}

	poll, err := loadPoll(ctx, tx, pollID, s.db.Dialect.LockClause())
	if err == nil && !owns(requester, poll) {
		err = ErrNotOwner
	}
	if err == nil && poll.Closed(s.cfg.now()) {
		err = ErrPollClosed
	}
	if err != nil {
		rollback(tx)
		return nil, err
	}
	return tx, nil
}

// AddOption appends an option. A poll holds at most models.MaxOptions.
func (s *Service) AddOption(ctx context.Context, pollID string, requester *auth.Identity, req models.AddOptionRequest) (models.Option, error) {
	label, color, err := validateOption(req.Label, req.Color)
	if err != nil {
		return models.Option{}, err
	}

	tx, err := s.lockForOptionChange(ctx, pollID, requester)
	if err != nil {
		return models.Option{}, err
	}
	defer rollback(tx)

	count, err := countOptions(ctx, tx, pollID)
	if err != nil {
		return models.Option{}, err
	}
	if count >= models.MaxOptions {
		return models.Option{}, ErrTooManyOptions
	}

	id, err := newID()
	if err != nil {
		return models.Option{}, storageError("option_id", err)
	}
	opt := models.Option{
		ID:        id,
		PollID:    pollID,
		Label:     label,
		Color:     color,
		CreatedAt: s.cfg.now(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO option (id, poll_id, label, color, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, opt.ID, opt.PollID, opt.Label, opt.Color, opt.CreatedAt)
	if err != nil {
		return models.Option{}, storageError("insert_option", err, "poll_id", pollID)
	}

	if err := tx.Commit(); err != nil {
		return models.Option{}, storageError("commit_add_option", err, "poll_id", pollID)
	}

	slog.Info("option added", "poll_id", pollID, "option_id", opt.ID)
	return opt, nil
}

// UpdateOption changes the label and/or color of an option.
func (s *Service) UpdateOption(ctx context.Context, pollID, optionID string, requester *auth.Identity, req models.UpdateOptionRequest) (models.Option, error) {
	if req.Label == nil && req.Color == nil {
		return models.Option{}, invalid("option", "nothing to update")
	}
	var label, color string
	var err error
	if req.Label != nil {
		if label, err = validateLabel(*req.Label); err != nil {
			return models.Option{}, err
		}
	}
	if req.Color != nil {
		if color, err = validateColor(*req.Color); err != nil {
			return models.Option{}, err
		}
	}

	tx, err := s.lockForOptionChange(ctx, pollID, requester)
	if err != nil {
		return models.Option{}, err
	}
	defer rollback(tx)

	opt, err := loadOption(ctx, tx, pollID, optionID)
	if err != nil {
		return models.Option{}, err
	}
	if req.Label != nil {
		opt.Label = label
	}
	if req.Color != nil {
		opt.Color = color
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE option SET label = $1, color = $2 WHERE id = $3
	`, opt.Label, opt.Color, opt.ID)
	if err != nil {
		return models.Option{}, storageError("update_option", err, "option_id", optionID)
	}

	if err := tx.Commit(); err != nil {
		return models.Option{}, storageError("commit_update_option", err, "option_id", optionID)
	}

	slog.Info("option updated", "poll_id", pollID, "option_id", optionID)
	return opt, nil
}

// DeleteOption removes an option and its votes. A poll keeps at least
// models.MinOptions.
func (s *Service) DeleteOption(ctx context.Context, pollID, optionID string, requester *auth.Identity) error {
	tx, err := s.lockForOptionChange(ctx, pollID, requester)
	if err != nil {
		return err
	}
	defer rollback(tx)

	if _, err := loadOption(ctx, tx, pollID, optionID); err != nil {
		return err
	}

	count, err := countOptions(ctx, tx, pollID)
	if err != nil {
		return err
	}
	if count <= models.MinOptions {
		return ErrTooFewOptions
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM option WHERE id = $1`, optionID); err != nil {
		return storageError("delete_option", err, "option_id", optionID)
	}

	if err := tx.Commit(); err != nil {
		return storageError("commit_delete_option", err, "option_id", optionID)
	}

	slog.Info("option deleted", "poll_id", pollID, "option_id", optionID)
	return nil
}
