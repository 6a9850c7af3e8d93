// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/quickly-vote/models"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

const (
	minTitleLen       = 3
	maxTitleLen       = 255
	maxDescriptionLen = 1000
	maxLabelLen       = 255
)

// createInput is a CreatePollRequest after validation.
type createInput struct {
	title       string
	description string
	closesAt    *time.Time
	options     []models.OptionInput
}

func validateCreate(req models.CreatePollRequest, now time.Time) (createInput, error) {
	in := createInput{
		title:       strings.TrimSpace(req.Title),
		description: strings.TrimSpace(req.Description),
	}

	if n := utf8.RuneCountInString(in.title); n < minTitleLen || n > maxTitleLen {
		return createInput{}, invalid("title", "must be between %d and %d characters", minTitleLen, maxTitleLen)
	}
	if utf8.RuneCountInString(in.description) > maxDescriptionLen {
		return createInput{}, invalid("description", "must be at most %d characters", maxDescriptionLen)
	}

	if req.ClosesAt != "" {
		t, err := time.Parse(time.RFC3339, req.ClosesAt)
		if err != nil {
			return createInput{}, invalid("closes_at", "must be an RFC 3339 timestamp")
		}
		if !t.After(now) {
			return createInput{}, invalid("closes_at", "must be in the future")
		}
		t = t.UTC()
		in.closesAt = &t
	}

	if len(req.Options) < models.MinOptions {
		return createInput{}, ErrTooFewOptions
	}
	if len(req.Options) > models.MaxOptions {
		return createInput{}, ErrTooManyOptions
	}

	in.options = make([]models.OptionInput, 0, len(req.Options))
	for _, opt := range req.Options {
		label, color, err := validateOption(opt.Label, opt.Color)
		if err != nil {
			return createInput{}, err
		}
		in.options = append(in.options, models.OptionInput{Label: label, Color: color})
	}

	return in, nil
}

// validateOption trims the label and fills in the default color.
func validateOption(label, color string) (string, string, error) {
	label, err := validateLabel(label)
	if err != nil {
		return "", "", err
	}
	if color == "" {
		return label, models.DefaultOptionColor, nil
	}
	color, err = validateColor(color)
	if err != nil {
		return "", "", err
	}
	return label, color, nil
}

func validateLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if n := utf8.RuneCountInString(label); n < 1 || n > maxLabelLen {
		return "", invalid("label", "must be between 1 and %d characters", maxLabelLen)
	}
	return label, nil
}

func validateColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if !colorPattern.MatchString(color) {
		return "", invalid("color", "must be a hex color like #1a2b3c")
	}
	return color, nil
}

// pageBounds normalizes page and limit and returns the row offset.
// page is capped so the offset cannot overflow.
func pageBounds(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, (page - 1) * limit
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxPage         = math.MaxInt32
)

func pagination(page, limit, total int) models.Pagination {
	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return models.Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
