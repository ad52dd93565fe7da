// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielhkuo/moviepolls/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPollNotFound     = fmt.Errorf("poll %w", ErrNotFound)
	ErrOptionNotFound   = fmt.Errorf("option %w", ErrNotFound)
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrVoterRequired    = errors.New("voter token required")
	ErrSimulatedFailure = errors.New("simulated network error")
)

// PollSource is the data collaborator of the client engine. Every call may
// block for a network round trip and may fail.
type PollSource interface {
	// ListPolls returns one page of the filtered catalogue.
	ListPolls(ctx context.Context, req models.ListRequest) (models.ListResponse, error)
	// CastVote records optionID as the caller's vote on pollID.
	CastVote(ctx context.Context, pollID, optionID string) (models.PollRecord, error)
	// FetchByIDs returns current snapshots; unknown ids are omitted.
	FetchByIDs(ctx context.Context, ids []string) ([]models.PollRecord, error)
	// SubmitRating folds a 1-5 star rating into the poll average.
	SubmitRating(ctx context.Context, pollID string, rating int) (float64, error)
}

// Backend serves many voters; ForVoter scopes UserVote and CastVote to one
// voter token. An empty token gives a read-only view.
type Backend interface {
	ForVoter(voterToken string) PollSource
}

// ValidateRating checks a star value.
func ValidateRating(rating int) error {
	if rating < int(models.MinRating) || rating > int(models.MaxRating) {
		return ErrInvalidRating
	}
	return nil
}

// BlendRating folds a new star value into an average weighted 10:1 in favour
// of the previous average.
func BlendRating(prev float64, rating int) float64 {
	return models.RoundRating((prev*10 + float64(rating)) / 11)
}

// NormalizeListRequest fills defaults for page size and filters.
func NormalizeListRequest(req models.ListRequest) models.ListRequest {
	if req.Page < 0 {
		req.Page = 0
	}
	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}
	if req.PageSize > MaxPageSize {
		req.PageSize = MaxPageSize
	}
	req.Filters = req.Filters.Normalize()
	return req
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
