// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"sync"

	"github.com/danielhkuo/moviepolls/models"
)

// VoteCall records one CastVote call
type VoteCall struct {
	PollID   string
	OptionID string
}

// RatingCall records one SubmitRating call
type RatingCall struct {
	PollID string
	Rating int
}

// FakeSource is a scripted source.PollSource. Set the hooks before use;
// a nil hook returns an empty success. Every call is recorded.
type FakeSource struct {
	ListFunc   func(ctx context.Context, req models.ListRequest) (models.ListResponse, error)
	VoteFunc   func(ctx context.Context, pollID, optionID string) (models.PollRecord, error)
	FetchFunc  func(ctx context.Context, ids []string) ([]models.PollRecord, error)
	RatingFunc func(ctx context.Context, pollID string, rating int) (float64, error)

	mu          sync.Mutex
	listCalls   []models.ListRequest
	voteCalls   []VoteCall
	fetchCalls  [][]string
	ratingCalls []RatingCall
}

func (f *FakeSource) ListPolls(ctx context.Context, req models.ListRequest) (models.ListResponse, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, req)
	f.mu.Unlock()

	if f.ListFunc == nil {
		return models.ListResponse{Polls: []models.PollRecord{}}, nil
	}
	return f.ListFunc(ctx, req)
}

func (f *FakeSource) CastVote(ctx context.Context, pollID, optionID string) (models.PollRecord, error) {
	f.mu.Lock()
	f.voteCalls = append(f.voteCalls, VoteCall{PollID: pollID, OptionID: optionID})
	f.mu.Unlock()

	if f.VoteFunc == nil {
		return models.PollRecord{ID: pollID, UserVote: optionID}, nil
	}
	return f.VoteFunc(ctx, pollID, optionID)
}

func (f *FakeSource) FetchByIDs(ctx context.Context, ids []string) ([]models.PollRecord, error) {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, append([]string(nil), ids...))
	f.mu.Unlock()

	if f.FetchFunc == nil {
		return []models.PollRecord{}, nil
	}
	return f.FetchFunc(ctx, ids)
}

func (f *FakeSource) SubmitRating(ctx context.Context, pollID string, rating int) (float64, error) {
	f.mu.Lock()
	f.ratingCalls = append(f.ratingCalls, RatingCall{PollID: pollID, Rating: rating})
	f.mu.Unlock()

	if f.RatingFunc == nil {
		return float64(rating), nil
	}
	return f.RatingFunc(ctx, pollID, rating)
}

// ListCalls returns the ListPolls requests seen so far
func (f *FakeSource) ListCalls() []models.ListRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ListRequest(nil), f.listCalls...)
}

// VoteCalls returns the CastVote calls seen so far
func (f *FakeSource) VoteCalls() []VoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]VoteCall(nil), f.voteCalls...)
}

// FetchCalls returns the id lists passed to FetchByIDs so far
func (f *FakeSource) FetchCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.fetchCalls...)
}

// RatingCalls returns the SubmitRating calls seen so far
func (f *FakeSource) RatingCalls() []RatingCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RatingCall(nil), f.ratingCalls...)
}

// PagedList serves polls page by page like the real catalogue, ignoring
// filters and query.
func PagedList(polls []models.PollRecord) func(context.Context, models.ListRequest) (models.ListResponse, error) {
	return func(_ context.Context, req models.ListRequest) (models.ListResponse, error) {
		start := req.Page * req.PageSize
		end := min(start+req.PageSize, len(polls))
		resp := models.ListResponse{
			Polls:   []models.PollRecord{},
			HasMore: start+req.PageSize < len(polls),
		}
		for i := start; i < end; i++ {
			resp.Polls = append(resp.Polls, polls[i].Clone())
		}
		return resp, nil
	}
}
