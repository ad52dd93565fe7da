// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package source

import (
	"context"
	"sync"

	"github.com/danielhkuo/moviepolls/models"
)

// Memory is an in-process Backend holding the whole catalogue. Catalogue
// order is insertion order.
type Memory struct {
	mu    sync.Mutex
	polls []*models.PollRecord
	index map[string]*models.PollRecord
	// poll id -> voter token -> option id
	votes map[string]map[string]string
}

// NewMemory copies polls into a new backend. Any UserVote on the input is
// ignored; votes are tracked per voter.
func NewMemory(polls []models.PollRecord) *Memory {
	m := &Memory{
		polls: make([]*models.PollRecord, 0, len(polls)),
		index: make(map[string]*models.PollRecord, len(polls)),
		votes: make(map[string]map[string]string),
	}
	for _, p := range polls {
		if _, exists := m.index[p.ID]; exists {
			continue
		}
		rec := p.Clone()
		rec.UserVote = ""
		m.polls = append(m.polls, &rec)
		m.index[rec.ID] = &rec
	}
	return m
}

// Len returns the catalogue size.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.polls)
}

// ForVoter returns a PollSource bound to voterToken.
func (m *Memory) ForVoter(voterToken string) PollSource {
	return &memorySession{m: m, voter: voterToken}
}

// view copies a poll and stamps the voter's selection. Caller holds m.mu.
func (m *Memory) view(p *models.PollRecord, voter string) models.PollRecord {
	rec := p.Clone()
	if voter != "" {
		rec.UserVote = m.votes[p.ID][voter]
	}
	return rec
}

type memorySession struct {
	m     *Memory
	voter string
}

func (s *memorySession) ListPolls(ctx context.Context, req models.ListRequest) (models.ListResponse, error) {
	if err := ctx.Err(); err != nil {
		return models.ListResponse{}, err
	}
	req = NormalizeListRequest(req)

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	var matched []*models.PollRecord
	for _, p := range s.m.polls {
		if models.Matches(*p, req.Filters, req.Query) {
			matched = append(matched, p)
		}
	}

	start := req.Page * req.PageSize
	end := start + req.PageSize
	resp := models.ListResponse{
		Polls:   []models.PollRecord{},
		HasMore: end < len(matched),
	}
	if start >= len(matched) {
		return resp, nil
	}
	if end > len(matched) {
		end = len(matched)
	}
	for _, p := range matched[start:end] {
		resp.Polls = append(resp.Polls, s.m.view(p, s.voter))
	}
	return resp, nil
}

func (s *memorySession) CastVote(ctx context.Context, pollID, optionID string) (models.PollRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.PollRecord{}, err
	}
	if s.voter == "" {
		return models.PollRecord{}, ErrVoterRequired
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	p, ok := s.m.index[pollID]
	if !ok {
		return models.PollRecord{}, ErrPollNotFound
	}
	next, ok := findOption(p.Options, optionID)
	if !ok {
		return models.PollRecord{}, ErrOptionNotFound
	}

	voters := s.m.votes[pollID]
	if voters == nil {
		voters = make(map[string]string)
		s.m.votes[pollID] = voters
	}

	previous := voters[s.voter]
	if previous == optionID {
		return s.m.view(p, s.voter), nil
	}
	if previous != "" {
		if prev, ok := findOption(p.Options, previous); ok && p.Options[prev].Votes > 0 {
			p.Options[prev].Votes--
		}
	} else {
		p.TotalVotes++
	}
	p.Options[next].Votes++
	voters[s.voter] = optionID

	return s.m.view(p, s.voter), nil
}

func (s *memorySession) FetchByIDs(ctx context.Context, ids []string) ([]models.PollRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	polls := make([]models.PollRecord, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.m.index[id]; ok {
			polls = append(polls, s.m.view(p, s.voter))
		}
	}
	return polls, nil
}

func (s *memorySession) SubmitRating(ctx context.Context, pollID string, rating int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := ValidateRating(rating); err != nil {
		return 0, err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	p, ok := s.m.index[pollID]
	if !ok {
		return 0, ErrPollNotFound
	}
	p.Rating = BlendRating(p.Rating, rating)
	return p.Rating, nil
}

func findOption(options []models.Option, id string) (int, bool) {
	for i, o := range options {
		if o.ID == id {
			return i, true
		}
	}
	return -1, false
}
