// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package controllers

import (
	"context"
	"sync"

	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
	"github.com/danielhkuo/moviepolls/store"
)

// Session wires one store to its controllers. It owns the background loops
// and every goroutine they start.
type Session struct {
	Store   *store.Store
	Pages   *Paginator
	Votes   *VoteController
	Refresh *Refresher
	Search  *Search

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewSession builds a session over src. Call Start to begin loading.
func NewSession(ctx context.Context, src source.PollSource, cfg Config) *Session {
	cfg.defaults()
	ctx, cancel := context.WithCancel(ctx)

	st := store.New(cfg.PageSize)
	votes := NewVoteController(ctx, st, src, cfg)
	return &Session{
		Store:   st,
		Pages:   NewPaginator(st, src, cfg.Logger),
		Votes:   votes,
		Refresh: NewRefresher(st, src, cfg.RefreshInterval, cfg.Logger, votes),
		Search:  NewSearch(ctx, st, src, cfg),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the page fetch loop and the live refresh ticker.
func (s *Session) Start() {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.Pages.Run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.Refresh.Run(s.ctx)
	}()
}

// Close cancels everything in flight and waits for it to stop. Late source
// results are ignored. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		s.Search.Close()
		s.wg.Wait()
		s.Pages.Wait()
		s.Votes.Wait()
	})
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// SetFilters replaces both filters.
func (s *Session) SetFilters(f models.Filters) bool {
	return s.Store.SetFilters(f)
}

// SetGenre changes the genre filter and keeps the status filter.
func (s *Session) SetGenre(genre string) bool {
	f := s.Store.Snapshot().Filters
	f.Genre = genre
	return s.Store.SetFilters(f)
}

// SetStatus changes the status filter and keeps the genre filter.
func (s *Session) SetStatus(status string) bool {
	f := s.Store.Snapshot().Filters
	f.Status = status
	return s.Store.SetFilters(f)
}

// Select opens the detail view for a loaded poll.
func (s *Session) Select(id string) bool {
	return s.Store.SelectByID(id)
}
