// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package controllers

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
	"github.com/danielhkuo/moviepolls/store"
)

// Suggestion is one typeahead entry.
type Suggestion struct {
	ID    string
	Title string
}

// Search owns the search box: raw text, the debounced query commit and the
// typeahead suggestions. Suggestions never touch the poll list.
type Search struct {
	ctx      context.Context
	store    *store.Store
	source   source.PollSource
	delay    time.Duration
	pageSize int
	limit    int
	logger   *slog.Logger

	mu          sync.Mutex
	text        string
	timer       *time.Timer
	gen         uint64 // bumped per input; a timer commits only its own gen
	suggestGen  uint64 // bumped per suggestion request; only the latest publishes
	suggestions []Suggestion
	closed      bool

	wg sync.WaitGroup
}

// NewSearch creates a Search using the debounce and suggestion settings of
// cfg.
func NewSearch(ctx context.Context, st *store.Store, src source.PollSource, cfg Config) *Search {
	cfg.defaults()
	return &Search{
		ctx:      ctx,
		store:    st,
		source:   src,
		delay:    cfg.DebounceDelay,
		pageSize: cfg.SuggestionPageSize,
		limit:    cfg.SuggestionLimit,
		logger:   cfg.Logger,
	}
}

// Input records a keystroke. The query is committed once the text has been
// stable for the debounce delay. A suggestion fetch starts immediately
// unless the text is blank.
func (s *Search) Input(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.text = text
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.commit(gen) })

	s.suggestGen++
	q := strings.TrimSpace(text)
	if q == "" {
		s.suggestions = nil
		return
	}
	s.wg.Add(1)
	go s.suggest(s.suggestGen, q)
}

func (s *Search) commit(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	s.timer = nil
	s.store.SetQuery(s.text)
}

func (s *Search) suggest(gen uint64, q string) {
	defer s.wg.Done()

	resp, err := s.source.ListPolls(s.ctx, models.ListRequest{
		Page:     0,
		PageSize: s.pageSize,
		Filters:  models.DefaultFilters(),
		Query:    q,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.suggestGen {
		return
	}
	if err != nil {
		s.logger.Debug("suggestions unavailable", "query", q, "error", &FetchError{Op: "suggestions", Err: err})
		s.suggestions = nil
		return
	}

	n := min(len(resp.Polls), s.limit)
	out := make([]Suggestion, n)
	for i := range n {
		out[i] = Suggestion{ID: resp.Polls[i].ID, Title: resp.Polls[i].Title}
	}
	s.suggestions = out
}

// Choose picks a suggestion: the title becomes both the text and the query,
// with no debounce.
func (s *Search) Choose(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.text = title
	s.gen++
	s.suggestGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.suggestions = nil
	s.store.SetQuery(title)
}

// Text returns the raw search box text.
func (s *Search) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Suggestions returns the latest published suggestions.
func (s *Search) Suggestions() []Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Suggestion, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// Close stops the debounce timer and waits for suggestion fetches to return.
// Nothing is committed or published after Close.
func (s *Search) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
