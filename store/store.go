// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/moviepolls/models"
)

// ErrPageNotZero is returned by ReplacePage once later pages are loaded.
var ErrPageNotZero = errors.New("replace page called past page 0")

// DefaultPageSize is the page length used when none is configured.
const DefaultPageSize = 20

// State is a point-in-time copy of the store. Mutating it does not affect
// the store.
type State struct {
	Polls    []models.PollRecord
	Page     int
	PageSize int
	HasMore  bool
	Loading  bool
	Filters  models.Filters
	Query    string
	Selected *models.PollRecord
	// Epoch identifies the current (filters, query) configuration.
	Epoch uint64
}

// Cursor identifies one page request within one epoch.
type Cursor struct {
	Epoch    uint64
	Page     int
	PageSize int
	Filters  models.Filters
	Query    string
}

// Request converts the cursor into a source request.
func (c Cursor) Request() models.ListRequest {
	return models.ListRequest{
		Page:     c.Page,
		PageSize: c.PageSize,
		Filters:  c.Filters,
		Query:    c.Query,
	}
}

// Store is the single authoritative copy of the session's poll list,
// pagination cursor, filters, query and selection. Each method is one atomic
// mutation or read.
type Store struct {
	mu       sync.RWMutex
	polls    []models.PollRecord
	index    map[string]int
	page     int
	pageSize int
	hasMore  bool
	loading  bool
	filters  models.Filters
	query    string
	selected *models.PollRecord
	epoch    uint64
	// highest page applied in this epoch, -1 before the first
	loaded int

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// New creates a store with All/All filters, an empty query and the first
// page not yet fetched.
func New(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{
		index:    make(map[string]int),
		pageSize: pageSize,
		hasMore:  true,
		filters:  models.DefaultFilters(),
		loaded:   -1,
		subs:     make(map[int]chan struct{}),
	}
}

// Snapshot returns a deep copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Polls:    make([]models.PollRecord, len(s.polls)),
		Page:     s.page,
		PageSize: s.pageSize,
		HasMore:  s.hasMore,
		Loading:  s.loading,
		Filters:  s.filters,
		Query:    s.query,
		Epoch:    s.epoch,
	}
	for i, p := range s.polls {
		st.Polls[i] = p.Clone()
	}
	if s.selected != nil {
		sel := s.selected.Clone()
		st.Selected = &sel
	}
	return st
}

// Poll returns a copy of the loaded poll with the given id.
func (s *Store) Poll(id string) (models.PollRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.PollRecord{}, false
	}
	return s.polls[i].Clone(), true
}

// LoadedIDs returns the ids of all loaded polls in load order.
func (s *Store) LoadedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.polls))
	for i, p := range s.polls {
		ids[i] = p.ID
	}
	return ids
}

// Selected returns a copy of the selected poll.
func (s *Store) Selected() (models.PollRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return models.PollRecord{}, false
	}
	return s.selected.Clone(), true
}

// Cursor returns the page request the store currently wants.
func (s *Store) Cursor() Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursorLocked()
}

func (s *Store) cursorLocked() Cursor {
	return Cursor{
		Epoch:    s.epoch,
		Page:     s.page,
		PageSize: s.pageSize,
		Filters:  s.filters,
		Query:    s.query,
	}
}

// ReplacePage overwrites the poll list with the first page of an epoch.
func (s *Store) ReplacePage(records []models.PollRecord, hasMore bool) error {
	s.mu.Lock()
	if s.page != 0 {
		s.mu.Unlock()
		return ErrPageNotZero
	}
	s.replaceLocked(records, hasMore)
	s.mu.Unlock()
	s.notify()
	return nil
}

// AppendPage adds a later page after the loaded polls. Records whose id is
// already loaded are dropped.
func (s *Store) AppendPage(records []models.PollRecord, hasMore bool) {
	s.mu.Lock()
	s.appendLocked(records, hasMore)
	s.mu.Unlock()
	s.notify()
}

// Paging reports whether more pages exist and whether a fetch is in flight.
func (s *Store) Paging() (hasMore, loading bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasMore, s.loading
}

// RequestNextPage advances the page cursor when the current page has been
// applied, more pages exist and no fetch is in flight. Concurrent callers
// advance the cursor at most once per loaded page.
func (s *Store) RequestNextPage() bool {
	s.mu.Lock()
	if !s.hasMore || s.loading || s.loaded != s.page {
		s.mu.Unlock()
		return false
	}
	s.page++
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Store) replaceLocked(records []models.PollRecord, hasMore bool) {
	s.polls = make([]models.PollRecord, 0, len(records))
	s.index = make(map[string]int, len(records))
	s.appendLocked(records, hasMore)
}

func (s *Store) appendLocked(records []models.PollRecord, hasMore bool) {
	for _, r := range records {
		if _, dup := s.index[r.ID]; dup {
			continue
		}
		s.index[r.ID] = len(s.polls)
		s.polls = append(s.polls, r.Clone())
	}
	s.hasMore = hasMore
	s.loaded = s.page
}

// SetFilters switches to a new epoch: the poll list is cleared and the page
// cursor rewinds to 0. Returns false if the filters did not change.
func (s *Store) SetFilters(f models.Filters) bool {
	f = f.Normalize()
	s.mu.Lock()
	if f == s.filters {
		s.mu.Unlock()
		return false
	}
	s.filters = f
	s.resetLocked()
	s.mu.Unlock()
	s.notify()
	return true
}

// SetQuery switches to a new epoch for a new free-text query. Returns false
// if the query did not change.
func (s *Store) SetQuery(q string) bool {
	s.mu.Lock()
	if q == s.query {
		s.mu.Unlock()
		return false
	}
	s.query = q
	s.resetLocked()
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Store) resetLocked() {
	s.polls = nil
	s.index = make(map[string]int)
	s.page = 0
	s.hasMore = true
	s.loading = false
	s.loaded = -1
	s.epoch++
}

// IncrementPage advances the page cursor. It does not fetch.
func (s *Store) IncrementPage() {
	s.mu.Lock()
	s.page++
	s.mu.Unlock()
	s.notify()
}

// PatchPoll merges patch into the loaded poll with the given id, and into the
// selected poll if it has that id. Reports whether a loaded poll matched.
func (s *Store) PatchPoll(id string, patch models.Patch) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if ok {
		s.polls[i] = patch.Apply(s.polls[i])
	}
	sel := s.selected != nil && s.selected.ID == id
	if sel {
		p := patch.Apply(*s.selected)
		s.selected = &p
	}
	s.mu.Unlock()

	if ok || sel {
		s.notify()
	}
	return ok
}

// SelectPoll sets the detail-view poll; nil clears it.
func (s *Store) SelectPoll(p *models.PollRecord) {
	s.mu.Lock()
	if p == nil {
		s.selected = nil
	} else {
		c := p.Clone()
		s.selected = &c
	}
	s.mu.Unlock()
	s.notify()
}

// SelectByID selects a loaded poll. Returns false if it is not loaded.
func (s *Store) SelectByID(id string) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if ok {
		c := s.polls[i].Clone()
		s.selected = &c
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// ClearSelection closes the detail view.
func (s *Store) ClearSelection() {
	s.SelectPoll(nil)
}

// BeginLoad marks c as being fetched. It refuses if c is no longer the
// current cursor or a fetch is already in flight.
func (s *Store) BeginLoad(c Cursor) bool {
	s.mu.Lock()
	if s.cursorLocked() != c || s.loading {
		s.mu.Unlock()
		return false
	}
	s.loading = true
	s.mu.Unlock()
	s.notify()
	return true
}

// ApplyPage stores the result of fetching c: page 0 replaces the list, later
// pages append. Results for a superseded cursor are discarded and false is
// returned.
func (s *Store) ApplyPage(c Cursor, records []models.PollRecord, hasMore bool) bool {
	s.mu.Lock()
	if s.cursorLocked() != c {
		s.endStaleLocked(c)
		s.mu.Unlock()
		return false
	}
	if c.Page == 0 {
		s.replaceLocked(records, hasMore)
	} else {
		s.appendLocked(records, hasMore)
	}
	s.loading = false
	s.mu.Unlock()
	s.notify()
	return true
}

// FailLoad clears the loading flag after a failed fetch of c and reports
// whether c was still the current cursor. Stale cursors are ignored.
func (s *Store) FailLoad(c Cursor) bool {
	s.mu.Lock()
	if s.cursorLocked() != c {
		s.endStaleLocked(c)
		s.mu.Unlock()
		return false
	}
	s.loading = false
	s.mu.Unlock()
	s.notify()
	return true
}

// endStaleLocked finishes a fetch whose page was overtaken inside the same
// epoch. Its data is dropped but the loading flag it owned is released.
// Fetches from an older epoch own nothing: the reset already cleared loading.
func (s *Store) endStaleLocked(c Cursor) {
	if c.Epoch == s.epoch && s.loading {
		s.loading = false
	}
}

// Subscribe returns a channel that receives a value after state changes.
// Notifications coalesce: a slow reader sees one pending signal, then reads
// the latest state. Call cancel to unsubscribe.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Summary renders a one-line description of the store for debug logs.
func (s *Store) Summary() string {
	st := s.Snapshot()
	return fmt.Sprintf("page=%d polls=%s has_more=%v loading=%v genre=%s status=%s query=%q",
		st.Page, humanize.Comma(int64(len(st.Polls))), st.HasMore, st.Loading,
		st.Filters.Genre, st.Filters.Status, st.Query)
}
