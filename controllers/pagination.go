// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package controllers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/danielhkuo/moviepolls/source"
	"github.com/danielhkuo/moviepolls/store"
)

// Paginator keeps the store's poll list filled for its current cursor.
// LoadMore is the sentinel trigger; Run is the fetch loop that reacts to
// every cursor change (next page, new filters, new query).
type Paginator struct {
	store  *store.Store
	source source.PollSource
	logger *slog.Logger

	mu sync.Mutex
	// cursor of the last fetch started, valid when started is true
	requested store.Cursor
	started   bool
	// cursor whose fetch failed and may be retried by LoadMore
	failed *store.Cursor

	kick chan struct{}
	wg   sync.WaitGroup
}

// NewPaginator creates a Paginator. A nil logger means slog.Default().
func NewPaginator(st *store.Store, src source.PollSource, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Paginator{
		store:  st,
		source: src,
		logger: logger,
		kick:   make(chan struct{}, 1),
	}
}

// LoadMore handles the sentinel becoming visible. A page whose fetch failed
// is retried; otherwise the cursor moves to the next page when more pages
// exist and nothing is loading. Reports whether a fetch was requested.
func (p *Paginator) LoadMore() bool {
	c := p.store.Cursor()

	p.mu.Lock()
	if p.failed != nil && *p.failed == c {
		p.failed = nil
		p.started = false
		p.mu.Unlock()
		p.wake()
		return true
	}
	p.mu.Unlock()

	return p.store.RequestNextPage()
}

func (p *Paginator) wake() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run fetches whatever page the store cursor points at, now and after every
// store change, until ctx is cancelled. Outstanding fetches are abandoned on
// cancellation; call Wait to let them drain.
func (p *Paginator) Run(ctx context.Context) {
	changes, cancel := p.store.Subscribe()
	defer cancel()

	p.sync(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			p.sync(ctx)
		case <-p.kick:
			p.sync(ctx)
		}
	}
}

// Wait blocks until every fetch started by Run has returned.
func (p *Paginator) Wait() {
	p.wg.Wait()
}

func (p *Paginator) sync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	c := p.store.Cursor()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started && p.requested == c {
		return
	}
	// BeginLoad refuses while another fetch of this epoch is in flight; the
	// store change that ends it brings us back here.
	if !p.store.BeginLoad(c) {
		return
	}
	p.requested, p.started = c, true

	p.wg.Add(1)
	go p.fetch(ctx, c)
}

func (p *Paginator) fetch(ctx context.Context, c store.Cursor) {
	defer p.wg.Done()

	resp, err := p.source.ListPolls(ctx, c.Request())
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Warn("page fetch failed",
			"page", c.Page,
			"genre", c.Filters.Genre,
			"status", c.Filters.Status,
			"query", c.Query,
			"error", &FetchError{Op: "list polls", Err: err},
		)
		// only the current cursor's failure is retryable; a stale one must
		// not replace it
		p.mu.Lock()
		if p.store.FailLoad(c) {
			failed := c
			p.failed = &failed
		}
		p.mu.Unlock()
		return
	}

	if !p.store.ApplyPage(c, resp.Polls, resp.HasMore) {
		p.logger.Debug("discarded stale page", "page", c.Page, "epoch", c.Epoch)
		return
	}
	p.logger.Debug("page loaded", "page", c.Page, "polls", len(resp.Polls), "has_more", resp.HasMore)
}
