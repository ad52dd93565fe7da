// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package controllers

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
	"github.com/danielhkuo/moviepolls/store"
)

// Refresher periodically re-fetches every loaded poll and patches the fresh
// data in. It never changes the page cursor, filters or query.
type Refresher struct {
	store    *store.Store
	source   source.PollSource
	interval time.Duration
	logger   *slog.Logger
	guard    VoteGuard
}

// VoteGuard reports vote activity on a poll. version changes whenever a
// vote on the poll starts or settles; busy is true while one is in flight.
type VoteGuard interface {
	VoteVersion(pollID string) (version uint64, busy bool)
}

// VoteGuardFunc adapts a function to VoteGuard.
type VoteGuardFunc func(pollID string) (uint64, bool)

func (f VoteGuardFunc) VoteVersion(pollID string) (uint64, bool) { return f(pollID) }

// NewRefresher creates a Refresher. guard may be nil.
func NewRefresher(st *store.Store, src source.PollSource, interval time.Duration, logger *slog.Logger, guard VoteGuard) *Refresher {
	if interval <= 0 {
		interval = 8 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if guard == nil {
		guard = VoteGuardFunc(func(string) (uint64, bool) { return 0, false })
	}
	return &Refresher{
		store:    st,
		source:   src,
		interval: interval,
		logger:   logger,
		guard:    guard,
	}
}

// Run refreshes on every tick until ctx is cancelled. Failures are logged and
// the next tick tries again.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.Refresh(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Warn("live refresh failed", "error", err)
				}
				continue
			}
			if n > 0 {
				r.logger.Debug("live refresh", "patched", n)
			}
		}
	}
}

// Refresh performs one refresh pass and returns how many polls were patched.
// Polls with a vote in flight, or whose vote started or settled while the
// fetch was out, keep their local state.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	ids := r.store.LoadedIDs()
	if len(ids) == 0 {
		return 0, nil
	}

	sent := make(map[string]uint64, len(ids))
	for _, id := range ids {
		sent[id], _ = r.guard.VoteVersion(id)
	}

	records, err := r.source.FetchByIDs(ctx, ids)
	if err != nil {
		return 0, &FetchError{Op: "refresh", Err: err}
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	patched := 0
	for _, rec := range records {
		version, busy := r.guard.VoteVersion(rec.ID)
		if busy || version != sent[rec.ID] {
			continue
		}
		if r.store.PatchPoll(rec.ID, models.PatchFromRecord(rec)) {
			patched++
		}
	}
	return patched, nil
}
