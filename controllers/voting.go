// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package controllers

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
	"github.com/danielhkuo/moviepolls/store"
)

// VoteState is the lifecycle of one vote attempt.
type VoteState int

const (
	VoteIdle VoteState = iota
	VoteSubmitting
	VoteConfirmed
	VoteRolledBack
)

func (s VoteState) String() string {
	switch s {
	case VoteSubmitting:
		return "submitting"
	case VoteConfirmed:
		return "confirmed"
	case VoteRolledBack:
		return "rolled_back"
	default:
		return "idle"
	}
}

// VoteAttempt tracks one optimistic vote until the source answers.
type VoteAttempt struct {
	ID       string
	PollID   string
	OptionID string
	// Snapshot is the record as it was before the optimistic change.
	Snapshot models.PollRecord
	// Optimistic is the record as the optimistic change left it.
	Optimistic models.PollRecord

	done  chan struct{}
	mu    sync.Mutex
	state VoteState
	err   error
}

// State returns the attempt's current state.
func (a *VoteAttempt) State() VoteState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the failure that rolled the attempt back, if any.
func (a *VoteAttempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Done is closed once the attempt is confirmed or rolled back.
func (a *VoteAttempt) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the attempt finishes or ctx ends, and returns the state
// reached.
func (a *VoteAttempt) Wait(ctx context.Context) (VoteState, error) {
	select {
	case <-a.done:
		return a.State(), a.Err()
	case <-ctx.Done():
		return a.State(), ctx.Err()
	}
}

func (a *VoteAttempt) finish(state VoteState, err error) {
	a.mu.Lock()
	a.state = state
	a.err = err
	a.mu.Unlock()
	close(a.done)
}

// VoteController runs the optimistic vote protocol: apply locally, submit,
// then keep or roll back. Votes on different polls proceed independently;
// a poll accepts one vote at a time.
type VoteController struct {
	ctx    context.Context
	store  *store.Store
	source source.PollSource
	cfg    Config

	mu       sync.Mutex
	inflight map[string]*VoteAttempt
	// bumped when a vote starts and when it settles
	versions map[string]uint64

	wg sync.WaitGroup
}

// NewVoteController creates a controller whose submissions stop touching the
// store once ctx is cancelled.
func NewVoteController(ctx context.Context, st *store.Store, src source.PollSource, cfg Config) *VoteController {
	cfg.defaults()
	return &VoteController{
		ctx:      ctx,
		store:    st,
		source:   src,
		cfg:      cfg,
		inflight: make(map[string]*VoteAttempt),
		versions: make(map[string]uint64),
	}
}

// Submitting reports whether a vote on the poll is awaiting the source.
func (c *VoteController) Submitting(pollID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[pollID]
	return ok
}

// VoteVersion implements VoteGuard.
func (c *VoteController) VoteVersion(pollID string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[pollID]
	return c.versions[pollID], busy
}

// Vote casts optionID on pollID. The store is updated before Vote returns;
// the source call runs in the background. Choosing the option already voted
// for does nothing and returns a nil attempt.
func (c *VoteController) Vote(pollID, optionID string) (*VoteAttempt, error) {
	if c.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}

	c.mu.Lock()
	if _, busy := c.inflight[pollID]; busy {
		c.mu.Unlock()
		return nil, ErrVoteInProgress
	}
	poll, ok := c.store.Poll(pollID)
	if !ok {
		c.mu.Unlock()
		return nil, ErrPollNotLoaded
	}
	if _, ok := poll.Option(optionID); !ok {
		c.mu.Unlock()
		return nil, ErrUnknownOption
	}
	if poll.UserVote == optionID {
		c.mu.Unlock()
		return nil, nil
	}

	next := applyVote(poll, optionID)
	a := &VoteAttempt{
		ID:         uuid.NewString(),
		PollID:     pollID,
		OptionID:   optionID,
		Snapshot:   poll,
		Optimistic: next.Clone(),
		done:       make(chan struct{}),
		state:      VoteSubmitting,
	}
	c.inflight[pollID] = a
	c.versions[pollID]++
	c.store.PatchPoll(pollID, models.VoteFields(next))
	c.mu.Unlock()

	c.cfg.Logger.Debug("vote submitting", "poll_id", pollID, "option_id", optionID, "attempt", a.ID)

	c.wg.Add(1)
	go c.submit(a)
	return a, nil
}

// applyVote performs the local vote arithmetic on a copy of p.
func applyVote(p models.PollRecord, optionID string) models.PollRecord {
	next := p.Clone()
	prev := next.UserVote
	for i := range next.Options {
		switch next.Options[i].ID {
		case optionID:
			next.Options[i].Votes++
		case prev:
			if next.Options[i].Votes > 0 {
				next.Options[i].Votes--
			}
		}
	}
	if prev == "" {
		next.TotalVotes++
	}
	next.UserVote = optionID
	return next
}

func (c *VoteController) submit(a *VoteAttempt) {
	defer c.wg.Done()

	_, err := c.source.CastVote(c.ctx, a.PollID, a.OptionID)

	c.mu.Lock()
	delete(c.inflight, a.PollID)
	c.versions[a.PollID]++
	closed := c.ctx.Err() != nil
	if err != nil && !closed {
		c.store.PatchPoll(a.PollID, models.VoteFields(a.Snapshot))
	}
	c.mu.Unlock()

	if err != nil {
		verr := &VoteError{PollID: a.PollID, OptionID: a.OptionID, Err: err}
		a.finish(VoteRolledBack, verr)
		if !closed {
			c.cfg.Notifier.Notify(Notification{
				Kind:    NotifyFailure,
				PollID:  a.PollID,
				Message: "Vote failed. Rolled back.",
				Err:     verr,
			})
		}
		return
	}

	a.finish(VoteConfirmed, nil)
	if !closed {
		c.cfg.Notifier.Notify(Notification{
			Kind:    NotifySuccess,
			PollID:  a.PollID,
			Message: "Vote updated!",
		})
	}
}

// Rate blends a 1..5 star rating into the poll's local rating and returns
// the new value. With ConfirmRatings set the star is also sent to the
// source, and a refusal restores the previous rating.
func (c *VoteController) Rate(pollID string, star int) (float64, error) {
	if star < 1 || star > 5 {
		return 0, ErrInvalidStar
	}
	if c.ctx.Err() != nil {
		return 0, ErrSessionClosed
	}

	c.mu.Lock()
	poll, ok := c.store.Poll(pollID)
	if !ok {
		c.mu.Unlock()
		return 0, ErrPollNotLoaded
	}
	prev := poll.Rating
	next := models.RoundRating((prev + float64(star)) / 2)
	c.store.PatchPoll(pollID, models.Patch{Rating: &next})
	c.mu.Unlock()

	if c.cfg.ConfirmRatings {
		c.wg.Add(1)
		go c.confirmRating(pollID, star, prev, next)
	}
	return next, nil
}

func (c *VoteController) confirmRating(pollID string, star int, prev, applied float64) {
	defer c.wg.Done()

	_, err := c.source.SubmitRating(c.ctx, pollID, star)

	if err == nil || c.ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	// A later Rate call owns the value now; leave it alone.
	if cur, ok := c.store.Poll(pollID); ok && cur.Rating == applied {
		c.store.PatchPoll(pollID, models.Patch{Rating: &prev})
	}
	c.mu.Unlock()

	c.cfg.Notifier.Notify(Notification{
		Kind:    NotifyFailure,
		PollID:  pollID,
		Message: "Rating failed.",
		Err:     err,
	})
}

// Wait blocks until every background submission has returned.
func (c *VoteController) Wait() {
	c.wg.Wait()
}
