// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package controllers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/store"
	"github.com/danielhkuo/moviepolls/testutil"
)

// bumped returns fresh copies of polls with every option gaining n votes.
func bumped(polls []models.PollRecord, n int) []models.PollRecord {
	out := make([]models.PollRecord, len(polls))
	for i, p := range polls {
		c := p.Clone()
		for j := range c.Options {
			c.Options[j].Votes += n
		}
		c.TotalVotes += n
		out[i] = c
	}
	return out
}

func loadedStore(t *testing.T, polls []models.PollRecord) *store.Store {
	t.Helper()
	st := store.New(20)
	if err := st.ReplacePage(polls, true); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestRefresh_PatchesLoadedPolls(t *testing.T) {
	polls := testutil.TestCatalogue(3)
	fresh := bumped(polls, 7)
	fake := &testutil.FakeSource{
		FetchFunc: func(ctx context.Context, ids []string) ([]models.PollRecord, error) {
			return fresh, nil
		},
	}
	st := loadedStore(t, polls)
	before := st.Snapshot()

	r := NewRefresher(st, fake, time.Hour, nil, nil)
	n, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 patched polls, got %d", n)
	}

	calls := fake.FetchCalls()
	if len(calls) != 1 || fmt.Sprint(calls[0]) != "[p1 p2 p3]" {
		t.Errorf("Expected one fetch of [p1 p2 p3], got %v", calls)
	}

	after := st.Snapshot()
	for i, p := range after.Polls {
		if p.TotalVotes != fresh[i].TotalVotes || p.Options[0].Votes != fresh[i].Options[0].Votes {
			t.Errorf("Poll %s not refreshed: %+v", p.ID, p)
		}
	}
	if after.Page != before.Page || after.HasMore != before.HasMore || after.Filters != before.Filters ||
		after.Query != before.Query || after.Epoch != before.Epoch || after.Loading != before.Loading {
		t.Errorf("Refresh changed the cursor: before %+v after %+v", before, after)
	}
}

func TestRefresh_EmptyStoreSkipsFetch(t *testing.T) {
	fake := &testutil.FakeSource{}
	r := NewRefresher(store.New(20), fake, time.Hour, nil, nil)

	n, err := r.Refresh(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Expected (0, nil), got (%d, %v)", n, err)
	}
	if len(fake.FetchCalls()) != 0 {
		t.Errorf("Expected no fetch, got %v", fake.FetchCalls())
	}
}

func TestRefresh_SkipsPollsWithVoteInFlight(t *testing.T) {
	polls := testutil.TestCatalogue(2)
	fake := &testutil.FakeSource{
		FetchFunc: func(ctx context.Context, ids []string) ([]models.PollRecord, error) {
			return bumped(polls, 1), nil
		},
	}
	st := loadedStore(t, polls)

	r := NewRefresher(st, fake, time.Hour, nil, VoteGuardFunc(func(id string) (uint64, bool) {
		return 0, id == "p1"
	}))
	n, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Expected 1 patched poll, got %d", n)
	}

	if p, _ := st.Poll("p1"); p.TotalVotes != polls[0].TotalVotes {
		t.Errorf("Skipped poll was patched: %+v", p)
	}
	if p, _ := st.Poll("p2"); p.TotalVotes != polls[1].TotalVotes+1 {
		t.Errorf("p2 not refreshed: %+v", p)
	}
}

func TestRefresh_SentBeforeVoteKeepsConfirmedState(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	stale := votePoll()
	fake := &testutil.FakeSource{
		FetchFunc: func(ctx context.Context, ids []string) ([]models.PollRecord, error) {
			close(started)
			<-release
			return []models.PollRecord{stale}, nil
		},
	}
	c, st, _ := newVoteFixture(t, fake, votePoll())
	r := NewRefresher(st, fake, time.Hour, nil, c)

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := r.Refresh(context.Background())
		done <- result{n, err}
	}()
	<-started

	a, err := c.Vote("p1", "A")
	if err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if state, err := a.Wait(context.Background()); state != VoteConfirmed {
		t.Fatalf("Expected confirmed, got %v (%v)", state, err)
	}

	close(release)
	res := <-done
	if res.err != nil || res.n != 0 {
		t.Errorf("Expected (0, nil), got (%d, %v)", res.n, res.err)
	}

	p := mustPoll(t, st, "p1")
	if p.UserVote != "A" || p.Options[0].Votes != 11 || p.TotalVotes != 16 {
		t.Errorf("Pre-vote data replaced the confirmed vote: %+v", p)
	}
}

func TestRefresh_IgnoresPollsNotLoaded(t *testing.T) {
	polls := testutil.TestCatalogue(2)
	stranger := testutil.TestPoll("zz", "Stranger", "Drama", models.StatusActive)
	fake := &testutil.FakeSource{
		FetchFunc: func(ctx context.Context, ids []string) ([]models.PollRecord, error) {
			return append(bumped(polls, 1), stranger), nil
		},
	}
	st := loadedStore(t, polls)

	n, err := NewRefresher(st, fake, time.Hour, nil, nil).Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected 2 patched polls, got %d", n)
	}
	if ids := st.LoadedIDs(); len(ids) != 2 {
		t.Errorf("Refresh must not add polls, got %v", ids)
	}
}

func TestRefresh_FailureLeavesStoreUnchanged(t *testing.T) {
	polls := testutil.TestCatalogue(2)
	fake := &testutil.FakeSource{
		FetchFunc: func(ctx context.Context, ids []string) ([]models.PollRecord, error) {
			return nil, errors.New("timeout")
		},
	}
	st := loadedStore(t, polls)
	before := st.Snapshot()

	_, err := NewRefresher(st, fake, time.Hour, nil, nil).Refresh(context.Background())
	var ferr *FetchError
	if !errors.As(err, &ferr) || ferr.Op != "refresh" {
		t.Errorf("Expected refresh FetchError, got %v", err)
	}

	after := st.Snapshot()
	for i := range before.Polls {
		if after.Polls[i].TotalVotes != before.Polls[i].TotalVotes {
			t.Errorf("Failed refresh changed %s", after.Polls[i].ID)
		}
	}
}

func TestRefresher_RunTicks(t *testing.T) {
	polls := testutil.TestCatalogue(2)
	fake := &testutil.FakeSource{
		FetchFunc: func(ctx context.Context, ids []string) ([]models.PollRecord, error) {
			return polls, nil
		},
	}
	st := loadedStore(t, polls)
	r := NewRefresher(st, fake, 10*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	testutil.Eventually(t, waitFor, func() bool { return len(fake.FetchCalls()) >= 3 }, "three ticks")
	cancel()
	<-done

	settled := len(fake.FetchCalls())
	time.Sleep(50 * time.Millisecond)
	if len(fake.FetchCalls()) != settled {
		t.Error("Refresher kept ticking after cancellation")
	}
}
