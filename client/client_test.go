// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/moviepolls/controllers"
	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/router"
	"github.com/danielhkuo/moviepolls/source"
	"github.com/danielhkuo/moviepolls/testutil"
)

func newTestServer(t *testing.T, backend source.Backend) *Client {
	t.Helper()

	srv := httptest.NewServer(router.NewRouter(backend, testutil.GetTestConfig()))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL + "/")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func register(t *testing.T, c *Client) source.PollSource {
	t.Helper()
	token, err := c.Register(context.Background())
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	return c.ForVoter(token)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http", "http://localhost:3318", false},
		{"https with path", "https://polls.example.com/api/", false},
		{"missing scheme", "localhost:3318", true},
		{"ftp", "ftp://example.com", true},
		{"garbage", "http://[::1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestListPolls(t *testing.T) {
	c := newTestServer(t, source.NewMemory(testutil.TestCatalogue(45)))

	tests := []struct {
		name          string
		req           models.ListRequest
		expectedCount int
		expectedMore  bool
		expectedFirst string
	}{
		{"first page", models.ListRequest{PageSize: 20}, 20, true, "p1"},
		{"last page", models.ListRequest{Page: 2, PageSize: 20}, 5, false, "p41"},
		{"genre", models.ListRequest{PageSize: 100, Filters: models.Filters{Genre: "Comedy", Status: models.FilterAll}}, 7, false, "p2"},
		{"status", models.ListRequest{PageSize: 100, Filters: models.Filters{Genre: models.FilterAll, Status: models.StatusClosed}}, 15, false, "p3"},
		{"query with spaces", models.ListRequest{PageSize: 20, Query: "movie 4"}, 7, false, "p4"},
		{"zero filters mean all", models.ListRequest{PageSize: 100}, 45, false, "p1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.ListPolls(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("ListPolls failed: %v", err)
			}
			if len(resp.Polls) != tt.expectedCount {
				t.Fatalf("Expected %d polls, got %d", tt.expectedCount, len(resp.Polls))
			}
			if resp.HasMore != tt.expectedMore {
				t.Errorf("Expected has_more %v, got %v", tt.expectedMore, resp.HasMore)
			}
			if resp.Polls[0].ID != tt.expectedFirst {
				t.Errorf("Expected %s first, got %s", tt.expectedFirst, resp.Polls[0].ID)
			}
		})
	}
}

func TestCastVote(t *testing.T) {
	c := newTestServer(t, source.NewMemory(testutil.TestCatalogue(2)))
	voter := register(t, c)
	ctx := context.Background()

	poll, err := voter.CastVote(ctx, "p1", "p1-b")
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if poll.UserVote != "p1-b" || poll.TotalVotes != 16 {
		t.Errorf("Unexpected poll after vote: %+v", poll)
	}

	tests := []struct {
		name     string
		src      source.PollSource
		pollID   string
		optionID string
		expected error
	}{
		{"unknown poll", voter, "nope", "p1-a", source.ErrPollNotFound},
		{"unknown option", voter, "p1", "p2-a", source.ErrOptionNotFound},
		{"anonymous", c, "p1", "p1-a", source.ErrVoterRequired},
		{"forged token", c.ForVoter("abc.def"), "p1", "p1-a", ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.src.CastVote(ctx, tt.pollID, tt.optionID)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
			if errors.Is(tt.expected, source.ErrPollNotFound) && !errors.Is(err, source.ErrNotFound) {
				t.Error("Expected not-found errors to match source.ErrNotFound")
			}
		})
	}
}

func TestCastVoteSimulatedFailure(t *testing.T) {
	backend := source.NewChaos(source.NewMemory(testutil.TestCatalogue(1)), source.WithFailureRate(1))
	c := newTestServer(t, backend)
	voter := register(t, c)

	_, err := voter.CastVote(context.Background(), "p1", "p1-a")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("Expected a 502 APIError, got %v", err)
	}
	if !errors.Is(err, ErrServer) {
		t.Errorf("Expected ErrServer, got %v", err)
	}
}

func TestFetchByIDs(t *testing.T) {
	catalogue := testutil.TestCatalogue(1200)
	c := newTestServer(t, source.NewMemory(catalogue))

	// reversed, so order must survive chunking
	ids := make([]string, 0, len(catalogue)+1)
	for i := len(catalogue) - 1; i >= 0; i-- {
		ids = append(ids, catalogue[i].ID)
		if i == 600 {
			ids = append(ids, "missing")
		}
	}

	polls, err := c.FetchByIDs(context.Background(), ids)
	if err != nil {
		t.Fatalf("FetchByIDs failed: %v", err)
	}
	if len(polls) != len(catalogue) {
		t.Fatalf("Expected %d polls, got %d", len(catalogue), len(polls))
	}
	for i, p := range polls {
		if want := fmt.Sprintf("p%d", len(catalogue)-i); p.ID != want {
			t.Fatalf("Position %d: expected %s, got %s", i, want, p.ID)
		}
	}

	empty, err := c.FetchByIDs(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty result, got %v (%v)", empty, err)
	}
}

func TestFetchByIDsChunkFailure(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"polls":[]}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	ids := make([]string, 3*LookupChunk)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
	}

	if _, err := c.FetchByIDs(context.Background(), ids); !errors.Is(err, ErrServer) {
		t.Errorf("Expected ErrServer from the failing chunk, got %v", err)
	}
}

func TestSubmitRating(t *testing.T) {
	c := newTestServer(t, source.NewMemory(testutil.TestCatalogue(1)))

	rating, err := c.SubmitRating(context.Background(), "p1", 5)
	if err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}
	if rating != 3.2 {
		t.Errorf("Expected 3.2, got %.1f", rating)
	}

	if _, err := c.SubmitRating(context.Background(), "p1", 9); !errors.Is(err, source.ErrInvalidRating) {
		t.Errorf("Expected ErrInvalidRating, got %v", err)
	}
	if _, err := c.SubmitRating(context.Background(), "nope", 3); !errors.Is(err, source.ErrPollNotFound) {
		t.Errorf("Expected ErrPollNotFound, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c, _ := New(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.ListPolls(ctx, models.ListRequest{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

// TestSessionOverHTTP drives a full client session against a live server
func TestSessionOverHTTP(t *testing.T) {
	mem := source.NewMemory(testutil.TestCatalogue(25))
	c := newTestServer(t, mem)
	voter := register(t, c)

	s := controllers.NewSession(context.Background(), voter, controllers.Config{
		PageSize:        10,
		RefreshInterval: time.Hour,
		Notifier:        controllers.NotifierFunc(func(controllers.Notification) {}),
	})
	s.Start()
	defer s.Close()

	testutil.Eventually(t, 2*time.Second, func() bool {
		snap := s.Store.Snapshot()
		return len(snap.Polls) == 10 && !snap.Loading
	}, "first page over HTTP")

	a, err := s.Votes.Vote("p2", "p2-a")
	if err != nil {
		t.Fatal(err)
	}
	if state, err := a.Wait(context.Background()); state != controllers.VoteConfirmed {
		t.Fatalf("Expected confirmed vote, got %v (%v)", state, err)
	}

	// another voter moves the counts; a refresh brings them in
	other := register(t, c)
	if _, err := other.CastVote(context.Background(), "p3", "p3-b"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Refresh.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	p2, _ := s.Store.Poll("p2")
	p3, _ := s.Store.Poll("p3")
	if p2.UserVote != "p2-a" || p2.Options[0].Votes != 11 {
		t.Errorf("Own vote lost after refresh: %+v", p2)
	}
	if p3.UserVote != "" || p3.Options[1].Votes != 6 || p3.TotalVotes != 16 {
		t.Errorf("Other voter's vote not refreshed: %+v", p3)
	}
}
