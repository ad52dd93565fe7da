// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db_test

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/danielhkuo/moviepolls/db"
	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
	"github.com/danielhkuo/moviepolls/testutil"
)

func seededBackend(t *testing.T, polls []models.PollRecord) *db.Backend {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	testutil.SeedTestDB(t, conn, polls)
	return db.NewBackend(conn)
}

func ids(polls []models.PollRecord) []string {
	out := make([]string, len(polls))
	for i, p := range polls {
		out[i] = p.ID
	}
	return out
}

func TestOpenUnsupportedType(t *testing.T) {
	_, err := db.Open("mysql", "whatever")
	if !errors.Is(err, db.ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}
}

func TestOpenFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polls.db")
	ctx := context.Background()

	conn, err := db.Open(db.TypeSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	testutil.SeedTestDB(t, conn, testutil.TestCatalogue(3))
	if _, err := db.NewBackend(conn).ForVoter("v1").CastVote(ctx, "p2", "p2-a"); err != nil {
		t.Fatalf("Failed to vote: %v", err)
	}
	conn.Close()

	// schema creation is idempotent on reopen
	conn, err = db.Open(db.TypeSQLite, path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer conn.Close()

	backend := db.NewBackend(conn)
	n, err := backend.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Expected 3 polls, got %d (%v)", n, err)
	}
	polls, err := backend.ForVoter("v1").FetchByIDs(ctx, []string{"p2"})
	if err != nil {
		t.Fatal(err)
	}
	if polls[0].UserVote != "p2-a" || polls[0].TotalVotes != 16 {
		t.Errorf("Vote did not persist: %+v", polls[0])
	}
}

func TestListPolls(t *testing.T) {
	catalogue := testutil.TestCatalogue(12)
	catalogue = append(catalogue,
		testutil.TestPoll("x1", "100% Pure", "Drama", models.StatusActive),
		testutil.TestPoll("x2", "Under_score", "Drama", models.StatusActive),
	)
	src := seededBackend(t, catalogue).ForVoter("")
	ctx := context.Background()

	tests := []struct {
		name     string
		req      models.ListRequest
		expected []string
		hasMore  bool
	}{
		{"first page", models.ListRequest{PageSize: 5}, []string{"p1", "p2", "p3", "p4", "p5"}, true},
		{"middle page", models.ListRequest{Page: 1, PageSize: 5}, []string{"p6", "p7", "p8", "p9", "p10"}, true},
		{"last page", models.ListRequest{Page: 2, PageSize: 5}, []string{"p11", "p12", "x1", "x2"}, false},
		{"exact fit has no more", models.ListRequest{PageSize: 14}, ids(catalogue), false},
		{"past the end", models.ListRequest{Page: 5, PageSize: 5}, []string{}, false},
		{"genre", models.ListRequest{PageSize: 20, Filters: models.Filters{Genre: "Drama", Status: models.FilterAll}}, []string{"p6", "x1", "x2"}, false},
		{"status", models.ListRequest{PageSize: 20, Filters: models.Filters{Genre: models.FilterAll, Status: models.StatusClosed}}, []string{"p3", "p6", "p9", "p12"}, false},
		{"genre and status", models.ListRequest{PageSize: 20, Filters: models.Filters{Genre: "Drama", Status: models.StatusClosed}}, []string{"p6"}, false},
		{"case-insensitive query", models.ListRequest{PageSize: 20, Query: "MOVIE 1"}, []string{"p1", "p10", "p11", "p12"}, false},
		{"percent is literal", models.ListRequest{PageSize: 20, Query: "0%"}, []string{"x1"}, false},
		{"underscore is literal", models.ListRequest{PageSize: 20, Query: "r_s"}, []string{"x2"}, false},
		{"query with filter", models.ListRequest{PageSize: 20, Query: "movie", Filters: models.Filters{Genre: "Action"}}, []string{"p1", "p8"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := src.ListPolls(ctx, tt.req)
			if err != nil {
				t.Fatalf("ListPolls failed: %v", err)
			}
			if got := ids(resp.Polls); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
			if resp.HasMore != tt.hasMore {
				t.Errorf("Expected has_more %v, got %v", tt.hasMore, resp.HasMore)
			}
		})
	}
}

func TestListPollsMatchesMemory(t *testing.T) {
	catalogue := source.Generate(150, rand.New(rand.NewSource(3)))
	sqlSrc := seededBackend(t, catalogue).ForVoter("")
	memSrc := source.NewMemory(catalogue).ForVoter("")
	ctx := context.Background()

	requests := []models.ListRequest{
		{PageSize: 20},
		{Page: 3, PageSize: 20},
		{PageSize: 50, Filters: models.Filters{Genre: "Horror", Status: models.StatusActive}},
		{PageSize: 50, Query: "the"},
		{Page: 1, PageSize: 7, Filters: models.Filters{Status: models.StatusClosed}},
	}

	for _, req := range requests {
		want, err := memSrc.ListPolls(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		got, err := sqlSrc.ListPolls(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Backends disagree for %+v:\nsql    %v\nmemory %v", req, ids(got.Polls), ids(want.Polls))
		}
	}
}

func TestFetchByIDs(t *testing.T) {
	src := seededBackend(t, testutil.TestCatalogue(5)).ForVoter("")
	ctx := context.Background()

	polls, err := src.FetchByIDs(ctx, []string{"p5", "missing", "p2", "p5"})
	if err != nil {
		t.Fatalf("FetchByIDs failed: %v", err)
	}
	if got := ids(polls); !reflect.DeepEqual(got, []string{"p5", "p2"}) {
		t.Errorf("Expected [p5 p2], got %v", got)
	}
	if len(polls[0].Options) != 2 || polls[0].Options[0].ID != "p5-a" {
		t.Errorf("Expected options in position order, got %+v", polls[0].Options)
	}

	empty, err := src.FetchByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty result, got %v (%v)", empty, err)
	}
}

func TestCastVote(t *testing.T) {
	backend := seededBackend(t, testutil.TestCatalogue(2))
	ctx := context.Background()
	alice := backend.ForVoter("alice")
	bob := backend.ForVoter("bob")

	steps := []struct {
		name     string
		src      source.PollSource
		optionID string
		total    int
		a, b     int
		userVote string
	}{
		{"alice first vote", alice, "p1-a", 16, 11, 5, "p1-a"},
		{"alice same option", alice, "p1-a", 16, 11, 5, "p1-a"},
		{"alice switches", alice, "p1-b", 16, 10, 6, "p1-b"},
		{"bob first vote", bob, "p1-b", 17, 10, 7, "p1-b"},
	}

	for _, s := range steps {
		t.Run(s.name, func(t *testing.T) {
			p, err := s.src.CastVote(ctx, "p1", s.optionID)
			if err != nil {
				t.Fatalf("CastVote failed: %v", err)
			}
			if p.TotalVotes != s.total || p.Options[0].Votes != s.a || p.Options[1].Votes != s.b {
				t.Errorf("Expected total=%d a=%d b=%d, got %+v", s.total, s.a, s.b, p)
			}
			if p.UserVote != s.userVote {
				t.Errorf("Expected user_vote %s, got %s", s.userVote, p.UserVote)
			}
		})
	}

	// votes are scoped per voter
	polls, _ := backend.ForVoter("carol").FetchByIDs(ctx, []string{"p1"})
	if polls[0].UserVote != "" {
		t.Errorf("Carol should see no vote, got %s", polls[0].UserVote)
	}
}

func TestCastVoteErrors(t *testing.T) {
	backend := seededBackend(t, testutil.TestCatalogue(2))
	ctx := context.Background()

	tests := []struct {
		name     string
		voter    string
		pollID   string
		optionID string
		expected error
	}{
		{"anonymous", "", "p1", "p1-a", source.ErrVoterRequired},
		{"unknown poll", "v", "nope", "p1-a", source.ErrPollNotFound},
		{"unknown option", "v", "p1", "zzz", source.ErrOptionNotFound},
		{"option of another poll", "v", "p1", "p2-a", source.ErrOptionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := backend.ForVoter(tt.voter).CastVote(ctx, tt.pollID, tt.optionID)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}

	// failed votes change nothing
	polls, _ := backend.ForVoter("v").FetchByIDs(ctx, []string{"p1"})
	if polls[0].TotalVotes != 15 || polls[0].UserVote != "" {
		t.Errorf("Failed votes changed the poll: %+v", polls[0])
	}
}

func TestConcurrentVotersSQL(t *testing.T) {
	backend := seededBackend(t, testutil.TestCatalogue(1))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 25 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := backend.ForVoter(uuid.NewString()).CastVote(ctx, "p1", "p1-a"); err != nil {
				t.Errorf("Voter %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	polls, _ := backend.ForVoter("").FetchByIDs(ctx, []string{"p1"})
	if polls[0].TotalVotes != 40 || polls[0].Options[0].Votes != 35 {
		t.Errorf("Expected 40 voters and 35 votes, got %+v", polls[0])
	}
}

func TestSubmitRating(t *testing.T) {
	src := seededBackend(t, testutil.TestCatalogue(1)).ForVoter("")
	ctx := context.Background()

	tests := []struct {
		name     string
		pollID   string
		stars    int
		expected float64
		err      error
	}{
		{"five", "p1", 5, 3.2, nil},
		{"five again", "p1", 5, 3.4, nil},
		{"one", "p1", 1, 3.2, nil},
		{"zero", "p1", 0, 0, source.ErrInvalidRating},
		{"unknown poll", "nope", 3, 0, source.ErrPollNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.SubmitRating(ctx, tt.pollID, tt.stars)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("Expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SubmitRating failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %.1f, got %.1f", tt.expected, got)
			}
		})
	}
}

func TestSeed(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()

	first := []models.PollRecord{
		{Title: "No Id", Genre: "Comedy", Rating: 4.26, Options: []models.Option{{Label: "Story", Votes: 2}}},
	}
	n, err := db.Seed(ctx, conn, first)
	if err != nil || n != 1 {
		t.Fatalf("Expected 1 seeded poll, got %d (%v)", n, err)
	}
	if _, err := db.Seed(ctx, conn, testutil.TestCatalogue(2)); err != nil {
		t.Fatalf("Failed to seed second batch: %v", err)
	}

	backend := db.NewBackend(conn)
	resp, err := backend.ForVoter("").ListPolls(ctx, models.ListRequest{PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Polls) != 3 {
		t.Fatalf("Expected 3 polls, got %d", len(resp.Polls))
	}

	generated := resp.Polls[0]
	if _, err := uuid.Parse(generated.ID); err != nil {
		t.Errorf("Expected a UUID poll id, got %q", generated.ID)
	}
	if _, err := uuid.Parse(generated.Options[0].ID); err != nil {
		t.Errorf("Expected a UUID option id, got %q", generated.Options[0].ID)
	}
	if generated.Status != models.StatusActive || generated.Rating != 4.3 {
		t.Errorf("Expected default status and rounded rating, got %+v", generated)
	}
	// later batches append after the existing catalogue
	if resp.Polls[1].ID != "p1" || resp.Polls[2].ID != "p2" {
		t.Errorf("Expected p1, p2 after the first batch, got %v", ids(resp.Polls))
	}

	if n, err := db.Seed(ctx, conn, nil); n != 0 || err != nil {
		t.Errorf("Expected empty seed to be a no-op, got %d (%v)", n, err)
	}
	if _, err := db.Seed(ctx, conn, testutil.TestCatalogue(1)); err == nil {
		t.Error("Expected duplicate poll id to fail")
	}
}
