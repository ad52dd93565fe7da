// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/moviepolls/cliparse"
	"github.com/danielhkuo/moviepolls/db"
	"github.com/danielhkuo/moviepolls/models"
)

// TestSecret signs voter tokens in tests
const TestSecret = "test-voter-secret"

// SetupTestDB opens a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

// SeedTestDB inserts polls into the test database
func SeedTestDB(t *testing.T, conn *sql.DB, polls []models.PollRecord) {
	t.Helper()

	if _, err := db.Seed(context.Background(), conn, polls); err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseType:    db.TypeSQLite,
		Mode:            cliparse.ModeServe,
		VoterSecret:     TestSecret,
		SeedPolls:       0,
		RefreshInterval: 8 * time.Second,
		SearchDebounce:  300 * time.Millisecond,
		PageSize:        20,
	}
}

// TestPoll builds a poll with two options "<id>-a" (10 votes) and
// "<id>-b" (5 votes), 15 voters and a 3.0 rating.
func TestPoll(id, title, genre, status string) models.PollRecord {
	return models.PollRecord{
		ID:     id,
		Title:  title,
		Genre:  genre,
		Status: status,
		Options: []models.Option{
			{ID: id + "-a", Label: "Story", Votes: 10},
			{ID: id + "-b", Label: "Acting", Votes: 5},
		},
		TotalVotes: 15,
		Rating:     3.0,
	}
}

// TestCatalogue returns n polls p1..pn cycling through the genres, every
// third poll closed.
func TestCatalogue(n int) []models.PollRecord {
	polls := make([]models.PollRecord, n)
	for i := range n {
		status := models.StatusActive
		if (i+1)%3 == 0 {
			status = models.StatusClosed
		}
		id := fmt.Sprintf("p%d", i+1)
		polls[i] = TestPoll(id, fmt.Sprintf("Movie %d", i+1), models.Genres[i%len(models.Genres)], status)
	}
	return polls
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// Eventually polls cond until it holds or the timeout passes
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %v: %s", timeout, msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
