// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Backend is a source.Backend stored in SQL. Queries use $n placeholders,
// which both lib/pq and modernc.org/sqlite accept.
type Backend struct {
	db *sql.DB
}

// NewBackend wraps an open connection whose schema already exists.
func NewBackend(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// ForVoter returns a PollSource bound to voterToken.
func (b *Backend) ForVoter(voterToken string) source.PollSource {
	return &session{db: b.db, voter: voterToken}
}

// Count returns the number of polls in the catalogue.
func (b *Backend) Count(ctx context.Context) (int, error) {
	var n int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM poll`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count polls: %w", err)
	}
	return n, nil
}

type session struct {
	db    *sql.DB
	voter string
}

// args builds a positional argument list and hands out placeholders.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

func (a *args) list(vs []string) string {
	ph := make([]string, len(vs))
	for i, v := range vs {
		ph[i] = a.add(v)
	}
	return strings.Join(ph, ", ")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (s *session) ListPolls(ctx context.Context, req models.ListRequest) (models.ListResponse, error) {
	req = source.NormalizeListRequest(req)

	var (
		a     args
		where []string
	)
	if req.Filters.Genre != models.FilterAll {
		where = append(where, "genre = "+a.add(req.Filters.Genre))
	}
	if req.Filters.Status != models.FilterAll {
		where = append(where, "status = "+a.add(req.Filters.Status))
	}
	if strings.TrimSpace(req.Query) != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(req.Query)) + "%"
		where = append(where, "LOWER(title) LIKE "+a.add(pattern)+" ESCAPE '!'")
	}

	q := `SELECT id, title, genre, status, total_votes, rating FROM poll`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	// one extra row tells us whether another page exists
	q += " ORDER BY seq LIMIT " + a.add(req.PageSize+1) + " OFFSET " + a.add(req.Page*req.PageSize)

	polls, err := s.queryPolls(ctx, s.db, q, a...)
	if err != nil {
		return models.ListResponse{}, err
	}

	resp := models.ListResponse{Polls: polls, HasMore: len(polls) > req.PageSize}
	if resp.HasMore {
		resp.Polls = polls[:req.PageSize]
	}
	return resp, nil
}

func (s *session) FetchByIDs(ctx context.Context, ids []string) ([]models.PollRecord, error) {
	if len(ids) == 0 {
		return []models.PollRecord{}, nil
	}

	var a args
	q := `SELECT id, title, genre, status, total_votes, rating FROM poll WHERE id IN (` + a.list(ids) + `)`
	polls, err := s.queryPolls(ctx, s.db, q, a...)
	if err != nil {
		return nil, err
	}

	// keep the caller's order
	byID := make(map[string]models.PollRecord, len(polls))
	for _, p := range polls {
		byID[p.ID] = p
	}
	out := make([]models.PollRecord, 0, len(polls))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
			delete(byID, id)
		}
	}
	return out, nil
}

func (s *session) CastVote(ctx context.Context, pollID, optionID string) (models.PollRecord, error) {
	if s.voter == "" {
		return models.PollRecord{}, source.ErrVoterRequired
	}

	var rec models.PollRecord
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM poll WHERE id = $1`, pollID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return source.ErrPollNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check poll: %w", err)
		}

		err = tx.QueryRowContext(ctx, `SELECT 1 FROM option WHERE id = $1 AND poll_id = $2`, optionID, pollID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return source.ErrOptionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check option: %w", err)
		}

		var previous string
		err = tx.QueryRowContext(ctx, `
			SELECT option_id FROM vote WHERE poll_id = $1 AND voter_token = $2
		`, pollID, s.voter).Scan(&previous)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to load vote: %w", err)
		}

		if previous != optionID {
			if err := s.moveVote(ctx, tx, pollID, previous, optionID); err != nil {
				return err
			}
		}

		polls, err := s.queryPolls(ctx, tx, `
			SELECT id, title, genre, status, total_votes, rating FROM poll WHERE id = $1
		`, pollID)
		if err != nil {
			return err
		}
		rec = polls[0]
		return nil
	})
	if err != nil {
		return models.PollRecord{}, err
	}
	return rec, nil
}

// moveVote records the voter's new choice. A first vote adds a voter to the
// poll; a switch moves one vote between options.
func (s *session) moveVote(ctx context.Context, tx *sql.Tx, pollID, previous, optionID string) error {
	now := time.Now().UTC()

	if previous == "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE poll SET total_votes = total_votes + 1 WHERE id = $1
		`, pollID); err != nil {
			return fmt.Errorf("failed to count voter: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO vote (poll_id, voter_token, option_id, updated_at)
			VALUES ($1, $2, $3, $4)
		`, pollID, s.voter, optionID, now); err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			UPDATE option SET votes = votes - 1 WHERE id = $1 AND votes > 0
		`, previous); err != nil {
			return fmt.Errorf("failed to withdraw vote: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE vote SET option_id = $1, updated_at = $2
			WHERE poll_id = $3 AND voter_token = $4
		`, optionID, now, pollID, s.voter); err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE option SET votes = votes + 1 WHERE id = $1
	`, optionID); err != nil {
		return fmt.Errorf("failed to add vote: %w", err)
	}
	return nil
}

func (s *session) SubmitRating(ctx context.Context, pollID string, rating int) (float64, error) {
	if err := source.ValidateRating(rating); err != nil {
		return 0, err
	}

	var blended float64
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		var prev float64
		err := tx.QueryRowContext(ctx, `SELECT rating FROM poll WHERE id = $1`, pollID).Scan(&prev)
		if errors.Is(err, sql.ErrNoRows) {
			return source.ErrPollNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load rating: %w", err)
		}

		blended = source.BlendRating(prev, rating)
		if _, err := tx.ExecContext(ctx, `UPDATE poll SET rating = $1 WHERE id = $2`, blended, pollID); err != nil {
			return fmt.Errorf("failed to update rating: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return blended, nil
}

// queryPolls runs a poll query and attaches options and this voter's
// selections.
func (s *session) queryPolls(ctx context.Context, q querier, query string, params ...any) ([]models.PollRecord, error) {
	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}

	polls := []models.PollRecord{}
	for rows.Next() {
		var p models.PollRecord
		if err := rows.Scan(&p.ID, &p.Title, &p.Genre, &p.Status, &p.TotalVotes, &p.Rating); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		p.Options = []models.Option{}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read polls: %w", err)
	}
	rows.Close()

	if len(polls) == 0 {
		return polls, nil
	}

	idx := make(map[string]int, len(polls))
	ids := make([]string, len(polls))
	for i, p := range polls {
		idx[p.ID] = i
		ids[i] = p.ID
	}

	if err := s.attachOptions(ctx, q, polls, idx, ids); err != nil {
		return nil, err
	}
	if s.voter != "" {
		if err := s.attachVotes(ctx, q, polls, idx, ids); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

func (s *session) attachOptions(ctx context.Context, q querier, polls []models.PollRecord, idx map[string]int, ids []string) error {
	var a args
	rows, err := q.QueryContext(ctx, `
		SELECT poll_id, id, label, votes FROM option
		WHERE poll_id IN (`+a.list(ids)+`)
		ORDER BY poll_id, position
	`, a...)
	if err != nil {
		return fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pollID string
		var o models.Option
		if err := rows.Scan(&pollID, &o.ID, &o.Label, &o.Votes); err != nil {
			return fmt.Errorf("failed to scan option: %w", err)
		}
		if i, ok := idx[pollID]; ok {
			polls[i].Options = append(polls[i].Options, o)
		}
	}
	return rows.Err()
}

func (s *session) attachVotes(ctx context.Context, q querier, polls []models.PollRecord, idx map[string]int, ids []string) error {
	var a args
	voter := a.add(s.voter)
	rows, err := q.QueryContext(ctx, `
		SELECT poll_id, option_id FROM vote
		WHERE voter_token = `+voter+` AND poll_id IN (`+a.list(ids)+`)
	`, a...)
	if err != nil {
		return fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pollID, optionID string
		if err := rows.Scan(&pollID, &optionID); err != nil {
			return fmt.Errorf("failed to scan vote: %w", err)
		}
		if i, ok := idx[pollID]; ok {
			polls[i].UserVote = optionID
		}
	}
	return rows.Err()
}
