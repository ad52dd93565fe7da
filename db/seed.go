// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/danielhkuo/moviepolls/models"
)

// Seed inserts polls after the existing catalogue, in order. Polls and
// options without an id get a UUID. UserVote is ignored. Returns the number
// of polls inserted.
func Seed(ctx context.Context, conn *sql.DB, polls []models.PollRecord) (int, error) {
	if len(polls) == 0 {
		return 0, nil
	}

	err := runTx(ctx, conn, func(tx *sql.Tx) error {
		var seq int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM poll`).Scan(&seq); err != nil {
			return fmt.Errorf("failed to read catalogue position: %w", err)
		}

		insertPoll, err := tx.PrepareContext(ctx, `
			INSERT INTO poll (id, seq, title, genre, status, total_votes, rating)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare poll insert: %w", err)
		}
		defer insertPoll.Close()

		insertOption, err := tx.PrepareContext(ctx, `
			INSERT INTO option (id, poll_id, position, label, votes)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare option insert: %w", err)
		}
		defer insertOption.Close()

		for _, p := range polls {
			seq++
			id := p.ID
			if id == "" {
				id = uuid.NewString()
			}
			status := p.Status
			if status == "" {
				status = models.StatusActive
			}
			rating := models.RoundRating(p.Rating)

			if _, err := insertPoll.ExecContext(ctx, id, seq, p.Title, p.Genre, status, p.TotalVotes, rating); err != nil {
				return fmt.Errorf("failed to insert poll %s: %w", id, err)
			}
			for pos, o := range p.Options {
				optID := o.ID
				if optID == "" {
					optID = uuid.NewString()
				}
				if _, err := insertOption.ExecContext(ctx, optID, id, pos, o.Label, o.Votes); err != nil {
					return fmt.Errorf("failed to insert option %s: %w", optID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(polls), nil
}
