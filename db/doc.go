// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db stores the poll catalogue in SQL and serves it as a
source.Backend.

# Opening

Open connects, pings and creates the schema:

	conn, err := db.Open("sqlite", "file:polls.db")
	conn, err := db.Open("postgres", "postgres://...")

SQLite (modernc.org/sqlite) gets foreign keys and a busy timeout, plus WAL
for file databases. In-memory SQLite is pinned to one connection. PostgreSQL
uses github.com/lib/pq.

# Schema Creation

CreateSchema is safe to call multiple times - uses IF NOT EXISTS for all
tables and indexes.

# Tables

  - poll: Catalogue entry; seq fixes catalogue order
  - option: Answers per poll with their vote counts
  - vote: One choice per voter per poll

# Relationships

	poll 1──* option
	poll 1──* vote
	option 1──* vote

All foreign keys use ON DELETE CASCADE.

# Backend

	backend := db.NewBackend(conn)
	src := backend.ForVoter(voterToken)

CastVote and SubmitRating run in a transaction and retry SQLite lock
conflicts. Listing fetches one row past the page to compute has_more.

# Seeding

	n, err := db.Seed(ctx, conn, source.Generate(2000, rng))

Seed appends after the existing catalogue and assigns UUIDs to polls and
options that have no id.
*/
package db
