// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the movie poll service and its
console browser.

Users browse a large catalogue of movie polls, filter it by genre and
status, search titles, cast or switch a vote with an optimistic update that
rolls back on failure, rate movies, and watch vote counts refresh live.

# Serving the API

	go run . -mode serve

With no database URL the catalogue lives in memory, seeded with generated
polls. Point it at SQLite or PostgreSQL to persist votes:

	go run . -d polls.db
	go run . -t postgres -d "postgres://..."

An empty database is seeded on first start.

# Browsing

	go run . -mode browse                          # in-process catalogue
	go run . -mode browse -api http://localhost:3318

The browse console drives a client session: the same store and controllers
a graphical front end would use. Type help for its commands.

# Configuration

Every flag has an environment fallback, and a .env file is loaded first:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_URL (-d): SQLite path or PostgreSQL URL (default: in-memory)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - MODE (-mode): serve or browse (default: serve)
  - API_URL (-api): Server to browse (default: in-process)
  - VOTER_TOKEN_SECRET (-voter-secret): Signs voter tokens (default: random per process)
  - SEED_POLLS (-seed): Generated catalogue size (default: 2000)
  - VOTE_FAILURE_RATE (-fail-rate): Simulated vote failure rate (default: 0.07)
  - SOURCE_LATENCY (-latency): Simulated latency floor (default: 200ms)
  - REFRESH_INTERVAL (-refresh): Live refresh period (default: 8s)
  - SEARCH_DEBOUNCE (-debounce): Search quiet period (default: 300ms)
  - PAGE_SIZE (-page-size): Polls per page (default: 20)

# Architecture

  - models: Poll records, filters, patches and wire types
  - source: The PollSource contract, in-memory backend, generator, chaos decorator
  - db: SQL backend, schema and seeding
  - client: PollSource over the HTTP API
  - store: The client-side poll state store
  - controllers: Pagination, optimistic votes, live refresh, search, sessions
  - handlers, router, middleware: The HTTP API
  - auth: Voter token signing
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
