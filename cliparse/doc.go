// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded into the environment first,
without overriding variables that are already set.

# CLI Flags

	-p             Server port (default: 3318)
	-d             Database URL (empty: in-memory backend)
	-t             Database type, sqlite or postgres (default: sqlite)
	-mode          serve or browse (default: serve)
	-api           API base URL for browse mode (empty: in-process backend)
	-voter-secret  Voter token signing secret
	-seed          Polls generated into an empty backend (default: 2000)
	-fail-rate     Simulated vote failure rate (default: 0.07)
	-latency       Simulated source latency (default: 200ms)
	-refresh       Live refresh interval (default: 8s)
	-debounce      Search debounce delay (default: 300ms)
	-page-size     Polls per page (default: 20)

# Environment Variables

Flags fall back to environment variables:

	PORT               → -p
	DATABASE_URL       → -d
	DATABASE_TYPE      → -t
	MODE               → -mode
	API_URL            → -api
	VOTER_TOKEN_SECRET → -voter-secret
	SEED_POLLS         → -seed
	VOTE_FAILURE_RATE  → -fail-rate
	SOURCE_LATENCY     → -latency
	REFRESH_INTERVAL   → -refresh
	SEARCH_DEBOUNCE    → -debounce
	PAGE_SIZE          → -page-size

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error for malformed numbers or durations, an unknown
database type or mode, and a failure rate above 1.
*/
package cliparse
