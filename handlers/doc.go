// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the movie poll API.

# Handler Types

Each handler is a struct with a backend and config dependency:

  - PollHandler: Paged catalogue listing and id lookup
  - VotingHandler: Voter tokens, votes and star ratings
  - ResultsHandler: Single poll and per-option results

Handlers are created via constructor functions that accept any
source.Backend (in-memory, SQL, or either wrapped in source.Chaos):

	pollHandler := handlers.NewPollHandler(backend, cfg)

# Browsing

	GET  /polls?page=&page_size=&genre=&status=&q= → ListPolls
	POST /polls/lookup                            → Lookup (live refresh)
	GET  /polls/{id}                              → GetPoll
	GET  /polls/{id}/results                      → GetResults

genre and status accept "All" or a known value. q is a case-insensitive
title substring; a blank q matches everything.

# Voting

	POST /voters              → ClaimVoter (returns voter_token)
	POST /polls/{id}/votes    → CastVote (X-Voter-Token required)
	POST /polls/{id}/rating   → SubmitRating

Voter tokens are HMAC-signed by the server and never stored. Reads accept an
optional X-Voter-Token so user_vote reflects the caller.

# Errors

Bodies are models.ErrorResponse. Unknown polls and options map to 404,
validation failures to 400, bad tokens to 401 and backend failures
(including simulated ones) to 502.
*/
package handlers
