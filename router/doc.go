// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the movie poll API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(backend, cfg)

# Endpoints

Health:

	GET /health
	GET /

Voter identity:

	POST /voters - Issue a signed voter token

Browsing (X-Voter-Token optional):

	GET  /polls               - Filtered, searched page of polls
	POST /polls/lookup        - Current state of the given poll ids
	GET  /polls/{id}          - One poll
	GET  /polls/{id}/results  - Per-option votes and percentages

Voting:

	POST /polls/{id}/votes  - Cast or switch a vote (X-Voter-Token required)
	POST /polls/{id}/rating - Fold a 1-5 star rating into the average

Every API route except the health checks is wrapped in
middleware.WithLogging. Wrap the mux in middleware.CORS for browser clients.
*/
package router
