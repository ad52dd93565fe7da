// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the poll records, filters, and wire types shared by
the client engine and the poll source API.

# Domain Types

  - PollRecord: one movie poll as seen by a voter session
  - Option: an answer with its vote count
  - Filters: genre and status filters, each possibly FilterAll
  - Patch: partial update applied by the state store
  - OptionResult: per-option row for the detail view

TotalVotes counts distinct voters. Switching a vote moves one vote between
options without changing TotalVotes, so it is not the sum of option votes.

# Request Types

  - ListRequest: page, page_size, filters, query
  - CastVoteRequest: option_id
  - SubmitRatingRequest: rating (1-5)
  - LookupRequest: ids

# Response Types

  - ListResponse: polls, has_more
  - CastVoteResponse: success, poll
  - SubmitRatingResponse: rating
  - LookupResponse: polls
  - ClaimVoterResponse: voter_token
  - ErrorResponse: error, message

# Constants

Status values:

	StatusActive = "Active"
	StatusClosed = "Closed"

Filter sentinel:

	FilterAll = "All"

# Helpers

Matches applies the catalogue filter semantics (exact genre and status,
case-insensitive title substring) and RoundRating keeps ratings at one
decimal inside [1.0, 5.0].
*/
package models
