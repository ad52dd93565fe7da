// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package source defines the PollSource contract used by the client engine
and provides the in-process implementations.

# Contract

	ListPolls(ctx, req)            page of the filtered catalogue + has_more
	CastVote(ctx, pollID, option)  record the voter's choice
	FetchByIDs(ctx, ids)           fresh snapshots, unknown ids omitted
	SubmitRating(ctx, pollID, r)   weighted rating average

Genre and status filters match exactly unless "All". A non-blank query is a
case-insensitive substring match on the title. Pages are offset slices of
the filtered list.

# Votes

CastVote keeps one vote per voter and poll. Switching moves a vote from the
old option to the new one and leaves TotalVotes alone; a first vote also
increments TotalVotes. Casting the option already held is a no-op.

# Backends

A Backend hands out voter-scoped sources:

	mem := source.NewMemory(source.Generate(2000, rng))
	src := mem.ForVoter(token)

Chaos wraps any Backend with latency and a CastVote failure rate, which is
how rollback paths get exercised against a healthy catalogue:

	flaky := source.NewChaos(mem, source.WithLatency(200*time.Millisecond, 500*time.Millisecond))

The SQL backend lives in package db and the HTTP client in package client.
*/
package source
