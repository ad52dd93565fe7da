// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package client implements source.PollSource over the movie poll HTTP API,
so a client session can run against a remote server.

# Usage

	c, err := client.New("http://localhost:3318")
	token, err := c.Register(ctx)
	src := c.ForVoter(token)

	session := controllers.NewSession(ctx, src, controllers.Config{})

Client also satisfies source.Backend, so ForVoter hands out copies bound to
other tokens. The anonymous client can browse but not vote.

# Errors

Non-2xx answers become *APIError. errors.Is matches them against:

  - source.ErrPollNotFound, source.ErrOptionNotFound (404)
  - ErrUnauthorized (401)
  - ErrBadRequest (other 4xx)
  - ErrServer (5xx, including simulated vote failures)

Transport errors and context cancellation are returned wrapped.

# Live Refresh

FetchByIDs splits large id lists into LookupChunk batches and fetches up to
four at once with an errgroup. The result keeps the requested order and
omits unknown ids.
*/
package client
