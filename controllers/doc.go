// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package controllers drives a store.Store from a source.PollSource.

# Controllers

  - Paginator: fetches the page the store cursor points at; LoadMore is the
    infinite-scroll trigger and retries a failed page
  - VoteController: optimistic votes with rollback, and local star ratings
  - Refresher: re-fetches loaded polls on a ticker and patches them in
  - Search: debounced query commit plus typeahead suggestions
  - Session: one store with all of the above, started and closed together

# Vote Protocol

	Idle -> Submitting -> Confirmed | RolledBack

Vote applies the change to the store before the source is called. If the
source refuses, the vote fields are restored from the snapshot taken before
the change and a failure notification is raised. One vote per poll may be in
flight; other polls are unaffected.

# Cancellation

Session.Close cancels the session context. Results that arrive later are
dropped without touching the store, and Close waits for every goroutine the
session started.
*/
package controllers
