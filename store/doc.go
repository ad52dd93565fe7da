// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store holds the client session's poll state.

A Store is created once per session and injected into the controllers:

	st := store.New(20)

# State

  - Polls: loaded records in load order, unique by id
  - Page / PageSize / HasMore / Loading: pagination cursor
  - Filters / Query: the current epoch
  - Selected: the poll shown in the detail view

# Epochs

SetFilters and SetQuery start a new epoch. The poll list is emptied, the
page rewinds to 0 and the epoch counter moves on, so page results fetched
for an older epoch can be recognised and dropped by ApplyPage.

# Mutations

Every method is a single atomic update under one lock. Reads return deep
copies, so callers never observe a half-applied change and cannot alias
store memory.

	st.AppendPage(records, hasMore)
	st.PatchPoll(id, models.Patch{Rating: &r})

# Subscriptions

Subscribe delivers coalesced change signals; readers call Snapshot to get
the latest state.
*/
package store
