// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package controllers

import (
	"errors"
	"fmt"
)

var (
	// ErrVoteInProgress rejects a vote while another on the same poll awaits the source.
	ErrVoteInProgress = errors.New("vote already in progress for this poll")
	// ErrPollNotLoaded means the poll is not in the store.
	ErrPollNotLoaded = errors.New("poll is not loaded")
	// ErrUnknownOption means the option id is not one of the poll's options.
	ErrUnknownOption = errors.New("option does not belong to poll")
	// ErrInvalidStar rejects ratings outside 1..5.
	ErrInvalidStar = errors.New("star rating must be between 1 and 5")
	// ErrSessionClosed is returned once the session context is cancelled.
	ErrSessionClosed = errors.New("session closed")
)

// FetchError reports a failed page, suggestion or refresh load. The store
// is left unchanged.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// VoteError reports a vote the source refused. The optimistic change has
// been rolled back by the time it is surfaced.
type VoteError struct {
	PollID   string
	OptionID string
	Err      error
}

func (e *VoteError) Error() string {
	return fmt.Sprintf("vote on poll %s option %s failed: %v", e.PollID, e.OptionID, e.Err)
}

func (e *VoteError) Unwrap() error { return e.Err }
