// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package controllers

import (
	"log/slog"
	"time"
)

// Config tunes a Session.
type Config struct {
	// PageSize is the page length requested from the source. Default: 20.
	PageSize int
	// RefreshInterval is the live refresh period. Default: 8s.
	RefreshInterval time.Duration
	// DebounceDelay is the search quiet period. Default: 300ms.
	DebounceDelay time.Duration
	// SuggestionPageSize is the page fetched for suggestions. Default: 50.
	SuggestionPageSize int
	// SuggestionLimit caps the suggestions kept. Default: 8.
	SuggestionLimit int
	// ConfirmRatings sends star ratings to the source and rolls back on failure.
	ConfirmRatings bool
	// Notifier receives vote and rating toasts. Default: LogNotifier.
	Notifier Notifier
	// Logger is used for fetch failures. Default: slog.Default().
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 8 * time.Second
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = 300 * time.Millisecond
	}
	if c.SuggestionPageSize <= 0 {
		c.SuggestionPageSize = 50
	}
	if c.SuggestionLimit <= 0 {
		c.SuggestionLimit = 8
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Notifier == nil {
		c.Notifier = LogNotifier{Logger: c.Logger}
	}
}
