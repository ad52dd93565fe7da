// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package controllers

import "log/slog"

// NotificationKind distinguishes toast styles.
type NotificationKind int

const (
	NotifySuccess NotificationKind = iota
	NotifyFailure
)

func (k NotificationKind) String() string {
	if k == NotifyFailure {
		return "failure"
	}
	return "success"
}

// Notification is a user-visible message raised by a controller.
type Notification struct {
	Kind    NotificationKind
	PollID  string
	Message string
	Err     error
}

// Notifier delivers notifications to the presentation layer.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a slog logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if n.Kind == NotifyFailure {
		logger.Warn(n.Message, "poll_id", n.PollID, "error", n.Err)
		return
	}
	logger.Info(n.Message, "poll_id", n.PollID)
}
