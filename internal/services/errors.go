// Package services implements the modmail relay: guild settings, the thread
// lifecycle, the dual-sided message relay, the preflight gate, and the
// inbound pipeline that ties them together under the per-user queue.
//
// This file centralizes service-level error values so that callers (the bot
// event handlers and the HTTP handlers) can map them consistently.
package services

import "errors"

// Preflight outcomes.
var (
	// ErrIgnored marks messages the relay does not handle at all (bots,
	// guild channels).
	ErrIgnored = errors.New("message ignored")

	// ErrNoGuilds is returned when the user shares no participating guild.
	ErrNoGuilds = errors.New("user shares no participating guild")

	// ErrMessageTooShort is returned for a first-contact message under the
	// minimum word count.
	ErrMessageTooShort = errors.New("first message too short")

	// ErrBlocked is returned when the user is blocked in the chosen guild.
	ErrBlocked = errors.New("user is blocked")

	// ErrSelectionTimedOut is returned when the guild selection prompt idles out.
	ErrSelectionTimedOut = errors.New("guild selection timed out")
)

// Relay and lifecycle errors.
var (
	// ErrDeliveryFailed is returned when the user-facing copy of a staff reply
	// could not be delivered. No reply id is consumed.
	ErrDeliveryFailed = errors.New("reply could not be delivered to the user")

	// ErrGuildNotConfigured is returned when a guild has no modmail channel.
	ErrGuildNotConfigured = errors.New("guild has no modmail channel configured")

	// ErrThreadNotFound is returned when no open thread matches.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrThreadMessageNotFound is returned when a reply id does not exist in
	// the thread.
	ErrThreadMessageNotFound = errors.New("thread message not found")

	// ErrNotMessageAuthor is returned when a staff member edits someone
	// else's reply.
	ErrNotMessageAuthor = errors.New("only the original author can edit this reply")

	// ErrEmptyReply is returned for a staff reply with no content and no
	// attachments.
	ErrEmptyReply = errors.New("reply is empty")
)

// Settings errors.
var (
	// ErrInvalidSettings wraps every settings validation failure.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrSettingsNotFound is returned when a guild was never configured.
	ErrSettingsNotFound = errors.New("settings not found")
)
