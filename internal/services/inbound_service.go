// Package services – InboundService
//
// This file wires the inbound path: preflight, guild selection, thread
// lookup-or-create and relay all run while the sender's queue slot is held,
// so a user's messages are relayed strictly in arrival order and a burst of
// first messages opens exactly one thread.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-modmail/internal/i18n"
	"github.com/tbourn/go-modmail/internal/platform"
	"github.com/tbourn/go-modmail/internal/queue"
)

// GuildSelector asks a user which guild a message is for. Implementations
// return ErrSelectionTimedOut when the user does not answer in time.
type GuildSelector interface {
	SelectGuild(ctx context.Context, msg platform.Message, guilds []platform.Guild) (platform.Guild, error)
}

// InboundService handles direct messages from users.
type InboundService struct {
	Queue     *queue.Registry
	Preflight *Preflight
	Threads   *ThreadService
	Relay     *RelayService
	Selector  GuildSelector
	Log       zerolog.Logger
}

// Enqueue takes msg's place in its sender's queue. Callers that hand
// messages to goroutines enqueue them in arrival order first and pass the
// ticket to HandleTicket. Ignored messages get no ticket.
func (s *InboundService) Enqueue(msg platform.Message) *queue.Ticket {
	if s.Preflight.Ignored(msg) {
		return nil
	}
	return s.Queue.Enqueue(msg.Author.ID)
}

// Handle relays one inbound message after the sender's earlier ones.
func (s *InboundService) Handle(ctx context.Context, msg platform.Message) error {
	return s.HandleTicket(ctx, msg, s.Enqueue(msg))
}

// HandleTicket relays msg once t's turn comes. Rejections are reported as
// the preflight sentinels (ErrIgnored, ErrNoGuilds, ErrMessageTooShort,
// ErrBlocked, ErrSelectionTimedOut); storage and transport errors are
// returned as is. t is released on every path.
func (s *InboundService) HandleTicket(ctx context.Context, msg platform.Message, t *queue.Ticket) error {
	if t == nil || s.Preflight.Ignored(msg) {
		t.Release()
		return ErrIgnored
	}

	tr := otel.Tracer("services/InboundService")
	ctx, span := tr.Start(ctx, "Handle",
		trace.WithAttributes(
			attribute.String("user.id", msg.Author.ID),
			attribute.String("message.id", msg.ID),
		),
	)
	defer span.End()

	err := t.Run(ctx, func(ctx context.Context) error {
		return s.handleLocked(ctx, msg)
	})
	if err != nil && !IsRejection(err) {
		span.RecordError(err)
	}
	return err
}

func (s *InboundService) handleLocked(ctx context.Context, msg platform.Message) error {
	res, err := s.Preflight.Resolve(ctx, msg)
	if err != nil {
		return err
	}
	guild := res.Guild
	if guild == nil {
		if s.Selector == nil {
			return ErrSelectionTimedOut
		}
		g, err := s.Selector.SelectGuild(ctx, msg, res.Candidates)
		if err != nil {
			return err
		}
		guild = &g
	}

	if err := s.Preflight.Admit(ctx, msg, *guild); err != nil {
		return err
	}

	opened, err := s.Threads.Open(ctx, *guild, msg.Author)
	if err != nil {
		if errors.Is(err, ErrGuildNotConfigured) {
			if _, serr := s.Threads.Transport.SendDirectToUser(ctx, msg.Author.ID, platform.Payload{
				Content: s.Threads.Render.P.T(i18n.KeyNotConfigured),
			}); serr != nil {
				s.Log.Warn().Err(serr).Str("user_id", msg.Author.ID).Msg("send not configured notice")
			}
		}
		return err
	}

	if _, err := s.Relay.UserToStaff(ctx, opened.Thread, opened.Settings, opened.Member, msg); err != nil {
		return err
	}

	if opened.Created {
		if err := s.Threads.Greet(ctx, *guild, opened); err != nil {
			s.Log.Warn().Err(err).Uint("thread_id", opened.Thread.ThreadID).Msg("send greeting")
		}
	}
	return nil
}

// IsRejection reports whether err is a preflight outcome rather than a
// failure.
func IsRejection(err error) bool {
	for _, target := range []error{ErrIgnored, ErrNoGuilds, ErrMessageTooShort, ErrBlocked, ErrSelectionTimedOut} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
