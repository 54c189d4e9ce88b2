// Package services – RelayService
//
// This file implements both relay directions. Staff replies follow a
// send-then-persist-then-edit sequence: both copies are sent first, the reply
// id is assigned only after the user copy was delivered, and the id is then
// edited into both copies. A refused delivery never consumes a reply id.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-modmail/internal/domain"
	"github.com/tbourn/go-modmail/internal/i18n"
	"github.com/tbourn/go-modmail/internal/observability"
	"github.com/tbourn/go-modmail/internal/platform"
	"github.com/tbourn/go-modmail/internal/repo"
)

// DeliveredEmoji is the reaction placed on a relayed user message.
const DeliveredEmoji = "✅"

// RelayService copies messages between a user and a thread channel.
type RelayService struct {
	DB        *gorm.DB
	Transport platform.Transport
	Settings  *SettingsService
	Render    *Renderer
	Log       zerolog.Logger
}

// UserToStaff relays msg into thread's channel and records it. Inbound
// messages get no reply id.
func (s *RelayService) UserToStaff(ctx context.Context, thread *domain.Thread, settings *domain.GuildSettings, member platform.Member, msg platform.Message) (*domain.ThreadMessage, error) {
	tr := otel.Tracer("services/RelayService")
	ctx, span := tr.Start(ctx, "UserToStaff",
		trace.WithAttributes(
			attribute.Int("thread.id", int(thread.ThreadID)),
			attribute.String("user.id", thread.UserID),
		),
	)
	defer span.End()

	sent, err := s.Transport.SendToChannel(ctx, thread.ChannelID, s.Render.Inbound(settings.SimpleMode, member, msg))
	if err != nil {
		observability.RelayTotal.WithLabelValues(observability.DirectionInbound, observability.OutcomeError).Inc()
		span.RecordError(err)
		return nil, err
	}

	row := &domain.ThreadMessage{
		ThreadID:       thread.ThreadID,
		GuildID:        thread.GuildID,
		UserID:         thread.UserID,
		UserMessageID:  msg.ID,
		GuildMessageID: sent.ID,
	}
	if err := repo.CreateThreadMessage(ctx, s.DB, row); err != nil {
		observability.RelayTotal.WithLabelValues(observability.DirectionInbound, observability.OutcomeError).Inc()
		span.RecordError(err)
		return nil, err
	}

	if err := s.Transport.ReactToMessage(ctx, msg.ChannelID, msg.ID, DeliveredEmoji); err != nil {
		s.Log.Warn().Err(err).Str("message_id", msg.ID).Msg("react to relayed message")
	}
	observability.RelayTotal.WithLabelValues(observability.DirectionInbound, observability.OutcomeOK).Inc()
	return row, nil
}

// StaffReplyInput describes a new staff reply.
type StaffReplyInput struct {
	Thread      *domain.Thread
	Guild       platform.Guild
	Staff       platform.Member
	Content     string
	Attachments []platform.Attachment
	Anon        bool
}

// StaffReply relays a staff reply to the thread's user.
//
// When the user refuses the direct message, the already posted thread copy
// is deleted, staff are told in the thread, and ErrDeliveryFailed is returned
// without touching the reply counter.
func (s *RelayService) StaffReply(ctx context.Context, in StaffReplyInput) (*domain.ThreadMessage, error) {
	tr := otel.Tracer("services/RelayService")
	ctx, span := tr.Start(ctx, "StaffReply",
		trace.WithAttributes(
			attribute.Int("thread.id", int(in.Thread.ThreadID)),
			attribute.String("staff.id", in.Staff.User.ID),
			attribute.Bool("anon", in.Anon),
		),
	)
	defer span.End()

	if strings.TrimSpace(in.Content) == "" && len(in.Attachments) == 0 {
		return nil, ErrEmptyReply
	}
	view, err := s.view(ctx, in.Thread, in.Guild, in.Staff, in.Content, in.Attachments, in.Anon)
	if err != nil {
		return nil, err
	}

	threadMsg, err := s.Transport.SendToChannel(ctx, in.Thread.ChannelID, s.Render.StaffThreadSide(view))
	if err != nil {
		observability.RelayTotal.WithLabelValues(observability.DirectionOutbound, observability.OutcomeError).Inc()
		span.RecordError(err)
		return nil, err
	}

	userMsg, err := s.Transport.SendDirectToUser(ctx, in.Thread.UserID, s.Render.StaffUserSide(view))
	if err != nil {
		if derr := s.Transport.DeleteMessage(ctx, in.Thread.ChannelID, threadMsg.ID); derr != nil {
			s.Log.Warn().Err(derr).Str("message_id", threadMsg.ID).Msg("delete undelivered reply")
		}
		if _, nerr := s.Transport.SendToChannel(ctx, in.Thread.ChannelID, platform.Payload{Content: s.Render.P.T(i18n.KeyDMFail)}); nerr != nil {
			s.Log.Warn().Err(nerr).Str("channel_id", in.Thread.ChannelID).Msg("post delivery failure notice")
		}
		if errors.Is(err, platform.ErrDeliveryRefused) {
			observability.RelayTotal.WithLabelValues(observability.DirectionOutbound, observability.OutcomeDeliveryFailed).Inc()
			return nil, ErrDeliveryFailed
		}
		observability.RelayTotal.WithLabelValues(observability.DirectionOutbound, observability.OutcomeError).Inc()
		span.RecordError(err)
		return nil, err
	}

	staffID := in.Staff.User.ID
	row := &domain.ThreadMessage{
		ThreadID:       in.Thread.ThreadID,
		GuildID:        in.Thread.GuildID,
		UserID:         in.Thread.UserID,
		UserMessageID:  userMsg.ID,
		GuildMessageID: threadMsg.ID,
		StaffID:        &staffID,
		Anon:           in.Anon,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repo.IncrementCounter(ctx, tx, in.Thread.ThreadID)
		if err != nil {
			return err
		}
		row.LocalThreadMessageID = &n
		return repo.CreateThreadMessage(ctx, tx, row)
	})
	if err != nil {
		observability.RelayTotal.WithLabelValues(observability.DirectionOutbound, observability.OutcomeError).Inc()
		span.RecordError(err)
		return nil, err
	}
	in.Thread.LastLocalThreadMessageID = *row.LocalThreadMessageID

	view.ReplyID = *row.LocalThreadMessageID
	s.reconcile(ctx, in.Thread, row, view)
	observability.RelayTotal.WithLabelValues(observability.DirectionOutbound, observability.OutcomeOK).Inc()
	return row, nil
}

// EditReplyInput describes a correction to an existing staff reply.
type EditReplyInput struct {
	Thread      *domain.Thread
	Guild       platform.Guild
	Staff       platform.Member
	ReplyID     int
	Content     string
	Attachments []platform.Attachment
}

// EditReply re-renders a stored reply in place. The reply id and anon flag
// are kept; only the original author may edit.
func (s *RelayService) EditReply(ctx context.Context, in EditReplyInput) (*domain.ThreadMessage, error) {
	tr := otel.Tracer("services/RelayService")
	ctx, span := tr.Start(ctx, "EditReply",
		trace.WithAttributes(
			attribute.Int("thread.id", int(in.Thread.ThreadID)),
			attribute.Int("reply.id", in.ReplyID),
		),
	)
	defer span.End()

	if strings.TrimSpace(in.Content) == "" && len(in.Attachments) == 0 {
		return nil, ErrEmptyReply
	}
	row, err := repo.GetThreadMessageByLocalID(ctx, s.DB, in.Thread.ThreadID, in.ReplyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadMessageNotFound
		}
		return nil, err
	}
	if row.StaffID == nil || *row.StaffID != in.Staff.User.ID {
		return nil, ErrNotMessageAuthor
	}

	view, err := s.view(ctx, in.Thread, in.Guild, in.Staff, in.Content, in.Attachments, row.Anon)
	if err != nil {
		return nil, err
	}
	view.ReplyID = in.ReplyID

	if err := s.Transport.EditMessage(ctx, in.Thread.ChannelID, row.GuildMessageID, s.Render.StaffThreadSide(view)); err != nil {
		observability.RelayTotal.WithLabelValues(observability.DirectionEdit, observability.OutcomeError).Inc()
		return nil, err
	}
	if err := s.Transport.EditDirectMessage(ctx, in.Thread.UserID, row.UserMessageID, s.Render.StaffUserSide(view)); err != nil {
		observability.RelayTotal.WithLabelValues(observability.DirectionEdit, observability.OutcomeError).Inc()
		return nil, err
	}
	observability.RelayTotal.WithLabelValues(observability.DirectionEdit, observability.OutcomeOK).Inc()
	return row, nil
}

// view resolves settings and the thread's member and renders content through
// the member's template variables.
func (s *RelayService) view(ctx context.Context, thread *domain.Thread, guild platform.Guild, staff platform.Member, content string, atts []platform.Attachment, anon bool) (ReplyView, error) {
	settings, err := s.Settings.Effective(ctx, thread.GuildID)
	if err != nil {
		return ReplyView{}, err
	}

	member, err := s.Transport.FetchMember(ctx, thread.GuildID, thread.UserID)
	if err != nil {
		member = platform.Member{User: platform.User{ID: thread.UserID}, GuildID: thread.GuildID}
	}
	return ReplyView{
		Guild:       guild,
		Staff:       staff,
		Content:     i18n.Substitute(content, VarsFor(member, guild)),
		Attachments: atts,
		Anon:        anon,
		Simple:      settings.SimpleMode,
	}, nil
}

// reconcile edits the now-known reply id into both copies. Failures are
// logged; the reply itself was already delivered and persisted.
func (s *RelayService) reconcile(ctx context.Context, thread *domain.Thread, row *domain.ThreadMessage, view ReplyView) {
	if err := s.Transport.EditMessage(ctx, thread.ChannelID, row.GuildMessageID, s.Render.StaffThreadSide(view)); err != nil {
		s.Log.Warn().Err(err).Str("message_id", row.GuildMessageID).Msg("edit reply id into thread copy")
	}
	if err := s.Transport.EditDirectMessage(ctx, thread.UserID, row.UserMessageID, s.Render.StaffUserSide(view)); err != nil {
		s.Log.Warn().Err(err).Str("message_id", row.UserMessageID).Msg("edit reply id into user copy")
	}
}
