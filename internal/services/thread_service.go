// Package services – ThreadService
//
// This file implements the thread lifecycle: NoThread → Open → Closed per
// (guild, user). Open is only safe when the caller holds the user's queue
// slot; the partial unique index on open threads is the storage backstop.
package services

import (
	"context"
	"errors"

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

// ThreadService opens and closes relay threads.
type ThreadService struct {
	DB        *gorm.DB
	Transport platform.Transport
	Settings  *SettingsService
	Render    *Renderer
	Log       zerolog.Logger
}

// OpenResult is the outcome of ThreadService.Open.
type OpenResult struct {
	Thread   *domain.Thread
	Settings *domain.GuildSettings
	Member   platform.Member
	// Created is true when this call created the thread.
	Created bool
}

// Find returns the open thread for (guild, user), or ErrThreadNotFound.
func (s *ThreadService) Find(ctx context.Context, guildID, userID string) (*domain.Thread, error) {
	t, err := repo.FindOpenThread(ctx, s.DB, guildID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}
	return t, err
}

// FindByChannel returns the open thread bound to channelID.
func (s *ThreadService) FindByChannel(ctx context.Context, channelID string) (*domain.Thread, error) {
	t, err := repo.FindOpenThreadByChannel(ctx, s.DB, channelID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}
	return t, err
}

// Open returns the open thread for user in guild, creating the host channel
// and row when none exists.
func (s *ThreadService) Open(ctx context.Context, guild platform.Guild, user platform.User) (*OpenResult, error) {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "Open",
		trace.WithAttributes(
			attribute.String("guild.id", guild.ID),
			attribute.String("user.id", user.ID),
		),
	)
	defer span.End()

	settings, err := s.Settings.Effective(ctx, guild.ID)
	if err != nil {
		return nil, err
	}
	member, err := s.Transport.FetchMember(ctx, guild.ID, user.ID)
	if err != nil {
		// Fall back to the bare user so relaying still works.
		member = platform.Member{User: user, GuildID: guild.ID}
	}
	res := &OpenResult{Settings: settings, Member: member}

	existing, err := s.Find(ctx, guild.ID, user.ID)
	switch {
	case err == nil:
		res.Thread = existing
		return res, nil
	case !errors.Is(err, ErrThreadNotFound):
		return nil, err
	}

	if settings.ModmailChannelID == nil || *settings.ModmailChannelID == "" {
		return nil, ErrGuildNotConfigured
	}
	ch, err := s.Transport.CreateThreadChannel(ctx, guild.ID, *settings.ModmailChannelID, user.Username)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	t, err := repo.CreateThread(ctx, s.DB, guild.ID, user.ID, ch.ID)
	if errors.Is(err, repo.ErrDuplicate) {
		// Another process won the race; drop the channel we just made.
		s.Log.Warn().Str("channel_id", ch.ID).Str("user_id", user.ID).Msg("open thread raced, reusing existing")
		if derr := s.Transport.DeleteChannel(ctx, ch.ID); derr != nil {
			s.Log.Warn().Err(derr).Str("channel_id", ch.ID).Msg("delete unused thread channel")
		}
		if res.Thread, err = s.Find(ctx, guild.ID, user.ID); err != nil {
			return nil, err
		}
		return res, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	res.Thread = t
	res.Created = true
	observability.ThreadsOpened.Inc()

	notice := platform.Payload{Content: s.Render.P.T(i18n.KeyNewThread, user.Tag(), user.ID)}
	if settings.AlertRoleID != nil && *settings.AlertRoleID != "" {
		notice.Content = "<@&" + *settings.AlertRoleID + "> " + notice.Content
		notice.MentionRoles = []string{*settings.AlertRoleID}
	}
	if _, err := s.Transport.SendToChannel(ctx, ch.ID, notice); err != nil {
		s.Log.Warn().Err(err).Str("channel_id", ch.ID).Msg("post thread opening notice")
	}

	s.Log.Info().
		Uint("thread_id", t.ThreadID).
		Str("guild_id", guild.ID).
		Str("user_id", user.ID).
		Str("channel_id", ch.ID).
		Msg("thread opened")
	return res, nil
}

// Greet sends the guild's greeting to both sides of a freshly opened thread.
// It is a no-op when no greeting is configured.
func (s *ThreadService) Greet(ctx context.Context, guild platform.Guild, res *OpenResult) error {
	tmpl := res.Settings.Greeting()
	if tmpl == "" {
		return nil
	}
	p := s.Render.Greeting(res.Settings.SimpleMode, guild, i18n.Substitute(tmpl, VarsFor(res.Member, guild)))
	if _, err := s.Transport.SendDirectToUser(ctx, res.Member.User.ID, p); err != nil {
		s.Log.Warn().Err(err).Str("user_id", res.Member.User.ID).Msg("send greeting to user")
	}
	_, err := s.Transport.SendToChannel(ctx, res.Thread.ChannelID, p)
	return err
}

// Close marks thread closed by closer and sends the farewell, if any.
// Closed threads are never reopened; the next inbound message opens a new one.
func (s *ThreadService) Close(ctx context.Context, thread *domain.Thread, closer platform.User) error {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "Close",
		trace.WithAttributes(attribute.Int("thread.id", int(thread.ThreadID))),
	)
	defer span.End()

	if err := repo.CloseThread(ctx, s.DB, thread.ThreadID, closer.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrThreadNotFound
		}
		span.RecordError(err)
		return err
	}
	closedBy := closer.ID
	thread.ClosedByID = &closedBy
	observability.ThreadsClosed.Inc()

	settings, err := s.Settings.Effective(ctx, thread.GuildID)
	if err != nil {
		return err
	}
	if tmpl := settings.Farewell(); tmpl != "" {
		guild, gerr := s.Transport.FetchGuild(ctx, thread.GuildID)
		if gerr != nil {
			guild = platform.Guild{ID: thread.GuildID}
		}
		member, merr := s.Transport.FetchMember(ctx, thread.GuildID, thread.UserID)
		if merr != nil {
			member = platform.Member{User: platform.User{ID: thread.UserID}, GuildID: thread.GuildID}
		}
		p := s.Render.Greeting(settings.SimpleMode, guild, i18n.Substitute(tmpl, VarsFor(member, guild)))
		if _, err := s.Transport.SendDirectToUser(ctx, thread.UserID, p); err != nil {
			s.Log.Warn().Err(err).Str("user_id", thread.UserID).Msg("send farewell")
		}
	}

	if _, err := s.Transport.SendToChannel(ctx, thread.ChannelID, platform.Payload{
		Content: s.Render.P.T(i18n.KeyThreadClosed, closer.Tag()),
	}); err != nil {
		s.Log.Warn().Err(err).Str("channel_id", thread.ChannelID).Msg("post thread closed notice")
	}
	s.Log.Info().Uint("thread_id", thread.ThreadID).Str("closed_by", closer.ID).Msg("thread closed")
	return nil
}

// ListOpenPage returns a page of a guild's open threads and the total count.
// Invalid page values fall back to the first page of 20.
func (s *ThreadService) ListOpenPage(ctx context.Context, guildID string, page, pageSize int) ([]domain.Thread, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountOpenThreads(ctx, s.DB, guildID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Thread{}, 0, nil
	}
	items, err := repo.ListOpenThreadsPage(ctx, s.DB, guildID, (page-1)*pageSize, pageSize)
	return items, total, err
}
