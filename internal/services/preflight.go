package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-modmail/internal/i18n"
	"github.com/tbourn/go-modmail/internal/observability"
	"github.com/tbourn/go-modmail/internal/platform"
	"github.com/tbourn/go-modmail/internal/repo"
)

// DefaultMinWords is the shortest first-contact message accepted.
const DefaultMinWords = 5

// Preflight is the gate an inbound direct message passes before it may
// open or use a thread. Checks run in a fixed order: ignore, guild lookup,
// selection, length, block.
type Preflight struct {
	DB        *gorm.DB
	Transport platform.Transport
	Render    *Renderer
	// LogChannelID receives held-message cards; empty disables them.
	LogChannelID string
	MinWords     int
	Log          zerolog.Logger
}

// Ignored reports whether msg is outside the relay: sent by a bot or inside
// a guild channel.
func (p *Preflight) Ignored(msg platform.Message) bool {
	return msg.Author.Bot || msg.GuildID != ""
}

// Resolution is the result of guild lookup for one inbound message.
type Resolution struct {
	// Guild is set when exactly one guild applies.
	Guild *platform.Guild
	// Candidates lists the guilds to choose from when Guild is nil.
	Candidates []platform.Guild
}

// Resolve finds the guild msg is addressed to. It returns ErrNoGuilds, after
// telling the user, when they share no participating guild. With several
// guilds, an open thread in one of them decides; otherwise the caller must
// prompt with Candidates.
func (p *Preflight) Resolve(ctx context.Context, msg platform.Message) (Resolution, error) {
	guilds, err := p.Transport.FetchUserGuilds(ctx, msg.Author.ID)
	if err != nil {
		return Resolution{}, err
	}
	switch len(guilds) {
	case 0:
		observability.PreflightRejections.WithLabelValues("no_guilds").Inc()
		if _, err := p.Transport.SendDirectToUser(ctx, msg.Author.ID, platform.Payload{Content: p.Render.P.T(i18n.KeyNoGuilds)}); err != nil {
			p.Log.Warn().Err(err).Str("user_id", msg.Author.ID).Msg("send no guilds notice")
		}
		return Resolution{}, ErrNoGuilds
	case 1:
		return Resolution{Guild: &guilds[0]}, nil
	}

	open, err := repo.ListOpenThreadsByUser(ctx, p.DB, msg.Author.ID)
	if err != nil {
		return Resolution{}, err
	}
	var match []platform.Guild
	for _, g := range guilds {
		for _, t := range open {
			if t.GuildID == g.ID {
				match = append(match, g)
				break
			}
		}
	}
	if len(match) == 1 {
		return Resolution{Guild: &match[0]}, nil
	}
	return Resolution{Candidates: guilds}, nil
}

// Admit applies the length and block checks for guild. A short first
// contact is dropped with a notice to the user and a held card in the
// moderation log.
func (p *Preflight) Admit(ctx context.Context, msg platform.Message, guild platform.Guild) error {
	hasThread := true
	if _, err := repo.FindOpenThread(ctx, p.DB, guild.ID, msg.Author.ID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		hasThread = false
	}

	if !hasThread && WordCount(msg.Content) < p.minWords() {
		observability.PreflightRejections.WithLabelValues("too_short").Inc()
		p.hold(ctx, msg, guild)
		return ErrMessageTooShort
	}

	blocked, err := repo.IsBlocked(ctx, p.DB, guild.ID, msg.Author.ID)
	if err != nil {
		return err
	}
	if blocked {
		observability.PreflightRejections.WithLabelValues("blocked").Inc()
		return ErrBlocked
	}
	return nil
}

func (p *Preflight) minWords() int {
	if p.MinWords <= 0 {
		return DefaultMinWords
	}
	return p.MinWords
}

func (p *Preflight) hold(ctx context.Context, msg platform.Message, guild platform.Guild) {
	text := p.Render.P.T(i18n.KeyTooShort, p.minWords())
	notice := platform.Payload{Embeds: []platform.Embed{p.Render.Notice(guild, text)}}
	if _, err := p.Transport.SendDirectToUser(ctx, msg.Author.ID, notice); err != nil {
		p.Log.Warn().Err(err).Str("user_id", msg.Author.ID).Msg("send too short notice")
	}
	if p.LogChannelID == "" {
		return
	}
	if _, err := p.Transport.SendToChannel(ctx, p.LogChannelID, p.Render.HeldCard(guild, text, msg)); err != nil {
		p.Log.Warn().Err(err).Str("channel_id", p.LogChannelID).Msg("post held message to log channel")
	}
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int { return len(strings.Fields(s)) }
