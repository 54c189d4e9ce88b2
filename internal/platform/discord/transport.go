// Package discord adapts a discordgo session to platform.Transport and
// forwards gateway events to an EventHandler.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-modmail/internal/platform"
)

// ThreadArchiveMinutes is the auto-archive duration of new thread channels.
const ThreadArchiveMinutes = 10080

// Intents are the gateway intents the relay needs.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// EventHandler receives converted gateway events.
type EventHandler interface {
	OnMessage(ctx context.Context, msg platform.Message)
	OnComponent(ctx context.Context, ic platform.ComponentInteraction)
}

// Transport is a platform.Transport over a discordgo session.
type Transport struct {
	s   *discordgo.Session
	log zerolog.Logger
}

var _ platform.Transport = (*Transport)(nil)

// New creates an unopened session for a bot token.
func New(token string, log zerolog.Logger) (*Transport, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	// Events reach the handler one at a time in gateway order. The
	// EventHandler must return quickly and do slow work on its own
	// goroutines.
	s.SyncEvents = true
	return &Transport{s: s, log: log}, nil
}

// Open registers h and connects to the gateway. Handlers run with ctx.
func (t *Transport) Open(ctx context.Context, h EventHandler) error {
	t.s.AddHandler(onMessageCreate(ctx, h))
	t.s.AddHandler(onInteractionCreate(ctx, h))
	t.s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		t.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord gateway ready")
	})
	if err := t.s.Open(); err != nil {
		return fmt.Errorf("discord gateway: %w", err)
	}
	return nil
}

func onMessageCreate(ctx context.Context, h EventHandler) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil || m.Author == nil {
			return
		}
		h.OnMessage(ctx, fromMessage(m.Message))
	}
}

func onInteractionCreate(ctx context.Context, h EventHandler) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Interaction == nil || i.Type != discordgo.InteractionMessageComponent {
			return
		}
		h.OnComponent(ctx, fromInteraction(i.Interaction))
	}
}

// Self fetches the bot's own account over REST, so it works before Open.
func (t *Transport) Self(ctx context.Context) (platform.User, error) {
	u, err := t.s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return platform.User{}, fmt.Errorf("discord self: %w", err)
	}
	return fromUser(u), nil
}

// Close disconnects from the gateway.
func (t *Transport) Close() error { return t.s.Close() }

func (t *Transport) BotUser() platform.User {
	if t.s.State == nil || t.s.State.User == nil {
		return platform.User{Bot: true}
	}
	return fromUser(t.s.State.User)
}

func (t *Transport) SendToChannel(ctx context.Context, channelID string, p platform.Payload) (platform.Message, error) {
	m, err := t.s.ChannelMessageSendComplex(channelID, toMessageSend(p), discordgo.WithContext(ctx))
	if err != nil {
		return platform.Message{}, err
	}
	return fromMessage(m), nil
}

func (t *Transport) EditMessage(ctx context.Context, channelID, messageID string, p platform.Payload) error {
	_, err := t.s.ChannelMessageEditComplex(toMessageEdit(channelID, messageID, p), discordgo.WithContext(ctx))
	return err
}

func (t *Transport) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return t.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (t *Transport) SendDirectToUser(ctx context.Context, userID string, p platform.Payload) (platform.Message, error) {
	ch, err := t.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Message{}, mapDeliveryErr(err)
	}
	m, err := t.s.ChannelMessageSendComplex(ch.ID, toMessageSend(p), discordgo.WithContext(ctx))
	if err != nil {
		return platform.Message{}, mapDeliveryErr(err)
	}
	return fromMessage(m), nil
}

func (t *Transport) EditDirectMessage(ctx context.Context, userID, messageID string, p platform.Payload) error {
	ch, err := t.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return mapDeliveryErr(err)
	}
	_, err = t.s.ChannelMessageEditComplex(toMessageEdit(ch.ID, messageID, p), discordgo.WithContext(ctx))
	return mapDeliveryErr(err)
}

// FetchUserGuilds checks membership in every guild the bot is in. Bots
// cannot list another user's guilds directly.
func (t *Transport) FetchUserGuilds(ctx context.Context, userID string) ([]platform.Guild, error) {
	var out []platform.Guild
	for _, g := range t.s.State.Guilds {
		if _, err := t.s.GuildMember(g.ID, userID, discordgo.WithContext(ctx)); err != nil {
			if isUnknownMember(err) {
				continue
			}
			return nil, err
		}
		out = append(out, fromGuild(g))
	}
	return out, nil
}

func (t *Transport) FetchGuild(ctx context.Context, guildID string) (platform.Guild, error) {
	if g, err := t.s.State.Guild(guildID); err == nil {
		return fromGuild(g), nil
	}
	g, err := t.s.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Guild{}, err
	}
	return fromGuild(g), nil
}

func (t *Transport) FetchMember(ctx context.Context, guildID, userID string) (platform.Member, error) {
	m, err := t.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Member{}, err
	}
	return fromMember(guildID, m), nil
}

func (t *Transport) FetchChannel(ctx context.Context, channelID string) (platform.Channel, error) {
	c, err := t.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Channel{}, err
	}
	return fromChannel(c), nil
}

func (t *Transport) ReactToMessage(ctx context.Context, channelID, messageID, emoji string) error {
	return t.s.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
}

func (t *Transport) CreateThreadChannel(ctx context.Context, guildID, parentID, name string) (platform.Channel, error) {
	c, err := t.s.ThreadStart(parentID, name, discordgo.ChannelTypeGuildPublicThread, ThreadArchiveMinutes, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Channel{}, err
	}
	out := fromChannel(c)
	if out.GuildID == "" {
		out.GuildID = guildID
	}
	return out, nil
}

func (t *Transport) UnarchiveThread(ctx context.Context, channelID string) error {
	archived := false
	_, err := t.s.ChannelEdit(channelID, &discordgo.ChannelEdit{Archived: &archived}, discordgo.WithContext(ctx))
	return err
}

func (t *Transport) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := t.s.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}

func (t *Transport) AcknowledgeComponent(ctx context.Context, ic platform.ComponentInteraction, p platform.Payload) error {
	return t.s.InteractionRespond(&discordgo.Interaction{
		ID:    ic.ID,
		AppID: t.s.State.User.ID,
		Token: ic.Token,
		Type:  discordgo.InteractionMessageComponent,
	}, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: toResponseData(p),
	}, discordgo.WithContext(ctx))
}

// mapDeliveryErr turns "cannot send messages to this user" into
// platform.ErrDeliveryRefused.
func mapDeliveryErr(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil && rest.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
		return fmt.Errorf("%w: %v", platform.ErrDeliveryRefused, err)
	}
	return err
}

func isUnknownMember(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) || rest.Message == nil {
		return false
	}
	return rest.Message.Code == discordgo.ErrCodeUnknownMember || rest.Message.Code == discordgo.ErrCodeUnknownUser
}
