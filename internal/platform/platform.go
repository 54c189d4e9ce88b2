// Package platform defines the transport-neutral message model and the
// narrow Transport interface the relay uses to talk to the chat platform.
// Concrete adapters live in subpackages.
package platform

import (
	"context"
	"errors"
)

// ErrDeliveryRefused is returned by SendDirectToUser when the platform
// refuses a direct message, e.g. because the user disabled them.
var ErrDeliveryRefused = errors.New("direct message delivery refused")

// User is an external identity.
type User struct {
	ID            string
	Username      string
	GlobalName    string
	Discriminator string
	AvatarURL     string
	Bot           bool
}

// Tag returns the legacy "name#1234" form, or just the username for
// accounts without a discriminator.
func (u User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// Member is a User inside a guild.
type Member struct {
	User      User
	GuildID   string
	Nick      string
	AvatarURL string // guild-specific avatar, may be empty
}

// DisplayName prefers the guild nickname, then the global name.
func (m Member) DisplayName() string {
	switch {
	case m.Nick != "":
		return m.Nick
	case m.User.GlobalName != "":
		return m.User.GlobalName
	default:
		return m.User.Username
	}
}

// DisplayAvatarURL prefers the guild avatar.
func (m Member) DisplayAvatarURL() string {
	if m.AvatarURL != "" {
		return m.AvatarURL
	}
	return m.User.AvatarURL
}

// Guild is a community the bot and the user share.
type Guild struct {
	ID          string
	Name        string
	IconURL     string
	MemberCount int
}

// Channel is a platform channel or thread.
type Channel struct {
	ID       string
	GuildID  string
	ParentID string
	Name     string
	IsThread bool
	Archived bool
}

// Attachment is a file on an inbound message.
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
}

// IsImage reports whether the attachment can be embedded as an image.
func (a Attachment) IsImage() bool {
	switch a.ContentType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return true
	}
	return false
}

// Message is a sent or received message.
type Message struct {
	ID          string
	ChannelID   string
	GuildID     string // empty for direct messages
	Author      User
	Content     string
	Attachments []Attachment
}

// EmbedAuthor is a card's author line.
type EmbedAuthor struct {
	Name    string
	IconURL string
}

// EmbedFooter is a card's footer line.
type EmbedFooter struct {
	Text    string
	IconURL string
}

// EmbedField is a titled card section.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich card.
type Embed struct {
	Title       string
	Description string
	Color       int
	Author      *EmbedAuthor
	Footer      *EmbedFooter
	ImageURL    string
	Fields      []EmbedField
}

// SelectOption is one choice in a select menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

// SelectMenu is a single-choice dropdown attached to a message.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
	Disabled    bool
}

// Payload is outgoing message content.
type Payload struct {
	Content string
	Embeds  []Embed
	Select  *SelectMenu
	// MentionRoles lists role ids allowed to ping; all other mentions are
	// suppressed.
	MentionRoles []string
	// ClearComponents removes existing components on edit.
	ClearComponents bool
}

// ComponentInteraction is a user acting on a message component.
type ComponentInteraction struct {
	ID        string
	Token     string
	MessageID string
	ChannelID string
	UserID    string
	CustomID  string
	Values    []string
}

// Transport is the relay's view of the chat platform.
type Transport interface {
	// BotUser returns the connected bot account.
	BotUser() User

	SendToChannel(ctx context.Context, channelID string, p Payload) (Message, error)
	EditMessage(ctx context.Context, channelID, messageID string, p Payload) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// SendDirectToUser returns ErrDeliveryRefused when the user cannot be
	// messaged.
	SendDirectToUser(ctx context.Context, userID string, p Payload) (Message, error)
	EditDirectMessage(ctx context.Context, userID, messageID string, p Payload) error

	FetchUserGuilds(ctx context.Context, userID string) ([]Guild, error)
	FetchGuild(ctx context.Context, guildID string) (Guild, error)
	FetchMember(ctx context.Context, guildID, userID string) (Member, error)
	FetchChannel(ctx context.Context, channelID string) (Channel, error)

	ReactToMessage(ctx context.Context, channelID, messageID, emoji string) error

	// CreateThreadChannel opens a thread under parentID named name.
	CreateThreadChannel(ctx context.Context, guildID, parentID, name string) (Channel, error)
	UnarchiveThread(ctx context.Context, channelID string) error
	DeleteChannel(ctx context.Context, channelID string) error

	// AcknowledgeComponent replaces the interacted message with p.
	AcknowledgeComponent(ctx context.Context, ic ComponentInteraction, p Payload) error
}
