// Package fake provides an in-memory platform.Transport that records every
// call, for tests of the relay and bot layers.
package fake

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/tbourn/go-modmail/internal/platform"
)

// Sent is one recorded outgoing message.
type Sent struct {
	ChannelID string // empty for direct messages
	UserID    string // set for direct messages
	MessageID string
	Payload   platform.Payload
}

// Edit is one recorded edit.
type Edit struct {
	ChannelID string
	UserID    string
	MessageID string
	Payload   platform.Payload
}

// Reaction is one recorded reaction.
type Reaction struct {
	ChannelID string
	MessageID string
	Emoji     string
}

// Transport records calls. Exported fields seed fetch results and inject
// failures; they must be set before concurrent use.
type Transport struct {
	Bot      platform.User
	Guilds   map[string][]platform.Guild    // userID -> guilds
	Members  map[string]platform.Member     // guildID+"/"+userID
	Channels map[string]platform.Channel    // channelID
	DMRefuse map[string]bool                // userIDs refusing DMs
	SendErr  map[string]error               // channelID -> error for SendToChannel
	Hook     func(name string, args ...any) // optional, called on every call

	mu         sync.Mutex
	seq        int
	Sent       []Sent
	Edits      []Edit
	Deleted    []string
	Reactions  []Reaction
	Unarchived []string
	Removed    []string // deleted channel ids
	Threads    []platform.Channel
	Acks       []platform.Payload
}

// New returns a Transport with empty seed maps.
func New() *Transport {
	return &Transport{
		Bot:      platform.User{ID: "bot", Username: "modmail", AvatarURL: "bot.png", Bot: true},
		Guilds:   map[string][]platform.Guild{},
		Members:  map[string]platform.Member{},
		Channels: map[string]platform.Channel{},
		DMRefuse: map[string]bool{},
		SendErr:  map[string]error{},
	}
}

// AddGuild registers g for userID and records a plain member entry.
func (f *Transport) AddGuild(userID string, g platform.Guild) {
	f.Guilds[userID] = append(f.Guilds[userID], g)
	key := g.ID + "/" + userID
	if _, ok := f.Members[key]; !ok {
		f.Members[key] = platform.Member{GuildID: g.ID, User: platform.User{ID: userID, Username: "user" + userID}}
	}
}

func (f *Transport) nextID() string {
	f.seq++
	return "m" + strconv.Itoa(f.seq)
}

func (f *Transport) hook(name string, args ...any) {
	if f.Hook != nil {
		f.Hook(name, args...)
	}
}

func (f *Transport) BotUser() platform.User { return f.Bot }

func (f *Transport) SendToChannel(_ context.Context, channelID string, p platform.Payload) (platform.Message, error) {
	f.hook("SendToChannel", channelID, p)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.SendErr[channelID]; err != nil {
		return platform.Message{}, err
	}
	id := f.nextID()
	f.Sent = append(f.Sent, Sent{ChannelID: channelID, MessageID: id, Payload: p})
	return platform.Message{ID: id, ChannelID: channelID, Author: f.Bot, Content: p.Content}, nil
}

func (f *Transport) EditMessage(_ context.Context, channelID, messageID string, p platform.Payload) error {
	f.hook("EditMessage", channelID, messageID, p)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits = append(f.Edits, Edit{ChannelID: channelID, MessageID: messageID, Payload: p})
	return nil
}

func (f *Transport) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.hook("DeleteMessage", channelID, messageID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

func (f *Transport) SendDirectToUser(_ context.Context, userID string, p platform.Payload) (platform.Message, error) {
	f.hook("SendDirectToUser", userID, p)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DMRefuse[userID] {
		return platform.Message{}, platform.ErrDeliveryRefused
	}
	id := f.nextID()
	f.Sent = append(f.Sent, Sent{UserID: userID, MessageID: id, Payload: p})
	return platform.Message{ID: id, ChannelID: "dm-" + userID, Author: f.Bot, Content: p.Content}, nil
}

func (f *Transport) EditDirectMessage(_ context.Context, userID, messageID string, p platform.Payload) error {
	f.hook("EditDirectMessage", userID, messageID, p)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits = append(f.Edits, Edit{UserID: userID, MessageID: messageID, Payload: p})
	return nil
}

func (f *Transport) FetchUserGuilds(_ context.Context, userID string) ([]platform.Guild, error) {
	f.hook("FetchUserGuilds", userID)
	return append([]platform.Guild(nil), f.Guilds[userID]...), nil
}

func (f *Transport) FetchGuild(_ context.Context, guildID string) (platform.Guild, error) {
	f.hook("FetchGuild", guildID)
	for _, gs := range f.Guilds {
		for _, g := range gs {
			if g.ID == guildID {
				return g, nil
			}
		}
	}
	return platform.Guild{ID: guildID, Name: "guild-" + guildID}, nil
}

func (f *Transport) FetchMember(_ context.Context, guildID, userID string) (platform.Member, error) {
	f.hook("FetchMember", guildID, userID)
	if m, ok := f.Members[guildID+"/"+userID]; ok {
		return m, nil
	}
	return platform.Member{}, errors.New("unknown member")
}

func (f *Transport) FetchChannel(_ context.Context, channelID string) (platform.Channel, error) {
	f.hook("FetchChannel", channelID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.Channels[channelID]; ok {
		return c, nil
	}
	return platform.Channel{}, errors.New("unknown channel")
}

func (f *Transport) ReactToMessage(_ context.Context, channelID, messageID, emoji string) error {
	f.hook("ReactToMessage", channelID, messageID, emoji)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactions = append(f.Reactions, Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emoji})
	return nil
}

func (f *Transport) CreateThreadChannel(_ context.Context, guildID, parentID, name string) (platform.Channel, error) {
	f.hook("CreateThreadChannel", guildID, parentID, name)
	f.mu.Lock()
	defer f.mu.Unlock()
	c := platform.Channel{ID: "t" + strconv.Itoa(len(f.Threads)+1), GuildID: guildID, ParentID: parentID, Name: name, IsThread: true}
	f.Threads = append(f.Threads, c)
	f.Channels[c.ID] = c
	return c, nil
}

func (f *Transport) UnarchiveThread(_ context.Context, channelID string) error {
	f.hook("UnarchiveThread", channelID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Unarchived = append(f.Unarchived, channelID)
	return nil
}

func (f *Transport) DeleteChannel(_ context.Context, channelID string) error {
	f.hook("DeleteChannel", channelID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removed = append(f.Removed, channelID)
	delete(f.Channels, channelID)
	return nil
}

func (f *Transport) AcknowledgeComponent(_ context.Context, ic platform.ComponentInteraction, p platform.Payload) error {
	f.hook("AcknowledgeComponent", ic, p)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Acks = append(f.Acks, p)
	return nil
}

// SentTo returns messages sent to channelID, in order.
func (f *Transport) SentTo(channelID string) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.Sent {
		if s.ChannelID == channelID && channelID != "" {
			out = append(out, s)
		}
	}
	return out
}

// DMsTo returns direct messages sent to userID, in order.
func (f *Transport) DMsTo(userID string) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.Sent {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

// EditsOf returns edits applied to messageID, in order.
func (f *Transport) EditsOf(messageID string) []Edit {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Edit
	for _, e := range f.Edits {
		if e.MessageID == messageID {
			out = append(out, e)
		}
	}
	return out
}

var _ platform.Transport = (*Transport)(nil)
