// Package bot turns platform events into relay operations: direct messages
// go through the inbound pipeline, prefixed staff commands inside thread
// channels become replies, edits and closes, and select menu interactions
// feed pending guild prompts.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-modmail/internal/i18n"
	"github.com/tbourn/go-modmail/internal/platform"
	"github.com/tbourn/go-modmail/internal/queue"
	"github.com/tbourn/go-modmail/internal/services"
)

// DefaultPrefix starts staff commands.
const DefaultPrefix = "="

// Handler dispatches platform events. OnMessage and OnComponent return
// quickly: the ordering decision is made before they return and the work
// runs on its own goroutine, so the event loop is never held by a slow
// relay or a pending guild prompt. Wait blocks until that work finishes.
type Handler struct {
	Inbound   *services.InboundService
	Threads   *services.ThreadService
	Relay     *services.RelayService
	Selector  *Selector
	Transport platform.Transport
	Printer   *i18n.Printer
	Prefix    string
	Log       zerolog.Logger

	wg sync.WaitGroup
}

// OnMessage handles one created message. It must be called in arrival
// order: direct messages queue per user and staff commands per channel.
func (h *Handler) OnMessage(ctx context.Context, msg platform.Message) {
	if msg.Author.Bot || msg.Author.ID == h.Transport.BotUser().ID {
		return
	}
	if msg.GuildID == "" {
		t := h.Inbound.Enqueue(msg)
		h.spawn(func() { h.onDirect(ctx, msg, t) })
		return
	}
	if cmd, ok := ParseCommand(h.prefix(), msg.Content); ok {
		t := h.Inbound.Queue.Enqueue(commandKey(msg.ChannelID))
		h.spawn(func() {
			_ = t.Run(ctx, func(ctx context.Context) error {
				h.onCommand(ctx, msg, cmd)
				return nil
			})
		})
	}
}

// OnComponent handles a select menu interaction.
func (h *Handler) OnComponent(ctx context.Context, ic platform.ComponentInteraction) {
	h.spawn(func() {
		if h.Selector == nil || !h.Selector.Dispatch(ctx, ic) {
			h.Log.Debug().Str("custom_id", ic.CustomID).Str("message_id", ic.MessageID).Msg("unrouted component interaction")
		}
	})
}

// Wait blocks until every spawned event has been handled.
func (h *Handler) Wait() { h.wg.Wait() }

func (h *Handler) spawn(fn func()) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn()
	}()
}

// commandKey keeps staff commands in one thread channel in order without
// sharing keys with users.
func commandKey(channelID string) string { return "channel:" + channelID }

func (h *Handler) onDirect(ctx context.Context, msg platform.Message, t *queue.Ticket) {
	err := h.Inbound.HandleTicket(ctx, msg, t)
	switch {
	case err == nil:
	case services.IsRejection(err), errors.Is(err, services.ErrGuildNotConfigured):
		h.Log.Debug().Err(err).Str("user_id", msg.Author.ID).Msg("inbound message not relayed")
	default:
		h.Log.Error().Err(err).Str("user_id", msg.Author.ID).Str("message_id", msg.ID).Msg("inbound relay failed")
	}
}

func (h *Handler) prefix() string {
	if h.Prefix == "" {
		return DefaultPrefix
	}
	return h.Prefix
}

// Command is a parsed staff command.
type Command struct {
	Name    string
	ReplyID int
	Text    string
}

// Command names.
const (
	CmdReply  = "reply"
	CmdAReply = "areply"
	CmdEdit   = "edit"
	CmdClose  = "close"
)

// ParseCommand parses "<prefix><name> [args]". Unknown names parse with an
// empty Name so callers can answer with usage.
func ParseCommand(prefix, content string) (Command, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return Command{}, false
	}
	rest := strings.TrimSpace(content[len(prefix):])
	name, args, _ := strings.Cut(rest, " ")
	if name == "" {
		return Command{}, false
	}
	args = strings.TrimSpace(args)

	switch name = strings.ToLower(name); name {
	case CmdReply, CmdAReply:
		return Command{Name: name, Text: args}, true
	case CmdClose:
		return Command{Name: name}, true
	case CmdEdit:
		idStr, text, _ := strings.Cut(args, " ")
		id, err := strconv.Atoi(idStr)
		if err != nil || id <= 0 {
			return Command{}, true
		}
		return Command{Name: name, ReplyID: id, Text: strings.TrimSpace(text)}, true
	}
	return Command{}, true
}

func (h *Handler) onCommand(ctx context.Context, msg platform.Message, cmd Command) {
	thread, err := h.Threads.FindByChannel(ctx, msg.ChannelID)
	if err != nil {
		if !errors.Is(err, services.ErrThreadNotFound) {
			h.Log.Error().Err(err).Str("channel_id", msg.ChannelID).Msg("resolve thread for command")
		}
		return
	}

	guild, err := h.Transport.FetchGuild(ctx, thread.GuildID)
	if err != nil {
		h.Log.Error().Err(err).Str("guild_id", thread.GuildID).Msg("fetch guild for command")
		return
	}
	staff, err := h.Transport.FetchMember(ctx, thread.GuildID, msg.Author.ID)
	if err != nil {
		staff = platform.Member{User: msg.Author, GuildID: thread.GuildID}
	}

	switch cmd.Name {
	case CmdReply, CmdAReply:
		_, err = h.Relay.StaffReply(ctx, services.StaffReplyInput{
			Thread:      thread,
			Guild:       guild,
			Staff:       staff,
			Content:     cmd.Text,
			Attachments: msg.Attachments,
			Anon:        cmd.Name == CmdAReply,
		})
	case CmdEdit:
		_, err = h.Relay.EditReply(ctx, services.EditReplyInput{
			Thread:      thread,
			Guild:       guild,
			Staff:       staff,
			ReplyID:     cmd.ReplyID,
			Content:     cmd.Text,
			Attachments: msg.Attachments,
		})
	case CmdClose:
		err = h.Threads.Close(ctx, thread, msg.Author)
	default:
		p := h.prefix()
		h.say(ctx, msg.ChannelID, h.Printer.T(i18n.KeyUsage, p, p, p, p))
		return
	}

	switch {
	case err == nil:
		if cmd.Name != CmdClose {
			if derr := h.Transport.DeleteMessage(ctx, msg.ChannelID, msg.ID); derr != nil {
				h.Log.Debug().Err(derr).Str("message_id", msg.ID).Msg("delete command message")
			}
		}
	case errors.Is(err, services.ErrDeliveryFailed):
		// Staff were already told in the thread.
	case errors.Is(err, services.ErrThreadMessageNotFound):
		h.say(ctx, msg.ChannelID, h.Printer.T(i18n.KeyReplyNotFound, cmd.ReplyID))
	case errors.Is(err, services.ErrNotMessageAuthor):
		h.say(ctx, msg.ChannelID, h.Printer.T(i18n.KeyNotAuthor, cmd.ReplyID))
	case errors.Is(err, services.ErrEmptyReply):
		p := h.prefix()
		h.say(ctx, msg.ChannelID, h.Printer.T(i18n.KeyUsage, p, p, p, p))
	default:
		h.Log.Error().Err(err).
			Str("command", cmd.Name).
			Uint("thread_id", thread.ThreadID).
			Str("staff_id", msg.Author.ID).
			Msg("staff command failed")
	}
}

func (h *Handler) say(ctx context.Context, channelID, text string) {
	if _, err := h.Transport.SendToChannel(ctx, channelID, platform.Payload{Content: text}); err != nil {
		h.Log.Warn().Err(err).Str("channel_id", channelID).Msg("send command feedback")
	}
}
