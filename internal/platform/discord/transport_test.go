package discord

import (
	"context"
	"strconv"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-modmail/internal/platform"
)

type recorder struct {
	messages   []string
	components []string
}

func (r *recorder) OnMessage(_ context.Context, msg platform.Message) {
	r.messages = append(r.messages, msg.ID)
}

func (r *recorder) OnComponent(_ context.Context, ic platform.ComponentInteraction) {
	r.components = append(r.components, ic.CustomID)
}

func TestNew_DispatchesEventsInOrder(t *testing.T) {
	tr, err := New("token", zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !tr.s.SyncEvents {
		t.Fatalf("gateway events must be dispatched synchronously")
	}
	if tr.s.Identify.Intents != Intents {
		t.Fatalf("intents = %v", tr.s.Identify.Intents)
	}
}

func TestOnMessageCreate_ForwardsInArrivalOrder(t *testing.T) {
	rec := &recorder{}
	cb := onMessageCreate(context.Background(), rec)

	const n = 50
	for i := 0; i < n; i++ {
		cb(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
			ID:        strconv.Itoa(i),
			ChannelID: "dm",
			Author:    &discordgo.User{ID: "u"},
			Content:   "hello",
		}})
	}
	cb(nil, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "no-author"}})
	cb(nil, &discordgo.MessageCreate{})

	if len(rec.messages) != n {
		t.Fatalf("forwarded %d; want %d", len(rec.messages), n)
	}
	for i, id := range rec.messages {
		if id != strconv.Itoa(i) {
			t.Fatalf("position %d = %s", i, id)
		}
	}
}

func TestOnInteractionCreate_OnlyComponents(t *testing.T) {
	rec := &recorder{}
	cb := onInteractionCreate(context.Background(), rec)

	cb(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
	}})
	cb(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:   "i1",
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: "pick"},
		User: &discordgo.User{ID: "u"},
	}})
	cb(nil, &discordgo.InteractionCreate{})

	if len(rec.components) != 1 || rec.components[0] != "pick" {
		t.Fatalf("components = %v", rec.components)
	}
}
