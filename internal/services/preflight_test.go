package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-modmail/internal/platform"
	"github.com/tbourn/go-modmail/internal/repo"
)

func TestPreflight_Ignored(t *testing.T) {
	p := &Preflight{}
	if !p.Ignored(platform.Message{Author: platform.User{Bot: true}}) {
		t.Fatalf("bot message should be ignored")
	}
	if !p.Ignored(platform.Message{GuildID: "g", Author: platform.User{ID: "u"}}) {
		t.Fatalf("guild message should be ignored")
	}
	if p.Ignored(dm("hello")) {
		t.Fatalf("direct message from a human must pass")
	}
}

func TestPreflight_ResolveNoGuilds(t *testing.T) {
	e := newEnv(t)
	delete(e.T.Guilds, testUserID)

	_, err := e.Preflight.Resolve(context.Background(), dm("hi"))
	if !errors.Is(err, ErrNoGuilds) {
		t.Fatalf("want ErrNoGuilds, got %v", err)
	}
	if dms := e.T.DMsTo(testUserID); len(dms) != 1 {
		t.Fatalf("user should be told, got %+v", dms)
	}
}

func TestPreflight_ResolveSingleAndMany(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	res, err := e.Preflight.Resolve(ctx, dm("hi"))
	if err != nil || res.Guild == nil || res.Guild.ID != testGuildID {
		t.Fatalf("single guild = %+v, %v", res, err)
	}

	other := platform.Guild{ID: "100000000000000002", Name: "Beta"}
	e.T.AddGuild(testUserID, other)
	res, err = e.Preflight.Resolve(ctx, dm("hi"))
	if err != nil || res.Guild != nil || len(res.Candidates) != 2 {
		t.Fatalf("two guilds without thread = %+v, %v", res, err)
	}

	// An open thread in one guild resolves the ambiguity.
	if _, err := repo.CreateThread(ctx, e.DB, other.ID, testUserID, "t-beta"); err != nil {
		t.Fatalf("seed thread: %v", err)
	}
	res, err = e.Preflight.Resolve(ctx, dm("hi"))
	if err != nil || res.Guild == nil || res.Guild.ID != other.ID {
		t.Fatalf("thread should resolve guild: %+v, %v", res, err)
	}
}

func TestPreflight_AdmitTooShort(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	err := e.Preflight.Admit(ctx, dm("only four words here"), e.Guild)
	if !errors.Is(err, ErrMessageTooShort) {
		t.Fatalf("want ErrMessageTooShort, got %v", err)
	}
	dms := e.T.DMsTo(testUserID)
	if len(dms) != 1 || dms[0].Payload.Embeds[0].Author.Name != "Acme - Notice" {
		t.Fatalf("notice = %+v", dms)
	}
	held := e.T.SentTo(testLogChan)
	if len(held) != 1 {
		t.Fatalf("held card not logged: %+v", held)
	}
	card := held[0].Payload.Embeds[0]
	if card.Title != "Direct Message Held" || card.Fields[0].Value != "only four words here" {
		t.Fatalf("held card = %+v", card)
	}

	if err := e.Preflight.Admit(ctx, dm("this one has five words"), e.Guild); err != nil {
		t.Fatalf("five words should pass: %v", err)
	}
}

func TestPreflight_AdmitShortWithThread(t *testing.T) {
	e := newEnv(t)
	e.openThread(t)
	if err := e.Preflight.Admit(context.Background(), dm("ok"), e.Guild); err != nil {
		t.Fatalf("short follow-up should pass: %v", err)
	}
}

func TestPreflight_AdmitBlocked(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	if err := repo.CreateBlock(ctx, e.DB, testGuildID, testUserID); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := e.Preflight.Admit(ctx, dm("a long enough first message"), e.Guild); !errors.Is(err, ErrBlocked) {
		t.Fatalf("want ErrBlocked, got %v", err)
	}
	if len(e.T.DMsTo(testUserID)) != 0 {
		t.Fatalf("blocked users are dropped silently")
	}
}

func TestWordCount(t *testing.T) {
	cases := map[string]int{"": 0, "  ": 0, "a": 1, "a  b\tc\nd": 4, " lead and trail ": 3}
	for in, want := range cases {
		if got := WordCount(in); got != want {
			t.Errorf("WordCount(%q) = %d; want %d", in, got, want)
		}
	}
}
