package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/tbourn/go-modmail/internal/domain"
	"github.com/tbourn/go-modmail/internal/platform"
	"github.com/tbourn/go-modmail/internal/repo"
)

type stubSelector struct {
	pick   string
	err    error
	called int
	seen   []platform.Guild
}

func (s *stubSelector) SelectGuild(_ context.Context, _ platform.Message, guilds []platform.Guild) (platform.Guild, error) {
	s.called++
	s.seen = guilds
	if s.err != nil {
		return platform.Guild{}, s.err
	}
	for _, g := range guilds {
		if g.ID == s.pick {
			return g, nil
		}
	}
	return platform.Guild{}, ErrSelectionTimedOut
}

func TestInbound_FirstMessageOpensThreadAndGreets(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.configure(t, func(s *domain.GuildSettings) {
		s.SimpleMode = true
		s.GreetingMessage = strPtr("Thanks {{username}}")
	})

	if err := e.Inbound.Handle(ctx, dm("hello I need help with something")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	side := e.T.SentTo("t1")
	if len(side) != 3 {
		t.Fatalf("want notice, relay, greeting; got %+v", side)
	}
	if !strings.HasPrefix(side[1].Payload.Content, "📥 **alice:**") {
		t.Fatalf("relayed = %q", side[1].Payload.Content)
	}
	if side[2].Payload.Content != "⚙️ **Acme Staff:** Thanks alice" {
		t.Fatalf("greeting = %q", side[2].Payload.Content)
	}

	// A short follow-up reuses the thread and is not greeted again.
	if err := e.Inbound.Handle(ctx, dm("thanks")); err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	if got := len(e.T.SentTo("t1")); got != 4 || len(e.T.Threads) != 1 {
		t.Fatalf("follow-up sent %d, threads %d", got, len(e.T.Threads))
	}
	if got := e.Inbound.Queue.Len(); got != 1 {
		t.Fatalf("queue entries = %d", got)
	}
}

func TestInbound_Rejections(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.configure(t, nil)

	bot := dm("a message from some other bot")
	bot.Author.Bot = true
	if err := e.Inbound.Handle(ctx, bot); !errors.Is(err, ErrIgnored) {
		t.Fatalf("bot = %v", err)
	}
	if e.Inbound.Queue.Len() != 0 {
		t.Fatalf("ignored messages must not touch the queue")
	}

	if err := e.Inbound.Handle(ctx, dm("too short")); !errors.Is(err, ErrMessageTooShort) || !IsRejection(err) {
		t.Fatalf("short = %v", err)
	}
	if len(e.T.Threads) != 0 {
		t.Fatalf("no thread for rejected messages")
	}

	if err := repo.CreateBlock(ctx, e.DB, testGuildID, testUserID); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := e.Inbound.Handle(ctx, dm("please let me back in now")); !errors.Is(err, ErrBlocked) {
		t.Fatalf("blocked = %v", err)
	}
}

func TestInbound_NotConfigured(t *testing.T) {
	e := newEnv(t)
	err := e.Inbound.Handle(context.Background(), dm("hello is anybody out there"))
	if !errors.Is(err, ErrGuildNotConfigured) || IsRejection(err) {
		t.Fatalf("want ErrGuildNotConfigured, got %v", err)
	}
	dms := e.T.DMsTo(testUserID)
	if len(dms) != 1 || !strings.Contains(dms[0].Payload.Content, "not configured") {
		t.Fatalf("user notice = %+v", dms)
	}
}

func TestInbound_SelectsAmongGuilds(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.configure(t, nil)
	beta := platform.Guild{ID: "100000000000000002", Name: "Beta"}
	e.T.AddGuild(testUserID, beta)

	sel := &stubSelector{pick: testGuildID}
	e.Inbound.Selector = sel
	if err := e.Inbound.Handle(ctx, dm("which server is this going to")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sel.called != 1 || len(sel.seen) != 2 {
		t.Fatalf("selector calls = %d, seen = %+v", sel.called, sel.seen)
	}

	// The open thread now decides; no second prompt.
	if err := e.Inbound.Handle(ctx, dm("again")); err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	if sel.called != 1 {
		t.Fatalf("selector should not be asked again")
	}

	sel2 := &stubSelector{err: ErrSelectionTimedOut}
	e.Inbound.Selector = sel2
	if _, err := repo.CreateThread(ctx, e.DB, beta.ID, testUserID, "t-beta"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := e.Inbound.Handle(ctx, dm("now two threads are open")); !errors.Is(err, ErrSelectionTimedOut) {
		t.Fatalf("timeout = %v", err)
	}
}

// A burst of first messages from one user opens exactly one thread and
// relays every message in arrival order.
func TestInbound_ConcurrentBurstOpensOneThread(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.configure(t, nil)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- e.Inbound.Handle(ctx, dm(fmt.Sprintf("message number %d from the burst", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	var threads []domain.Thread
	if err := e.DB.Where("guild_id = ? AND user_id = ?", testGuildID, testUserID).Find(&threads).Error; err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(threads) != 1 || len(e.T.Threads) != 1 {
		t.Fatalf("threads: rows=%d channels=%d", len(threads), len(e.T.Threads))
	}
	msgs, _ := repo.ListThreadMessages(ctx, e.DB, threads[0].ThreadID)
	if len(msgs) != n {
		t.Fatalf("relayed %d of %d", len(msgs), n)
	}
}

func TestInbound_StorageFailureReleasesSlot(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.configure(t, nil)
	e.T.SendErr["t1"] = errors.New("boom")

	if err := e.Inbound.Handle(ctx, dm("this relay is going to fail")); err == nil || IsRejection(err) {
		t.Fatalf("want transport error, got %v", err)
	}
	delete(e.T.SendErr, "t1")
	if err := e.Inbound.Handle(ctx, dm("and this one goes through")); err != nil {
		t.Fatalf("next message blocked after failure: %v", err)
	}
}
