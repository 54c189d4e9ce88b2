package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/tbourn/go-modmail/internal/domain"
	"github.com/tbourn/go-modmail/internal/platform"
	"github.com/tbourn/go-modmail/internal/platform/fake"
	"github.com/tbourn/go-modmail/internal/repo"
)

func TestRelay_UserToStaff(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	th := e.openThread(t)
	settings := &domain.GuildSettings{GuildID: testGuildID, SimpleMode: true}
	msg := dm("I need some help please")

	row, err := e.Relay.UserToStaff(ctx, th, settings, platform.Member{User: e.User}, msg)
	if err != nil {
		t.Fatalf("UserToStaff: %v", err)
	}
	if row.LocalThreadMessageID != nil || row.StaffID != nil || row.UserMessageID != msg.ID {
		t.Fatalf("inbound row = %+v", row)
	}
	sent := e.T.SentTo("t-open")
	if len(sent) != 1 || sent[0].Payload.Content != "📥 **alice:** I need some help please" || row.GuildMessageID != sent[0].MessageID {
		t.Fatalf("thread copy = %+v", sent)
	}
	if len(e.T.Reactions) != 1 || e.T.Reactions[0].Emoji != DeliveredEmoji || e.T.Reactions[0].MessageID != msg.ID {
		t.Fatalf("reactions = %+v", e.T.Reactions)
	}
}

func TestRelay_StaffReplyAssignsIDAndReconciles(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.configure(t, nil)
	th := e.openThread(t)

	row, err := e.Relay.StaffReply(ctx, StaffReplyInput{Thread: th, Guild: e.Guild, Staff: e.Staff, Content: "Hello {{username}}"})
	if err != nil {
		t.Fatalf("StaffReply: %v", err)
	}
	if row.LocalThreadMessageID == nil || *row.LocalThreadMessageID != 1 || th.LastLocalThreadMessageID != 1 {
		t.Fatalf("reply id = %v, counter = %d", row.LocalThreadMessageID, th.LastLocalThreadMessageID)
	}

	threadCopy := e.T.SentTo("t-open")[0]
	userCopy := e.T.DMsTo(testUserID)[0]
	if threadCopy.Payload.Embeds[0].Description != "Hello alice" {
		t.Fatalf("template not applied: %+v", threadCopy.Payload.Embeds[0])
	}
	if row.GuildMessageID != threadCopy.MessageID || row.UserMessageID != userCopy.MessageID {
		t.Fatalf("stored ids = %+v", row)
	}
	if threadCopy.Payload.Embeds[0].Footer.Text != "bob (400000000000000001)" {
		t.Fatalf("pre-id footer = %q", threadCopy.Payload.Embeds[0].Footer.Text)
	}

	edits := e.T.EditsOf(threadCopy.MessageID)
	if len(edits) != 1 || !strings.HasPrefix(edits[0].Payload.Embeds[0].Footer.Text, "Reply ID: 1 | ") {
		t.Fatalf("thread reconciliation = %+v", edits)
	}
	if edits := e.T.EditsOf(userCopy.MessageID); len(edits) != 1 || edits[0].UserID != testUserID {
		t.Fatalf("user reconciliation = %+v", edits)
	}

	row2, err := e.Relay.StaffReply(ctx, StaffReplyInput{Thread: th, Guild: e.Guild, Staff: e.Staff, Content: "second"})
	if err != nil || *row2.LocalThreadMessageID != 2 {
		t.Fatalf("second reply = %+v, %v", row2, err)
	}
}

func TestRelay_StaffReplyAnonNeverLeaks(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.configure(t, nil)
	th := e.openThread(t)

	if _, err := e.Relay.StaffReply(ctx, StaffReplyInput{Thread: th, Guild: e.Guild, Staff: e.Staff, Content: "secret", Anon: true}); err != nil {
		t.Fatalf("StaffReply: %v", err)
	}
	userCopy := e.T.DMsTo(testUserID)[0]
	for _, p := range append([]platform.Payload{userCopy.Payload}, payloadsOf(e.T.EditsOf(userCopy.MessageID))...) {
		for _, em := range p.Embeds {
			if em.Footer != nil && strings.Contains(em.Footer.Text, testStaffID) {
				t.Fatalf("user copy leaks staff id: %+v", em.Footer)
			}
			if em.Author == nil || em.Author.Name != "Server Moderators" {
				t.Fatalf("user copy author = %+v", em.Author)
			}
		}
	}
}

func TestRelay_StaffReplyDeliveryRefused(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.configure(t, nil)
	th := e.openThread(t)
	e.T.DMRefuse[testUserID] = true

	_, err := e.Relay.StaffReply(ctx, StaffReplyInput{Thread: th, Guild: e.Guild, Staff: e.Staff, Content: "hello"})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("want ErrDeliveryFailed, got %v", err)
	}

	sent := e.T.SentTo("t-open")
	if len(sent) != 2 {
		t.Fatalf("want reply copy and failure notice, got %+v", sent)
	}
	if len(e.T.Deleted) != 1 || e.T.Deleted[0] != sent[0].MessageID {
		t.Fatalf("orphaned thread copy not deleted: %v", e.T.Deleted)
	}
	if !strings.Contains(sent[1].Payload.Content, "Could not deliver") {
		t.Fatalf("failure notice = %q", sent[1].Payload.Content)
	}

	msgs, _ := repo.ListThreadMessages(ctx, e.DB, th.ThreadID)
	got, _ := repo.GetThread(ctx, e.DB, th.ThreadID)
	if len(msgs) != 0 || got.LastLocalThreadMessageID != 0 {
		t.Fatalf("refused delivery consumed state: msgs=%d counter=%d", len(msgs), got.LastLocalThreadMessageID)
	}

	// The next delivered reply takes id 1.
	delete(e.T.DMRefuse, testUserID)
	row, err := e.Relay.StaffReply(ctx, StaffReplyInput{Thread: th, Guild: e.Guild, Staff: e.Staff, Content: "again"})
	if err != nil || *row.LocalThreadMessageID != 1 {
		t.Fatalf("after refusal = %+v, %v", row, err)
	}
}

func TestRelay_StaffReplyEmpty(t *testing.T) {
	e := newEnv(t)
	th := e.openThread(t)
	if _, err := e.Relay.StaffReply(context.Background(), StaffReplyInput{Thread: th, Guild: e.Guild, Staff: e.Staff, Content: "  "}); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("want ErrEmptyReply, got %v", err)
	}
}

func TestRelay_ConcurrentRepliesGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.configure(t, nil)
	th := e.openThread(t)

	const n = 12
	ids := make([]int, n)
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			local := *th
			row, err := e.Relay.StaffReply(ctx, StaffReplyInput{Thread: &local, Guild: e.Guild, Staff: e.Staff, Content: fmt.Sprintf("reply %d", i)})
			if err != nil {
				errs <- err
				return
			}
			ids[i] = *row.LocalThreadMessageID
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("StaffReply: %v", err)
	}
	sort.Ints(ids)
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("ids not gapless: %v", ids)
		}
	}
}

func TestRelay_EditReply(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.configure(t, func(s *domain.GuildSettings) { s.SimpleMode = true })
	th := e.openThread(t)

	orig, err := e.Relay.StaffReply(ctx, StaffReplyInput{Thread: th, Guild: e.Guild, Staff: e.Staff, Content: "tpyo", Anon: true})
	if err != nil {
		t.Fatalf("StaffReply: %v", err)
	}

	if _, err := e.Relay.EditReply(ctx, EditReplyInput{Thread: th, Guild: e.Guild, Staff: e.Staff, ReplyID: 1, Content: "typo"}); err != nil {
		t.Fatalf("EditReply: %v", err)
	}
	threadEdits := e.T.EditsOf(orig.GuildMessageID)
	last := threadEdits[len(threadEdits)-1].Payload.Content
	if last != "**`1` (Anonymous) (Acme Team) Server Moderators:** typo" {
		t.Fatalf("edited thread copy = %q", last)
	}
	userEdits := e.T.EditsOf(orig.UserMessageID)
	if got := userEdits[len(userEdits)-1].Payload.Content; got != "**`1` (Anonymous) Server Moderators:** typo" {
		t.Fatalf("edited user copy = %q", got)
	}

	msgs, _ := repo.ListThreadMessages(ctx, e.DB, th.ThreadID)
	if len(msgs) != 1 {
		t.Fatalf("edit must not create rows, got %d", len(msgs))
	}

	other := e.Staff
	other.User.ID = "999999999999999999"
	if _, err := e.Relay.EditReply(ctx, EditReplyInput{Thread: th, Guild: e.Guild, Staff: other, ReplyID: 1, Content: "x"}); !errors.Is(err, ErrNotMessageAuthor) {
		t.Fatalf("other author = %v", err)
	}
	if _, err := e.Relay.EditReply(ctx, EditReplyInput{Thread: th, Guild: e.Guild, Staff: e.Staff, ReplyID: 5, Content: "x"}); !errors.Is(err, ErrThreadMessageNotFound) {
		t.Fatalf("missing reply = %v", err)
	}
}

func payloadsOf(edits []fake.Edit) []platform.Payload {
	out := make([]platform.Payload, 0, len(edits))
	for _, e := range edits {
		out = append(out, e.Payload)
	}
	return out
}
