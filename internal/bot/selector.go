package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-modmail/internal/i18n"
	"github.com/tbourn/go-modmail/internal/paginator"
	"github.com/tbourn/go-modmail/internal/platform"
	"github.com/tbourn/go-modmail/internal/services"
)

// GuildSelectCustomID identifies the guild selection menu.
const GuildSelectCustomID = "user-guild-selector"

// DefaultPageSize leaves room for the two navigation options within the
// platform's 25-option menu limit.
const DefaultPageSize = 10

// prompt is a live selection prompt awaiting interactions.
type prompt struct {
	userID string
	valid  map[string]bool
	events chan paginator.Event
	done   chan struct{}

	send    sync.Mutex // orders pending pushes with event sends
	mu      sync.Mutex
	pending []platform.ComponentInteraction // one per accepted event, answered in order
}

func (p *prompt) push(ic platform.ComponentInteraction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, ic)
}

func (p *prompt) dropLast() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.pending); n > 0 {
		p.pending = p.pending[:n-1]
	}
}

func (p *prompt) take() *platform.ComponentInteraction {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return nil
	}
	ic := p.pending[0]
	p.pending = p.pending[1:]
	return &ic
}

// Selector asks a user to pick a guild through a paginated select menu in
// their direct messages. Interactions reach it through Dispatch.
type Selector struct {
	Transport platform.Transport
	Printer   *i18n.Printer
	PageSize  int
	Idle      time.Duration
	Log       zerolog.Logger

	mu      sync.Mutex
	prompts map[string]*prompt // prompt message id
}

var _ services.GuildSelector = (*Selector)(nil)

// SelectGuild blocks until the user picks one of guilds or the prompt idles
// out, in which case the prompt is finalized and ErrSelectionTimedOut is
// returned.
func (s *Selector) SelectGuild(ctx context.Context, msg platform.Message, guilds []platform.Guild) (platform.Guild, error) {
	p := &prompt{
		userID: msg.Author.ID,
		valid:  make(map[string]bool, len(guilds)),
		events: make(chan paginator.Event),
		done:   make(chan struct{}),
	}
	for _, g := range guilds {
		p.valid[g.ID] = true
	}
	var promptMsg platform.Message

	render := func(page paginator.Page[platform.Guild]) error {
		payload := s.payload(page)
		if ic := p.take(); ic != nil {
			return s.Transport.AcknowledgeComponent(ctx, *ic, payload)
		}
		if promptMsg.ID != "" {
			return s.Transport.EditDirectMessage(ctx, p.userID, promptMsg.ID, payload)
		}
		sent, err := s.Transport.SendDirectToUser(ctx, p.userID, payload)
		if err != nil {
			return err
		}
		promptMsg = sent
		s.register(sent.ID, p)
		return nil
	}

	sess := paginator.NewSession(
		paginator.New(guilds, s.pageSize()),
		func(g platform.Guild) string { return g.ID },
		render,
		s.Idle,
	)
	picked, err := sess.Run(ctx, p.events)
	close(p.done)
	if promptMsg.ID != "" {
		s.unregister(promptMsg.ID)
	}

	switch {
	case err == nil:
		s.finish(ctx, p, promptMsg, s.Printer.T(i18n.KeySelectConfirmed, picked.Name))
		return picked, nil
	case errors.Is(err, paginator.ErrTimedOut), errors.Is(err, paginator.ErrClosed):
		s.finish(ctx, p, promptMsg, s.Printer.T(i18n.KeySelectTimedOut))
		return platform.Guild{}, services.ErrSelectionTimedOut
	default:
		return platform.Guild{}, err
	}
}

// finish replaces the prompt with text and removes the menu.
func (s *Selector) finish(ctx context.Context, p *prompt, promptMsg platform.Message, text string) {
	final := platform.Payload{Content: text, ClearComponents: true}
	var err error
	if ic := p.take(); ic != nil {
		err = s.Transport.AcknowledgeComponent(ctx, *ic, final)
	} else if promptMsg.ID != "" {
		err = s.Transport.EditDirectMessage(ctx, p.userID, promptMsg.ID, final)
	}
	if err != nil {
		s.Log.Warn().Err(err).Str("user_id", p.userID).Msg("finalize guild prompt")
	}
}

// Dispatch routes a component interaction to its waiting prompt. It reports
// whether the interaction belonged to a live prompt.
func (s *Selector) Dispatch(ctx context.Context, ic platform.ComponentInteraction) bool {
	if ic.CustomID != GuildSelectCustomID || len(ic.Values) == 0 {
		return false
	}
	s.mu.Lock()
	p := s.prompts[ic.MessageID]
	s.mu.Unlock()
	if p == nil || p.userID != ic.UserID {
		return false
	}
	ev := paginator.EventFromValue(ic.Values[0])
	if ev.Kind == paginator.EventSelect && !p.valid[ev.Value] {
		return false
	}

	p.send.Lock()
	defer p.send.Unlock()
	p.push(ic)
	select {
	case p.events <- ev:
		return true
	case <-p.done:
	case <-ctx.Done():
	}
	p.dropLast()
	return false
}

func (s *Selector) register(id string, p *prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prompts == nil {
		s.prompts = map[string]*prompt{}
	}
	s.prompts[id] = p
}

func (s *Selector) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prompts, id)
}

func (s *Selector) pageSize() int {
	if s.PageSize <= 0 {
		return DefaultPageSize
	}
	return s.PageSize
}

func (s *Selector) payload(page paginator.Page[platform.Guild]) platform.Payload {
	menu := &platform.SelectMenu{
		CustomID:    GuildSelectCustomID,
		Placeholder: s.Printer.T(i18n.KeySelectPlaceholder),
	}
	if page.HasLeft {
		menu.Options = append(menu.Options, platform.SelectOption{
			Label: s.Printer.T(i18n.KeySelectPrevious), Value: paginator.NavLeft, Emoji: "⬅️",
		})
	}
	for _, g := range page.Items {
		menu.Options = append(menu.Options, platform.SelectOption{Label: g.Name, Value: g.ID})
	}
	if page.HasRight {
		menu.Options = append(menu.Options, platform.SelectOption{
			Label: s.Printer.T(i18n.KeySelectNext), Value: paginator.NavRight, Emoji: "➡️",
		})
	}
	return platform.Payload{
		Content: s.Printer.T(i18n.KeySelectPrompt) + " - " + s.Printer.T(i18n.KeySelectPage, page.Index+1, page.PageCount),
		Select:  menu,
	}
}
