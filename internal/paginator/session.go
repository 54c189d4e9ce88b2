package paginator

import (
	"context"
	"errors"
	"time"
)

// DefaultIdleTimeout is the selection prompt's idle window.
const DefaultIdleTimeout = 30 * time.Second

// State is the selection prompt's lifecycle state.
type State int

const (
	// Prompting waits for navigation or a selection.
	Prompting State = iota
	// Selected is terminal: an item was chosen.
	Selected
	// TimedOut is terminal: the idle window elapsed with no choice.
	TimedOut
)

func (s State) String() string {
	switch s {
	case Prompting:
		return "prompting"
	case Selected:
		return "selected"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// EventKind classifies a prompt interaction.
type EventKind int

const (
	EventNavigateLeft EventKind = iota
	EventNavigateRight
	EventSelect
)

// Event is one interaction with the prompt. Value carries the chosen item key
// for EventSelect.
type Event struct {
	Kind  EventKind
	Value string
}

// EventFromValue maps a raw option value to an Event, treating the reserved
// navigation values as navigation.
func EventFromValue(v string) Event {
	switch v {
	case NavLeft:
		return Event{Kind: EventNavigateLeft}
	case NavRight:
		return Event{Kind: EventNavigateRight}
	default:
		return Event{Kind: EventSelect, Value: v}
	}
}

var (
	// ErrTimedOut is returned when the idle window elapses without a choice.
	ErrTimedOut = errors.New("selection timed out")
	// ErrClosed is returned when the event source closes before a choice.
	ErrClosed = errors.New("selection events closed")
	// ErrNotPrompting is returned by Run on a session that already finished.
	ErrNotPrompting = errors.New("selection already finished")
)

// Session drives one pick-one prompt: render the current page, then react to
// navigation and selection events until an item is chosen or the prompt
// idles out. It is not safe for concurrent Run calls.
type Session[T any] struct {
	pager  *Paginator[T]
	key    func(T) string
	render func(Page[T]) error
	idle   time.Duration
	state  State
}

// NewSession builds a prompt over pager. key identifies items in select
// events; render is called with the first page and after every navigation.
func NewSession[T any](pager *Paginator[T], key func(T) string, render func(Page[T]) error, idle time.Duration) *Session[T] {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Session[T]{pager: pager, key: key, render: render, idle: idle, state: Prompting}
}

// State returns the current state.
func (s *Session[T]) State() State { return s.state }

// Run renders the first page and consumes events. Every event restarts the
// idle window. Select values that match no item are ignored.
func (s *Session[T]) Run(ctx context.Context, events <-chan Event) (T, error) {
	var zero T
	if s.state != Prompting {
		return zero, ErrNotPrompting
	}
	if err := s.render(s.pager.CurrentPage()); err != nil {
		return zero, err
	}

	timer := time.NewTimer(s.idle)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-timer.C:
			s.state = TimedOut
			return zero, ErrTimedOut
		case ev, ok := <-events:
			if !ok {
				s.state = TimedOut
				return zero, ErrClosed
			}
			timer.Reset(s.idle)
			switch ev.Kind {
			case EventNavigateLeft:
				if err := s.render(s.pager.PreviousPage()); err != nil {
					return zero, err
				}
			case EventNavigateRight:
				if err := s.render(s.pager.NextPage()); err != nil {
					return zero, err
				}
			case EventSelect:
				if item, found := s.lookup(ev.Value); found {
					s.state = Selected
					return item, nil
				}
			}
		}
	}
}

func (s *Session[T]) lookup(v string) (T, bool) {
	for _, it := range s.pager.items {
		if s.key(it) == v {
			return it, true
		}
	}
	var zero T
	return zero, false
}
