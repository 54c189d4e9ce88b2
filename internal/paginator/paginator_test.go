package paginator

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginator_25By10(t *testing.T) {
	p := New(seq(25), 10)

	pg := p.CurrentPage()
	if len(pg.Items) != 10 || pg.HasLeft || !pg.HasRight || pg.Index != 0 || pg.PageCount != 3 {
		t.Fatalf("page 0: %+v", pg)
	}

	pg = p.NextPage()
	if len(pg.Items) != 10 || !pg.HasLeft || !pg.HasRight || pg.Index != 1 || pg.Items[0] != 10 {
		t.Fatalf("page 1: %+v", pg)
	}

	pg = p.NextPage()
	if len(pg.Items) != 5 || !pg.HasLeft || pg.HasRight || pg.Index != 2 || pg.Items[4] != 24 {
		t.Fatalf("page 2: %+v", pg)
	}

	again := p.NextPage()
	if again.Index != 2 || len(again.Items) != 5 {
		t.Fatalf("NextPage on last page should be a no-op: %+v", again)
	}
}

func TestPaginator_PreviousClamped(t *testing.T) {
	p := New(seq(15), 10)
	pg := p.PreviousPage()
	if pg.Index != 0 || pg.HasLeft {
		t.Fatalf("PreviousPage on first page should be a no-op: %+v", pg)
	}
	p.NextPage()
	pg = p.PreviousPage()
	if pg.Index != 0 || len(pg.Items) != 10 {
		t.Fatalf("back to first page: %+v", pg)
	}
	p.NextPage()
	if pg := p.Reset(); pg.Index != 0 {
		t.Fatalf("Reset: %+v", pg)
	}
}

func TestPaginator_EdgeSizes(t *testing.T) {
	empty := New([]int{}, 10)
	if pg := empty.CurrentPage(); len(pg.Items) != 0 || pg.HasLeft || pg.HasRight || pg.PageCount != 1 {
		t.Fatalf("empty: %+v", pg)
	}

	exact := New(seq(20), 10)
	exact.NextPage()
	if pg := exact.CurrentPage(); pg.HasRight || len(pg.Items) != 10 {
		t.Fatalf("exact multiple last page: %+v", pg)
	}

	all := New(seq(7), 0)
	if pg := all.CurrentPage(); len(pg.Items) != 7 || pg.HasRight {
		t.Fatalf("size 0 -> single page: %+v", pg)
	}
}

// --- Session FSM ---

type recorder struct {
	pages []int
}

func (r *recorder) render(p Page[int]) error {
	r.pages = append(r.pages, p.Index)
	return nil
}

func newIntSession(r *recorder, n, size int, idle time.Duration) *Session[int] {
	return NewSession(New(seq(n), size), strconv.Itoa, r.render, idle)
}

func TestSession_NavigateThenSelect(t *testing.T) {
	rec := &recorder{}
	s := newIntSession(rec, 25, 10, time.Second)

	events := make(chan Event, 4)
	events <- EventFromValue(NavRight)
	events <- EventFromValue(NavRight)
	events <- EventFromValue(NavLeft)
	events <- EventFromValue("17")

	got, err := s.Run(context.Background(), events)
	if err != nil || got != 17 {
		t.Fatalf("Run = %v, %v; want 17", got, err)
	}
	if s.State() != Selected {
		t.Fatalf("state = %v; want selected", s.State())
	}
	want := []int{0, 1, 2, 1}
	if len(rec.pages) != len(want) {
		t.Fatalf("renders = %v; want %v", rec.pages, want)
	}
	for i := range want {
		if rec.pages[i] != want[i] {
			t.Fatalf("renders = %v; want %v", rec.pages, want)
		}
	}

	if _, err := s.Run(context.Background(), events); !errors.Is(err, ErrNotPrompting) {
		t.Fatalf("second Run err = %v", err)
	}
}

func TestSession_IdleTimeout(t *testing.T) {
	rec := &recorder{}
	s := newIntSession(rec, 3, 10, 20*time.Millisecond)

	_, err := s.Run(context.Background(), make(chan Event))
	if !errors.Is(err, ErrTimedOut) || s.State() != TimedOut {
		t.Fatalf("err=%v state=%v; want timeout", err, s.State())
	}
}

func TestSession_EventsResetIdleWindow(t *testing.T) {
	rec := &recorder{}
	s := newIntSession(rec, 30, 10, 60*time.Millisecond)

	events := make(chan Event)
	go func() {
		for i := 0; i < 4; i++ {
			time.Sleep(30 * time.Millisecond)
			events <- EventFromValue(NavRight)
		}
		time.Sleep(30 * time.Millisecond)
		events <- EventFromValue("2")
	}()

	got, err := s.Run(context.Background(), events)
	if err != nil || got != 2 {
		t.Fatalf("Run = %v, %v; events should keep the prompt alive", got, err)
	}
}

func TestSession_UnknownSelectionIgnored(t *testing.T) {
	rec := &recorder{}
	s := newIntSession(rec, 3, 10, 30*time.Millisecond)

	events := make(chan Event, 1)
	events <- EventFromValue("nope")
	if _, err := s.Run(context.Background(), events); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("unknown value should not select; err=%v", err)
	}
}

func TestSession_ClosedAndCanceled(t *testing.T) {
	rec := &recorder{}
	closed := make(chan Event)
	close(closed)
	if _, err := newIntSession(rec, 3, 10, time.Second).Run(context.Background(), closed); !errors.Is(err, ErrClosed) {
		t.Fatalf("closed err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newIntSession(rec, 3, 10, time.Second).Run(ctx, make(chan Event)); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled err = %v", err)
	}
}

func TestSession_RenderErrorStops(t *testing.T) {
	boom := errors.New("boom")
	s := NewSession(New(seq(3), 10), strconv.Itoa, func(Page[int]) error { return boom }, time.Second)
	if _, err := s.Run(context.Background(), make(chan Event)); !errors.Is(err, boom) {
		t.Fatalf("err = %v; want boom", err)
	}
}

func TestState_String(t *testing.T) {
	for st, want := range map[State]string{Prompting: "prompting", Selected: "selected", TimedOut: "timed_out", State(9): "unknown"} {
		if st.String() != want {
			t.Fatalf("%d.String() = %q", st, st.String())
		}
	}
}
