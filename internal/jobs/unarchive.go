// Package jobs runs background maintenance for open threads. The
// archive-prevention job enumerates open threads on an interval and asks a
// pool of workers to unarchive each thread channel. Workers speak a two-op
// protocol: UnarchiveThread{channelId} in, Done out, one Done per request.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-modmail/internal/observability"
	"github.com/tbourn/go-modmail/internal/platform"
	"github.com/tbourn/go-modmail/internal/repo"
)

// OpCode identifies a worker message.
type OpCode int

const (
	// OpUnarchiveThread asks a worker to unarchive ChannelID.
	OpUnarchiveThread OpCode = iota
	// OpDone answers one OpUnarchiveThread.
	OpDone
)

func (o OpCode) String() string {
	switch o {
	case OpUnarchiveThread:
		return "unarchive_thread"
	case OpDone:
		return "done"
	default:
		return "unknown"
	}
}

// Payload is one worker message. Err is set on Done when the request failed.
type Payload struct {
	Op        OpCode
	ChannelID string
	Err       error
}

// Defaults.
const (
	DefaultInterval    = time.Hour
	DefaultConcurrency = 4
)

// Worker executes unarchive requests against the transport.
type Worker struct {
	Transport platform.Transport
	Log       zerolog.Logger
}

// Serve answers every request from in with a Done on out until in is closed
// or ctx ends. Unknown opcodes are answered with Done too.
func (w *Worker) Serve(ctx context.Context, in <-chan Payload, out chan<- Payload) {
	for {
		var req Payload
		var ok bool
		select {
		case <-ctx.Done():
			return
		case req, ok = <-in:
			if !ok {
				return
			}
		}

		resp := Payload{Op: OpDone, ChannelID: req.ChannelID}
		if req.Op == OpUnarchiveThread {
			resp.Err = w.unarchive(ctx, req.ChannelID)
		}
		select {
		case out <- resp:
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) unarchive(ctx context.Context, channelID string) error {
	if ch, err := w.Transport.FetchChannel(ctx, channelID); err == nil && !ch.Archived {
		observability.UnarchiveTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	if err := w.Transport.UnarchiveThread(ctx, channelID); err != nil {
		observability.UnarchiveTotal.WithLabelValues(observability.OutcomeError).Inc()
		w.Log.Warn().Err(err).Str("channel_id", channelID).Msg("unarchive thread")
		return err
	}
	observability.UnarchiveTotal.WithLabelValues(observability.OutcomeOK).Inc()
	return nil
}

// Unarchiver periodically keeps open thread channels from auto-archiving.
type Unarchiver struct {
	DB          *gorm.DB
	Worker      *Worker
	Interval    time.Duration
	Concurrency int
	Log         zerolog.Logger
}

// Stats summarizes one pass.
type Stats struct {
	Requested int
	Failed    int
}

// RunOnce sends one request per open thread and waits for every Done.
func (u *Unarchiver) RunOnce(ctx context.Context) (Stats, error) {
	threads, err := repo.ListOpenThreads(ctx, u.DB)
	if err != nil {
		return Stats{}, err
	}
	if len(threads) == 0 {
		return Stats{}, nil
	}

	n := u.Concurrency
	if n <= 0 {
		n = DefaultConcurrency
	}
	if n > len(threads) {
		n = len(threads)
	}

	req := make(chan Payload)
	done := make(chan Payload)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			u.Worker.Serve(gctx, req, done)
			return nil
		})
	}
	g.Go(func() error {
		defer close(req)
		for _, t := range threads {
			select {
			case req <- Payload{Op: OpUnarchiveThread, ChannelID: t.ChannelID}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var st Stats
collect:
	for st.Requested < len(threads) {
		select {
		case r := <-done:
			st.Requested++
			if r.Err != nil {
				st.Failed++
			}
		case <-gctx.Done():
			break collect
		}
	}
	if err := g.Wait(); err != nil {
		return st, err
	}
	return st, ctx.Err()
}

// Run executes a pass immediately and then on every interval until ctx ends.
func (u *Unarchiver) Run(ctx context.Context) error {
	interval := u.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := u.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			u.Log.Error().Err(err).Msg("unarchive pass failed")
		} else if err == nil {
			u.Log.Debug().Int("threads", st.Requested).Int("failed", st.Failed).Msg("unarchive pass done")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
