package command

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/tbourn/go-modmail/internal/bot"
	"github.com/tbourn/go-modmail/internal/i18n"
	"github.com/tbourn/go-modmail/internal/jobs"
	"github.com/tbourn/go-modmail/internal/observability"
	"github.com/tbourn/go-modmail/internal/platform/discord"
	"github.com/tbourn/go-modmail/internal/queue"
	"github.com/tbourn/go-modmail/internal/services"
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and relay direct messages",
		Long:  "Connects to the Discord gateway, relays direct messages into staff threads, keeps open threads from archiving and, unless --no-api is set, serves the admin API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noAPI, _ := cmd.Flags().GetBool("no-api")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			return runRelay(ctx, a, !noAPI)
		},
	}
	cmd.Flags().Bool("no-api", false, "do not serve the admin API")
	return cmd
}

func runRelay(ctx context.Context, a *app, withAPI bool) error {
	cfg := a.cfg
	if cfg.Discord.Token == "" {
		return errors.New("DISCORD_TOKEN is required")
	}

	tr, err := discord.New(cfg.Discord.Token, a.log.With().Str("component", "discord").Logger())
	if err != nil {
		return err
	}
	self, err := tr.Self(ctx)
	if err != nil {
		return err
	}

	printer := i18n.NewPrinter(language.English)
	render := &services.Renderer{P: printer, Bot: self}
	settings := &services.SettingsService{DB: a.db, Cache: a.settings}
	threads := &services.ThreadService{DB: a.db, Transport: tr, Settings: settings, Render: render, Log: a.log}
	relay := &services.RelayService{DB: a.db, Transport: tr, Settings: settings, Render: render, Log: a.log}

	users := queue.NewRegistry(cfg.Relay.QueueIdleTimeout)
	if err := observability.RegisterQueueGauge(prometheus.DefaultRegisterer, users.Len); err != nil {
		return err
	}

	selector := &bot.Selector{
		Transport: tr,
		Printer:   printer,
		PageSize:  cfg.Relay.SelectionPageSize,
		Idle:      cfg.Relay.SelectionTimeout,
		Log:       a.log,
	}
	inbound := &services.InboundService{
		Queue: users,
		Preflight: &services.Preflight{
			DB:           a.db,
			Transport:    tr,
			Render:       render,
			LogChannelID: cfg.Discord.LogChannelID,
			MinWords:     cfg.Relay.MinWords,
			Log:          a.log,
		},
		Threads:  threads,
		Relay:    relay,
		Selector: selector,
		Log:      a.log,
	}
	handler := &bot.Handler{
		Inbound:   inbound,
		Threads:   threads,
		Relay:     relay,
		Selector:  selector,
		Transport: tr,
		Printer:   printer,
		Prefix:    cfg.Relay.CommandPrefix,
		Log:       a.log.With().Str("component", "bot").Logger(),
	}

	if err := tr.Open(ctx, handler); err != nil {
		return err
	}
	defer func() {
		if err := tr.Close(); err != nil {
			a.log.Warn().Err(err).Msg("discord close")
		}
		handler.Wait()
	}()
	a.log.Info().Str("bot", self.Username).Msg("relay running")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u := &jobs.Unarchiver{
			DB:          a.db,
			Worker:      &jobs.Worker{Transport: tr, Log: a.log},
			Interval:    cfg.Relay.UnarchiveInterval,
			Concurrency: jobs.DefaultConcurrency,
			Log:         a.log.With().Str("component", "unarchiver").Logger(),
		}
		return u.Run(gctx)
	})
	if withAPI {
		g.Go(func() error { return serveAPI(gctx, a) })
	}

	err = g.Wait()
	a.log.Info().Msg("relay stopped")
	return err
}
