// Package command implements the modmail CLI: the relay bot, the
// standalone admin API, and schema migration.
package command

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-modmail/internal/cache"
	"github.com/tbourn/go-modmail/internal/config"
	"github.com/tbourn/go-modmail/internal/observability"
	"github.com/tbourn/go-modmail/internal/repo"
	"github.com/tbourn/go-modmail/internal/sysutil"
)

const AppName = "modmail"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Modmail - relay user direct messages to staff threads",
		Long:          "Modmail relays direct messages between users and private staff threads in one or more guilds.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before configuration; a missing file is ignored")

	cmd.AddCommand(
		NewRunCmd(),
		NewAPICmd(),
		NewMigrateCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	db       *gorm.DB
	redis    *cache.RedisCache
	settings *cache.SettingsCache
	otelStop observability.ShutdownFunc
}

// loadConfig reads the dotenv file named by --env-file, then the
// configuration, and installs the root logger.
func loadConfig(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, zerolog.Nop(), fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, zerolog.Nop(), fmt.Errorf("config: %w", err)
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	lg := sysutil.NewLogger(cmd.ErrOrStderr(), cfg.LogPretty, cfg.OTEL.ServiceName)
	return cfg, lg, nil
}

// setup loads configuration, starts tracing, opens and migrates the
// database, and connects the optional settings cache.
func setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, lg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: lg}

	a.otelStop, err = observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return nil, err
	}

	a.db, err = repo.Open(cfg)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(a.db); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if cfg.Redis.Addr != "" {
		a.redis = cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := a.redis.Ping(ctx); err != nil {
			// Settings still resolve from the database.
			lg.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, settings cache degraded")
		}
		a.settings = cache.NewSettingsCache(a.redis, cfg.Redis.TTL)
	}

	lg.Info().
		Str("version", Version).
		Str("db_driver", cfg.DBDriver).
		Bool("redis", a.redis != nil).
		Bool("otel", cfg.OTEL.Enabled).
		Msg("modmail configured")
	return a, nil
}

// close releases everything setup acquired. Safe on a partial app.
func (a *app) close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("redis close")
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.otelStop != nil {
		if err := a.otelStop(ctx); err != nil {
			a.log.Warn().Err(err).Msg("otel shutdown")
		}
	}
}
