package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/bot"
	"github.com/iamwavecut/groupwarden/internal/config"
	"github.com/iamwavecut/groupwarden/internal/db"
	"github.com/iamwavecut/groupwarden/internal/db/sqldb"
	handlers "github.com/iamwavecut/groupwarden/internal/handlers/chat"
	"github.com/iamwavecut/groupwarden/internal/i18n"
	"github.com/iamwavecut/groupwarden/internal/infra"
	"github.com/iamwavecut/groupwarden/internal/infrastructure/telegram"
	"github.com/iamwavecut/groupwarden/internal/lifecycle"
	"github.com/iamwavecut/groupwarden/internal/moderation"
	"github.com/iamwavecut/groupwarden/internal/observability"
	"github.com/iamwavecut/groupwarden/internal/server"
)

// pollRequestTimeout leaves room for the 60 second long-poll window.
const pollRequestTimeout = 75 * time.Second

type app struct {
	cfg       config.Config
	store     db.Client
	bot       *api.BotAPI
	ops       *telegram.Operations
	processor *moderation.Processor
	updates   *bot.UpdateProcessor
	shutdown  func(context.Context) error
}

func bootstrap(ctx context.Context, cfg config.Config) (*app, error) {
	shutdown, err := observability.Init(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	a := &app{cfg: cfg, shutdown: shutdown}

	if a.store, err = openStore(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	if a.bot, err = telegram.NewBotAPI(cfg.TelegramAPIToken, cfg.Platform.Timeout); err != nil {
		a.Close()
		return nil, err
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		a.bot.Debug = true
	}
	a.ops = telegram.NewOperations(a.bot, telegram.Options{
		Timeout:       cfg.Platform.Timeout,
		RatePerSecond: cfg.Platform.Rate,
		Burst:         cfg.Platform.Burst,
	})

	a.processor = moderation.NewProcessor(a.store, a.ops, moderationConfig(cfg))

	service := bot.NewService(a.ops, a.processor, cfg.DefaultLanguage, a.bot.Self.ID)
	bot.RegisterUpdateHandler("registrar", handlers.NewRegistrar(service))
	bot.RegisterUpdateHandler("commands", handlers.NewCommander(service))
	bot.RegisterUpdateHandler("moderator", handlers.NewModerator(service))
	a.updates = bot.NewUpdateProcessor(service, cfg.EnabledHandlers)

	log.WithFields(log.Fields{
		"bot":      a.bot.Self.UserName,
		"driver":   cfg.DB.Driver,
		"language": i18n.GetLanguageName(cfg.DefaultLanguage),
		"handlers": strings.Join(cfg.EnabledHandlers, ","),
	}).Info("groupwarden ready")
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config) (db.Client, error) {
	if cfg.DB.Driver == sqldb.DriverPostgres {
		client, err := sqldb.NewClient(ctx, sqldb.DriverPostgres, cfg.DB.DSN, cfg.DB.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	dir, err := infra.GetWorkDir(cfg.DotPath)
	if err != nil {
		return nil, err
	}
	client, err := sqldb.NewSQLiteClient(ctx, dir, cfg.DB.File)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func moderationConfig(cfg config.Config) moderation.Config {
	policy := db.DefaultPolicy()
	policy.WarningTimerSeconds = int(cfg.Moderation.WarningTimer / time.Second)
	policy.WelcomeTimerSeconds = int(cfg.Moderation.WelcomeTimer / time.Second)
	policy.AdminsExemptBannedWords = cfg.Moderation.AdminsExemptBannedWords
	return moderation.Config{
		Lang:               cfg.DefaultLanguage,
		AutoBanWarnings:    cfg.Moderation.AutoBanWarnings,
		MaxRetryAfter:      cfg.Platform.MaxRetryAfter,
		BatchSize:          cfg.Sweep.BatchSize,
		DefaultPolicy:      policy,
		DefaultBannedWords: cfg.Moderation.DefaultBannedWords,
	}
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.WithError(err).Warn("cant close store")
		}
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultStopTimeout)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			log.WithError(err).Warn("cant flush telemetry")
		}
	}
}

func (a *app) webhookURL() string {
	return strings.TrimRight(a.cfg.HTTP.WebhookURL, "/") + "/webhook"
}

func (a *app) webhookServer() *server.Server {
	return server.New(server.Config{
		Addr:             a.cfg.HTTP.Addr,
		ServiceName:      serviceName,
		WebhookURL:       a.cfg.HTTP.WebhookURL,
		WebhookSecret:    a.cfg.HTTP.WebhookSecret,
		MaintenanceToken: a.cfg.HTTP.MaintenanceToken,
		UpdateTimeout:    bot.UpdateTimeout,
	}, a.updates, a.processor, a.ops)
}

// poller uses its own client because long polling outlives the platform timeout.
func (a *app) poller() (*bot.Poller, error) {
	if err := a.ops.DeleteWebhook(context.Background()); err != nil {
		log.WithError(err).Warn("cant delete webhook before polling")
	}
	pollBot, err := telegram.NewBotAPI(a.cfg.TelegramAPIToken, pollRequestTimeout)
	if err != nil {
		return nil, err
	}
	return bot.NewPoller(pollBot, a.updates, bot.UpdateTimeout), nil
}

func (a *app) sweepTicker() *lifecycle.Ticker {
	return lifecycle.NewTicker("sweep", a.cfg.Sweep.Interval, func(ctx context.Context) error {
		result, err := a.processor.Sweep(ctx)
		if result.DeletedCount > 0 || result.UnmutedCount > 0 {
			log.WithFields(log.Fields{
				"deleted": result.DeletedCount,
				"unmuted": result.UnmutedCount,
			}).Info("sweep done")
		}
		return err
	})
}

// runUntilDone runs the components until ctx ends or the binary is replaced on disk.
func (a *app) runUntilDone(ctx context.Context, components ...lifecycle.Component) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changed := infra.MonitorExecutable(ctx, infra.DefaultCheckExecInterval)
	go func() {
		if _, ok := <-changed; ok {
			log.Warn("executable file was modified, shutting down")
			cancel()
		}
	}()

	return lifecycle.NewRuntime(components...).Run(ctx)
}
