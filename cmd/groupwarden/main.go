package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/iamwavecut/groupwarden/internal/config"
)

const serviceName = "groupwarden"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("cant load .env")
	}

	cliApp := &cli.App{
		Name:  serviceName,
		Usage: "moderates Telegram groups",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve the webhook and maintenance endpoints",
				Action: serveAction,
			},
			{
				Name:   "poll",
				Usage:  "long-poll updates and sweep in process, for development",
				Action: pollAction,
			},
			{
				Name:   "sweep",
				Usage:  "run one maintenance pass and print the counts as JSON",
				Action: sweepAction,
			},
			{
				Name:   "set-webhook",
				Usage:  "register the configured webhook url with Telegram",
				Action: setWebhookAction,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.WithError(err).Fatalln("exiting")
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func withApp(c *cli.Context, run func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.ConfigureLogging(cfg)

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	a, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(ctx, a)
}

func serveAction(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app) error {
		return a.runUntilDone(ctx, a.webhookServer())
	})
}

func pollAction(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app) error {
		poller, err := a.poller()
		if err != nil {
			return err
		}
		return a.runUntilDone(ctx, poller, a.sweepTicker(), a.webhookServer())
	})
}

func sweepAction(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app) error {
		result, sweepErr := a.processor.Sweep(ctx)
		out, err := json.Marshal(result)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return sweepErr
	})
}

func setWebhookAction(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app) error {
		if a.cfg.HTTP.WebhookURL == "" {
			return fmt.Errorf("GW_WEBHOOK_URL is not set")
		}
		url := a.webhookURL()
		if err := a.ops.SetWebhook(ctx, url, a.cfg.HTTP.WebhookSecret); err != nil {
			return err
		}
		log.WithField("url", url).Info("webhook registered")
		return nil
	})
}
