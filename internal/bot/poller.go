package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
)

const pollTimeoutSeconds = 60

// Poller feeds long-polled updates into the processor.
type Poller struct {
	bot       *api.BotAPI
	processor *UpdateProcessor
	timeout   time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller(bot *api.BotAPI, processor *UpdateProcessor, updateTimeout time.Duration) *Poller {
	return &Poller{bot: bot, processor: processor, timeout: updateTimeout}
}

func (p *Poller) getLogEntry() *log.Entry {
	return log.WithField("object", "Poller")
}

func (p *Poller) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	cfg := api.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	cfg.AllowedUpdates = []string{"message", "edited_message", "callback_query", "my_chat_member"}
	updates, errs := GetUpdatesChans(ctx, p.bot, cfg)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		entry := p.getLogEntry().WithField("method", "loop")
		for {
			select {
			case u, ok := <-updates:
				if !ok {
					return
				}
				p.process(ctx, &u)
			case err, ok := <-errs:
				if ok && err != nil && !errors.Is(err, context.Canceled) {
					entry.WithError(err).Error("polling stopped")
				}
				return
			}
		}
	}()
	return nil
}

func (p *Poller) process(ctx context.Context, u *api.Update) {
	uctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.processor.Process(uctx, u); err != nil {
		p.getLogEntry().WithError(err).Debug("update processing failed")
	}
}

func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
