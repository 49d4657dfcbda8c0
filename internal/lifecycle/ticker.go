package lifecycle

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/infra"
)

// Ticker runs a job every interval until stopped.
type Ticker struct {
	name     string
	interval time.Duration
	job      func(ctx context.Context) error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTicker(name string, interval time.Duration, job func(ctx context.Context) error) *Ticker {
	return &Ticker{name: name, interval: interval, job: job}
}

func (t *Ticker) Start(ctx context.Context) error {
	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go infra.GoRecoverable(-1, t.name, func() {
		t.loop(ctx)
	})
	return nil
}

func (t *Ticker) loop(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.wg.Done()
			return
		case <-ticker.C:
			if err := t.job(ctx); err != nil {
				log.WithField("job", t.name).WithError(err).Error("scheduled job failed")
			}
		}
	}
}

func (t *Ticker) Stop(ctx context.Context) error {
	if t.cancel == nil {
		return nil
	}
	t.cancel()
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
