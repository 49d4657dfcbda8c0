// Package moderation holds the policy engine: the message classifier, the
// command processor over the action ledger, the report workflow and the sweep
// that honors deferred obligations.
package moderation

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/db"
	moderr "github.com/iamwavecut/groupwarden/internal/errors"
	"github.com/iamwavecut/groupwarden/internal/observability"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

const (
	defaultBatchSize     = 100
	defaultMaxRetryAfter = 30 * time.Second
	notifyConcurrency    = 4
)

type Config struct {
	Lang string
	// AutoBanWarnings bans a target once its warning count reaches it; zero disables.
	AutoBanWarnings int
	// MaxRetryAfter caps how long batch work waits on a rate limit before skipping.
	MaxRetryAfter time.Duration
	BatchSize     int
	// DefaultPolicy and DefaultBannedWords seed a newly registered group.
	DefaultPolicy      db.Policy
	DefaultBannedWords []string
}

type Processor struct {
	store    db.Client
	platform platform.Platform
	cfg      Config
	now      func() time.Time
}

type Option func(*Processor)

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

func NewProcessor(store db.Client, p platform.Platform, cfg Config, opts ...Option) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxRetryAfter <= 0 {
		cfg.MaxRetryAfter = defaultMaxRetryAfter
	}
	proc := &Processor{
		store:    store,
		platform: p,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(proc)
	}
	return proc
}

func (p *Processor) getLogEntry() *log.Entry {
	return log.WithField("object", "Processor")
}

func (p *Processor) Lang() string {
	return p.cfg.Lang
}

func (p *Processor) clock() time.Time {
	return p.now().UTC()
}

// Authorize checks that actor currently holds an admin role in chatID.
func (p *Processor) Authorize(ctx context.Context, chatID int64, actor Actor) error {
	if actor.IsAnonymous() {
		return nil
	}
	if actor.UserID() == 0 {
		return moderr.New(moderr.ErrUnauthorized, "only admins can do that")
	}
	role, err := p.platform.GetChatMember(ctx, chatID, actor.UserID())
	if err != nil {
		return p.platformFailure(ctx, chatID, "check permissions", err)
	}
	if !role.IsPrivileged() {
		return moderr.New(moderr.ErrUnauthorized, "only admins can do that")
	}
	return nil
}

// platformFailure maps an adapter error onto the taxonomy and purges the tenant
// when the platform says the bot can no longer act in the chat.
func (p *Processor) platformFailure(ctx context.Context, chatID int64, action string, err error) error {
	if platform.IsChatGone(err) {
		p.PurgeTenant(ctx, chatID, err)
	}
	if _, ok := platform.IsRateLimited(err); ok {
		return moderr.Wrap(moderr.ErrPlatformRateLimited, "too many requests, try again later", err)
	}
	if platform.IsPermanent(err) {
		return moderr.Wrap(moderr.ErrPlatformPermanent, "the platform refused to "+action, err)
	}
	return moderr.Wrap(moderr.ErrPlatformTransient, "the platform is unavailable, try again later", err)
}

// PurgeTenant drops the group row together with its banned words and queued deletions.
func (p *Processor) PurgeTenant(ctx context.Context, chatID int64, cause error) {
	entry := p.getLogEntry().WithFields(log.Fields{"method": "PurgeTenant", "chat_id": chatID})
	if err := p.store.PurgeGroup(ctx, chatID); err != nil {
		entry.WithError(err).Error("failed to purge group")
		return
	}
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	observability.Audit(observability.AuditEvent{Action: "purge", ChatID: chatID, Detail: detail})
	entry.WithError(cause).Info("group purged")
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	switch kind := moderr.KindOf(err); {
	case kind == nil:
		return "error"
	case errors.Is(kind, moderr.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(kind, moderr.ErrTargetNotFound):
		return "target_not_found"
	case errors.Is(kind, moderr.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(kind, moderr.ErrConflictingState):
		return "conflicting_state"
	default:
		return "platform_error"
	}
}
