package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iamwavecut/groupwarden/internal/db"
	moderr "github.com/iamwavecut/groupwarden/internal/errors"
	"github.com/iamwavecut/groupwarden/internal/observability"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

const autoBanReason = "too many warnings"

// Command is a privileged action against TargetID in ChatID.
type Command struct {
	ChatID   int64
	TargetID int64
	Actor    Actor
	Reason   string
}

func (c Command) validate(requireReason bool) error {
	if c.TargetID == 0 {
		return moderr.New(moderr.ErrTargetNotFound, "target not found")
	}
	if requireReason && strings.TrimSpace(c.Reason) == "" {
		return moderr.New(moderr.ErrInvalidInput, "reason is required")
	}
	return nil
}

func (c Command) audit(action string) observability.AuditEvent {
	return observability.AuditEvent{
		Action:         action,
		ChatID:         c.ChatID,
		TargetID:       c.TargetID,
		ActorID:        c.Actor.LedgerID(),
		ActorAnonymous: c.Actor.IsAnonymous(),
		Reason:         c.Reason,
	}
}

type WarnResult struct {
	Count      int
	AutoBanned bool
}

func (p *Processor) run(ctx context.Context, name string, cmd Command, fn func(ctx context.Context, cmd Command) error) error {
	ctx, span := observability.Tracer().Start(ctx, "moderation."+name, trace.WithAttributes(
		attribute.Int64("chat_id", cmd.ChatID),
		attribute.Int64("target_id", cmd.TargetID),
		attribute.Bool("actor_anonymous", cmd.Actor.IsAnonymous()),
	))
	defer span.End()

	err := fn(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.getLogEntry().WithFields(log.Fields{
			"method":    name,
			"chat_id":   cmd.ChatID,
			"target_id": cmd.TargetID,
			"actor":     cmd.Actor.String(),
		}).WithError(err).Debug("command rejected")
	}
	observability.RecordCommand(name, outcomeOf(err))
	return err
}

func (p *Processor) authorized(requireReason bool, fn func(ctx context.Context, cmd Command) error) func(ctx context.Context, cmd Command) error {
	return func(ctx context.Context, cmd Command) error {
		if err := cmd.validate(requireReason); err != nil {
			return err
		}
		if err := p.Authorize(ctx, cmd.ChatID, cmd.Actor); err != nil {
			return err
		}
		return fn(ctx, cmd)
	}
}

// Warn appends a warning and escalates to a ban once the configured threshold is reached.
func (p *Processor) Warn(ctx context.Context, cmd Command) (WarnResult, error) {
	var result WarnResult
	err := p.run(ctx, "warn", cmd, p.authorized(true, func(ctx context.Context, cmd Command) error {
		warning := &db.Warning{
			ChatID:         cmd.ChatID,
			TargetID:       cmd.TargetID,
			ActorID:        cmd.Actor.LedgerID(),
			ActorAnonymous: cmd.Actor.IsAnonymous(),
			Reason:         cmd.Reason,
			CreatedAt:      p.clock(),
		}
		if err := p.store.AddWarning(ctx, warning); err != nil {
			return fmt.Errorf("failed to add warning: %w", err)
		}
		count, err := p.store.CountWarnings(ctx, cmd.ChatID, cmd.TargetID)
		if err != nil {
			return fmt.Errorf("failed to count warnings: %w", err)
		}
		result.Count = count
		observability.Audit(cmd.audit("warn"))

		if p.cfg.AutoBanWarnings <= 0 || count < p.cfg.AutoBanWarnings {
			return nil
		}
		escalation := cmd
		escalation.Reason = autoBanReason
		switch err := p.run(ctx, "ban", escalation, p.ban); {
		case err == nil:
			result.AutoBanned = true
		case errors.Is(err, moderr.ErrConflictingState):
		default:
			p.getLogEntry().WithFields(log.Fields{
				"method":    "Warn",
				"chat_id":   cmd.ChatID,
				"target_id": cmd.TargetID,
			}).WithError(err).Warn("auto ban failed")
		}
		return nil
	}))
	return result, err
}

// Mute restricts the target for the duration described by durationSpec.
func (p *Processor) Mute(ctx context.Context, cmd Command, durationSpec string) (*db.Mute, error) {
	var mute *db.Mute
	err := p.run(ctx, "mute", cmd, func(ctx context.Context, cmd Command) error {
		d, err := ParseDuration(durationSpec)
		if err != nil {
			return err
		}
		return p.authorized(true, func(ctx context.Context, cmd Command) error {
			mute, err = p.mute(ctx, cmd, d)
			return err
		})(ctx, cmd)
	})
	return mute, err
}

func (p *Processor) mute(ctx context.Context, cmd Command, d time.Duration) (*db.Mute, error) {
	if _, err := p.store.GetActiveMute(ctx, cmd.ChatID, cmd.TargetID); err == nil {
		return nil, moderr.New(moderr.ErrConflictingState, "already muted")
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to get active mute: %w", err)
	}

	now := p.clock()
	until := now.Add(d)
	if err := p.platform.RestrictMember(ctx, cmd.ChatID, cmd.TargetID, platform.NoPermissions(), until); err != nil {
		return nil, p.platformFailure(ctx, cmd.ChatID, "mute the user", err)
	}

	mute := &db.Mute{
		ChatID:         cmd.ChatID,
		TargetID:       cmd.TargetID,
		ActorID:        cmd.Actor.LedgerID(),
		ActorAnonymous: cmd.Actor.IsAnonymous(),
		Reason:         cmd.Reason,
		CreatedAt:      now,
		MuteUntil:      until,
		Active:         true,
	}
	if err := p.store.ActivateMute(ctx, mute); err != nil {
		if errors.Is(err, db.ErrAlreadyActive) {
			return nil, moderr.New(moderr.ErrConflictingState, "already muted")
		}
		return nil, fmt.Errorf("failed to activate mute: %w", err)
	}

	event := cmd.audit("mute")
	event.Detail = "until " + until.Format(time.RFC3339)
	observability.Audit(event)
	return mute, nil
}

// Unmute restores full permissions and closes the active mute.
func (p *Processor) Unmute(ctx context.Context, cmd Command) error {
	return p.run(ctx, "unmute", cmd, p.authorized(false, func(ctx context.Context, cmd Command) error {
		if _, err := p.store.GetActiveMute(ctx, cmd.ChatID, cmd.TargetID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return moderr.New(moderr.ErrConflictingState, "not muted")
			}
			return fmt.Errorf("failed to get active mute: %w", err)
		}
		if err := p.platform.RestrictMember(ctx, cmd.ChatID, cmd.TargetID, platform.FullPermissions(), time.Time{}); err != nil {
			return p.platformFailure(ctx, cmd.ChatID, "unmute the user", err)
		}
		if err := p.store.DeactivateMute(ctx, cmd.ChatID, cmd.TargetID, p.clock()); err != nil {
			if errors.Is(err, db.ErrNotActive) {
				return moderr.New(moderr.ErrConflictingState, "not muted")
			}
			return fmt.Errorf("failed to deactivate mute: %w", err)
		}
		observability.Audit(cmd.audit("unmute"))
		return nil
	}))
}

// Ban removes the target from the chat and records the active ban.
func (p *Processor) Ban(ctx context.Context, cmd Command) error {
	return p.run(ctx, "ban", cmd, p.authorized(true, p.ban))
}

func (p *Processor) ban(ctx context.Context, cmd Command) error {
	if _, err := p.store.GetActiveBan(ctx, cmd.ChatID, cmd.TargetID); err == nil {
		return moderr.New(moderr.ErrConflictingState, "already banned")
	} else if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("failed to get active ban: %w", err)
	}

	if err := p.platform.BanMember(ctx, cmd.ChatID, cmd.TargetID); err != nil {
		return p.platformFailure(ctx, cmd.ChatID, "ban the user", err)
	}

	ban := &db.Ban{
		ChatID:         cmd.ChatID,
		TargetID:       cmd.TargetID,
		ActorID:        cmd.Actor.LedgerID(),
		ActorAnonymous: cmd.Actor.IsAnonymous(),
		Reason:         cmd.Reason,
		CreatedAt:      p.clock(),
		Active:         true,
	}
	if err := p.store.ActivateBan(ctx, ban); err != nil {
		if errors.Is(err, db.ErrAlreadyActive) {
			return moderr.New(moderr.ErrConflictingState, "already banned")
		}
		return fmt.Errorf("failed to activate ban: %w", err)
	}
	observability.Audit(cmd.audit("ban"))
	return nil
}

// Unban lifts the platform ban and closes the active ban row.
func (p *Processor) Unban(ctx context.Context, cmd Command) error {
	return p.run(ctx, "unban", cmd, p.authorized(false, func(ctx context.Context, cmd Command) error {
		if _, err := p.store.GetActiveBan(ctx, cmd.ChatID, cmd.TargetID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return moderr.New(moderr.ErrConflictingState, "not banned")
			}
			return fmt.Errorf("failed to get active ban: %w", err)
		}
		if err := p.platform.UnbanMember(ctx, cmd.ChatID, cmd.TargetID); err != nil {
			return p.platformFailure(ctx, cmd.ChatID, "unban the user", err)
		}
		if err := p.store.DeactivateBan(ctx, cmd.ChatID, cmd.TargetID, p.clock()); err != nil {
			if errors.Is(err, db.ErrNotActive) {
				return moderr.New(moderr.ErrConflictingState, "not banned")
			}
			return fmt.Errorf("failed to deactivate ban: %w", err)
		}
		observability.Audit(cmd.audit("unban"))
		return nil
	}))
}
