package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iamwavecut/groupwarden/internal/observability"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

// SweepResult counts the obligations consumed by one sweep.
type SweepResult struct {
	DeletedCount int `json:"deletedCount"`
	UnmutedCount int `json:"unmutedCount"`
}

// Sweep drains due deletions, then lifts expired mutes.
func (p *Processor) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	deleted, delErr := p.SweepDueDeletions(ctx)
	result.DeletedCount = deleted
	unmuted, muteErr := p.SweepExpiredMutes(ctx)
	result.UnmutedCount = unmuted
	return result, errors.Join(delErr, muteErr)
}

func (p *Processor) startSweep(ctx context.Context, name string) (context.Context, trace.Span, *log.Entry) {
	runID := uuid.New()
	ctx, span := observability.Tracer().Start(ctx, "moderation."+name, trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	entry := p.getLogEntry().WithFields(log.Fields{"method": name, "run_id": runID})
	return ctx, span, entry
}

func finishSpan(span trace.Span, count int, err error) {
	span.SetAttributes(attribute.Int("count", count))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SweepDueDeletions consumes every pending deletion that is due. A row is
// removed before its single delete attempt, whatever that attempt yields.
func (p *Processor) SweepDueDeletions(ctx context.Context) (count int, err error) {
	ctx, span, entry := p.startSweep(ctx, "SweepDueDeletions")
	defer func() { finishSpan(span, count, err) }()

	now := p.clock()
	for {
		items, err := p.store.ListDueDeletions(ctx, now, p.cfg.BatchSize)
		if err != nil {
			return count, fmt.Errorf("failed to list due deletions: %w", err)
		}
		progressed := 0
		for _, item := range items {
			if ctx.Err() != nil {
				return count, ctx.Err()
			}
			claimed, err := p.store.ClaimDeletion(ctx, item.ID)
			if err != nil {
				entry.WithError(err).WithField("id", item.ID).Error("failed to claim deletion")
				continue
			}
			progressed++
			if !claimed {
				continue
			}
			count++

			err = platform.RetryOnce(ctx, p.cfg.MaxRetryAfter, func(ctx context.Context) error {
				return p.platform.DeleteMessage(ctx, item.ChatID, item.MessageID)
			})
			observability.RecordSweepItem("deletion", sweepOutcome(err))
			if err != nil {
				entry.WithFields(log.Fields{
					"chat_id":    item.ChatID,
					"message_id": item.MessageID,
				}).WithError(err).Debug("deferred deletion failed")
				if platform.IsChatGone(err) {
					p.PurgeTenant(ctx, item.ChatID, err)
				}
			}
		}
		if len(items) < p.cfg.BatchSize || progressed == 0 {
			break
		}
	}
	if count > 0 {
		entry.WithField("count", count).Info("deferred deletions processed")
	}
	return count, nil
}

// SweepExpiredMutes closes every active mute past its expiry and lifts the
// restriction. The row is closed even when the lift cannot be delivered.
func (p *Processor) SweepExpiredMutes(ctx context.Context) (count int, err error) {
	ctx, span, entry := p.startSweep(ctx, "SweepExpiredMutes")
	defer func() { finishSpan(span, count, err) }()

	now := p.clock()
	for {
		mutes, err := p.store.ListExpiredMutes(ctx, now, p.cfg.BatchSize)
		if err != nil {
			return count, fmt.Errorf("failed to list expired mutes: %w", err)
		}
		progressed := 0
		for _, mute := range mutes {
			if ctx.Err() != nil {
				return count, ctx.Err()
			}
			claimed, err := p.store.ClaimExpiredMute(ctx, mute.ID, now)
			if err != nil {
				entry.WithError(err).WithField("id", mute.ID).Error("failed to claim expired mute")
				continue
			}
			progressed++
			if !claimed {
				continue
			}
			count++

			err = platform.RetryOnce(ctx, p.cfg.MaxRetryAfter, func(ctx context.Context) error {
				return p.platform.RestrictMember(ctx, mute.ChatID, mute.TargetID, platform.FullPermissions(), time.Time{})
			})
			observability.RecordSweepItem("mute", sweepOutcome(err))
			observability.Audit(observability.AuditEvent{
				Action:   "unmute",
				ChatID:   mute.ChatID,
				TargetID: mute.TargetID,
				Reason:   "expired",
			})
			if err != nil {
				entry.WithFields(log.Fields{
					"chat_id": mute.ChatID,
					"user_id": mute.TargetID,
				}).WithError(err).Warn("failed to lift expired mute")
				if platform.IsChatGone(err) {
					p.PurgeTenant(ctx, mute.ChatID, err)
				}
			}
		}
		if len(mutes) < p.cfg.BatchSize || progressed == 0 {
			break
		}
	}
	if count > 0 {
		entry.WithField("count", count).Info("expired mutes lifted")
	}
	return count, nil
}

func sweepOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case platform.IsPermanent(err):
		return "permanent"
	default:
		if _, ok := platform.IsRateLimited(err); ok {
			return "rate_limited"
		}
		return "transient"
	}
}
