package moderation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/groupwarden/internal/callback"
	"github.com/iamwavecut/groupwarden/internal/db"
	moderr "github.com/iamwavecut/groupwarden/internal/errors"
	"github.com/iamwavecut/groupwarden/internal/i18n"
	"github.com/iamwavecut/groupwarden/internal/observability"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

type ReportRequest struct {
	ChatID     int64
	ChatTitle  string
	ReporterID int64
	TargetID   int64
	Reason     string
	// MessageID is the reporter's message, answered with the acknowledgement.
	MessageID int
	ThreadID  int
}

type ReportResult struct {
	Report   *db.Report
	Notified int
	Failed   int
}

// Report files a pending report against a non-admin target and notifies every current admin privately.
func (p *Processor) Report(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "moderation.report", trace.WithAttributes(
		attribute.Int64("chat_id", req.ChatID),
		attribute.Int64("target_id", req.TargetID),
	))
	defer span.End()

	result, err := p.report(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.RecordCommand("report", outcomeOf(err))
	return result, err
}

func (p *Processor) report(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	entry := p.getLogEntry().WithFields(log.Fields{
		"method":    "Report",
		"chat_id":   req.ChatID,
		"target_id": req.TargetID,
	})
	if req.TargetID == 0 {
		return nil, moderr.New(moderr.ErrTargetNotFound, "target not found")
	}
	if req.ReporterID == 0 {
		return nil, moderr.New(moderr.ErrInvalidInput, "reports need an identifiable reporter")
	}
	if req.ReporterID == req.TargetID {
		return nil, moderr.New(moderr.ErrInvalidInput, "you cannot report yourself")
	}

	role, err := p.platform.GetChatMember(ctx, req.ChatID, req.TargetID)
	if err != nil {
		return nil, p.platformFailure(ctx, req.ChatID, "look up the user", err)
	}
	if role.IsPrivileged() {
		return nil, moderr.New(moderr.ErrUnauthorized, "admins cannot be reported")
	}

	report, err := p.store.CreateReport(ctx, &db.Report{
		ChatID:     req.ChatID,
		ReporterID: req.ReporterID,
		TargetID:   req.TargetID,
		Reason:     req.Reason,
		Status:     db.ReportStatusPending,
		CreatedAt:  p.clock(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	observability.Audit(observability.AuditEvent{
		Action:   "report",
		ChatID:   req.ChatID,
		TargetID: req.TargetID,
		ActorID:  req.ReporterID,
		Reason:   req.Reason,
		Detail:   "report " + strconv.FormatInt(report.ID, 10),
	})

	if _, err := p.platform.SendMessage(ctx, platform.OutgoingMessage{
		ChatID:           req.ChatID,
		ThreadID:         req.ThreadID,
		ReplyToMessageID: req.MessageID,
		Text:             i18n.Get("Thanks, the admins have been notified.", p.cfg.Lang),
	}); err != nil {
		entry.WithError(err).Warn("failed to acknowledge report")
	}

	result := &ReportResult{Report: report}
	admins, err := p.platform.ListChatAdmins(ctx, req.ChatID)
	if err != nil {
		entry.WithError(err).Error("failed to list chat admins")
		return result, nil
	}
	p.notifyAdmins(ctx, entry, req, report, admins, result)
	return result, nil
}

func (p *Processor) notifyAdmins(ctx context.Context, entry *log.Entry, req ReportRequest, report *db.Report, admins []int64, result *ReportResult) {
	text := fmt.Sprintf(
		i18n.Get("Report #%d in %s\nReported user: %d\nReporter: %d\nReason: %s", p.cfg.Lang),
		report.ID, req.ChatTitle, req.TargetID, req.ReporterID, req.Reason,
	)
	var keyboard [][]platform.Button
	data, err := callback.Encode(callback.Command{
		Kind:     callback.KindResolve,
		ChatID:   req.ChatID,
		TargetID: req.TargetID,
		Payload:  strconv.FormatInt(report.ID, 10),
	})
	if err != nil {
		entry.WithError(err).Warn("failed to encode resolve button")
	} else {
		keyboard = [][]platform.Button{{{Text: i18n.Get("Resolve", p.cfg.Lang), Data: data}}}
	}

	var notified, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notifyConcurrency)
	for _, adminID := range admins {
		g.Go(func() error {
			_, err := p.platform.SendMessage(gctx, platform.OutgoingMessage{
				ChatID:   adminID,
				Text:     text,
				Keyboard: keyboard,
			})
			if err != nil {
				failed.Add(1)
				entry.WithField("admin_id", adminID).WithError(err).Warn("failed to notify admin")
				return nil
			}
			notified.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result.Notified = int(notified.Load())
	result.Failed = int(failed.Load())
}

// ResolveReport marks a pending report resolved on behalf of an admin of its chat.
func (p *Processor) ResolveReport(ctx context.Context, chatID, reportID int64, actor Actor) error {
	cmd := Command{ChatID: chatID, Actor: actor}
	return p.run(ctx, "resolve", cmd, func(ctx context.Context, cmd Command) error {
		if err := p.Authorize(ctx, chatID, actor); err != nil {
			return err
		}
		report, err := p.store.GetReport(ctx, reportID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return moderr.New(moderr.ErrTargetNotFound, "report not found")
			}
			return fmt.Errorf("failed to get report: %w", err)
		}
		if report.ChatID != chatID {
			return moderr.New(moderr.ErrInvalidInput, "report not found")
		}
		resolved, err := p.store.ResolveReport(ctx, reportID, actor.LedgerID(), p.clock())
		if err != nil {
			return fmt.Errorf("failed to resolve report: %w", err)
		}
		if !resolved {
			return moderr.New(moderr.ErrConflictingState, "already resolved")
		}
		observability.Audit(observability.AuditEvent{
			Action:         "resolve",
			ChatID:         chatID,
			TargetID:       report.TargetID,
			ActorID:        actor.LedgerID(),
			ActorAnonymous: actor.IsAnonymous(),
			Detail:         "report " + strconv.FormatInt(reportID, 10),
		})
		return nil
	})
}
