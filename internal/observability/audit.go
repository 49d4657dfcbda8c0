package observability

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// AuditEvent is one ledger mutation.
type AuditEvent struct {
	Action         string
	ChatID         int64
	TargetID       int64
	ActorID        int64
	ActorAnonymous bool
	Reason         string
	Detail         string
}

var auditLogger atomic.Pointer[zap.Logger]

func init() {
	auditLogger.Store(zap.NewNop())
}

func setAuditLogger(logger *zap.Logger) {
	auditLogger.Store(logger)
}

func Audit(event AuditEvent) {
	fields := []zap.Field{
		zap.Int64("chat_id", event.ChatID),
		zap.Int64("target_id", event.TargetID),
		zap.Int64("actor_id", event.ActorID),
		zap.Bool("actor_anonymous", event.ActorAnonymous),
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	if event.Detail != "" {
		fields = append(fields, zap.String("detail", event.Detail))
	}
	auditLogger.Load().Info(event.Action, fields...)
}
