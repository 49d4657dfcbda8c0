package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/db"
	"github.com/iamwavecut/groupwarden/internal/i18n"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

// MessageRef addresses a message in a chat.
type MessageRef struct {
	ChatID    int64
	MessageID int
	ThreadID  int
}

type Member struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

func (m Member) DisplayName() string {
	name := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if name == "" && m.Username != "" {
		return "@" + m.Username
	}
	if name == "" {
		return fmt.Sprintf("%d", m.ID)
	}
	return name
}

// Enforce removes an offending message, posts a warning naming the sender and
// queues the warning for deletion after the group's warning timer.
func (p *Processor) Enforce(ctx context.Context, group *db.Group, ref MessageRef, sender Member, verdict Verdict) error {
	if !verdict.Delete {
		return nil
	}
	entry := p.getLogEntry().WithFields(log.Fields{
		"method":  "Enforce",
		"chat_id": ref.ChatID,
		"user_id": sender.ID,
		"reason":  verdict.Reason,
	})

	if err := p.platform.DeleteMessage(ctx, ref.ChatID, ref.MessageID); err != nil {
		return p.platformFailure(ctx, ref.ChatID, "delete the message", err)
	}
	if verdict.Reason == ReasonJoinLeave {
		return nil
	}

	text := fmt.Sprintf(
		i18n.Get("%s, your message was removed: %s", p.cfg.Lang),
		sender.DisplayName(), ReasonText(verdict.Reason, p.cfg.Lang),
	)
	warningID, err := p.platform.SendMessage(ctx, platform.OutgoingMessage{
		ChatID:   ref.ChatID,
		ThreadID: ref.ThreadID,
		Text:     text,
		Silent:   true,
	})
	if err != nil {
		entry.WithError(err).Warn("failed to post warning")
		return nil
	}
	return p.ScheduleDeletion(ctx, ref.ChatID, warningID, time.Duration(group.WarningTimerSeconds)*time.Second)
}

// ScheduleDeletion queues messageID for removal by the sweep once after has elapsed.
func (p *Processor) ScheduleDeletion(ctx context.Context, chatID int64, messageID int, after time.Duration) error {
	if after < 0 {
		after = 0
	}
	err := p.store.EnqueueDeletion(ctx, &db.PendingDeletion{
		ChatID:    chatID,
		MessageID: messageID,
		DueAt:     p.clock().Add(after),
	})
	if err != nil {
		return fmt.Errorf("failed to schedule deletion: %w", err)
	}
	return nil
}

// Welcome greets a new member with the group's template, if any, and schedules the greeting's removal.
func (p *Processor) Welcome(ctx context.Context, group *db.Group, threadID int, member Member) error {
	if strings.TrimSpace(group.WelcomeMessageTemplate) == "" {
		return nil
	}
	text := RenderWelcome(group.WelcomeMessageTemplate, group.Title, member)
	if text == "" {
		return nil
	}
	msgID, err := p.platform.SendMessage(ctx, platform.OutgoingMessage{
		ChatID:   group.ChatID,
		ThreadID: threadID,
		Text:     text,
	})
	if err != nil {
		return p.platformFailure(ctx, group.ChatID, "send the welcome message", err)
	}
	return p.ScheduleDeletion(ctx, group.ChatID, msgID, time.Duration(group.WelcomeTimerSeconds)*time.Second)
}

var welcomePlaceholders = strings.NewReplacer(
	"{{", `{{ "{{" }}`,
	"}}", `{{ "}}" }}`,
	"{name}", "{{ .name }}",
	"{username}", "{{ .username }}",
	"{chat}", "{{ .chat }}",
)

// RenderWelcome fills the {name}, {username} and {chat} placeholders of tpl.
func RenderWelcome(tpl, chatTitle string, member Member) string {
	username := member.DisplayName()
	if member.Username != "" {
		username = "@" + member.Username
	}
	return strings.TrimSpace(tool.ExecTemplate(welcomePlaceholders.Replace(tpl), map[string]any{
		"name":     member.DisplayName(),
		"username": username,
		"chat":     chatTitle,
	}))
}

// ReasonText is the localized, user-facing form of a verdict reason.
func ReasonText(reason, lang string) string {
	switch reason {
	case ReasonJoinLeave:
		return i18n.Get("join/leave message", lang)
	case ReasonTooLong:
		return i18n.Get("too long", lang)
	case ReasonPromotion:
		return i18n.Get("promotion", lang)
	case ReasonLink:
		return i18n.Get("link", lang)
	case ReasonBannedWord:
		return i18n.Get("banned word", lang)
	}
	return reason
}
