package handlers

import (
	"context"
	"errors"

	api "github.com/OvyFlash/telegram-bot-api"
	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/bot"
	"github.com/iamwavecut/groupwarden/internal/db"
	moderr "github.com/iamwavecut/groupwarden/internal/errors"
	"github.com/iamwavecut/groupwarden/internal/moderation"
	"github.com/iamwavecut/groupwarden/internal/observability"
	"github.com/iamwavecut/groupwarden/internal/policy/permissions"
)

// Moderator runs every group message through the classifier and enforces the verdict.
type Moderator struct {
	s bot.Service
}

func NewModerator(s bot.Service) *Moderator {
	m := &Moderator{s: s}
	m.getLogEntry().Debug("created new moderator")
	return m
}

func (m *Moderator) getLogEntry() *log.Entry {
	return log.WithField("object", "Moderator")
}

func (m *Moderator) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	msg := u.Message
	if msg == nil {
		msg = u.EditedMessage
	}
	if msg == nil || !isGroupChat(chat) {
		return true, nil
	}
	entry := m.getLogEntry().WithFields(log.Fields{
		"method":  "Handle",
		"chat_id": chat.ID,
	})
	if user != nil {
		entry = entry.WithField("user_id", user.ID)
	}

	group, err := m.group(ctx, chat)
	if err != nil {
		return true, err
	}
	processor := m.s.GetProcessor()
	words, err := processor.BannedWords(ctx, chat.ID)
	if err != nil {
		return true, pkgerrors.WithMessage(err, "load banned words")
	}

	verdict, ok := m.classify(ctx, entry, msg, chat.ID, group.Policy, words)
	if !ok {
		return true, nil
	}
	observability.RecordVerdict(verdict.Reason)

	if verdict.Delete {
		ref := moderation.MessageRef{ChatID: chat.ID, MessageID: msg.MessageID, ThreadID: threadOf(msg)}
		if err := processor.Enforce(ctx, group, ref, toMember(msg.From), verdict); err != nil {
			entry.WithError(err).WithField("reason", verdict.Reason).Warn("failed to enforce verdict")
			return true, nil
		}
		entry.WithField("reason", verdict.Reason).Info("message removed")
	}

	if u.Message != nil {
		m.welcome(ctx, entry, group, msg)
	}
	return true, nil
}

// group returns the registered group, registering chats that predate the bot's registry.
func (m *Moderator) group(ctx context.Context, chat *api.Chat) (*db.Group, error) {
	processor := m.s.GetProcessor()
	group, err := processor.Group(ctx, chat.ID)
	if err == nil {
		return group, nil
	}
	if !errors.Is(err, moderr.ErrTargetNotFound) {
		return nil, pkgerrors.WithMessage(err, "load group")
	}
	if _, err := processor.RegisterGroup(ctx, chat.ID, chat.Title, 0); err != nil {
		return nil, pkgerrors.WithMessage(err, "register group")
	}
	group, err = processor.Group(ctx, chat.ID)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "load group")
	}
	return group, nil
}

// classify evaluates msg without a role first and only looks the role up when the
// message would be deleted. A failed lookup leaves the message alone.
func (m *Moderator) classify(ctx context.Context, entry *log.Entry, msg *api.Message, chatID int64, policy db.Policy, words []string) (moderation.Verdict, bool) {
	content := toModerationMessage(msg)
	sender := moderation.SenderContext{
		AnonymousAdmin: permissions.IsAnonymousAdmin(msg, chatID),
		LinkedChannel:  permissions.IsLinkedChannelPost(msg),
	}
	verdict := moderation.Classify(content, sender, policy, words)
	if !verdict.Delete || sender.Exempt() || msg.From == nil || msg.SenderChat != nil {
		return verdict, true
	}

	role, err := m.s.GetPlatform().GetChatMember(ctx, chatID, msg.From.ID)
	if err != nil {
		entry.WithError(err).Warn("role lookup failed, leaving message untouched")
		return moderation.Allow, false
	}
	sender.Role = role
	return moderation.Classify(content, sender, policy, words), true
}

func (m *Moderator) welcome(ctx context.Context, entry *log.Entry, group *db.Group, msg *api.Message) {
	for i := range msg.NewChatMembers {
		member := &msg.NewChatMembers[i]
		if member.IsBot {
			continue
		}
		if err := m.s.GetProcessor().Welcome(ctx, group, threadOf(msg), toMember(member)); err != nil {
			entry.WithError(err).WithField("member_id", member.ID).Warn("failed to welcome member")
		}
	}
}
