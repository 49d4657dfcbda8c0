package handlers

import (
	"context"
	"strconv"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/callback"
	moderr "github.com/iamwavecut/groupwarden/internal/errors"
	"github.com/iamwavecut/groupwarden/internal/i18n"
	"github.com/iamwavecut/groupwarden/internal/moderation"
)

// handleCallback executes a button click. The clicker is authorized at click time.
func (c *Commander) handleCallback(ctx context.Context, q *api.CallbackQuery) error {
	entry := c.getLogEntry().WithFields(log.Fields{"method": "handleCallback"})
	lang := c.lang()

	cmd, err := callback.Decode(q.Data)
	if err != nil || q.From == nil {
		entry.WithError(err).Debug("ignoring callback")
		return c.answer(ctx, q, i18n.Get("This button is no longer valid.", lang))
	}
	entry = entry.WithFields(log.Fields{"kind": cmd.Kind, "chat_id": cmd.ChatID, "user_id": q.From.ID})

	actor := moderation.IndividualUser(q.From.ID)
	var (
		answer string
		footer string
		edit   = true
	)
	switch cmd.Kind {
	case callback.KindToggle:
		group, err := c.processor().UpdatePolicy(ctx, cmd.ChatID, actor, moderation.ToggleSetting(cmd.Payload))
		if err != nil {
			return c.answerError(ctx, q, entry, err)
		}
		answer = i18n.Get("Settings updated.", lang)
		edit = false
		keyboard, err := settingsKeyboard(group.ChatID, group.Policy, lang)
		if err != nil {
			entry.WithError(err).Warn("failed to build settings keyboard")
			break
		}
		if q.Message != nil {
			if err := c.s.GetPlatform().EditMessage(ctx, q.Message.Chat.ID, q.Message.MessageID, settingsText(group, lang), keyboard); err != nil {
				entry.WithError(err).Warn("failed to re-render settings")
			}
		}

	case callback.KindMute:
		mute, err := c.processor().Mute(ctx, moderation.Command{
			ChatID:   cmd.ChatID,
			TargetID: cmd.TargetID,
			Actor:    actor,
			Reason:   escalationReason,
		}, cmd.Payload)
		if err != nil {
			return c.answerError(ctx, q, entry, err)
		}
		answer = i18n.Get("Muted.", lang)
		footer = i18n.Get("Muted until", lang) + " " + mute.MuteUntil.UTC().Format(muteUntilLayout)

	case callback.KindBan:
		err := c.processor().Ban(ctx, moderation.Command{
			ChatID:   cmd.ChatID,
			TargetID: cmd.TargetID,
			Actor:    actor,
			Reason:   escalationReason,
		})
		if err != nil {
			return c.answerError(ctx, q, entry, err)
		}
		answer = i18n.Get("Banned.", lang)
		footer = answer

	case callback.KindResolve:
		reportID, err := strconv.ParseInt(cmd.Payload, 10, 64)
		if err != nil {
			return c.answer(ctx, q, i18n.Get("This button is no longer valid.", lang))
		}
		if err := c.processor().ResolveReport(ctx, cmd.ChatID, reportID, actor); err != nil {
			return c.answerError(ctx, q, entry, err)
		}
		answer = i18n.Get("Resolved.", lang)
		footer = answer
	}

	if edit && q.Message != nil {
		text := q.Message.Text
		if footer != "" {
			text += "\n\n" + footer
		}
		if err := c.s.GetPlatform().EditMessage(ctx, q.Message.Chat.ID, q.Message.MessageID, text, nil); err != nil {
			entry.WithError(err).Warn("failed to update the message")
		}
	}
	return c.answer(ctx, q, answer)
}

func (c *Commander) answer(ctx context.Context, q *api.CallbackQuery, text string) error {
	if err := c.s.GetPlatform().AnswerCallback(ctx, q.ID, text); err != nil {
		c.getLogEntry().WithError(err).Debug("failed to answer callback")
	}
	return nil
}

func (c *Commander) answerError(ctx context.Context, q *api.CallbackQuery, entry *log.Entry, err error) error {
	_ = c.answer(ctx, q, c.errorText(err))
	if moderr.KindOf(err) != nil {
		entry.WithError(err).Debug("callback rejected")
		return nil
	}
	return err
}
