package handlers

import (
	"context"
	"fmt"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/groupwarden/internal/callback"
	"github.com/iamwavecut/groupwarden/internal/i18n"
	"github.com/iamwavecut/groupwarden/internal/moderation"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

const (
	escalationMuteDuration = "1h"
	escalationReason       = "escalated from a warning"
	muteUntilLayout        = "2006-01-02 15:04 UTC"
)

// targetCommand parses the target arguments of msg and builds the processor command.
func (c *Commander) targetCommand(ctx context.Context, msg *api.Message, withDuration bool) (moderation.Command, commandArgs, error) {
	args, err := parseCommandArgs(msg, withDuration)
	if err != nil {
		return moderation.Command{}, args, err
	}
	actor, err := c.actor(msg)
	if err != nil {
		return moderation.Command{}, args, err
	}
	if err := args.Target.resolve(ctx, c.s.GetPlatform()); err != nil {
		return moderation.Command{}, args, err
	}
	return moderation.Command{
		ChatID:   msg.Chat.ID,
		TargetID: args.Target.ID,
		Actor:    actor,
		Reason:   args.Reason,
	}, args, nil
}

func (c *Commander) warn(ctx context.Context, msg *api.Message) error {
	cmd, args, err := c.targetCommand(ctx, msg, false)
	if err != nil {
		return err
	}
	result, err := c.processor().Warn(ctx, cmd)
	if err != nil {
		return err
	}

	lang := c.lang()
	text := fmt.Sprintf(i18n.Get("%s has been warned (%d): %s", lang), args.Target.label(), result.Count, cmd.Reason)
	if result.AutoBanned {
		return c.replyText(ctx, msg, text+"\n"+i18n.Get("Banned after too many warnings.", lang))
	}

	keyboard, err := escalationKeyboard(cmd.ChatID, cmd.TargetID, lang)
	if err != nil {
		c.getLogEntry().WithError(err).Warn("failed to build escalation keyboard")
	}
	return c.reply(ctx, msg, text, keyboard)
}

func escalationKeyboard(chatID, targetID int64, lang string) ([][]platform.Button, error) {
	muteData, err := callback.Encode(callback.Command{
		Kind:     callback.KindMute,
		ChatID:   chatID,
		TargetID: targetID,
		Payload:  escalationMuteDuration,
	})
	if err != nil {
		return nil, err
	}
	banData, err := callback.Encode(callback.Command{
		Kind:     callback.KindBan,
		ChatID:   chatID,
		TargetID: targetID,
	})
	if err != nil {
		return nil, err
	}
	return [][]platform.Button{{
		{Text: i18n.Get("Mute 1h", lang), Data: muteData},
		{Text: i18n.Get("Ban", lang), Data: banData},
	}}, nil
}

func (c *Commander) mute(ctx context.Context, msg *api.Message) error {
	cmd, args, err := c.targetCommand(ctx, msg, true)
	if err != nil {
		return err
	}
	mute, err := c.processor().Mute(ctx, cmd, args.Duration)
	if err != nil {
		return err
	}
	return c.replyText(ctx, msg, fmt.Sprintf(
		i18n.Get("%s is muted until %s: %s", c.lang()),
		args.Target.label(), mute.MuteUntil.UTC().Format(muteUntilLayout), cmd.Reason,
	))
}

func (c *Commander) unmute(ctx context.Context, msg *api.Message) error {
	cmd, args, err := c.targetCommand(ctx, msg, false)
	if err != nil {
		return err
	}
	if err := c.processor().Unmute(ctx, cmd); err != nil {
		return err
	}
	return c.replyText(ctx, msg, fmt.Sprintf(i18n.Get("%s has been unmuted.", c.lang()), args.Target.label()))
}

func (c *Commander) ban(ctx context.Context, msg *api.Message) error {
	cmd, args, err := c.targetCommand(ctx, msg, false)
	if err != nil {
		return err
	}
	if err := c.processor().Ban(ctx, cmd); err != nil {
		return err
	}
	return c.replyText(ctx, msg, fmt.Sprintf(i18n.Get("%s has been banned: %s", c.lang()), args.Target.label(), cmd.Reason))
}

func (c *Commander) unban(ctx context.Context, msg *api.Message) error {
	cmd, args, err := c.targetCommand(ctx, msg, false)
	if err != nil {
		return err
	}
	if err := c.processor().Unban(ctx, cmd); err != nil {
		return err
	}
	return c.replyText(ctx, msg, fmt.Sprintf(i18n.Get("%s has been unbanned.", c.lang()), args.Target.label()))
}

func (c *Commander) report(ctx context.Context, msg *api.Message) error {
	args, err := parseCommandArgs(msg, false)
	if err != nil {
		return err
	}
	if err := args.Target.resolve(ctx, c.s.GetPlatform()); err != nil {
		return err
	}
	reporter, ok := actorOf(msg, msg.Chat.ID)
	if !ok || reporter.IsAnonymous() {
		return nil
	}
	_, err = c.processor().Report(ctx, moderation.ReportRequest{
		ChatID:     msg.Chat.ID,
		ChatTitle:  strings.TrimSpace(msg.Chat.Title),
		ReporterID: reporter.UserID(),
		TargetID:   args.Target.ID,
		Reason:     args.Reason,
		MessageID:  msg.MessageID,
		ThreadID:   threadOf(msg),
	})
	return err
}
