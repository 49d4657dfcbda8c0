package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/bot"
	moderr "github.com/iamwavecut/groupwarden/internal/errors"
	"github.com/iamwavecut/groupwarden/internal/i18n"
	"github.com/iamwavecut/groupwarden/internal/moderation"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

type commandScope int

const (
	scopeAny commandScope = iota
	scopeGroup
	scopePrivate
)

type commandFunc func(ctx context.Context, msg *api.Message) error

type commandSpec struct {
	scope commandScope
	run   commandFunc
}

// Commander routes slash commands and inline button clicks to the moderation processor.
type Commander struct {
	s        bot.Service
	commands map[string]commandSpec
}

func NewCommander(s bot.Service) *Commander {
	c := &Commander{s: s}
	c.commands = map[string]commandSpec{
		"warn":            {scopeGroup, c.warn},
		"mute":            {scopeGroup, c.mute},
		"unmute":          {scopeGroup, c.unmute},
		"ban":             {scopeGroup, c.ban},
		"unban":           {scopeGroup, c.unban},
		"report":          {scopeGroup, c.report},
		"filter":          {scopeGroup, c.filter},
		"unfilter":        {scopeGroup, c.unfilter},
		"listfilters":     {scopeGroup, c.listFilters},
		"filters":         {scopeGroup, c.listFilters},
		"settings":        {scopeGroup, c.settings},
		"setlimit":        {scopeGroup, c.setLimit},
		"setwarntimer":    {scopeGroup, c.setWarnTimer},
		"setwelcome":      {scopeGroup, c.setWelcome},
		"setwelcometimer": {scopeGroup, c.setWelcomeTimer},
		"mygroups":        {scopePrivate, c.myGroups},
		"start":           {scopeAny, c.help},
		"help":            {scopeAny, c.help},
	}
	c.getLogEntry().Debug("created new commander")
	return c
}

func (c *Commander) getLogEntry() *log.Entry {
	return log.WithField("object", "Commander")
}

func (c *Commander) processor() *moderation.Processor {
	return c.s.GetProcessor()
}

func (c *Commander) lang() string {
	return c.s.GetLanguage()
}

func (c *Commander) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.CallbackQuery != nil {
		return false, c.handleCallback(ctx, u.CallbackQuery)
	}

	msg := u.Message
	if msg == nil || chat == nil || !msg.IsCommand() {
		return true, nil
	}
	spec, ok := c.commands[msg.Command()]
	if !ok {
		return true, nil
	}

	entry := c.getLogEntry().WithFields(log.Fields{
		"method":  "Handle",
		"command": msg.Command(),
		"chat_id": chat.ID,
	})

	switch {
	case spec.scope == scopeGroup && !isGroupChat(chat):
		return false, c.replyText(ctx, msg, i18n.Get("This command only works in groups.", c.lang()))
	case spec.scope == scopePrivate && chat.Type != "private":
		return false, c.replyText(ctx, msg, i18n.Get("This command only works in a private chat with me.", c.lang()))
	}

	err := spec.run(ctx, msg)
	if err == nil {
		return false, nil
	}
	if replyErr := c.replyText(ctx, msg, c.errorText(err)); replyErr != nil {
		entry.WithError(replyErr).Warn("failed to reply with error")
	}
	if moderr.KindOf(err) != nil {
		entry.WithError(err).Debug("command rejected")
		return false, nil
	}
	return false, errors.WithMessage(err, "command failed")
}

func (c *Commander) errorText(err error) string {
	if reason := moderr.ReasonOf(err); reason != "" {
		return i18n.Get(reason, c.lang())
	}
	return i18n.Get("Something went wrong, try again later.", c.lang())
}

// actor resolves the principal behind msg or fails as unauthorized.
func (c *Commander) actor(msg *api.Message) (moderation.Actor, error) {
	actor, ok := actorOf(msg, msg.Chat.ID)
	if !ok {
		return moderation.Actor{}, moderr.New(moderr.ErrUnauthorized, "only admins can do that")
	}
	return actor, nil
}

func threadOf(msg *api.Message) int {
	if msg.IsTopicMessage {
		return msg.MessageThreadID
	}
	return 0
}

func (c *Commander) reply(ctx context.Context, msg *api.Message, text string, keyboard [][]platform.Button) error {
	_, err := c.s.GetPlatform().SendMessage(ctx, platform.OutgoingMessage{
		ChatID:           msg.Chat.ID,
		Text:             text,
		ReplyToMessageID: msg.MessageID,
		ThreadID:         threadOf(msg),
		Keyboard:         keyboard,
	})
	if err != nil {
		return errors.Wrap(err, "send reply")
	}
	return nil
}

func (c *Commander) replyText(ctx context.Context, msg *api.Message, text string) error {
	return c.reply(ctx, msg, text, nil)
}
