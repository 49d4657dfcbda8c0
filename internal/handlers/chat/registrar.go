package handlers

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/bot"
	"github.com/iamwavecut/groupwarden/internal/i18n"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

// Registrar keeps the group registry in step with the bot's own membership.
type Registrar struct {
	s bot.Service
}

func NewRegistrar(s bot.Service) *Registrar {
	r := &Registrar{s: s}
	r.getLogEntry().Debug("created new registrar")
	return r
}

func (r *Registrar) getLogEntry() *log.Entry {
	return log.WithField("object", "Registrar")
}

func (r *Registrar) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	switch {
	case u.MyChatMember != nil:
		return r.handleMembership(ctx, u.MyChatMember)
	case u.Message != nil && isGroupChat(chat) && r.botJoined(u.Message.NewChatMembers):
		var addedBy int64
		if user != nil {
			addedBy = user.ID
		}
		if _, err := r.s.GetProcessor().RegisterGroup(ctx, chat.ID, chat.Title, addedBy); err != nil {
			return true, errors.WithMessage(err, "register group")
		}
	}
	return true, nil
}

func (r *Registrar) botJoined(members []api.User) bool {
	for _, m := range members {
		if m.ID == r.s.BotID() {
			return true
		}
	}
	return false
}

func (r *Registrar) handleMembership(ctx context.Context, upd *api.ChatMemberUpdated) (bool, error) {
	chat := &upd.Chat
	if !isGroupChat(chat) {
		return true, nil
	}
	entry := r.getLogEntry().WithFields(log.Fields{
		"method":  "handleMembership",
		"chat_id": chat.ID,
		"status":  upd.NewChatMember.Status,
	})
	processor := r.s.GetProcessor()

	switch upd.NewChatMember.Status {
	case "left", "kicked":
		processor.PurgeTenant(ctx, chat.ID, fmt.Errorf("bot membership changed to %s", upd.NewChatMember.Status))
		return false, nil
	case "member", "administrator":
	default:
		return true, nil
	}
	if old := upd.OldChatMember.Status; old == "member" || old == "administrator" || old == "creator" {
		// promotion or demotion inside a chat the bot already serves; the adder stays
		if _, err := processor.RegisterGroup(ctx, chat.ID, chat.Title, 0); err != nil {
			return true, errors.WithMessage(err, "refresh group")
		}
		return true, nil
	}

	created, err := processor.RegisterGroup(ctx, chat.ID, chat.Title, upd.From.ID)
	if err != nil {
		return true, errors.WithMessage(err, "register group")
	}
	entry.WithField("created", created).Info("bot added to group")

	if upd.From.IsBot || upd.From.ID == 0 {
		return true, nil
	}
	_, err = r.s.GetPlatform().SendMessage(ctx, platform.OutgoingMessage{
		ChatID: upd.From.ID,
		Text:   fmt.Sprintf(i18n.Get("I've been added to '%s'", r.s.GetLanguage()), chat.Title),
	})
	if err != nil {
		// the adder may never have opened a private chat with the bot
		entry.WithError(err).Debug("failed to notify the adding user")
	}
	return true, nil
}
