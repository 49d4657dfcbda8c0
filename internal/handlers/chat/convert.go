package handlers

import (
	"unicode/utf16"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/groupwarden/internal/moderation"
	"github.com/iamwavecut/groupwarden/internal/policy/permissions"
)

const entityTextMention = "text_mention"

func isGroupChat(chat *api.Chat) bool {
	return chat != nil && (chat.Type == "group" || chat.Type == "supergroup")
}

// messageContent returns the text of msg, or its caption for media, with the matching entities.
func messageContent(msg *api.Message) (string, []api.MessageEntity) {
	if msg.Text != "" {
		return msg.Text, msg.Entities
	}
	return msg.Caption, msg.CaptionEntities
}

func toModerationMessage(msg *api.Message) moderation.Message {
	text, entities := messageContent(msg)
	out := moderation.Message{
		Text:        text,
		Entities:    make([]moderation.Entity, 0, len(entities)),
		IsForward:   msg.ForwardOrigin != nil,
		ViaBot:      msg.ViaBot != nil,
		IsJoinLeave: len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil,
	}
	for _, e := range entities {
		out.Entities = append(out.Entities, moderation.Entity{
			Type:   e.Type,
			Offset: e.Offset,
			Length: e.Length,
			URL:    e.URL,
		})
	}
	if msg.SenderChat != nil && msg.SenderChat.Type == "channel" && !msg.IsAutomaticForward {
		out.SenderIsChannel = true
	}
	if msg.From != nil && msg.From.IsBot && msg.From.ID != permissions.AnonymousAdminBotID {
		out.SenderIsBot = true
	}
	return out
}

func toMember(user *api.User) moderation.Member {
	if user == nil {
		return moderation.Member{}
	}
	return moderation.Member{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.UserName,
	}
}

// actorOf maps the sender of msg to the principal acting in chatID.
func actorOf(msg *api.Message, chatID int64) (moderation.Actor, bool) {
	if permissions.IsAnonymousAdmin(msg, chatID) {
		return moderation.AnonymousAdmin(), true
	}
	if msg.From == nil {
		return moderation.Actor{}, false
	}
	return moderation.IndividualUser(msg.From.ID), true
}

// entityText slices text by a UTF-16 entity range.
func entityText(text string, e api.MessageEntity) string {
	units := utf16.Encode([]rune(text))
	if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
}
