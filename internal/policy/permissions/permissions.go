package permissions

import (
	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/groupwarden/internal/platform"
)

const (
	// AnonymousAdminBotID is the sender id Telegram uses for admins posting anonymously.
	AnonymousAdminBotID int64 = 1087968824
	// ServiceUserID is the sender id of channel posts auto-forwarded into a linked group.
	ServiceUserID int64 = 777000
)

func RoleOf(member *api.ChatMember) platform.Role {
	if member == nil {
		return platform.RoleNone
	}
	switch {
	case member.IsCreator():
		return platform.RoleOwner
	case member.IsAdministrator():
		return platform.RoleAdministrator
	}
	switch member.Status {
	case "member":
		return platform.RoleMember
	case "restricted":
		return platform.RoleRestricted
	case "left":
		return platform.RoleLeft
	case "kicked":
		return platform.RoleKicked
	}
	return platform.RoleNone
}

// IsAnonymousAdmin reports whether the message was posted by an admin hiding behind the group identity.
func IsAnonymousAdmin(msg *api.Message, chatID int64) bool {
	if msg == nil {
		return false
	}
	if msg.From != nil && msg.From.ID == AnonymousAdminBotID {
		return true
	}
	return msg.SenderChat != nil && msg.SenderChat.ID == chatID
}

// IsLinkedChannelPost reports whether the message is the group's own linked channel speaking.
func IsLinkedChannelPost(msg *api.Message) bool {
	if msg == nil || msg.SenderChat == nil {
		return false
	}
	return msg.IsAutomaticForward && msg.SenderChat.Type == "channel"
}
