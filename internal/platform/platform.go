// Package platform describes what the moderation core needs from the chat platform.
package platform

import (
	"context"
	"time"
)

type Role string

const (
	RoleNone          Role = ""
	RoleMember        Role = "member"
	RoleRestricted    Role = "restricted"
	RoleLeft          Role = "left"
	RoleKicked        Role = "kicked"
	RoleAdministrator Role = "administrator"
	RoleOwner         Role = "creator"
)

// IsPrivileged reports whether the role may moderate the chat.
func (r Role) IsPrivileged() bool {
	return r == RoleAdministrator || r == RoleOwner
}

// Permissions is the set of member capabilities passed to RestrictMember.
type Permissions struct {
	SendMessages       bool
	SendMedia          bool
	SendPolls          bool
	SendOther          bool
	AddWebPagePreviews bool
	ChangeInfo         bool
	InviteUsers        bool
	PinMessages        bool
	ManageTopics       bool
}

func NoPermissions() Permissions {
	return Permissions{}
}

func FullPermissions() Permissions {
	return Permissions{
		SendMessages:       true,
		SendMedia:          true,
		SendPolls:          true,
		SendOther:          true,
		AddWebPagePreviews: true,
		ChangeInfo:         true,
		InviteUsers:        true,
		PinMessages:        true,
		ManageTopics:       true,
	}
}

type Button struct {
	Text string
	Data string
}

type OutgoingMessage struct {
	ChatID           int64
	Text             string
	ReplyToMessageID int
	ThreadID         int
	Keyboard         [][]Button
	Silent           bool
}

// Platform is the chat platform client. Every method is bounded by the client
// timeout and returns *Error for platform-side failures.
type Platform interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	// RestrictMember applies permissions until the given time; a zero until means unlimited.
	RestrictMember(ctx context.Context, chatID, userID int64, permissions Permissions, until time.Time) error
	BanMember(ctx context.Context, chatID, userID int64) error
	UnbanMember(ctx context.Context, chatID, userID int64) error
	SendMessage(ctx context.Context, msg OutgoingMessage) (messageID int, err error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard [][]Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	GetChatMember(ctx context.Context, chatID, userID int64) (Role, error)
	ListChatAdmins(ctx context.Context, chatID int64) ([]int64, error)
	ResolveUsername(ctx context.Context, username string) (int64, error)
}
