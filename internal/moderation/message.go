package moderation

import (
	"unicode/utf16"

	"github.com/iamwavecut/groupwarden/internal/platform"
)

const (
	EntityURL      = "url"
	EntityTextLink = "text_link"
	EntityBold     = "bold"
)

// Entity is a formatting span. Offset and Length count UTF-16 code units.
type Entity struct {
	Type   string
	Offset int
	Length int
	URL    string
}

// Message is the platform-neutral view of an inbound message.
type Message struct {
	// Text holds the message text or the media caption.
	Text            string
	Entities        []Entity
	IsForward       bool
	SenderIsChannel bool
	SenderIsBot     bool
	ViaBot          bool
	IsJoinLeave     bool
}

func (m Message) entityText(e Entity) string {
	units := utf16.Encode([]rune(m.Text))
	if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
}

// SenderContext is what is known about the sender's standing in the chat.
type SenderContext struct {
	Role           platform.Role
	AnonymousAdmin bool
	LinkedChannel  bool
}

func (s SenderContext) Exempt() bool {
	return s.Role.IsPrivileged() || s.AnonymousAdmin || s.LinkedChannel
}
