package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/groupwarden/internal/moderation"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

// Service is what update handlers share.
type Service interface {
	GetPlatform() platform.Platform
	GetProcessor() *moderation.Processor
	GetLanguage() string
	// BotID is the bot's own user id.
	BotID() int64
}

// Handler handles one update; returning false stops the handler chain.
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}
