package bot

import (
	"github.com/iamwavecut/groupwarden/internal/moderation"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

type service struct {
	platform  platform.Platform
	processor *moderation.Processor
	lang      string
	botID     int64
}

func NewService(p platform.Platform, processor *moderation.Processor, lang string, botID int64) *service {
	return &service{
		platform:  p,
		processor: processor,
		lang:      lang,
		botID:     botID,
	}
}

func (s *service) GetPlatform() platform.Platform {
	return s.platform
}

func (s *service) GetProcessor() *moderation.Processor {
	return s.processor
}

func (s *service) GetLanguage() string {
	return s.lang
}

func (s *service) BotID() int64 {
	return s.botID
}
