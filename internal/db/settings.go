package db

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyActive = errors.New("already active")
	ErrNotActive     = errors.New("not active")
)

const (
	DefaultWarningTimerSeconds = 30
	DefaultWelcomeTimerSeconds = 60
)

// DefaultBannedWords seeds the filter list of a freshly registered group.
var DefaultBannedWords = []string{"scam", "fuck"}

func DefaultPolicy() Policy {
	return Policy{
		DeletePromotions:        false,
		DeleteLinks:             false,
		DeleteJoinLeave:         true,
		MaxWordCount:            0,
		WarningTimerSeconds:     DefaultWarningTimerSeconds,
		WelcomeTimerSeconds:     DefaultWelcomeTimerSeconds,
		AdminsExemptBannedWords: true,
	}
}
