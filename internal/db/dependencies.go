package db

import (
	"context"
	"time"
)

type Client interface {
	Close() error

	UpsertGroup(ctx context.Context, group *Group, seedWords []string) (created bool, err error)
	GetGroup(ctx context.Context, chatID int64) (*Group, error)
	ListGroupsAddedBy(ctx context.Context, userID int64) ([]*Group, error)
	UpdatePolicy(ctx context.Context, chatID int64, policy Policy) error
	PurgeGroup(ctx context.Context, chatID int64) error

	AddBannedWord(ctx context.Context, word *BannedWord) (added bool, err error)
	RemoveBannedWord(ctx context.Context, chatID int64, word string) (removed bool, err error)
	ListBannedWords(ctx context.Context, chatID int64) ([]string, error)

	AddWarning(ctx context.Context, warning *Warning) error
	CountWarnings(ctx context.Context, chatID, targetID int64) (int, error)

	ActivateBan(ctx context.Context, ban *Ban) error
	GetActiveBan(ctx context.Context, chatID, targetID int64) (*Ban, error)
	DeactivateBan(ctx context.Context, chatID, targetID int64, at time.Time) error

	ActivateMute(ctx context.Context, mute *Mute) error
	GetActiveMute(ctx context.Context, chatID, targetID int64) (*Mute, error)
	DeactivateMute(ctx context.Context, chatID, targetID int64, at time.Time) error
	ListExpiredMutes(ctx context.Context, now time.Time, limit int) ([]*Mute, error)
	ClaimExpiredMute(ctx context.Context, id int64, now time.Time) (bool, error)

	CreateReport(ctx context.Context, report *Report) (*Report, error)
	GetReport(ctx context.Context, id int64) (*Report, error)
	ResolveReport(ctx context.Context, id, resolvedBy int64, at time.Time) (bool, error)

	EnqueueDeletion(ctx context.Context, deletion *PendingDeletion) error
	ListDueDeletions(ctx context.Context, now time.Time, limit int) ([]*PendingDeletion, error)
	ClaimDeletion(ctx context.Context, id int64) (bool, error)
}
