package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/db"
	moderr "github.com/iamwavecut/groupwarden/internal/errors"
	"github.com/iamwavecut/groupwarden/internal/observability"
)

// Toggleable policy flags.
const (
	SettingJoinLeave         = "join_leave"
	SettingLinks             = "links"
	SettingPromotions        = "promotions"
	SettingAdminsBannedWords = "admins_words"
)

var Settings = []string{SettingJoinLeave, SettingLinks, SettingPromotions, SettingAdminsBannedWords}

// RegisterGroup records the bot joining a chat. Policy survives a rejoin; the
// default banned words are seeded only on first registration.
func (p *Processor) RegisterGroup(ctx context.Context, chatID int64, title string, addedBy int64) (bool, error) {
	now := p.clock()
	created, err := p.store.UpsertGroup(ctx, &db.Group{
		ChatID:    chatID,
		Title:     title,
		AddedBy:   addedBy,
		CreatedAt: now,
		UpdatedAt: now,
		Policy:    p.cfg.DefaultPolicy,
	}, normalizeWords(p.cfg.DefaultBannedWords))
	if err != nil {
		return false, fmt.Errorf("failed to register group: %w", err)
	}
	p.getLogEntry().WithFields(log.Fields{
		"method":  "RegisterGroup",
		"chat_id": chatID,
		"created": created,
	}).Info("group registered")
	return created, nil
}

func normalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = NormalizeWord(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Group loads a registered group.
func (p *Processor) Group(ctx context.Context, chatID int64) (*db.Group, error) {
	group, err := p.store.GetGroup(ctx, chatID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, moderr.New(moderr.ErrTargetNotFound, "this group is not registered")
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

func (p *Processor) GroupsAddedBy(ctx context.Context, userID int64) ([]*db.Group, error) {
	groups, err := p.store.ListGroupsAddedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (p *Processor) BannedWords(ctx context.Context, chatID int64) ([]string, error) {
	words, err := p.store.ListBannedWords(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list banned words: %w", err)
	}
	return words, nil
}

// AddBannedWord stores the normalized word and returns it.
func (p *Processor) AddBannedWord(ctx context.Context, chatID int64, actor Actor, word string) (string, error) {
	normalized := NormalizeWord(word)
	err := p.run(ctx, "filter", Command{ChatID: chatID, Actor: actor}, func(ctx context.Context, cmd Command) error {
		if normalized == "" {
			return moderr.New(moderr.ErrInvalidInput, "word is required")
		}
		if err := p.Authorize(ctx, chatID, actor); err != nil {
			return err
		}
		added, err := p.store.AddBannedWord(ctx, &db.BannedWord{
			ChatID:    chatID,
			Word:      normalized,
			AddedBy:   actor.LedgerID(),
			CreatedAt: p.clock(),
		})
		if err != nil {
			return fmt.Errorf("failed to add banned word: %w", err)
		}
		if !added {
			return moderr.New(moderr.ErrConflictingState, "already filtered")
		}
		return nil
	})
	return normalized, err
}

func (p *Processor) RemoveBannedWord(ctx context.Context, chatID int64, actor Actor, word string) (string, error) {
	normalized := NormalizeWord(word)
	err := p.run(ctx, "unfilter", Command{ChatID: chatID, Actor: actor}, func(ctx context.Context, cmd Command) error {
		if normalized == "" {
			return moderr.New(moderr.ErrInvalidInput, "word is required")
		}
		if err := p.Authorize(ctx, chatID, actor); err != nil {
			return err
		}
		removed, err := p.store.RemoveBannedWord(ctx, chatID, normalized)
		if err != nil {
			return fmt.Errorf("failed to remove banned word: %w", err)
		}
		if !removed {
			return moderr.New(moderr.ErrConflictingState, "not filtered")
		}
		return nil
	})
	return normalized, err
}

// UpdatePolicy applies change to the group's policy after checking that actor is an admin.
func (p *Processor) UpdatePolicy(ctx context.Context, chatID int64, actor Actor, change func(*db.Policy) error) (*db.Group, error) {
	var group *db.Group
	err := p.run(ctx, "settings", Command{ChatID: chatID, Actor: actor}, func(ctx context.Context, cmd Command) error {
		if err := p.Authorize(ctx, chatID, actor); err != nil {
			return err
		}
		var err error
		if group, err = p.Group(ctx, chatID); err != nil {
			return err
		}
		if err := change(&group.Policy); err != nil {
			return err
		}
		if err := p.store.UpdatePolicy(ctx, chatID, group.Policy); err != nil {
			return fmt.Errorf("failed to update policy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.Audit(observability.AuditEvent{Action: "settings", ChatID: chatID, ActorID: actor.LedgerID(), ActorAnonymous: actor.IsAnonymous()})
	return group, nil
}

// ToggleSetting flips one of the boolean policy flags.
func ToggleSetting(setting string) func(*db.Policy) error {
	return func(policy *db.Policy) error {
		switch strings.ToLower(setting) {
		case SettingJoinLeave:
			policy.DeleteJoinLeave = !policy.DeleteJoinLeave
		case SettingLinks:
			policy.DeleteLinks = !policy.DeleteLinks
		case SettingPromotions:
			policy.DeletePromotions = !policy.DeletePromotions
		case SettingAdminsBannedWords:
			policy.AdminsExemptBannedWords = !policy.AdminsExemptBannedWords
		default:
			return moderr.New(moderr.ErrInvalidInput, "unknown setting")
		}
		return nil
	}
}

// SettingEnabled reports the current value of a toggleable flag.
func SettingEnabled(policy db.Policy, setting string) bool {
	switch setting {
	case SettingJoinLeave:
		return policy.DeleteJoinLeave
	case SettingLinks:
		return policy.DeleteLinks
	case SettingPromotions:
		return policy.DeletePromotions
	case SettingAdminsBannedWords:
		return policy.AdminsExemptBannedWords
	}
	return false
}
