package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/groupwarden/internal/db"
)

func (c *sqlClient) AddWarning(ctx context.Context, warning *db.Warning) error {
	err := c.db.QueryRowxContext(ctx, c.q(`
		INSERT INTO warnings (chat_id, target_id, actor_id, actor_anonymous, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		warning.ChatID,
		warning.TargetID,
		warning.ActorID,
		warning.ActorAnonymous,
		warning.Reason,
		warning.CreatedAt.UTC(),
	).Scan(&warning.ID)
	if err != nil {
		return fmt.Errorf("failed to add warning: %w", err)
	}
	return nil
}

func (c *sqlClient) CountWarnings(ctx context.Context, chatID, targetID int64) (int, error) {
	var count int
	err := c.db.GetContext(ctx, &count, c.q(`SELECT COUNT(*) FROM warnings WHERE chat_id = ? AND target_id = ?`), chatID, targetID)
	if err != nil {
		return 0, fmt.Errorf("failed to count warnings: %w", err)
	}
	return count, nil
}

// ActivateBan inserts an active ban unless one already exists for the same chat and target.
func (c *sqlClient) ActivateBan(ctx context.Context, ban *db.Ban) error {
	res, err := c.db.ExecContext(ctx, c.q(`
		INSERT INTO bans (chat_id, target_id, actor_id, actor_anonymous, reason, created_at, active)
		VALUES (?, ?, ?, ?, ?, ?, TRUE)
		ON CONFLICT (chat_id, target_id) WHERE active = TRUE DO NOTHING
	`),
		ban.ChatID,
		ban.TargetID,
		ban.ActorID,
		ban.ActorAnonymous,
		ban.Reason,
		ban.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrAlreadyActive
		}
		return fmt.Errorf("failed to activate ban: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrAlreadyActive
	}
	ban.Active = true
	return nil
}

func (c *sqlClient) GetActiveBan(ctx context.Context, chatID, targetID int64) (*db.Ban, error) {
	var ban db.Ban
	err := c.db.GetContext(ctx, &ban, c.q(`
		SELECT id, chat_id, target_id, actor_id, actor_anonymous, reason, created_at, active, deactivated_at
		FROM bans
		WHERE chat_id = ? AND target_id = ? AND active = TRUE
	`), chatID, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active ban: %w", err)
	}
	return &ban, nil
}

func (c *sqlClient) DeactivateBan(ctx context.Context, chatID, targetID int64, at time.Time) error {
	res, err := c.db.ExecContext(ctx, c.q(`
		UPDATE bans SET active = FALSE, deactivated_at = ?
		WHERE chat_id = ? AND target_id = ? AND active = TRUE
	`), at.UTC(), chatID, targetID)
	if err != nil {
		return fmt.Errorf("failed to deactivate ban: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotActive
	}
	return nil
}

// ActivateMute inserts an active mute unless one already exists for the same chat and target.
func (c *sqlClient) ActivateMute(ctx context.Context, mute *db.Mute) error {
	if !mute.MuteUntil.After(mute.CreatedAt) {
		return fmt.Errorf("mute_until %s is not after created_at %s", mute.MuteUntil, mute.CreatedAt)
	}
	rows, err := c.db.QueryxContext(ctx, c.q(`
		INSERT INTO mutes (chat_id, target_id, actor_id, actor_anonymous, reason, created_at, mute_until, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, TRUE)
		ON CONFLICT (chat_id, target_id) WHERE active = TRUE DO NOTHING
		RETURNING id
	`),
		mute.ChatID,
		mute.TargetID,
		mute.ActorID,
		mute.ActorAnonymous,
		mute.Reason,
		mute.CreatedAt.UTC(),
		mute.MuteUntil.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrAlreadyActive
		}
		return fmt.Errorf("failed to activate mute: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			if isUniqueViolation(err) {
				return db.ErrAlreadyActive
			}
			return fmt.Errorf("failed to activate mute: %w", err)
		}
		return db.ErrAlreadyActive
	}
	if err := rows.Scan(&mute.ID); err != nil {
		return fmt.Errorf("failed to scan mute id: %w", err)
	}
	mute.Active = true
	return nil
}

func (c *sqlClient) GetActiveMute(ctx context.Context, chatID, targetID int64) (*db.Mute, error) {
	var mute db.Mute
	err := c.db.GetContext(ctx, &mute, c.q(`
		SELECT id, chat_id, target_id, actor_id, actor_anonymous, reason, created_at, mute_until, active, deactivated_at
		FROM mutes
		WHERE chat_id = ? AND target_id = ? AND active = TRUE
	`), chatID, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active mute: %w", err)
	}
	return &mute, nil
}

func (c *sqlClient) DeactivateMute(ctx context.Context, chatID, targetID int64, at time.Time) error {
	res, err := c.db.ExecContext(ctx, c.q(`
		UPDATE mutes SET active = FALSE, deactivated_at = ?
		WHERE chat_id = ? AND target_id = ? AND active = TRUE
	`), at.UTC(), chatID, targetID)
	if err != nil {
		return fmt.Errorf("failed to deactivate mute: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotActive
	}
	return nil
}

func (c *sqlClient) ListExpiredMutes(ctx context.Context, now time.Time, limit int) ([]*db.Mute, error) {
	var mutes []*db.Mute
	err := c.db.SelectContext(ctx, &mutes, c.q(`
		SELECT id, chat_id, target_id, actor_id, actor_anonymous, reason, created_at, mute_until, active, deactivated_at
		FROM mutes
		WHERE active = TRUE AND mute_until <= ?
		ORDER BY mute_until
		LIMIT ?
	`), now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired mutes: %w", err)
	}
	return mutes, nil
}

// ClaimExpiredMute flips an expired mute inactive. It reports false when the row
// was already inactive, so concurrent sweeps act on each mute once.
func (c *sqlClient) ClaimExpiredMute(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := c.db.ExecContext(ctx, c.q(`
		UPDATE mutes SET active = FALSE, deactivated_at = ?
		WHERE id = ? AND active = TRUE AND mute_until <= ?
	`), now.UTC(), id, now.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to claim expired mute: %w", err)
	}
	n, err := affected(res)
	return n > 0, err
}
