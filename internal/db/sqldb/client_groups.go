package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/jmoiron/sqlx"

	"github.com/iamwavecut/groupwarden/internal/db"
)

const groupColumns = `chat_id, title, added_by, delete_promotions, delete_links, delete_join_leave,
	max_word_count, warning_timer_seconds, welcome_message_template, welcome_timer_seconds,
	admins_exempt_banned_words, created_at, updated_at`

// UpsertGroup registers a group. On rejoin only identity fields are refreshed, the policy is kept;
// a zero AddedBy leaves the recorded adder untouched.
// seedWords are added to the filter list only when the row is created.
func (c *sqlClient) UpsertGroup(ctx context.Context, group *db.Group, seedWords []string) (bool, error) {
	now := time.Now().UTC()
	created := false
	err := c.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, c.q(`
			INSERT INTO chat_groups (`+groupColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (chat_id) DO NOTHING
		`),
			group.ChatID,
			group.Title,
			group.AddedBy,
			group.DeletePromotions,
			group.DeleteLinks,
			group.DeleteJoinLeave,
			group.MaxWordCount,
			group.WarningTimerSeconds,
			group.WelcomeMessageTemplate,
			group.WelcomeTimerSeconds,
			group.AdminsExemptBannedWords,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		created = n > 0

		if !created {
			refresh := tool.Err(tx.ExecContext(ctx, c.q(`
				UPDATE chat_groups SET title = ?, updated_at = ? WHERE chat_id = ?
			`), group.Title, now, group.ChatID))
			if refresh == nil && group.AddedBy != 0 {
				refresh = tool.Err(tx.ExecContext(ctx, c.q(`
					UPDATE chat_groups SET added_by = ? WHERE chat_id = ?
				`), group.AddedBy, group.ChatID))
			}
			if refresh != nil {
				return fmt.Errorf("failed to refresh group identity: %w", refresh)
			}
			return nil
		}

		for _, word := range seedWords {
			if err := tool.Err(tx.ExecContext(ctx, c.q(`
				INSERT INTO banned_words (chat_id, word, added_by, created_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (chat_id, word) DO NOTHING
			`), group.ChatID, word, group.AddedBy, now)); err != nil {
				return fmt.Errorf("failed to seed banned word: %w", err)
			}
		}
		return nil
	})
	return created, err
}

func (c *sqlClient) GetGroup(ctx context.Context, chatID int64) (*db.Group, error) {
	var group db.Group
	err := c.db.GetContext(ctx, &group, c.q(`SELECT `+groupColumns+` FROM chat_groups WHERE chat_id = ?`), chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &group, nil
}

func (c *sqlClient) ListGroupsAddedBy(ctx context.Context, userID int64) ([]*db.Group, error) {
	var groups []*db.Group
	err := c.db.SelectContext(ctx, &groups, c.q(`
		SELECT `+groupColumns+` FROM chat_groups WHERE added_by = ? ORDER BY title
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (c *sqlClient) UpdatePolicy(ctx context.Context, chatID int64, policy db.Policy) error {
	res, err := c.db.ExecContext(ctx, c.q(`
		UPDATE chat_groups SET
			delete_promotions = ?,
			delete_links = ?,
			delete_join_leave = ?,
			max_word_count = ?,
			warning_timer_seconds = ?,
			welcome_message_template = ?,
			welcome_timer_seconds = ?,
			admins_exempt_banned_words = ?,
			updated_at = ?
		WHERE chat_id = ?
	`),
		policy.DeletePromotions,
		policy.DeleteLinks,
		policy.DeleteJoinLeave,
		policy.MaxWordCount,
		policy.WarningTimerSeconds,
		policy.WelcomeMessageTemplate,
		policy.WelcomeTimerSeconds,
		policy.AdminsExemptBannedWords,
		time.Now().UTC(),
		chatID,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// PurgeGroup removes a tenant: the group row, its filter list and its queued deletions.
// Ledger history (warnings, bans, mutes, reports) is kept.
func (c *sqlClient) PurgeGroup(ctx context.Context, chatID int64) error {
	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, query := range []string{
			`DELETE FROM pending_deletions WHERE chat_id = ?`,
			`DELETE FROM banned_words WHERE chat_id = ?`,
			`DELETE FROM chat_groups WHERE chat_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, c.q(query), chatID); err != nil {
				return fmt.Errorf("failed to purge group: %w", err)
			}
		}
		return nil
	})
}
