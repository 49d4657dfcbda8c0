package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/iamwavecut/groupwarden/internal/db"
)

// EnqueueDeletion schedules a message delete. Scheduling the same message twice keeps the first row.
func (c *sqlClient) EnqueueDeletion(ctx context.Context, deletion *db.PendingDeletion) error {
	_, err := c.db.ExecContext(ctx, c.q(`
		INSERT INTO pending_deletions (chat_id, message_id, due_at)
		VALUES (?, ?, ?)
		ON CONFLICT (chat_id, message_id) DO NOTHING
	`), deletion.ChatID, deletion.MessageID, deletion.DueAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to enqueue deletion: %w", err)
	}
	return nil
}

func (c *sqlClient) ListDueDeletions(ctx context.Context, now time.Time, limit int) ([]*db.PendingDeletion, error) {
	var deletions []*db.PendingDeletion
	err := c.db.SelectContext(ctx, &deletions, c.q(`
		SELECT id, chat_id, message_id, due_at
		FROM pending_deletions
		WHERE due_at <= ?
		ORDER BY due_at
		LIMIT ?
	`), now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due deletions: %w", err)
	}
	return deletions, nil
}

// ClaimDeletion consumes a queued row. Only the caller that gets true may act on it.
func (c *sqlClient) ClaimDeletion(ctx context.Context, id int64) (bool, error) {
	res, err := c.db.ExecContext(ctx, c.q(`DELETE FROM pending_deletions WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to claim deletion: %w", err)
	}
	n, err := affected(res)
	return n > 0, err
}
