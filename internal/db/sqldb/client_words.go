package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/iamwavecut/groupwarden/internal/db"
)

func (c *sqlClient) AddBannedWord(ctx context.Context, word *db.BannedWord) (bool, error) {
	createdAt := word.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := c.db.ExecContext(ctx, c.q(`
		INSERT INTO banned_words (chat_id, word, added_by, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id, word) DO NOTHING
	`), word.ChatID, word.Word, word.AddedBy, createdAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to add banned word: %w", err)
	}
	n, err := affected(res)
	return n > 0, err
}

func (c *sqlClient) RemoveBannedWord(ctx context.Context, chatID int64, word string) (bool, error) {
	res, err := c.db.ExecContext(ctx, c.q(`DELETE FROM banned_words WHERE chat_id = ? AND word = ?`), chatID, word)
	if err != nil {
		return false, fmt.Errorf("failed to remove banned word: %w", err)
	}
	n, err := affected(res)
	return n > 0, err
}

func (c *sqlClient) ListBannedWords(ctx context.Context, chatID int64) ([]string, error) {
	var words []string
	err := c.db.SelectContext(ctx, &words, c.q(`SELECT word FROM banned_words WHERE chat_id = ? ORDER BY word`), chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list banned words: %w", err)
	}
	return words, nil
}
