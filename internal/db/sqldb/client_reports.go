package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/groupwarden/internal/db"
)

func (c *sqlClient) CreateReport(ctx context.Context, report *db.Report) (*db.Report, error) {
	if report.Status == "" {
		report.Status = db.ReportStatusPending
	}
	err := c.db.QueryRowxContext(ctx, c.q(`
		INSERT INTO reports (chat_id, reporter_id, target_id, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		report.ChatID,
		report.ReporterID,
		report.TargetID,
		report.Reason,
		report.Status,
		report.CreatedAt.UTC(),
	).Scan(&report.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return report, nil
}

func (c *sqlClient) GetReport(ctx context.Context, id int64) (*db.Report, error) {
	var report db.Report
	err := c.db.GetContext(ctx, &report, c.q(`
		SELECT id, chat_id, reporter_id, target_id, reason, status, created_at, resolved_by, resolved_at
		FROM reports WHERE id = ?
	`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// ResolveReport moves a pending report to resolved. It reports false when the report was not pending.
func (c *sqlClient) ResolveReport(ctx context.Context, id, resolvedBy int64, at time.Time) (bool, error) {
	res, err := c.db.ExecContext(ctx, c.q(`
		UPDATE reports SET status = ?, resolved_by = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`), db.ReportStatusResolved, resolvedBy, at.UTC(), id, db.ReportStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to resolve report: %w", err)
	}
	n, err := affected(res)
	return n > 0, err
}
