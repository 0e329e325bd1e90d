package repository

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/accesskit/rolemanager/internal/db/models"
)

// BunLogRepository implements LogRepository using Bun ORM
type BunLogRepository struct {
	db bun.IDB
}

// NewBunLogRepository creates a new Bun-based log repository
func NewBunLogRepository(db bun.IDB) LogRepository {
	return &BunLogRepository{db: db}
}

// Append inserts a log entry
func (r *BunLogRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	_, err := r.db.NewInsert().
		Model(entry).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return nil
}

// Recent returns the newest limit entries, newest first
func (r *BunLogRepository) Recent(ctx context.Context, limit int) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	err := r.db.NewSelect().
		Model(&entries).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	return entries, nil
}
