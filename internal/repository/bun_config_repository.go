package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/accesskit/rolemanager/internal/db/models"
)

// BunConfigRepository implements ConfigRepository using Bun ORM.
//
// The permissions version counter is a single row in role_manager_config.
// Increment is a single UPDATE ... SET value = value + 1, which is atomic on
// both supported backends; when the repository is transaction-bound the bump
// commits together with the structural mutation that required it.
type BunConfigRepository struct {
	db bun.IDB
}

// NewBunConfigRepository creates a new Bun-based config repository
func NewBunConfigRepository(db bun.IDB) ConfigRepository {
	return &BunConfigRepository{db: db}
}

// Version returns the current permissions_version value
func (r *BunConfigRepository) Version(ctx context.Context) (int64, error) {
	entry := new(models.ConfigEntry)
	err := r.db.NewSelect().
		Model(entry).
		Where("key = ?", models.PermissionsVersionKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("config %q: %w", models.PermissionsVersionKey, ErrNotFound)
		}
		return 0, fmt.Errorf("read permissions version: %w", err)
	}
	return entry.Value, nil
}

// Increment atomically advances permissions_version by one
func (r *BunConfigRepository) Increment(ctx context.Context) error {
	result, err := r.db.NewUpdate().
		Model((*models.ConfigEntry)(nil)).
		Set("value = value + 1").
		Where("key = ?", models.PermissionsVersionKey).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("increment permissions version: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("config %q: %w", models.PermissionsVersionKey, ErrNotFound)
	}
	return nil
}
