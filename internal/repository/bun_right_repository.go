package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/accesskit/rolemanager/internal/db/models"
)

// BunRightRepository implements RightRepository using Bun ORM.
// It covers rights together with the right-groups and right-type ranges they
// reference, since the three tables share one dependency chain.
type BunRightRepository struct {
	db bun.IDB
}

// NewBunRightRepository creates a new Bun-based right repository
func NewBunRightRepository(db bun.IDB) RightRepository {
	return &BunRightRepository{db: db}
}

// ========================================
// Right groups
// ========================================

func (r *BunRightRepository) CreateRightGroup(ctx context.Context, rg *models.RightGroup) error {
	_, err := r.db.NewInsert().
		Model(rg).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create right group: %w", err)
	}
	return nil
}

func (r *BunRightRepository) GetRightGroup(ctx context.Context, id int64) (*models.RightGroup, error) {
	rg := new(models.RightGroup)
	err := r.db.NewSelect().
		Model(rg).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("right group %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get right group: %w", err)
	}
	return rg, nil
}

func (r *BunRightRepository) ListRightGroups(ctx context.Context) ([]models.RightGroup, error) {
	var groups []models.RightGroup
	err := r.db.NewSelect().
		Model(&groups).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list right groups: %w", err)
	}
	return groups, nil
}

func (r *BunRightRepository) UpdateRightGroup(ctx context.Context, rg *models.RightGroup) error {
	result, err := r.db.NewUpdate().
		Model(rg).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update right group: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("right group %d", rg.ID))
}

func (r *BunRightRepository) DeleteRightGroup(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*models.RightGroup)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete right group: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("right group %d", id))
}

// RightGroupInUse reports whether any right references the right group
func (r *BunRightRepository) RightGroupInUse(ctx context.Context, id int64) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.Right)(nil)).
		Where("rightgroup_id = ?", id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check right group use: %w", err)
	}
	return exists, nil
}

// ========================================
// Right-type ranges
// ========================================

func (r *BunRightRepository) CreateRange(ctx context.Context, rtr *models.RightRange) error {
	_, err := r.db.NewInsert().
		Model(rtr).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create right type range: %w", err)
	}
	return nil
}

func (r *BunRightRepository) GetRange(ctx context.Context, id int64) (*models.RightRange, error) {
	rtr := new(models.RightRange)
	err := r.db.NewSelect().
		Model(rtr).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("right type range %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get right type range: %w", err)
	}
	return rtr, nil
}

func (r *BunRightRepository) ListRanges(ctx context.Context) ([]models.RightRange, error) {
	var ranges []models.RightRange
	err := r.db.NewSelect().
		Model(&ranges).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list right type ranges: %w", err)
	}
	return ranges, nil
}

func (r *BunRightRepository) UpdateRange(ctx context.Context, rtr *models.RightRange) error {
	result, err := r.db.NewUpdate().
		Model(rtr).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update right type range: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("right type range %d", rtr.ID))
}

func (r *BunRightRepository) DeleteRange(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*models.RightRange)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete right type range: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("right type range %d", id))
}

// RangeInUse reports whether any right references the range
func (r *BunRightRepository) RangeInUse(ctx context.Context, id int64) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.Right)(nil)).
		Where("righttype_range_id = ?", id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check right type range use: %w", err)
	}
	return exists, nil
}

// ========================================
// Rights
// ========================================

func (r *BunRightRepository) CreateRight(ctx context.Context, right *models.Right) error {
	_, err := r.db.NewInsert().
		Model(right).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create right: %w", err)
	}
	return nil
}

func (r *BunRightRepository) GetRight(ctx context.Context, id int64) (*models.Right, error) {
	right := new(models.Right)
	err := r.db.NewSelect().
		Model(right).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("right %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get right: %w", err)
	}
	return right, nil
}

func (r *BunRightRepository) GetRightByName(ctx context.Context, name string) (*models.Right, error) {
	right := new(models.Right)
	err := r.db.NewSelect().
		Model(right).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("right %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get right by name: %w", err)
	}
	return right, nil
}

func (r *BunRightRepository) ListRights(ctx context.Context) ([]models.Right, error) {
	var rights []models.Right
	err := r.db.NewSelect().
		Model(&rights).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rights: %w", err)
	}
	return rights, nil
}

func (r *BunRightRepository) UpdateRight(ctx context.Context, right *models.Right) error {
	result, err := r.db.NewUpdate().
		Model(right).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update right: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("right %d", right.ID))
}

func (r *BunRightRepository) DeleteRight(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*models.Right)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete right: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("right %d", id))
}

// RightInUse reports whether any role references the right
func (r *BunRightRepository) RightInUse(ctx context.Context, id int64) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.RoleRight)(nil)).
		Where("right_id = ?", id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check right use: %w", err)
	}
	return exists, nil
}

// requireAffected converts a zero-row write into a not-found error.
func requireAffected(result sql.Result, subject string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", subject, ErrNotFound)
	}
	return nil
}
