package rolemanager

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/accesskit/rolemanager/internal/db/models"
	"github.com/accesskit/rolemanager/internal/repository"
)

// RightGroupsManager handles the named buckets rights are organized into.
type RightGroupsManager struct {
	core *core
}

// Create registers a right group.
func (m *RightGroupsManager) Create(ctx context.Context, name string) (*RightGroup, error) {
	if name == "" {
		return nil, validationErrorf("right group name must not be empty")
	}
	rg := &models.RightGroup{Name: name}
	if err := m.core.repos.Rights.CreateRightGroup(ctx, rg); err != nil {
		return nil, storeError(err)
	}
	return toRightGroup(rg), nil
}

// Get retrieves a right group by id.
func (m *RightGroupsManager) Get(ctx context.Context, id int64) (*RightGroup, error) {
	rg, err := m.core.repos.Rights.GetRightGroup(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return toRightGroup(rg), nil
}

// List returns all right groups ordered by name.
func (m *RightGroupsManager) List(ctx context.Context) ([]RightGroup, error) {
	rgs, err := m.core.repos.Rights.ListRightGroups(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]RightGroup, len(rgs))
	for i := range rgs {
		out[i] = *toRightGroup(&rgs[i])
	}
	return out, nil
}

// Rename changes a right group's name.
func (m *RightGroupsManager) Rename(ctx context.Context, id int64, name string) (*RightGroup, error) {
	if name == "" {
		return nil, validationErrorf("right group name must not be empty")
	}
	rg, err := m.core.repos.Rights.GetRightGroup(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	rg.Name = name
	if err := m.core.repos.Rights.UpdateRightGroup(ctx, rg); err != nil {
		return nil, storeError(err)
	}
	return toRightGroup(rg), nil
}

// Delete removes a right group. Groups still holding rights are protected.
func (m *RightGroupsManager) Delete(ctx context.Context, id int64) error {
	inUse, err := m.core.repos.Rights.RightGroupInUse(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if inUse {
		return dependencyErrorf("right group %d still contains rights", id)
	}
	if err := m.core.repos.Rights.DeleteRightGroup(ctx, id); err != nil {
		return storeError(err)
	}
	return nil
}

// RightTypesManager handles the numeric ranges that bound range rights.
type RightTypesManager struct {
	core *core
}

// CreateRangeRequest carries the fields for a new right-type range.
type CreateRangeRequest struct {
	Name     string `validate:"required,min=1,max=128"`
	MinValue decimal.Decimal
	MaxValue decimal.Decimal
}

// CreateRange registers a numeric range for range rights to bind to.
func (m *RightTypesManager) CreateRange(ctx context.Context, req CreateRangeRequest) (*RightRange, error) {
	if err := m.core.checkStruct(req); err != nil {
		return nil, err
	}
	if req.MinValue.GreaterThan(req.MaxValue) {
		return nil, validationErrorf("range minimum %s exceeds maximum %s",
			req.MinValue.StringFixed(2), req.MaxValue.StringFixed(2))
	}

	rtr := &models.RightRange{Name: req.Name, MinValue: req.MinValue, MaxValue: req.MaxValue}
	if err := m.core.repos.Rights.CreateRange(ctx, rtr); err != nil {
		return nil, storeError(err)
	}
	return toRange(rtr), nil
}

// GetRange retrieves a range by id.
func (m *RightTypesManager) GetRange(ctx context.Context, id int64) (*RightRange, error) {
	rtr, err := m.core.repos.Rights.GetRange(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return toRange(rtr), nil
}

// ListRanges returns all ranges ordered by name.
func (m *RightTypesManager) ListRanges(ctx context.Context) ([]RightRange, error) {
	rtrs, err := m.core.repos.Rights.ListRanges(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]RightRange, len(rtrs))
	for i := range rtrs {
		out[i] = *toRange(&rtrs[i])
	}
	return out, nil
}

// UpdateRangeRequest carries a partial range update; nil fields stay unchanged.
type UpdateRangeRequest struct {
	Name     *string `validate:"omitempty,min=1,max=128"`
	MinValue *decimal.Decimal
	MaxValue *decimal.Decimal
}

// UpdateRange changes a range's name or bounds. Bound changes do not revisit
// values already stored on role rights, but they do shape future validation,
// so the permissions version advances.
func (m *RightTypesManager) UpdateRange(ctx context.Context, id int64, req UpdateRangeRequest) (*RightRange, error) {
	if err := m.core.checkStruct(req); err != nil {
		return nil, err
	}

	rtr, err := m.core.repos.Rights.GetRange(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if req.Name != nil {
		rtr.Name = *req.Name
	}
	if req.MinValue != nil {
		rtr.MinValue = *req.MinValue
	}
	if req.MaxValue != nil {
		rtr.MaxValue = *req.MaxValue
	}
	if rtr.MinValue.GreaterThan(rtr.MaxValue) {
		return nil, validationErrorf("range minimum %s exceeds maximum %s",
			rtr.MinValue.StringFixed(2), rtr.MaxValue.StringFixed(2))
	}

	err = m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		if err := repos.Rights.UpdateRange(ctx, rtr); err != nil {
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toRange(rtr), nil
}

// DeleteRange removes a range. Ranges still bound to rights are protected.
func (m *RightTypesManager) DeleteRange(ctx context.Context, id int64) error {
	inUse, err := m.core.repos.Rights.RangeInUse(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if inUse {
		return dependencyErrorf("range %d is still bound to rights", id)
	}
	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		if err := repos.Rights.DeleteRange(ctx, id); err != nil {
			return storeError(err)
		}
		return nil
	})
}

// RightsManager handles the atomic permissions roles are built from.
type RightsManager struct {
	core *core
}

// CreateRightRequest carries the fields for a new right. RangeID must be set
// iff Type is RightTypeRange.
type CreateRightRequest struct {
	Name         string `validate:"required,min=1,max=128"`
	RightGroupID int64  `validate:"required"`
	Type         RightType
	RangeID      *int64
}

// Create registers a right within a right group.
func (m *RightsManager) Create(ctx context.Context, req CreateRightRequest) (*Right, error) {
	if err := m.core.checkStruct(req); err != nil {
		return nil, err
	}
	switch req.Type {
	case RightTypeBoolean:
		if req.RangeID != nil {
			return nil, validationErrorf("boolean right %q cannot bind a range", req.Name)
		}
	case RightTypeRange:
		if req.RangeID == nil {
			return nil, validationErrorf("range right %q requires a range", req.Name)
		}
	default:
		return nil, validationErrorf("unknown right type %q", req.Type)
	}

	if _, err := m.core.repos.Rights.GetRightGroup(ctx, req.RightGroupID); err != nil {
		return nil, storeError(err)
	}
	if req.RangeID != nil {
		if _, err := m.core.repos.Rights.GetRange(ctx, *req.RangeID); err != nil {
			return nil, storeError(err)
		}
	}

	right := &models.Right{
		Name:             req.Name,
		RightGroupID:     req.RightGroupID,
		Type:             models.RightType(req.Type),
		RightTypeRangeID: req.RangeID,
	}
	if err := m.core.repos.Rights.CreateRight(ctx, right); err != nil {
		return nil, storeError(err)
	}
	return toRight(right), nil
}

// Get retrieves a right by id.
func (m *RightsManager) Get(ctx context.Context, id int64) (*Right, error) {
	right, err := m.core.repos.Rights.GetRight(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return toRight(right), nil
}

// GetByName retrieves a right by name.
func (m *RightsManager) GetByName(ctx context.Context, name string) (*Right, error) {
	right, err := m.core.repos.Rights.GetRightByName(ctx, name)
	if err != nil {
		return nil, storeError(err)
	}
	return toRight(right), nil
}

// List returns all rights ordered by name.
func (m *RightsManager) List(ctx context.Context) ([]Right, error) {
	rights, err := m.core.repos.Rights.ListRights(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]Right, len(rights))
	for i := range rights {
		out[i] = *toRight(&rights[i])
	}
	return out, nil
}

// Rename changes a right's name. Cached resolutions key rights by name, so
// the permissions version advances.
func (m *RightsManager) Rename(ctx context.Context, id int64, name string) (*Right, error) {
	if name == "" {
		return nil, validationErrorf("right name must not be empty")
	}
	right, err := m.core.repos.Rights.GetRight(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	right.Name = name

	err = m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		if err := repos.Rights.UpdateRight(ctx, right); err != nil {
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toRight(right), nil
}

// Delete removes a right. Rights still attached to roles are protected.
func (m *RightsManager) Delete(ctx context.Context, id int64) error {
	inUse, err := m.core.repos.Rights.RightInUse(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if inUse {
		return dependencyErrorf("right %d is still attached to roles", id)
	}
	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		if err := repos.Rights.DeleteRight(ctx, id); err != nil {
			return storeError(err)
		}
		return nil
	})
}
