package rolemanager

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/accesskit/rolemanager/internal/db/models"
	"github.com/accesskit/rolemanager/internal/repository"
)

// RolesManager handles roles and the (right, value?) pairs attached to them.
type RolesManager struct {
	core *core
}

// Create registers a role.
func (m *RolesManager) Create(ctx context.Context, name string) (*Role, error) {
	if name == "" {
		return nil, validationErrorf("role name must not be empty")
	}
	role := &models.Role{Name: name}
	err := m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		if err := repos.Roles.Create(ctx, role); err != nil {
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toRole(role), nil
}

// Get retrieves a role by id.
func (m *RolesManager) Get(ctx context.Context, id int64) (*Role, error) {
	role, err := m.core.repos.Roles.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return toRole(role), nil
}

// GetByName retrieves a role by name.
func (m *RolesManager) GetByName(ctx context.Context, name string) (*Role, error) {
	role, err := m.core.repos.Roles.GetByName(ctx, name)
	if err != nil {
		return nil, storeError(err)
	}
	return toRole(role), nil
}

// List returns all roles ordered by name.
func (m *RolesManager) List(ctx context.Context) ([]Role, error) {
	roles, err := m.core.repos.Roles.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]Role, len(roles))
	for i := range roles {
		out[i] = *toRole(&roles[i])
	}
	return out, nil
}

// Rename changes a role's name. Role names break specificity ties and appear
// in explanations, so the permissions version advances.
func (m *RolesManager) Rename(ctx context.Context, id int64, name string) (*Role, error) {
	if name == "" {
		return nil, validationErrorf("role name must not be empty")
	}
	role, err := m.core.repos.Roles.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	role.Name = name

	err = m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		if err := repos.Roles.Update(ctx, role); err != nil {
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toRole(role), nil
}

// Delete removes a role. Roles held by users or groups are protected; the
// role's right links are removed with it.
func (m *RolesManager) Delete(ctx context.Context, id int64) error {
	inUse, err := m.core.repos.Roles.InUse(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if inUse {
		return dependencyErrorf("role %d is still assigned to users or groups", id)
	}
	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		if err := repos.Roles.Delete(ctx, id); err != nil {
			return storeError(err)
		}
		return nil
	})
}

// AddRight attaches a right to the role. value must be present iff the
// right's type is range, and must fall inside the right's bound range.
func (m *RolesManager) AddRight(ctx context.Context, roleID, rightID int64, value *decimal.Decimal) error {
	if _, err := m.core.repos.Roles.GetByID(ctx, roleID); err != nil {
		return storeError(err)
	}
	right, err := m.core.repos.Rights.GetRight(ctx, rightID)
	if err != nil {
		return storeError(err)
	}

	rr := &models.RoleRight{RoleID: roleID, RightID: rightID}
	switch right.Type {
	case models.RightTypeBoolean:
		if value != nil {
			return validationErrorf("right %q is boolean and does not take a value", right.Name)
		}
	case models.RightTypeRange:
		if value == nil {
			return validationErrorf("right %q is a range right and requires a value", right.Name)
		}
		if right.RightTypeRangeID == nil {
			return validationErrorf("right %q has no range bound", right.Name)
		}
		rng, err := m.core.repos.Rights.GetRange(ctx, *right.RightTypeRangeID)
		if err != nil {
			return storeError(err)
		}
		if value.LessThan(rng.MinValue) || value.GreaterThan(rng.MaxValue) {
			return validationErrorf("value %s for right %q is outside the allowed range [%s, %s]",
				value.StringFixed(2), right.Name,
				rng.MinValue.StringFixed(2), rng.MaxValue.StringFixed(2))
		}
		rr.RangeValue = decimal.NullDecimal{Decimal: *value, Valid: true}
	}

	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		if err := repos.Roles.AddRight(ctx, rr); err != nil {
			return storeError(err)
		}
		return nil
	})
}

// RemoveRight detaches a right from the role.
func (m *RolesManager) RemoveRight(ctx context.Context, roleID, rightID int64) error {
	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		removed, err := repos.Roles.RemoveRight(ctx, roleID, rightID)
		if err != nil {
			return storeError(err)
		}
		if !removed {
			return notFoundErrorf("role %d does not carry right %d", roleID, rightID)
		}
		return nil
	})
}

// Rights lists the (right, value?) pairs attached to the role.
func (m *RolesManager) Rights(ctx context.Context, roleID int64) ([]RoleRight, error) {
	if _, err := m.core.repos.Roles.GetByID(ctx, roleID); err != nil {
		return nil, storeError(err)
	}
	rrs, err := m.core.repos.Roles.Rights(ctx, roleID)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]RoleRight, len(rrs))
	for i := range rrs {
		out[i] = *toRoleRight(&rrs[i])
	}
	return out, nil
}
