package rolemanager

import (
	"context"

	"github.com/accesskit/rolemanager/internal/db/models"
)

// ContextsManager handles the named scopes role assignments attach to. The
// Global Context is not a row; it is the NULL context id on assignments.
type ContextsManager struct {
	core *core
}

// Create registers a context. Contexts grant nothing by themselves, so the
// permissions version is untouched.
func (m *ContextsManager) Create(ctx context.Context, name string) (*Context, error) {
	if name == "" {
		return nil, validationErrorf("context name must not be empty")
	}
	c := &models.Context{Name: name}
	if err := m.core.repos.Contexts.Create(ctx, c); err != nil {
		return nil, storeError(err)
	}
	return toContext(c), nil
}

// Get retrieves a context by id.
func (m *ContextsManager) Get(ctx context.Context, id int64) (*Context, error) {
	c, err := m.core.repos.Contexts.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return toContext(c), nil
}

// GetByName retrieves a context by name.
func (m *ContextsManager) GetByName(ctx context.Context, name string) (*Context, error) {
	c, err := m.core.repos.Contexts.GetByName(ctx, name)
	if err != nil {
		return nil, storeError(err)
	}
	return toContext(c), nil
}

// List returns all contexts ordered by name.
func (m *ContextsManager) List(ctx context.Context) ([]Context, error) {
	cs, err := m.core.repos.Contexts.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return toContexts(cs), nil
}

// Rename changes a context's name.
func (m *ContextsManager) Rename(ctx context.Context, id int64, name string) (*Context, error) {
	if name == "" {
		return nil, validationErrorf("context name must not be empty")
	}
	c, err := m.core.repos.Contexts.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	c.Name = name
	if err := m.core.repos.Contexts.Update(ctx, c); err != nil {
		return nil, storeError(err)
	}
	return toContext(c), nil
}

// Delete removes a context. Contexts still referenced by assignments are
// protected.
func (m *ContextsManager) Delete(ctx context.Context, id int64) error {
	inUse, err := m.core.repos.Contexts.InUse(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if inUse {
		return dependencyErrorf("context %d still has role assignments", id)
	}
	if err := m.core.repos.Contexts.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return nil
}
