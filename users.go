package rolemanager

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/accesskit/rolemanager/internal/db/models"
	"github.com/accesskit/rolemanager/internal/repository"
)

// UsersManager handles user records, their group memberships and their role
// assignments.
type UsersManager struct {
	core *core
}

// CreateUserRequest carries the fields for a new user.
type CreateUserRequest struct {
	Login     string `validate:"required,min=2,max=64"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=8"`
	FirstName *string
	LastName  *string
}

// UpdateUserRequest carries a partial update; nil fields stay unchanged.
type UpdateUserRequest struct {
	Email     *string `validate:"omitempty,email"`
	Password  *string `validate:"omitempty,min=8"`
	FirstName *string
	LastName  *string
}

// Create registers a user. The password is stored as a bcrypt hash.
func (m *UsersManager) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	if err := m.core.checkStruct(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &Error{Kind: KindInfrastructure, Message: "hash password", Err: err}
	}

	user := &models.User{
		Login:        req.Login,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	// User creation alone alters no resolution, so no version bump.
	if err := m.core.repos.Users.Create(ctx, user); err != nil {
		return nil, storeError(err)
	}

	m.core.log.Info(ctx, "user created", models.LogContext{"user_id": user.ID, "login": user.Login})
	return toUser(user), nil
}

// Get retrieves a user by id.
func (m *UsersManager) Get(ctx context.Context, id int64) (*User, error) {
	user, err := m.core.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return toUser(user), nil
}

// GetByLogin retrieves a user by login.
func (m *UsersManager) GetByLogin(ctx context.Context, login string) (*User, error) {
	user, err := m.core.repos.Users.GetByLogin(ctx, login)
	if err != nil {
		return nil, storeError(err)
	}
	return toUser(user), nil
}

// List returns all users ordered by login.
func (m *UsersManager) List(ctx context.Context) ([]User, error) {
	users, err := m.core.repos.Users.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return toUsers(users), nil
}

// Update applies a partial update to a user.
func (m *UsersManager) Update(ctx context.Context, id int64, req UpdateUserRequest) (*User, error) {
	if err := m.core.checkStruct(req); err != nil {
		return nil, err
	}

	user, err := m.core.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, &Error{Kind: KindInfrastructure, Message: "hash password", Err: err}
		}
		user.PasswordHash = string(hash)
	}
	if req.FirstName != nil {
		user.FirstName = req.FirstName
	}
	if req.LastName != nil {
		user.LastName = req.LastName
	}

	if err := m.core.repos.Users.Update(ctx, user); err != nil {
		return nil, storeError(err)
	}
	return toUser(user), nil
}

// Delete removes a user. Users holding role assignments are protected;
// unassign first.
func (m *UsersManager) Delete(ctx context.Context, id int64) error {
	assigned, err := m.core.repos.Users.HasRoleAssignments(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if assigned {
		return dependencyErrorf("user %d still has role assignments", id)
	}
	if err := m.core.repos.Users.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return nil
}

// AddToGroup adds the user to a group. Membership shapes resolution, so the
// permissions version advances.
func (m *UsersManager) AddToGroup(ctx context.Context, userID, groupID int64) error {
	if _, err := m.core.repos.Users.GetByID(ctx, userID); err != nil {
		return storeError(err)
	}
	if _, err := m.core.repos.Groups.GetByID(ctx, groupID); err != nil {
		return storeError(err)
	}
	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		if err := repos.Groups.AddMember(ctx, userID, groupID); err != nil {
			return storeError(err)
		}
		return nil
	})
}

// RemoveFromGroup removes the user from a group.
func (m *UsersManager) RemoveFromGroup(ctx context.Context, userID, groupID int64) error {
	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		if err := repos.Groups.RemoveMember(ctx, userID, groupID); err != nil {
			return storeError(err)
		}
		return nil
	})
}

// AssignRole grants a role to the user, optionally scoped to a context.
// contextID nil means the Global Context.
func (m *UsersManager) AssignRole(ctx context.Context, userID int64, roleID int64, contextID *int64) error {
	if _, err := m.core.repos.Users.GetByID(ctx, userID); err != nil {
		return storeError(err)
	}
	if _, err := m.core.repos.Roles.GetByID(ctx, roleID); err != nil {
		return storeError(err)
	}
	if contextID != nil {
		if _, err := m.core.repos.Contexts.GetByID(ctx, *contextID); err != nil {
			return storeError(err)
		}
	}

	exists, err := m.core.repos.Contexts.UserAssignmentExists(ctx, userID, contextID, roleID)
	if err != nil {
		return storeError(err)
	}
	if exists {
		return conflictErrorf("user %d already holds role %d in this context", userID, roleID)
	}

	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		assignment := &models.UserContextRole{UserID: userID, ContextID: contextID, RoleID: roleID}
		if err := repos.Contexts.AssignUserRole(ctx, assignment); err != nil {
			return storeError(err)
		}
		return nil
	})
}

// UnassignRole revokes a role from the user in the given context.
func (m *UsersManager) UnassignRole(ctx context.Context, userID int64, roleID int64, contextID *int64) error {
	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		removed, err := repos.Contexts.UnassignUserRole(ctx, userID, contextID, roleID)
		if err != nil {
			return storeError(err)
		}
		if !removed {
			return notFoundErrorf("user %d does not hold role %d in this context", userID, roleID)
		}
		return nil
	})
}
