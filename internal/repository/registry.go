package repository

import (
	"errors"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Registry bundles all repositories bound to a single bun.IDB handle.
// WithTx rebinds every repository to a transaction so that multi-statement
// mutations (including the permissions version bump) commit atomically.
type Registry struct {
	Users    UserRepository
	Groups   GroupRepository
	Rights   RightRepository
	Roles    RoleRepository
	Contexts ContextRepository
	Config   ConfigRepository
	Logs     LogRepository
}

// NewRegistry creates repositories bound to the given handle.
// The handle may be a *bun.DB or a bun.Tx.
func NewRegistry(db bun.IDB) *Registry {
	return &Registry{
		Users:    NewBunUserRepository(db),
		Groups:   NewBunGroupRepository(db),
		Rights:   NewBunRightRepository(db),
		Roles:    NewBunRoleRepository(db),
		Contexts: NewBunContextRepository(db),
		Config:   NewBunConfigRepository(db),
		Logs:     NewBunLogRepository(db),
	}
}

// WithTx returns a registry whose repositories execute inside tx.
func (r *Registry) WithTx(tx bun.Tx) *Registry {
	return NewRegistry(tx)
}

// IsSerializationFailure reports whether err is a serialization or deadlock
// failure that retrying the whole transaction may resolve.
func IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		code := pgErr.Field('C')
		return code == "40001" || code == "40P01"
	}
	// modernc.org/sqlite surfaces writer contention as SQLITE_BUSY.
	return strings.Contains(err.Error(), "database is locked")
}

// IsUniqueViolation reports whether err is a natural-key uniqueness violation
// from either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	// modernc.org/sqlite reports constraint failures in the error text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
