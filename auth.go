package rolemanager

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/accesskit/rolemanager/internal/db/models"
	"github.com/accesskit/rolemanager/internal/repository"
	"github.com/accesskit/rolemanager/internal/services/authz"
)

// AuthManager verifies credentials and answers permission checks.
type AuthManager struct {
	core     *core
	resolver *authz.Resolver
}

// Authenticate verifies a login/password pair. An unknown login and a wrong
// password both return (nil, nil): not authenticated, not an error, and
// indistinguishable to the caller.
func (m *AuthManager) Authenticate(ctx context.Context, login, password string) (*Identity, error) {
	user, err := m.core.repos.Users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, storeError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		m.core.log.Notice(ctx, "failed login attempt", models.LogContext{"login": login})
		return nil, nil
	}

	return &Identity{
		ID:        user.ID,
		Login:     user.Login,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// HasRight reports whether the right is granted to the user under the given
// context (nil means the Global Context). Absence of any granting rule is a
// plain denial, not an error.
func (m *AuthManager) HasRight(ctx context.Context, userID int64, rightName string, contextID *int64) (bool, error) {
	granted, err := m.resolver.HasRight(ctx, userID, rightName, contextID)
	if err != nil {
		return false, &Error{Kind: KindInfrastructure, Message: "resolve rights", Err: err}
	}
	return granted, nil
}

// HasRightValue is HasRight plus the winning range value. For boolean rights
// the decimal is zero; granted alone carries the answer.
func (m *AuthManager) HasRightValue(ctx context.Context, userID int64, rightName string, contextID *int64) (bool, decimal.Decimal, error) {
	granted, value, err := m.resolver.HasRightValue(ctx, userID, rightName, contextID)
	if err != nil {
		return false, decimal.Decimal{}, &Error{Kind: KindInfrastructure, Message: "resolve rights", Err: err}
	}
	return granted, value, nil
}

// ExplainRight returns the full decision trace for one right: every rule that
// could have granted it, the one that won, and why.
func (m *AuthManager) ExplainRight(ctx context.Context, userID int64, rightName string, contextID *int64) (*Explanation, error) {
	explanation, err := m.resolver.Explain(ctx, userID, rightName, contextID)
	if err != nil {
		return nil, &Error{Kind: KindInfrastructure, Message: "explain right", Err: err}
	}
	return toExplanation(explanation), nil
}
