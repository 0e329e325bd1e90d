package rolemanager

import (
	"errors"
	"fmt"

	"github.com/accesskit/rolemanager/internal/repository"
)

// Kind classifies engine errors so callers can map them to their own
// transport without parsing messages.
type Kind int

const (
	// KindValidation covers malformed input: empty required fields, invalid
	// email form, out-of-bounds range values, type mismatches, circular or
	// self-referential subgroup edges.
	KindValidation Kind = iota + 1

	// KindConflict covers uniqueness violations on natural keys and
	// duplicate assignments.
	KindConflict

	// KindDependency covers deletions refused because other records still
	// reference the target.
	KindDependency

	// KindNotFound covers lookups by id or natural key with no match.
	KindNotFound

	// KindInfrastructure covers store, cache-backend and serialization
	// failures.
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	case KindNotFound:
		return "not found"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Error is the engine's error type. Message is safe to surface verbatim.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func validationErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func dependencyErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindDependency, Message: fmt.Sprintf(format, args...)}
}

func notFoundErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// storeError classifies an error bubbling up from the repository layer:
// missing rows become KindNotFound, natural-key collisions KindConflict,
// everything else KindInfrastructure.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: err.Error(), Err: err}
	case repository.IsUniqueViolation(err):
		return &Error{Kind: KindConflict, Message: "natural key already in use", Err: err}
	default:
		return &Error{Kind: KindInfrastructure, Message: "store operation failed", Err: err}
	}
}
