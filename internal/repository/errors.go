package repository

import "errors"

// ErrNotFound is wrapped by repositories when a lookup matches no row.
// Callers classify it with errors.Is.
var ErrNotFound = errors.New("not found")
