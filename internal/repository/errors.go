// Package repository defines the persistence layer for lots and
// reservations and the error values shared by its implementations.
// ErrNotFound and ErrStale are the two values callers must expect from
// every store: the first when the row is absent, the second when a
// conditional update lost a race against another writer.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert collides with an existing
// row. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when the requested lot or reservation does
// not exist.
var ErrNotFound = errors.New("not found")

// ErrStale is returned by conditional updates when the stored status or
// version no longer matches what the caller read.  The caller should
// re-read and decide again.
var ErrStale = errors.New("stale write")
