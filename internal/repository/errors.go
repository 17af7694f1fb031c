// Package repository defines the data access layer and the sentinel error
// values reused across repositories. These sentinels let handlers map
// failures onto the HTTP taxonomy without string matching. ErrForbidden
// covers ownership and jurisdiction violations, ErrConflict covers
// attempts to re-resolve a terminal status, and ErrTokenExists signals a
// share-token uniqueness collision that callers retry with a fresh token
// instead of surfacing.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist, or when
// it exists but is deliberately indistinguishable from absent (a document
// that is no longer pending looks identical to a missing one, so probing
// cannot reveal other users' document ids).
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own or that lies outside their jurisdiction.
// Handlers translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional transition matched a row that
// is no longer in the required source state, such as approving a request
// that has already been resolved. Handlers translate this into 409.
var ErrConflict = errors.New("conflict")

// ErrPhoneExists is returned on registration when the phone number is
// already taken.
var ErrPhoneExists = errors.New("phone already exists")

// ErrDuplicateType is returned when a user already has a document of the
// given file_type.
var ErrDuplicateType = errors.New("document type already uploaded")

// ErrTokenExists is returned when a share insert hits the unique token
// index. Practically unreachable with 128-bit random tokens; callers mint
// a new token and retry rather than reporting a collision.
var ErrTokenExists = errors.New("share token already exists")
