// Package repository implements the data access layer over database/sql.
// This file defines sentinel errors reused across repositories so that
// handlers can map failure scenarios onto the API error taxonomy without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrEmailExists is returned when registration hits the unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a requested row does not exist.  It also
// covers refresh tokens that are expired, revoked or already consumed —
// callers are not told which.
var ErrNotFound = errors.New("not found")
