package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"
