// internal/domain/errors.go
package domain

import "errors"

// ErrUnauthorized is returned by provisioners when the API responds with HTTP 401.
// Callers can check for it using errors.Is to trigger token refresh or re-auth.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned when the hosting API reports a missing user, group or namespace.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a repository with the requested name already exists.
var ErrAlreadyExists = errors.New("repository already exists")
