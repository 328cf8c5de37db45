package domain

import "errors"

// Error taxonomy shared by the service, HTTP and websocket surfaces.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("conflict")
	ErrEditWindowClosed = errors.New("edit window closed")
)
