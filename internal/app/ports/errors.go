package ports

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUnavailable   = errors.New("unavailable")
	ErrOffline       = errors.New("observer offline")
	ErrInventoryFull = errors.New("inventory full")
)
