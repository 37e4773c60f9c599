package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidState = errors.New("invalid record")
	ErrStateFile    = errors.New("state file")
)
