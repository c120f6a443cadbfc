package repository

import "errors"

// Sentinel kinds for template store errors.
var (
	ErrEmptyURL = errors.New("empty template url")
	ErrNoSource = errors.New("template source not configured")
)
