package service

import "errors"

var (
	ErrNotFound     = errors.New("error not found")
	ErrMissingField = errors.New("error missing required field")
	ErrNoSources    = errors.New("error no holding source available")
)
