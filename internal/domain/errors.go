package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAmbiguous     = errors.New("ambiguous match")
	ErrInvalidRating = errors.New("rating out of range")
	ErrMissingName   = errors.New("missing name")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUpstream      = errors.New("upstream unavailable")
)
