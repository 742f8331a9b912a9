package domain

import "errors"

var (
	// ErrValidation marks caller input that failed validation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup for a record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrParse marks raw batch input that could not be decoded into rows.
	ErrParse = errors.New("parse error")
	// ErrPrecondition marks a programmer error such as an oversized chunk.
	ErrPrecondition = errors.New("precondition violation")
)
