package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrTraversal     = errors.New("path escapes graph root")
	ErrBackend       = errors.New("version control backend failure")
)
