package service

import (
	"errors"
)

// Sentinel errors mapped to HTTP statuses by the handlers
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)
