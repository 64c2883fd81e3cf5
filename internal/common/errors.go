package common

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("already exists")
)
