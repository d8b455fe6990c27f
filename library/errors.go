package library

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrOutOfStock         = errors.New("no copies available")
	ErrDuplicateLoan      = errors.New("user already has a copy of this book")
	ErrBookInUse          = errors.New("cannot delete book while copies are issued")
	ErrAlreadyReturned    = errors.New("book already returned")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
)
