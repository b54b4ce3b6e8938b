package service

import "errors"

var (
	// Loan engine failures, all recoverable at the caller.
	ErrBookUnavailable     = errors.New("book has no available copies")
	ErrBorrowLimitExceeded = errors.New("member has reached the borrowing limit")
	ErrInvalidLoanState    = errors.New("loan does not exist or is already returned")
	ErrHasOpenLoans        = errors.New("record still has open loans")

	ErrNotFound = errors.New("record not found")

	// Authentication failures.
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
)
