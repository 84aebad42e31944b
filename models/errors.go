package models

import "errors"

var (
	// authorization-class errors: always surfaced, never downgraded to a
	// different scope.
	ErrNotAMember        = errors.New("not a member of this vault")
	ErrCrossScopeAccount = errors.New("account belongs to a different workspace")

	// access gate
	ErrAccessDenied = errors.New("subscription required")
	ErrTrialExpired = errors.New("trial period has expired")

	// ledger validation
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrAccountNotFound    = errors.New("account not found")
	ErrSameAccount        = errors.New("source and destination accounts must differ")
	ErrMissingSource      = errors.New("source account is required")
	ErrMissingDestination = errors.New("destination account is required")
)
