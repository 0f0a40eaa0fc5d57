package storage

import "errors"

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")

	// ErrQueryExecution is returned when the finance-records store fails
	// while executing a translated query.
	ErrQueryExecution = errors.New("query execution failed")
)
