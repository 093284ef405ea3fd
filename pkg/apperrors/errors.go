// Package apperrors defines the sentinel errors shared across the
// engine's components.
package apperrors

import "errors"

var (
	// ErrNoCorrection means the corrector returned the SQL it was given.
	ErrNoCorrection = errors.New("no correction produced")

	// ErrIterationBudgetExceeded means the feedback loop reached its
	// configured maximum number of correction rounds.
	ErrIterationBudgetExceeded = errors.New("iteration budget exceeded")

	// ErrStorePersistence means a feedback record could not be written.
	ErrStorePersistence = errors.New("feedback record persistence failed")

	// ErrRecordNotFound means no feedback record matched the query hash.
	ErrRecordNotFound = errors.New("feedback record not found")

	// ErrUnknownProvider means the candidate source config named a
	// provider the factory does not know.
	ErrUnknownProvider = errors.New("unknown candidate provider")
)
