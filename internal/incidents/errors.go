package incidents

import "errors"

// Repository errors.
var (
	ErrIncidentNotFound  = errors.New("incident not found")
	ErrReferenceNotFound = errors.New("referenced patient, physician or incident does not exist")
)

// Validation errors.
var (
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	ErrImmutableField       = errors.New("field cannot be updated")
)
