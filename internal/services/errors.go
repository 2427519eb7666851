// Package services implements the use cases of the movie matcher: the
// recommendation pipeline and the recording of group choices. This file
// centralizes the service-level error values. Only caller mistakes are
// errors; collaborator failures degrade to missing data inside the services.
//
// Translation into HTTP status codes happens in the handler layer.
package services

import "errors"

var (
	// ErrNoMembers is returned when a request names no usable member.
	ErrNoMembers = errors.New("at least one member is required")

	// ErrEmptyChoice is returned when a choice has no chosen movie.
	ErrEmptyChoice = errors.New("chosen movie is empty")

	// ErrInvalidChoice is returned when the chosen movie is not one of the
	// offered options.
	ErrInvalidChoice = errors.New("chosen movie is not among the options")

	// ErrChoiceNotFound is returned when an idempotency key points at a
	// choice that no longer exists.
	ErrChoiceNotFound = errors.New("choice not found")
)
