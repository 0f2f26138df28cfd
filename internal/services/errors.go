// Package services defines the business logic for users, events, messages,
// and reminder delivery. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when registering a phone number that is
	// already taken.
	ErrDuplicateUser = errors.New("phone number already registered")

	// ErrEventNotFound indicates the requested event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrInvalidSender is returned when a message sender is neither "ai"
	// nor "user".
	ErrInvalidSender = errors.New("sender must be 'ai' or 'user'")

	// ErrEmptyMessage is returned when recording a message with no text.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrInvalidRecurrence is returned when a recurring event is missing a
	// frequency or carries one outside the supported set.
	ErrInvalidRecurrence = errors.New("recurrence frequency must be daily, weekly, monthly, or yearly")

	// ErrNotTemplate is returned when instance generation is requested for
	// an event that is not a recurring template.
	ErrNotTemplate = errors.New("event is not a recurring template")

	// ErrEmptyDescription is returned when creating an event without a
	// description.
	ErrEmptyDescription = errors.New("event description is empty")
)
