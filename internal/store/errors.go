package store

import "errors"

var (
	// ErrNotFound signals that the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden signals that the caller may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotEligible signals that an AU cannot be polled right now.
	ErrNotEligible = errors.New("not eligible")
	// ErrQueueFull signals that no more work can be accepted right now.
	ErrQueueFull = errors.New("queue full")
)
