package model

import "errors"

// Sentinel error kinds shared across layers. These allow errors.Is from callers.
var (
	// ErrLocationNotFound means geocoding returned no reference point.
	ErrLocationNotFound = errors.New("location not found")
	// ErrInvalidRequest marks user input that fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUpstream wraps failures of the external geographic services.
	ErrUpstream = errors.New("upstream request failed")
)
