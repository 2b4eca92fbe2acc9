package repository

import "errors"

var (
	// ErrInvalidValue is returned when a tick value is not finite.
	ErrInvalidValue = errors.New("invalid value")
	// ErrSourceUnavailable marks an indicator fetch that produced no value.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrInvalidParameter marks a malformed aggregation or query request.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrDownstreamRateLimited is returned by a throttled generation backend.
	ErrDownstreamRateLimited = errors.New("downstream rate limited")
	// ErrDownstreamError is any other generation backend failure.
	ErrDownstreamError = errors.New("downstream error")
	// ErrNotFound is returned for a missing optional document.
	ErrNotFound = errors.New("not found")
)
