// Package services holds the location lookup logic. Errors here are
// transport-neutral; the HTTP layer maps them to API error variants.
package services

import "errors"

var (
	// ErrNotFound is returned when no submitted station is known, or too few
	// access points matched to produce a wifi fix and no cell matched.
	ErrNotFound = errors.New("location not found")

	// ErrEmptyQuery is returned by Search for a query without any valid cell
	// or wifi observation.
	ErrEmptyQuery = errors.New("query has no observations")
)
