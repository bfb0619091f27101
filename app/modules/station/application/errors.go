package stationservice

import "errors"

var (
	// ErrUnknownStation is returned when the station key is not in the catalog.
	ErrUnknownStation = errors.New("unknown station")
	// ErrResultNotFound is returned when the run has no row for the station.
	ErrResultNotFound = errors.New("station result not found")
	// ErrFinalStation is returned when the final station is written through the generic path.
	ErrFinalStation = errors.New("final station is recorded by master key validation")
)
