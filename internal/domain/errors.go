package domain

import "github.com/pkg/errors"

// Error taxonomy. InputInvalid aborts before any computation,
// EphemerisUnavailable degrades to a warning wherever a chart or scan
// window can survive without the missing body, GeocodeFailure is fatal
// for the whole request because no frame can be assembled without a
// location.
var (
	ErrInputInvalid         = errors.New("input invalid")
	ErrEphemerisUnavailable = errors.New("ephemeris unavailable")
	ErrGeocodeFailure       = errors.New("geocode failure")
)
