// Package ephemeris defines the position provider contract and the
// providers shipped with the engine. The provider is a pure function of
// (body, instant); everything downstream depends on that purity for
// reproducibility.
package ephemeris

import (
	"time"

	"github.com/pkg/errors"

	"github.com/astarte-labs/stellium/internal/domain"
)

// Position is a raw ephemeris sample.
type Position struct {
	Lon        float64
	Lat        float64
	Speed      float64 // degrees per day, negative while retrograde
	Retrograde bool
}

// Provider resolves a body position at an instant. Implementations must
// be safe for concurrent use and return the same value for the same
// arguments every time.
type Provider interface {
	Position(body domain.Body, at time.Time) (Position, error)
}

// Unavailable wraps a provider failure for a specific body and instant
// so callers can degrade it to a warning.
func Unavailable(body domain.Body, at time.Time, cause error) error {
	err := errors.Wrapf(domain.ErrEphemerisUnavailable, "%s at %s",
		body, at.UTC().Format(time.RFC3339))
	if cause != nil {
		return errors.WithMessage(err, cause.Error())
	}
	return err
}

// IsUnavailable reports whether err is a per-body ephemeris miss.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrEphemerisUnavailable)
}
