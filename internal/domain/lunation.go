package domain

import "time"

// LunationKind is the lunation event type.
type LunationKind string

const (
	LunationNew  LunationKind = "new"
	LunationFull LunationKind = "full"
)

// EclipseKind refines a lunation into an eclipse, empty when the
// lunation is an ordinary new or full moon.
type EclipseKind string

const (
	EclipseSolar EclipseKind = "solar"
	EclipseLunar EclipseKind = "lunar"
)

// LunationEvent is one row of the static lunation dataset. The dataset
// is precomputed; the engine never derives eclipses at runtime.
type LunationEvent struct {
	Timestamp   time.Time    `json:"timestamp_utc"`
	Kind        LunationKind `json:"type"`
	EclipseKind EclipseKind  `json:"eclipse_kind,omitempty"`
	Magnitude   Deg          `json:"magnitude,omitempty"`
}
