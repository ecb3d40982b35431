package domain

import "time"

// Phase of a contact window.
type Phase string

const (
	PhaseApproaching Phase = "approaching"
	PhaseExact       Phase = "exact"
	PhaseSeparating  Phase = "separating"
)

// StationKind marks a direction reversal: R for turning retrograde,
// D for turning direct.
type StationKind string

const (
	StationRetrograde StationKind = "R"
	StationDirect     StationKind = "D"
)

// PhasePoint is one resolved phase boundary of a contact window. All
// timestamps are minute-resolution samples from the scan grid, so they
// stay stable under re-sampling.
type PhasePoint struct {
	Phase     Phase       `json:"phase"`
	Timestamp time.Time   `json:"timestamp_utc"`
	Orb       Deg         `json:"orb"`
	Station   StationKind `json:"station,omitempty"`
}

// ContactEvent is one contact window found by the timeline scanner: the
// moving body enters the orb of an aspect to a reference target, passes
// through the exactness minimum and leaves the orb again. Truncated
// windows (the query range ends inside the orb) use the range boundary
// as the missing edge.
type ContactEvent struct {
	Moving Body    `json:"moving"`
	Target string  `json:"target"`
	Angle  float64 `json:"angle"`
	// ExactIndex numbers repeated exact passes of the same
	// (moving, target, angle) triple inside one query, starting at 1.
	ExactIndex int `json:"exact_index"`
	// ExactOffsetMin is the whole-minute offset of the exact sample
	// from the query start; it identifies the grid sample rather than a
	// derived real-valued instant.
	ExactOffsetMin int        `json:"exact_offset_min"`
	Approaching    PhasePoint `json:"approaching"`
	Exact          PhasePoint `json:"exact"`
	Separating     PhasePoint `json:"separating"`
	MovingHouse    int        `json:"moving_house,omitempty"`
	MovingSign     Sign       `json:"moving_sign,omitempty"`
	TargetHouse    int        `json:"target_house,omitempty"`
	TargetSign     Sign       `json:"target_sign,omitempty"`
}

// Before reports whether e precedes other in the canonical event order:
// exact instant ascending, then moving-body rank, then target rank,
// then angle ascending.
func (e *ContactEvent) Before(other *ContactEvent) bool {
	if !e.Exact.Timestamp.Equal(other.Exact.Timestamp) {
		return e.Exact.Timestamp.Before(other.Exact.Timestamp)
	}
	if ra, rb := Rank(string(e.Moving)), Rank(string(other.Moving)); ra != rb {
		return ra < rb
	}
	if ra, rb := Rank(e.Target), Rank(other.Target); ra != rb {
		return ra < rb
	}
	return e.Angle < other.Angle
}
