// Package aspects implements instantaneous aspect detection between
// chart targets of one frame or across two frames.
package aspects

import (
	"math"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/internal/services/orbs"
	"github.com/astarte-labs/stellium/pkg/degrees"
)

// StationarySpeed is the angular speed below which a body counts as
// stationary. Near a station the applying/separating direction is not
// trustworthy at snapshot resolution, so classification is deferred to
// the timeline scanner.
const StationarySpeed = 0.001 // degrees per day

// Matcher detects aspects against a fixed orb policy. It holds no
// per-request state and is safe for concurrent use.
type Matcher struct {
	policy *orbs.Policy
	angles []float64
}

// NewMatcher builds a matcher over the policy's configured angles.
func NewMatcher(policy *orbs.Policy) *Matcher {
	return &Matcher{policy: policy, angles: policy.Angles()}
}

// Relate evaluates one target pair against one aspect angle. The match
// boundary is exclusive at the outer edge: a pair sitting exactly at
// angle+orb is not in aspect.
func (m *Matcher) Relate(a, b domain.Target, angle float64) (domain.AspectRecord, bool) {
	delta := degrees.AspectDelta(a.Lon, b.Lon, angle)
	orb := math.Abs(delta)
	if orb >= m.policy.Max(angle) {
		return domain.AspectRecord{}, false
	}

	rec := domain.AspectRecord{
		BodyA:      a.Name,
		BodyB:      b.Name,
		Class:      domain.ClassOf(angle),
		Angle:      angle,
		ExactAngle: domain.Deg(degrees.Distance(a.Lon, b.Lon)),
		Orb:        domain.Deg(orb),
	}

	relSpeed := b.Speed - a.Speed
	stationary := math.Abs(a.Speed) < StationarySpeed && a.Speed != 0 ||
		math.Abs(b.Speed) < StationarySpeed && b.Speed != 0
	if delta != 0 && relSpeed != 0 && !stationary {
		rec.Applying = delta*relSpeed < 0
		rec.Separating = delta*relSpeed > 0
	}
	return rec, true
}

// Match returns every aspect between distinct pairs of the target list,
// in target-list order (which callers build from the canonical body
// enumeration), angles ascending within a pair.
func (m *Matcher) Match(targets []domain.Target) []domain.AspectRecord {
	var records []domain.AspectRecord
	for i := 0; i < len(targets); i++ {
		for j := i + 1; j < len(targets); j++ {
			for _, angle := range m.angles {
				if rec, ok := m.Relate(targets[i], targets[j], angle); ok {
					records = append(records, rec)
				}
			}
		}
	}
	return records
}

// MatchCross returns aspects between every target of frame A and every
// target of frame B, with the given name prefixes. Lots are excluded
// from cross-frame matching.
func (m *Matcher) MatchCross(targetsA, targetsB []domain.Target, prefixA, prefixB string) []domain.AspectRecord {
	var records []domain.AspectRecord
	for _, a := range targetsA {
		if isLot(a.Name) {
			continue
		}
		for _, b := range targetsB {
			if isLot(b.Name) {
				continue
			}
			for _, angle := range m.angles {
				rec, ok := m.Relate(a, b, angle)
				if !ok {
					continue
				}
				rec.BodyA = prefixA + rec.BodyA
				rec.BodyB = prefixB + rec.BodyB
				records = append(records, rec)
			}
		}
	}
	return records
}

func isLot(name string) bool {
	return len(name) > 4 && name[:4] == "lot_"
}
