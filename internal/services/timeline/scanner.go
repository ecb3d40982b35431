// Package timeline implements the adaptive contact-event scanner. The
// scanner samples the signed aspect delta of every (moving body,
// reference target, angle) triple on a minute-anchored grid, bracketing
// candidate windows at a coarse step and refining them down to single
// minutes, so the same query always lands on the same grid samples.
package timeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/internal/services/chart"
	"github.com/astarte-labs/stellium/internal/services/ephemeris"
	"github.com/astarte-labs/stellium/internal/services/orbs"
	"github.com/astarte-labs/stellium/internal/services/progression"
	"github.com/astarte-labs/stellium/pkg/degrees"
)

// Kind selects the motion model of a timeline scan.
type Kind string

const (
	KindTransit   Kind = "transit"
	KindSecondary Kind = "secondary_progression"
	KindSolarArc  Kind = "solar_arc"
)

// Grid steps in minutes, coarse to fine. Refinement walks this schedule
// until the contact is pinned to one minute.
var stepSchedule = []int{
	30 * 24 * 60, // month
	7 * 24 * 60,  // week
	24 * 60,      // day
	60,           // hour
	1,            // minute
}

const (
	minuteDay  = 24 * 60
	minuteHour = 60

	// stationProbeMin is how far around an exact hit the scanner looks
	// for a speed sign flip.
	stationProbeMin = 12 * 60

	// maxBoundaryDays bounds the orb entry/exit walk so a near-zero
	// relative speed cannot spin the scanner forever.
	maxBoundaryDays = 3660
)

// Query describes one scan. Angles defaults to the major aspect set
// when empty. Natal is required for the progression kinds.
type Query struct {
	Kind    Kind
	Start   time.Time
	End     time.Time
	Natal   time.Time
	SunMode progression.SunMode
	Moving  []domain.Body
	Angles  []float64
}

// Result carries the ordered event sequence plus every warning raised
// while scanning. Identical queries produce identical results, warnings
// included.
type Result struct {
	Events   []domain.ContactEvent `json:"events"`
	Warnings []string              `json:"warnings,omitempty"`
}

// Scanner finds contact events against a reference frame. It holds no
// per-query state; concurrent scans share only the read-only policy.
type Scanner struct {
	provider ephemeris.Provider
	policy   *orbs.Policy
	log      *zap.Logger
}

func NewScanner(provider ephemeris.Provider, policy *orbs.Policy, log *zap.Logger) *Scanner {
	return &Scanner{provider: provider, policy: policy, log: log}
}

// Scan runs the query against the reference frame. Moving bodies scan
// concurrently; results merge into the canonical event order (exact
// instant, then body rank, then target rank, then angle).
func (s *Scanner) Scan(ctx context.Context, q Query, reference *domain.ChartFrame) (*Result, error) {
	q.Start = q.Start.UTC().Truncate(time.Minute)
	q.End = q.End.UTC().Truncate(time.Minute)
	if !q.End.After(q.Start) {
		return nil, errors.WithMessage(domain.ErrInputInvalid, "scan range is empty")
	}
	if len(q.Moving) == 0 {
		return nil, errors.WithMessage(domain.ErrInputInvalid, "no moving bodies")
	}
	angles := q.Angles
	if len(angles) == 0 {
		angles = domain.MajorAngles()
	}
	for _, angle := range angles {
		if !domain.KnownAngle(angle) {
			return nil, errors.WithMessagef(domain.ErrInputInvalid, "unknown aspect angle %g", angle)
		}
	}
	if q.Kind != KindTransit && q.Natal.IsZero() {
		return nil, errors.WithMessage(domain.ErrInputInvalid, "progression scan needs a natal instant")
	}

	moving, excluded := s.filterMoving(q.Kind, q.Moving)
	targets := reference.Targets()
	cusps, haveCusps := cuspArray(reference)
	total := int(q.End.Sub(q.Start) / time.Minute)

	results := make([]bodyResult, len(moving))
	group, ctx := errgroup.WithContext(ctx)
	for i, body := range moving {
		group.Go(func() error {
			scan := &bodyScan{
				scanner:   s,
				query:     q,
				body:      body,
				angles:    angles,
				targets:   targets,
				cusps:     cusps,
				haveCusps: haveCusps,
				total:     total,
				memo:      ephemeris.NewMemo(s.provider),
			}
			events, warnings, err := scan.run(ctx)
			if err != nil {
				return err
			}
			results[i] = bodyResult{events: events, warnings: warnings}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := &Result{}
	for _, body := range excluded {
		out.Warnings = append(out.Warnings, fmt.Sprintf("body_excluded:%s", body))
	}
	for _, res := range results {
		out.Events = append(out.Events, res.events...)
		out.Warnings = append(out.Warnings, res.warnings...)
	}
	sort.Slice(out.Events, func(i, j int) bool {
		return out.Events[i].Before(&out.Events[j])
	})
	indexExactPasses(out.Events)

	s.log.Debug("scan finished",
		zap.String("kind", string(q.Kind)),
		zap.Int("events", len(out.Events)),
		zap.Int("warnings", len(out.Warnings)))
	return out, nil
}

// filterMoving drops outer planets from progression scans: their
// progressed motion over realistic ranges is below the grid resolution.
// The bodies come back in canonical rank order, deduplicated, so
// per-body warnings merge deterministically and a repeated body never
// scans twice.
func (s *Scanner) filterMoving(kind Kind, moving []domain.Body) (kept, excluded []domain.Body) {
	sorted := make([]domain.Body, len(moving))
	copy(sorted, moving)
	sort.Slice(sorted, func(i, j int) bool {
		return domain.Rank(string(sorted[i])) < domain.Rank(string(sorted[j]))
	})
	var prev domain.Body
	for i, body := range sorted {
		if i > 0 && body == prev {
			continue
		}
		prev = body
		if kind != KindTransit && domain.IsOuter(body) {
			excluded = append(excluded, body)
			continue
		}
		kept = append(kept, body)
	}
	return kept, excluded
}

type bodyResult struct {
	events   []domain.ContactEvent
	warnings []string
}

// bodyScan is the per-goroutine state of one moving body's scan. The
// memo caches provider lookups across the nested refinement levels of
// this body only.
type bodyScan struct {
	scanner   *Scanner
	query     Query
	body      domain.Body
	angles    []float64
	targets   []domain.Target
	cusps     [12]float64
	haveCusps bool
	total     int
	memo      *ephemeris.Memo

	// solar-arc cache
	natalLon    float64
	natalLonSet bool
}

func (b *bodyScan) run(ctx context.Context) ([]domain.ContactEvent, []string, error) {
	coarse := b.coarseStep()
	var events []domain.ContactEvent
	var warnings []string
	for _, target := range b.targets {
		for _, angle := range b.angles {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			pairEvents, abandoned := b.scanPair(target, angle, coarse)
			events = append(events, pairEvents...)
			if abandoned {
				warnings = append(warnings,
					fmt.Sprintf("window_abandoned:%s:%s:%g", b.body, target.Name, angle))
			}
		}
	}
	return events, warnings, nil
}

// coarseStep is the initial sampling step, clamped by how fast the
// moving body can revisit the same aspect. Progressed motion is slower
// by the rate-law factor, so the month step is always safe there.
func (b *bodyScan) coarseStep() int {
	if b.query.Kind != KindTransit {
		return stepSchedule[0]
	}
	switch b.body {
	case domain.BodyMoon:
		return minuteDay
	case domain.BodySun, domain.BodyMercury, domain.BodyVenus, domain.BodyMars:
		return 7 * minuteDay
	default:
		return stepSchedule[0]
	}
}

// scanPair finds every contact window of one (target, angle) pair.
// Consecutive candidate brackets merge into one run, so a window that
// straddles a coarse sample still refines to a single exact hit. A
// provider failure abandons the current window and flags the pair; the
// remaining range keeps scanning.
func (b *bodyScan) scanPair(target domain.Target, angle float64, coarse int) ([]domain.ContactEvent, bool) {
	orb := b.orbFor()
	var events []domain.ContactEvent
	abandoned := false

	runStart, runEnd := -1, -1
	flush := func() {
		lo, hi := runStart, runEnd
		runStart, runEnd = -1, -1
		exact, exactAbs, err := b.refine(lo, hi, target, angle)
		if err != nil {
			abandoned = true
			return
		}
		if exactAbs >= orb {
			return // a wrap-around sign flip, not a contact
		}
		event, err := b.buildEvent(target, angle, exact, exactAbs, orb)
		if err != nil {
			abandoned = true
			return
		}
		events = append(events, event)
	}

	prev := 0
	prevDelta, prevOK := 0.0, false
	for m := 0; ; m += coarse {
		if m > b.total {
			m = b.total
		}
		delta, err := b.deltaAt(m, target, angle)
		if err != nil {
			abandoned = true
			if runStart >= 0 {
				flush()
			}
			prevOK = false
		} else {
			switch {
			case prevOK && candidate(prevDelta, delta, orb):
				if runStart < 0 {
					runStart = prev
				}
				runEnd = m
			case runStart >= 0:
				flush()
			}
			prev, prevDelta, prevOK = m, delta, true
		}
		if m == b.total {
			break
		}
	}
	if runStart >= 0 {
		flush()
	}
	return events, abandoned
}

// candidate reports whether a coarse bracket may contain a contact:
// the signed delta crossed zero, or a sample already sits inside the
// orb band. Sign flips from the ±180 wrap refine to a large minimum
// and are discarded afterwards.
func candidate(d0, d1, orb float64) bool {
	if math.Abs(d0) < orb || math.Abs(d1) < orb {
		return true
	}
	return (d0 < 0) != (d1 < 0)
}

// refine walks the step schedule inside [lo, hi], each pass resampling
// at the next finer step and re-bracketing around the minimum |delta|,
// until the minimum is a single minute sample. Driven by |delta| alone,
// so a station inside the window cannot mislead it.
func (b *bodyScan) refine(lo, hi int, target domain.Target, angle float64) (int, float64, error) {
	best, bestAbs := lo, math.Inf(1)
	for _, step := range stepSchedule {
		if step >= hi-lo && step != 1 {
			continue
		}
		best, bestAbs = -1, math.Inf(1)
		for m := lo; ; m += step {
			if m > hi {
				m = hi
			}
			delta, err := b.deltaAt(m, target, angle)
			if err != nil {
				return 0, 0, err
			}
			if abs := math.Abs(delta); abs < bestAbs {
				best, bestAbs = m, abs
			}
			if m == hi {
				break
			}
		}
		lo = max(lo, best-step)
		hi = min(hi, best+step)
		if step == 1 {
			break
		}
	}
	return best, bestAbs, nil
}

// buildEvent resolves the three phase points of one contact window
// around an exact minute.
func (b *bodyScan) buildEvent(target domain.Target, angle float64, exact int, exactAbs, orb float64) (domain.ContactEvent, error) {
	entry, err := b.orbBoundary(target, angle, exact, orb, -1)
	if err != nil {
		return domain.ContactEvent{}, err
	}
	exit, err := b.orbBoundary(target, angle, exact, orb, +1)
	if err != nil {
		return domain.ContactEvent{}, err
	}

	entryDelta, err := b.deltaAt(entry, target, angle)
	if err != nil {
		return domain.ContactEvent{}, err
	}
	exitDelta, err := b.deltaAt(exit, target, angle)
	if err != nil {
		return domain.ContactEvent{}, err
	}

	event := domain.ContactEvent{
		Moving: b.body,
		Target: target.Name,
		Angle:  angle,
		Approaching: domain.PhasePoint{
			Phase:     domain.PhaseApproaching,
			Timestamp: b.minuteAt(entry),
			Orb:       domain.Deg(math.Abs(entryDelta)),
		},
		Exact: domain.PhasePoint{
			Phase:     domain.PhaseExact,
			Timestamp: b.minuteAt(exact),
			Orb:       domain.Deg(exactAbs),
			Station:   b.stationNear(exact),
		},
		Separating: domain.PhasePoint{
			Phase:     domain.PhaseSeparating,
			Timestamp: b.minuteAt(exit),
			Orb:       domain.Deg(math.Abs(exitDelta)),
		},
		ExactOffsetMin: exact,
		TargetHouse:    target.House,
		TargetSign:     target.Sign,
	}

	lon, _, err := b.motionAt(exact)
	if err != nil {
		return domain.ContactEvent{}, err
	}
	sign, _ := domain.SignFor(lon)
	event.MovingSign = sign
	if b.haveCusps {
		event.MovingHouse = chart.HouseOf(lon, b.cusps)
	}
	return event, nil
}

// orbBoundary locates the first (dir=-1) or last (dir=+1) in-orb minute
// of the window holding exact. It walks outward a day at a time until
// |delta| leaves the orb band, then bisects the crossing down to one
// minute. Hitting the scan range edge while still in orb truncates the
// window at that edge.
func (b *bodyScan) orbBoundary(target domain.Target, angle float64, exact int, orb float64, dir int) (int, error) {
	inEdge := exact
	outEdge := -1
	for range maxBoundaryDays {
		next := inEdge + dir*minuteDay
		if next < 0 {
			next = 0
		}
		if next > b.total {
			next = b.total
		}
		delta, err := b.deltaAt(next, target, angle)
		if err != nil {
			return 0, err
		}
		if math.Abs(delta) >= orb {
			outEdge = next
			break
		}
		inEdge = next
		if next == 0 || next == b.total {
			return next, nil // truncated at the range edge
		}
	}
	if outEdge < 0 {
		return inEdge, nil
	}

	for absInt(outEdge-inEdge) > 1 {
		mid := (inEdge + outEdge) / 2
		delta, err := b.deltaAt(mid, target, angle)
		if err != nil {
			return 0, err
		}
		if math.Abs(delta) < orb {
			inEdge = mid
		} else {
			outEdge = mid
		}
	}
	return inEdge, nil
}

// stationNear tags a direction reversal within half a day of the exact
// hit. Probe failures leave the tag empty rather than failing the
// event.
func (b *bodyScan) stationNear(exact int) domain.StationKind {
	before := max(exact-stationProbeMin, 0)
	after := min(exact+stationProbeMin, b.total)
	_, s0, err0 := b.motionAt(before)
	_, s1, err1 := b.motionAt(after)
	if err0 != nil || err1 != nil {
		return ""
	}
	switch {
	case s0 > 0 && s1 < 0:
		return domain.StationRetrograde
	case s0 < 0 && s1 > 0:
		return domain.StationDirect
	default:
		return ""
	}
}

func (b *bodyScan) orbFor() float64 {
	if b.query.Kind == KindTransit {
		return b.scanner.policy.Transit(b.body)
	}
	return b.scanner.policy.Progression()
}

func (b *bodyScan) deltaAt(m int, target domain.Target, angle float64) (float64, error) {
	lon, _, err := b.motionAt(m)
	if err != nil {
		return 0, err
	}
	return degrees.AspectDelta(lon, target.Lon, angle), nil
}

// motionAt resolves the moving body's longitude and speed at a grid
// minute under the query's motion model. Speeds are only compared by
// sign, so the progression rate scaling is left out.
func (b *bodyScan) motionAt(m int) (lon, speed float64, err error) {
	at := b.minuteAt(m)
	switch b.query.Kind {
	case KindSecondary:
		pos, err := b.memo.Position(b.body, progression.Instant(b.query.Natal, at))
		if err != nil {
			return 0, 0, err
		}
		return pos.Lon, pos.Speed, nil
	case KindSolarArc:
		arc, err := b.arcAt(at)
		if err != nil {
			return 0, 0, err
		}
		if !b.natalLonSet {
			pos, err := b.memo.Position(b.body, b.query.Natal)
			if err != nil {
				return 0, 0, err
			}
			b.natalLon = pos.Lon
			b.natalLonSet = true
		}
		return degrees.Normalize(b.natalLon + arc), 1, nil
	default:
		pos, err := b.memo.Position(b.body, at)
		if err != nil {
			return 0, 0, err
		}
		return pos.Lon, pos.Speed, nil
	}
}

func (b *bodyScan) arcAt(at time.Time) (float64, error) {
	natal := b.query.Natal
	if b.query.SunMode == progression.SunModeTrue {
		natalSun, err := b.memo.Position(domain.BodySun, natal)
		if err != nil {
			return 0, err
		}
		progSun, err := b.memo.Position(domain.BodySun, progression.Instant(natal, at))
		if err != nil {
			return 0, err
		}
		return degrees.Normalize(progSun.Lon - natalSun.Lon), nil
	}
	days := at.Sub(natal).Hours() / 24.0
	return degrees.Normalize(days / progression.DaysPerYear * (360.0 / progression.DaysPerYear)), nil
}

func (b *bodyScan) minuteAt(m int) time.Time {
	return b.query.Start.Add(time.Duration(m) * time.Minute)
}

// indexExactPasses numbers repeated exact hits of the same triple in
// chronological order; the events are already globally sorted.
func indexExactPasses(events []domain.ContactEvent) {
	counts := make(map[string]int, len(events))
	for i := range events {
		key := fmt.Sprintf("%s|%s|%g", events[i].Moving, events[i].Target, events[i].Angle)
		counts[key]++
		events[i].ExactIndex = counts[key]
	}
}

func cuspArray(frame *domain.ChartFrame) ([12]float64, bool) {
	var cusps [12]float64
	for i := 0; i < 12; i++ {
		pos, ok := frame.Houses.Cusps[fmt.Sprintf("%d", i+1)]
		if !ok {
			return cusps, false
		}
		cusps[i] = float64(pos.Lon)
	}
	return cusps, true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
