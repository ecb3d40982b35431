package progression

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/internal/services/aspects"
	"github.com/astarte-labs/stellium/internal/services/chart"
	"github.com/astarte-labs/stellium/internal/services/ephemeris"
	"github.com/astarte-labs/stellium/internal/services/orbs"
	"github.com/astarte-labs/stellium/pkg/degrees"
)

// DaysPerYear is the rate law divisor: one day of ephemeris motion
// stands for one calendar year of elapsed time.
const DaysPerYear = 365.2425

// meanSolarMotionPerDay is the mean daily motion of the Sun along the
// ecliptic, used by the mean solar-arc mode.
const meanSolarMotionPerDay = 360.0 / DaysPerYear

// SunMode selects how the solar arc is measured.
type SunMode string

const (
	SunModeMean SunMode = "mean"
	SunModeTrue SunMode = "true"
)

// Mapper converts calendar target dates into progressed instants and
// builds progressed and solar-arc charts. It is a pure function of its
// inputs and the provider; no state carries between calls.
type Mapper struct {
	provider  ephemeris.Provider
	assembler *chart.Assembler
	matcher   *aspects.Matcher
	log       *zap.Logger
}

func NewMapper(provider ephemeris.Provider, assembler *chart.Assembler, policy *orbs.Policy, log *zap.Logger) *Mapper {
	return &Mapper{
		provider:  provider,
		assembler: assembler,
		matcher:   aspects.NewMatcher(policy),
		log:       log,
	}
}

// Instant maps a calendar target date onto the secondary-progression
// timescale: natal plus elapsed time divided by the rate law.
func Instant(natal, target time.Time) time.Time {
	elapsed := target.Sub(natal)
	return natal.Add(time.Duration(float64(elapsed) / DaysPerYear)).UTC()
}

// Arc returns the solar arc accumulated between natal and target. Mean
// mode scales the progressed elapsed days by the Sun's mean motion;
// true mode measures the Sun's actual displacement between the natal
// and progressed instants.
func (m *Mapper) Arc(mode SunMode, natal, target time.Time) (float64, error) {
	progressed := Instant(natal, target)
	switch mode {
	case SunModeMean:
		days := progressed.Sub(natal).Hours() / 24.0
		return degrees.Normalize(days * meanSolarMotionPerDay), nil
	case SunModeTrue:
		natalSun, err := m.provider.Position(domain.BodySun, natal)
		if err != nil {
			return 0, errors.WithMessage(err, "solar arc needs the natal sun")
		}
		progSun, err := m.provider.Position(domain.BodySun, progressed)
		if err != nil {
			return 0, errors.WithMessage(err, "solar arc needs the progressed sun")
		}
		return degrees.Normalize(progSun.Lon - natalSun.Lon), nil
	default:
		return 0, errors.WithMessagef(domain.ErrInputInvalid, "unknown sun mode %q", mode)
	}
}

// SecondaryChart assembles a full chart at the progressed instant for
// the natal location.
func (m *Mapper) SecondaryChart(natal, target time.Time, loc domain.Location) (*domain.ChartFrame, error) {
	progressed := Instant(natal, target)
	frame, err := m.assembler.Assemble(domain.ChartSecondaryProgression, progressed, loc)
	if err != nil {
		return nil, err
	}
	frame.Meta.SourceTimestamp = natal.UTC()
	frame.Meta.TargetTimestamp = target.UTC()
	return frame, nil
}

// SolarArcChart directs the natal chart by the solar arc: every
// longitude in the natal frame is shifted by the same arc, nothing is
// re-queried from the provider except the Sun in true mode. Aspects
// between directed positions match the natal ones (a uniform shift
// preserves separations) and are recomputed from the shifted targets
// to keep the output self-consistent. Fixed stars are not scanned for
// a directed chart.
func (m *Mapper) SolarArcChart(mode SunMode, natal, target time.Time, loc domain.Location) (*domain.ChartFrame, error) {
	base, err := m.assembler.Assemble(domain.ChartNatal, natal, loc)
	if err != nil {
		return nil, err
	}
	arc, err := m.Arc(mode, natal, target)
	if err != nil {
		return nil, err
	}
	m.log.Debug("directing chart",
		zap.String("mode", string(mode)),
		zap.Float64("arc_deg", arc))

	directed := &domain.ChartFrame{
		Meta: domain.ChartMeta{
			ChartType:       domain.ChartSolarArc,
			Timestamp:       natal.UTC(),
			SourceTimestamp: natal.UTC(),
			TargetTimestamp: target.UTC(),
			SolarArcSun:     string(mode),
			SolarArcDeg:     domain.Deg(arc),
			Location:        loc,
			IsDayChart:      base.Meta.IsDayChart,
			Warnings:        base.Meta.Warnings,
		},
		Angles:    make(map[domain.Angle]domain.AnglePosition, len(base.Angles)),
		Bodies:    make(map[domain.Body]domain.BodyPosition, len(base.Bodies)),
		Asteroids: make(map[domain.Body]domain.BodyPosition, len(base.Asteroids)),
	}

	for angle, pos := range base.Angles {
		directed.Angles[angle] = shiftAngle(pos, arc)
	}
	cusps := make(map[string]domain.AnglePosition, len(base.Houses.Cusps))
	for idx, pos := range base.Houses.Cusps {
		cusps[idx] = shiftAngle(pos, arc)
	}
	directed.Houses = domain.Houses{System: base.Houses.System, Cusps: cusps}

	for body, pos := range base.Bodies {
		directed.Bodies[body] = shiftBody(pos, arc)
	}
	for body, pos := range base.Asteroids {
		directed.Asteroids[body] = shiftBody(pos, arc)
	}

	lots := make(map[domain.Lot]domain.BodyPosition, len(base.Points.Lots))
	for lot, pos := range base.Points.Lots {
		lots[lot] = shiftBody(pos, arc)
	}
	directed.Points = domain.Points{
		NorthNode: shiftBody(base.Points.NorthNode, arc),
		SouthNode: shiftBody(base.Points.SouthNode, arc),
		Lots:      lots,
	}
	if base.Points.Lilith != nil {
		shifted := shiftBody(*base.Points.Lilith, arc)
		directed.Points.Lilith = &shifted
	}

	directed.Aspects = m.matcher.Match(directed.Targets())
	return directed, nil
}

// shiftBody moves a position by arc. House membership is unchanged:
// the cusps shift by the same arc, so cusp-interval membership is
// preserved exactly.
func shiftBody(pos domain.BodyPosition, arc float64) domain.BodyPosition {
	lon := degrees.Normalize(float64(pos.Lon) + arc)
	sign, degInSign := domain.SignFor(lon)
	pos.Lon = domain.Deg(lon)
	pos.Sign = sign
	pos.DegInSign = domain.Deg(degInSign)
	return pos
}

func shiftAngle(pos domain.AnglePosition, arc float64) domain.AnglePosition {
	lon := degrees.Normalize(float64(pos.Lon) + arc)
	sign, degInSign := domain.SignFor(lon)
	return domain.AnglePosition{
		Lon:       domain.Deg(lon),
		Sign:      sign,
		DegInSign: domain.Deg(degInSign),
	}
}
