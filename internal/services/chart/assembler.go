package chart

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/internal/services/aspects"
	"github.com/astarte-labs/stellium/internal/services/ephemeris"
	"github.com/astarte-labs/stellium/internal/services/orbs"
	"github.com/astarte-labs/stellium/pkg/degrees"
)

// Assembler produces chart frames. Each step runs in a fixed order and
// every list it emits follows the canonical enumerations, so the same
// inputs always serialize to the same bytes.
type Assembler struct {
	provider ephemeris.Provider
	houses   HouseCalculator
	matcher  *aspects.Matcher
	policy   *orbs.Policy
	stars    *StarCatalog
	log      *zap.Logger
}

// NewAssembler wires an assembler.
func NewAssembler(provider ephemeris.Provider, houses HouseCalculator, policy *orbs.Policy, stars *StarCatalog, log *zap.Logger) *Assembler {
	return &Assembler{
		provider: provider,
		houses:   houses,
		matcher:  aspects.NewMatcher(policy),
		policy:   policy,
		stars:    stars,
		log:      log,
	}
}

// Assemble builds one frame at the instant and location. Planet and
// node lookups are fatal; asteroid, lilith and star lookups degrade to
// warnings. The returned frame is immutable.
func (a *Assembler) Assemble(chartType domain.ChartType, at time.Time, loc domain.Location) (*domain.ChartFrame, error) {
	at = at.UTC()
	var warnings []string

	houseSet, err := a.houses.Houses(at, loc)
	if err != nil {
		return nil, err
	}

	bodies := make(map[domain.Body]domain.BodyPosition, len(domain.PlanetOrder))
	for _, body := range domain.PlanetOrder {
		pos, err := a.provider.Position(body, at)
		if err != nil {
			return nil, errors.WithMessagef(err, "chart requires %s", body)
		}
		bodies[body] = a.resolve(pos, houseSet)
	}

	asteroids := make(map[domain.Body]domain.BodyPosition, len(domain.AsteroidOrder))
	for _, body := range domain.AsteroidOrder {
		pos, err := a.provider.Position(body, at)
		if err != nil {
			if !ephemeris.IsUnavailable(err) {
				return nil, err
			}
			warnings = append(warnings, fmt.Sprintf("ephemeris_unavailable:%s", body))
			a.log.Debug("asteroid omitted", zap.String("body", string(body)), zap.Error(err))
			continue
		}
		asteroids[body] = a.resolve(pos, houseSet)
	}

	nnRaw, err := a.provider.Position(domain.PointNorthNode, at)
	if err != nil {
		return nil, errors.WithMessage(err, "chart requires the lunar node")
	}
	nn := a.resolve(nnRaw, houseSet)
	sn := a.resolve(ephemeris.Position{
		Lon:        degrees.Normalize(nnRaw.Lon + 180),
		Lat:        -nnRaw.Lat,
		Speed:      -nnRaw.Speed,
		Retrograde: -nnRaw.Speed < 0,
	}, houseSet)

	var lilith *domain.BodyPosition
	if pos, err := a.provider.Position(domain.PointLilith, at); err != nil {
		if !ephemeris.IsUnavailable(err) {
			return nil, err
		}
		warnings = append(warnings, fmt.Sprintf("ephemeris_unavailable:%s", domain.PointLilith))
		a.log.Debug("lilith omitted", zap.Error(err))
	} else {
		resolved := a.resolve(pos, houseSet)
		lilith = &resolved
	}

	isDay := bodies[domain.BodySun].House >= 7

	lotRefs := map[string]float64{
		"sun":     float64(bodies[domain.BodySun].Lon),
		"moon":    float64(bodies[domain.BodyMoon].Lon),
		"venus":   float64(bodies[domain.BodyVenus].Lon),
		"mars":    float64(bodies[domain.BodyMars].Lon),
		"jupiter": float64(bodies[domain.BodyJupiter].Lon),
		"saturn":  float64(bodies[domain.BodySaturn].Lon),
	}
	lots := make(map[domain.Lot]domain.BodyPosition, len(domain.LotOrder))
	for lot, lon := range Lots(isDay, houseSet.Asc, lotRefs) {
		lots[lot] = a.resolve(ephemeris.Position{Lon: lon}, houseSet)
	}

	frame := &domain.ChartFrame{
		Meta: domain.ChartMeta{
			ChartType:  chartType,
			Timestamp:  at,
			Location:   loc,
			IsDayChart: isDay,
		},
		Angles:    anglesOf(houseSet),
		Houses:    housesOf(houseSet),
		Bodies:    bodies,
		Asteroids: asteroids,
		Points: domain.Points{
			NorthNode: nn,
			SouthNode: sn,
			Lilith:    lilith,
			Lots:      lots,
		},
	}

	frame.Aspects = a.matcher.Match(frame.Targets())

	starTargets := append(frame.Targets(), lotTargets(lots)...)
	stars, starWarnings := a.stars.Conjunctions(at, starTargets, a.policy.StarOrb())
	frame.Stars = stars

	frame.Meta.Warnings = append(warnings, starWarnings...)
	return frame, nil
}

func (a *Assembler) resolve(pos ephemeris.Position, houseSet HouseSet) domain.BodyPosition {
	lon := degrees.Normalize(pos.Lon)
	sign, degInSign := domain.SignFor(lon)
	return domain.BodyPosition{
		Lon:        domain.Deg(lon),
		Lat:        domain.Deg(pos.Lat),
		Speed:      domain.Deg(pos.Speed),
		Retrograde: pos.Retrograde,
		Sign:       sign,
		DegInSign:  domain.Deg(degInSign),
		House:      HouseOf(lon, houseSet.Cusps),
	}
}

func anglesOf(set HouseSet) map[domain.Angle]domain.AnglePosition {
	out := make(map[domain.Angle]domain.AnglePosition, 4)
	for angle, lon := range map[domain.Angle]float64{
		domain.AngleAsc: set.Asc,
		domain.AngleDsc: set.Dsc,
		domain.AngleMC:  set.MC,
		domain.AngleIC:  set.IC,
	} {
		sign, degInSign := domain.SignFor(lon)
		out[angle] = domain.AnglePosition{
			Lon:       domain.Deg(lon),
			Sign:      sign,
			DegInSign: domain.Deg(degInSign),
		}
	}
	return out
}

func housesOf(set HouseSet) domain.Houses {
	cusps := make(map[string]domain.AnglePosition, 12)
	for i, lon := range set.Cusps {
		sign, degInSign := domain.SignFor(lon)
		cusps[strconv.Itoa(i+1)] = domain.AnglePosition{
			Lon:       domain.Deg(lon),
			Sign:      sign,
			DegInSign: domain.Deg(degInSign),
		}
	}
	return domain.Houses{System: set.System, Cusps: cusps}
}

func lotTargets(lots map[domain.Lot]domain.BodyPosition) []domain.Target {
	out := make([]domain.Target, 0, len(lots))
	for _, lot := range domain.LotOrder {
		pos, ok := lots[lot]
		if !ok {
			continue
		}
		out = append(out, domain.Target{
			Name:  "lot_" + string(lot),
			Lon:   float64(pos.Lon),
			House: pos.House,
			Sign:  pos.Sign,
		})
	}
	return out
}
