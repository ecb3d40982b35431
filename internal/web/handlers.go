package web

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/internal/services/lunations"
	"github.com/astarte-labs/stellium/internal/services/progression"
	"github.com/astarte-labs/stellium/internal/services/timeline"
	"github.com/astarte-labs/stellium/internal/storage/journal"
)

// LocationInput is either explicit coordinates or a place query for
// the resolver. Coordinates win when both are present.
type LocationInput struct {
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
	Place string   `json:"place,omitempty"`
}

// MomentInput is one instant plus where it happened.
type MomentInput struct {
	Timestamp string        `json:"timestamp_utc"`
	Location  LocationInput `json:"location"`
}

type chartRequest struct {
	ChartType       string        `json:"chart_type"`
	Timestamp       string        `json:"timestamp_utc"`
	TargetTimestamp string        `json:"target_timestamp_utc,omitempty"`
	SunMode         string        `json:"sun_mode,omitempty"`
	Location        LocationInput `json:"location"`
}

// transitRequest pairs two moments: the natal frame and the second
// frame (a transit instant, or another nativity for synastry). The
// second frame's location defaults to the natal one.
type transitRequest struct {
	Natal              MomentInput `json:"natal"`
	Transit            MomentInput `json:"transit"`
	IncludeLunations   bool        `json:"include_lunations,omitempty"`
	LunationWindowDays int         `json:"lunation_window_days,omitempty"`
}

type timelineRequest struct {
	Kind    string        `json:"kind"`
	Start   string        `json:"start_utc"`
	End     string        `json:"end_utc"`
	Natal   MomentInput   `json:"natal"`
	Moving  []domain.Body `json:"moving"`
	Angles  []float64     `json:"angles,omitempty"`
	SunMode string        `json:"sun_mode,omitempty"`
}

type transitResponse struct {
	Natal        *domain.ChartFrame    `json:"natal"`
	Transit      *domain.ChartFrame    `json:"transit"`
	CrossAspects []domain.AspectRecord `json:"cross_aspects"`
	Lunations    []domain.LunationEvent `json:"lunations,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	newEnvelopeWriter(s.log).write(w, http.StatusOK, Envelope{Data: map[string]string{"status": "ok"}})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	env := newEnvelopeWriter(s.log)
	data := map[string]any{
		"house_system":   s.cfg.HouseSystem,
		"aspect_table":   domain.AspectTable,
		"planet_order":   domain.PlanetOrder,
		"asteroid_order": domain.AsteroidOrder,
		"lots":           domain.LotOrder,
	}
	if s.engine.Lunations != nil {
		data["lunation_count"] = s.engine.Lunations.Len()
	}
	env.write(w, http.StatusOK, Envelope{Settings: s.settings(), Data: data})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	env := newEnvelopeWriter(s.log)

	var req chartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		env.fail(w, errors.WithMessage(domain.ErrInputInvalid, err.Error()))
		return
	}
	at, err := parseInstant(req.Timestamp)
	if err != nil {
		env.fail(w, err)
		return
	}
	loc, err := s.resolveLocation(r.Context(), req.Location)
	if err != nil {
		env.fail(w, err)
		return
	}

	var frame *domain.ChartFrame
	switch domain.ChartType(req.ChartType) {
	case domain.ChartNatal, domain.ChartMoment, "":
		chartType := domain.ChartType(req.ChartType)
		if chartType == "" {
			chartType = domain.ChartNatal
		}
		frame, err = s.engine.Assembler.Assemble(chartType, at, loc)
	case domain.ChartSecondaryProgression:
		var target time.Time
		if target, err = parseInstant(req.TargetTimestamp); err == nil {
			frame, err = s.engine.Mapper.SecondaryChart(at, target, loc)
		}
	case domain.ChartSolarArc:
		var target time.Time
		if target, err = parseInstant(req.TargetTimestamp); err == nil {
			mode := progression.SunMode(req.SunMode)
			if mode == "" {
				mode = progression.SunModeMean
			}
			frame, err = s.engine.Mapper.SolarArcChart(mode, at, target, loc)
		}
	default:
		err = errors.WithMessagef(domain.ErrInputInvalid, "unknown chart type %q", req.ChartType)
	}
	if err != nil {
		env.fail(w, err)
		return
	}

	audit := s.audit("chart", req, frame)
	env.write(w, http.StatusOK, Envelope{Settings: s.settings(), Input: req, Data: frame, Audit: audit})
}

func (s *Server) handleTransit(w http.ResponseWriter, r *http.Request) {
	env := newEnvelopeWriter(s.log)

	var req transitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		env.fail(w, errors.WithMessage(domain.ErrInputInvalid, err.Error()))
		return
	}
	natalAt, err := parseInstant(req.Natal.Timestamp)
	if err != nil {
		env.fail(w, err)
		return
	}
	transitAt, err := parseInstant(req.Transit.Timestamp)
	if err != nil {
		env.fail(w, err)
		return
	}
	loc, err := s.resolveLocation(r.Context(), req.Natal.Location)
	if err != nil {
		env.fail(w, err)
		return
	}
	transitLoc := loc
	if req.Transit.Location != (LocationInput{}) {
		if transitLoc, err = s.resolveLocation(r.Context(), req.Transit.Location); err != nil {
			env.fail(w, err)
			return
		}
	}

	natal, err := s.engine.Assembler.Assemble(domain.ChartNatal, natalAt, loc)
	if err != nil {
		env.fail(w, err)
		return
	}
	moment, err := s.engine.Assembler.Assemble(domain.ChartMoment, transitAt, transitLoc)
	if err != nil {
		env.fail(w, err)
		return
	}

	resp := &transitResponse{
		Natal:        natal,
		Transit:      moment,
		CrossAspects: s.engine.Matcher.MatchCross(moment.Targets(), natal.Targets(), "transit_", "natal_"),
	}
	if req.IncludeLunations && s.engine.Lunations != nil {
		days := req.LunationWindowDays
		if days <= 0 {
			days = 30
		}
		resp.Lunations = s.engine.Lunations.Range(
			transitAt.AddDate(0, 0, -days), transitAt.AddDate(0, 0, days), lunations.Filter{})
	}

	audit := s.audit("transit", req, resp)
	env.write(w, http.StatusOK, Envelope{Settings: s.settings(), Input: req, Data: resp, Audit: audit})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	env := newEnvelopeWriter(s.log)

	var req timelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		env.fail(w, errors.WithMessage(domain.ErrInputInvalid, err.Error()))
		return
	}
	start, err := parseInstant(req.Start)
	if err != nil {
		env.fail(w, err)
		return
	}
	end, err := parseInstant(req.End)
	if err != nil {
		env.fail(w, err)
		return
	}
	natalAt, err := parseInstant(req.Natal.Timestamp)
	if err != nil {
		env.fail(w, err)
		return
	}
	for _, body := range req.Moving {
		if !knownBody(body) {
			env.fail(w, errors.WithMessagef(domain.ErrInputInvalid, "unknown body %q", body))
			return
		}
	}
	loc, err := s.resolveLocation(r.Context(), req.Natal.Location)
	if err != nil {
		env.fail(w, err)
		return
	}

	reference, err := s.engine.Assembler.Assemble(domain.ChartNatal, natalAt, loc)
	if err != nil {
		env.fail(w, err)
		return
	}

	kind := timeline.Kind(req.Kind)
	if kind == "" {
		kind = timeline.KindTransit
	}
	result, err := s.engine.Scanner.Scan(r.Context(), timeline.Query{
		Kind:    kind,
		Start:   start,
		End:     end,
		Natal:   natalAt,
		SunMode: progression.SunMode(req.SunMode),
		Moving:  req.Moving,
		Angles:  req.Angles,
	}, reference)
	if err != nil {
		env.fail(w, err)
		return
	}

	audit := s.audit("timeline", req, result)
	env.write(w, http.StatusOK, Envelope{Settings: s.settings(), Input: req, Data: result, Audit: audit})
}

func (s *Server) handleLunations(w http.ResponseWriter, r *http.Request) {
	env := newEnvelopeWriter(s.log)
	if s.engine.Lunations == nil {
		env.fail(w, errors.New("lunation dataset not configured"))
		return
	}

	query := r.URL.Query()
	start, err := parseInstant(query.Get("start_utc"))
	if err != nil {
		env.fail(w, err)
		return
	}
	end, err := parseInstant(query.Get("end_utc"))
	if err != nil {
		env.fail(w, err)
		return
	}
	filter := lunations.Filter{
		Kind:         domain.LunationKind(query.Get("type")),
		Eclipse:      domain.EclipseKind(query.Get("eclipse")),
		EclipsesOnly: query.Get("eclipses_only") == "true",
	}
	events := s.engine.Lunations.Range(start, end, filter)
	env.write(w, http.StatusOK, Envelope{Data: events})
}

// resolveLocation turns the location input into coordinates: explicit
// coordinates pass through, otherwise the place query goes to the
// configured resolver.
func (s *Server) resolveLocation(ctx context.Context, in LocationInput) (domain.Location, error) {
	if in.Lat != nil && in.Lon != nil {
		if *in.Lat < -90 || *in.Lat > 90 || *in.Lon < -180 || *in.Lon > 180 {
			return domain.Location{}, errors.WithMessage(domain.ErrInputInvalid, "coordinates out of range")
		}
		return domain.Location{Lat: *in.Lat, Lon: *in.Lon, Place: in.Place}, nil
	}
	if in.Place == "" {
		return domain.Location{}, errors.WithMessage(domain.ErrInputInvalid, "location needs coordinates or a place")
	}
	if s.engine.Resolver == nil {
		return domain.Location{}, errors.WithMessage(domain.ErrGeocodeFailure, "no resolver configured")
	}
	return s.engine.Resolver.Resolve(ctx, in.Place)
}

// audit journals a query/result digest pair and reports drift. A nil
// journal disables auditing.
func (s *Server) audit(kind string, query, result any) *Audit {
	if s.engine.Journal == nil {
		return nil
	}
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	rec := journal.Record{
		Kind:       kind,
		QueryHash:  journal.Hash(queryJSON),
		ResultHash: journal.Hash(resultJSON),
		Timestamp:  time.Now().UTC(),
	}
	drift, err := s.engine.Journal.Append(rec)
	if err != nil {
		s.log.Error("journal append", zap.Error(err))
		return nil
	}
	if drift {
		s.log.Error("determinism drift detected",
			zap.String("kind", kind), zap.String("query_hash", rec.QueryHash))
	}
	return &Audit{QueryHash: rec.QueryHash, ResultHash: rec.ResultHash, Drift: drift}
}

func parseInstant(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.WithMessage(domain.ErrInputInvalid, "missing timestamp")
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.WithMessagef(domain.ErrInputInvalid, "bad timestamp %q", value)
	}
	return ts.UTC(), nil
}

func knownBody(body domain.Body) bool {
	if slices.Contains(domain.PlanetOrder, body) || slices.Contains(domain.AsteroidOrder, body) {
		return true
	}
	return body == domain.PointNorthNode || body == domain.PointSouthNode || body == domain.PointLilith
}
