package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/astarte-labs/stellium/internal/domain"
)

// Settings is the resolved-configuration echo attached to every
// response, so a client can reproduce any result offline.
type Settings struct {
	HouseSystem  string             `json:"house_system"`
	AspectAngles []float64          `json:"aspect_angles"`
	Orbs         map[string]float64 `json:"orbs"`
	TransitOrbs  map[string]float64 `json:"transit_orbs"`
	StarOrb      domain.Deg         `json:"star_orb"`
	Progression  domain.Deg         `json:"progression_orb"`
}

// Audit reports the determinism journal verdict for this request.
// Drift means the same query previously produced a different result.
type Audit struct {
	QueryHash  string `json:"query_hash"`
	ResultHash string `json:"result_hash"`
	Drift      bool   `json:"drift,omitempty"`
}

// Envelope wraps every API response. Data carries the deterministic
// payload; everything else is per-request metadata.
type Envelope struct {
	RequestID string          `json:"request_id"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Settings  *Settings       `json:"settings,omitempty"`
	Input     any             `json:"input,omitempty"`
	Data      any             `json:"data,omitempty"`
	Audit     *Audit          `json:"audit,omitempty"`
	Error     *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody is the serialized error taxonomy entry.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type envelopeWriter struct {
	id      string
	started time.Time
	log     *zap.Logger
}

func newEnvelopeWriter(log *zap.Logger) *envelopeWriter {
	return &envelopeWriter{
		id:      uuid.NewString(),
		started: time.Now(),
		log:     log,
	}
}

func (e *envelopeWriter) write(w http.ResponseWriter, status int, env Envelope) {
	env.RequestID = e.id
	env.ElapsedMS = time.Since(e.started).Milliseconds()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		e.log.Error("write response", zap.String("request_id", e.id), zap.Error(err))
	}
}

func (e *envelopeWriter) fail(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	e.log.Warn("request failed",
		zap.String("request_id", e.id),
		zap.String("kind", kind),
		zap.Error(err))
	e.write(w, status, Envelope{Error: &ErrorBody{Kind: kind, Message: err.Error()}})
}

// classify maps the error taxonomy onto HTTP statuses: invalid input
// 400, unresolved location 422, missing ephemeris data 503, anything
// else 500.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInputInvalid):
		return http.StatusBadRequest, "input_invalid"
	case errors.Is(err, domain.ErrGeocodeFailure):
		return http.StatusUnprocessableEntity, "geocode_failure"
	case errors.Is(err, domain.ErrEphemerisUnavailable):
		return http.StatusServiceUnavailable, "ephemeris_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
