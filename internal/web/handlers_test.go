package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/astarte-labs/stellium/config"
	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/internal/services/aspects"
	"github.com/astarte-labs/stellium/internal/services/chart"
	"github.com/astarte-labs/stellium/internal/services/ephemeris"
	"github.com/astarte-labs/stellium/internal/services/geocode"
	"github.com/astarte-labs/stellium/internal/services/lunations"
	"github.com/astarte-labs/stellium/internal/services/orbs"
	"github.com/astarte-labs/stellium/internal/services/progression"
	"github.com/astarte-labs/stellium/internal/services/timeline"
	"github.com/astarte-labs/stellium/internal/storage/journal"
	"github.com/astarte-labs/stellium/pkg/degrees"
)

var skyEpoch = time.Date(1990, 1, 1, 12, 0, 0, 0, time.UTC)

// testSky moves every body at a constant rate from the epoch.
type testSky struct{}

var skyBodies = map[domain.Body]struct{ lon0, speed float64 }{
	domain.BodySun:            {280.5, 0.9856},
	domain.BodyMoon:           {95.2, 13.2},
	domain.BodyMercury:        {265.0, 1.2},
	domain.BodyVenus:          {310.8, 1.1},
	domain.BodyMars:           {270.0, 0.5},
	domain.BodyJupiter:        {45.6, 0.08},
	domain.BodySaturn:         {170.1, 0.03},
	domain.BodyUranus:         {15.9, 0.01},
	domain.BodyNeptune:        {350.2, 0.006},
	domain.BodyPluto:          {225.7, 0.004},
	domain.BodyCeres:          {33.3, 0.2},
	domain.BodyPallas:         {66.6, 0.2},
	domain.BodyJuno:           {99.9, 0.2},
	domain.BodyVesta:          {133.2, 0.2},
	domain.BodyChiron:         {166.5, 0.05},
	domain.BodyLilithAsteroid: {199.8, 0.1},
	domain.PointNorthNode:     {95.37, -0.05},
	domain.PointLilith:        {250.4, 0.11},
}

func (testSky) Position(body domain.Body, at time.Time) (ephemeris.Position, error) {
	b, ok := skyBodies[body]
	if !ok {
		return ephemeris.Position{}, ephemeris.Unavailable(body, at, nil)
	}
	days := at.Sub(skyEpoch).Hours() / 24.0
	return ephemeris.Position{
		Lon:        degrees.Normalize(b.lon0 + b.speed*days),
		Speed:      b.speed,
		Retrograde: b.speed < 0,
	}, nil
}

const lunationFixture = `timestamp_utc,type,eclipse,magnitude
2026-01-03T10:03:00Z,full,,
2026-01-18T19:52:00Z,new,,
2026-02-17T12:01:00Z,new,solar,0.96
`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		ListenAddr:    ":0",
		EphemerisPath: "testdata.csv",
		HouseSystem:   "equal",
	}
	provider := testSky{}
	policy := orbs.NewPolicy(orbs.Config{})
	houses, err := chart.NewHouseCalculator(chart.SystemEqual)
	require.NoError(t, err)
	assembler := chart.NewAssembler(provider, houses, policy, chart.DefaultStarCatalog(), zap.NewNop())
	catalog, err := lunations.Read(strings.NewReader(lunationFixture))
	require.NoError(t, err)
	store, err := journal.NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := Engine{
		Assembler: assembler,
		Mapper:    progression.NewMapper(provider, assembler, policy, zap.NewNop()),
		Scanner:   timeline.NewScanner(provider, policy, zap.NewNop()),
		Matcher:   aspects.NewMatcher(policy),
		Policy:    policy,
		Lunations: catalog,
		Resolver:  geocode.Static{Location: domain.Location{Lat: 52.52, Lon: 13.405, Place: "Berlin"}},
		Journal:   store,
	}
	return NewServer(cfg, engine, zap.NewNop())
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, env := doJSON(t, s, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, env.RequestID)
}

func TestConfigEcho(t *testing.T) {
	s := newTestServer(t)
	rec, env := doJSON(t, s, http.MethodGet, "/v1/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Settings)
	assert.Equal(t, "equal", env.Settings.HouseSystem)
	assert.NotEmpty(t, env.Settings.Orbs)
	assert.NotEmpty(t, env.Settings.AspectAngles)
}

func TestChartNatal(t *testing.T) {
	s := newTestServer(t)
	rec, env := doJSON(t, s, http.MethodPost, "/v1/chart",
		`{"chart_type":"natal","timestamp_utc":"1990-01-01T12:00:00Z","location":{"lat":52.52,"lon":13.405}}`)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	bodies, ok := data["bodies"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, bodies, 10)
	require.NotNil(t, env.Audit)
	assert.False(t, env.Audit.Drift)
}

func TestChartResolvesPlace(t *testing.T) {
	s := newTestServer(t)
	rec, env := doJSON(t, s, http.MethodPost, "/v1/chart",
		`{"timestamp_utc":"1990-01-01T12:00:00Z","location":{"place":"Berlin"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := env.Data.(map[string]any)
	meta := data["meta"].(map[string]any)
	loc := meta["location"].(map[string]any)
	assert.Equal(t, "Berlin", loc["place"])
}

func TestChartSolarArc(t *testing.T) {
	s := newTestServer(t)
	rec, env := doJSON(t, s, http.MethodPost, "/v1/chart",
		`{"chart_type":"solar_arc","timestamp_utc":"1990-01-01T12:00:00Z","target_timestamp_utc":"2020-01-01T12:00:00Z","location":{"lat":52.52,"lon":13.405}}`)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	data := env.Data.(map[string]any)
	meta := data["meta"].(map[string]any)
	assert.Equal(t, "solar_arc", meta["chart_type"])
	assert.Equal(t, "mean", meta["solar_arc_sun"])
}

func TestChartBadInput(t *testing.T) {
	s := newTestServer(t)

	rec, env := doJSON(t, s, http.MethodPost, "/v1/chart",
		`{"timestamp_utc":"not-a-time","location":{"lat":1,"lon":1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "input_invalid", env.Error.Kind)

	rec, _ = doJSON(t, s, http.MethodPost, "/v1/chart",
		`{"timestamp_utc":"1990-01-01T12:00:00Z","location":{"lat":200,"lon":0}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, s, http.MethodPost, "/v1/chart",
		`{"timestamp_utc":"1990-01-01T12:00:00Z","location":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitWithLunations(t *testing.T) {
	s := newTestServer(t)
	rec, env := doJSON(t, s, http.MethodPost, "/v1/transit",
		`{"natal":{"timestamp_utc":"1990-01-01T12:00:00Z","location":{"lat":52.52,"lon":13.405}},"transit":{"timestamp_utc":"2026-01-15T00:00:00Z"},"include_lunations":true}`)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	data := env.Data.(map[string]any)
	require.Contains(t, data, "cross_aspects")
	luns, ok := data["lunations"].([]any)
	require.True(t, ok)
	assert.Len(t, luns, 2, "two lunations inside the 30-day window")

	cross := data["cross_aspects"].([]any)
	require.NotEmpty(t, cross)
	first := cross[0].(map[string]any)
	assert.True(t, strings.HasPrefix(first["a"].(string), "transit_"))
	assert.True(t, strings.HasPrefix(first["b"].(string), "natal_"))
}

func TestTransitSecondFrameLocation(t *testing.T) {
	s := newTestServer(t)

	// the second frame carries its own location (synastry); omitting it
	// falls back to the natal one
	rec, env := doJSON(t, s, http.MethodPost, "/v1/transit",
		`{"natal":{"timestamp_utc":"1990-01-01T12:00:00Z","location":{"lat":52.52,"lon":13.405}},"transit":{"timestamp_utc":"1992-06-01T00:00:00Z","location":{"lat":-33.87,"lon":151.21}}}`)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	data := env.Data.(map[string]any)
	transitLoc := data["transit"].(map[string]any)["meta"].(map[string]any)["location"].(map[string]any)
	assert.InDelta(t, -33.87, transitLoc["lat"].(float64), 1e-9)
	assert.InDelta(t, 151.21, transitLoc["lon"].(float64), 1e-9)

	rec, env = doJSON(t, s, http.MethodPost, "/v1/transit",
		`{"natal":{"timestamp_utc":"1990-01-01T12:00:00Z","location":{"lat":52.52,"lon":13.405}},"transit":{"timestamp_utc":"1992-06-01T00:00:00Z"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data = env.Data.(map[string]any)
	transitLoc = data["transit"].(map[string]any)["meta"].(map[string]any)["location"].(map[string]any)
	assert.InDelta(t, 52.52, transitLoc["lat"].(float64), 1e-9)
}

func TestTimelineScan(t *testing.T) {
	s := newTestServer(t)
	// mars starts 10.5 deg behind the natal sun and closes at 0.5-0.9856...
	// deg/day relative; restrict to conjunctions so the event set stays small
	rec, env := doJSON(t, s, http.MethodPost, "/v1/timeline",
		`{"kind":"transit","start_utc":"1990-01-01T12:00:00Z","end_utc":"1990-03-01T12:00:00Z","natal":{"timestamp_utc":"1990-01-01T12:00:00Z","location":{"lat":52.52,"lon":13.405}},"moving":["mars"],"angles":[0]}`)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	data := env.Data.(map[string]any)
	require.Contains(t, data, "events")
	require.NotNil(t, env.Audit)
}

func TestTimelineUnknownBody(t *testing.T) {
	s := newTestServer(t)
	rec, env := doJSON(t, s, http.MethodPost, "/v1/timeline",
		`{"kind":"transit","start_utc":"1990-01-01T12:00:00Z","end_utc":"1990-02-01T12:00:00Z","natal":{"timestamp_utc":"1990-01-01T12:00:00Z","location":{"lat":1,"lon":1}},"moving":["vulcan"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "input_invalid", env.Error.Kind)
}

func TestLunationsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec, env := doJSON(t, s, http.MethodGet,
		"/v1/lunations?start_utc=2026-01-01T00:00:00Z&end_utc=2026-03-01T00:00:00Z&eclipses_only=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	events, ok := env.Data.([]any)
	require.True(t, ok)
	require.Len(t, events, 1)
	first := events[0].(map[string]any)
	assert.Equal(t, "solar", first["eclipse_kind"])
}

func TestChartDeterministicAcrossRequests(t *testing.T) {
	s := newTestServer(t)
	body := `{"chart_type":"natal","timestamp_utc":"1990-01-01T12:00:00Z","location":{"lat":52.52,"lon":13.405}}`

	_, first := doJSON(t, s, http.MethodPost, "/v1/chart", body)
	_, second := doJSON(t, s, http.MethodPost, "/v1/chart", body)

	require.NotNil(t, first.Audit)
	require.NotNil(t, second.Audit)
	assert.Equal(t, first.Audit.ResultHash, second.Audit.ResultHash)
	assert.False(t, second.Audit.Drift)

	firstData, err := json.Marshal(first.Data)
	require.NoError(t, err)
	secondData, err := json.Marshal(second.Data)
	require.NoError(t, err)
	assert.Equal(t, firstData, secondData)
}
