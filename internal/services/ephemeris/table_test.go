package ephemeris

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astarte-labs/stellium/internal/domain"
)

const sampleDataset = `body,timestamp_utc,lon,lat,speed
sun,2026-01-01T00:00:00Z,280.0,0.0,1.02
sun,2026-01-11T00:00:00Z,290.2,0.0,1.02
moon,2026-01-01T00:00:00Z,355.0,1.2,13.2
moon,2026-01-02T00:00:00Z,8.2,1.1,13.2
mars,2026-01-01T00:00:00Z,100.0,0.5,-0.3
mars,2026-01-11T00:00:00Z,97.0,0.4,-0.3
`

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestReadTable(t *testing.T) {
	table, err := ReadTable(strings.NewReader(sampleDataset))
	require.NoError(t, err)

	assert.Equal(t, []domain.Body{domain.BodySun, domain.BodyMoon, domain.BodyMars}, table.Bodies())
}

func TestTablePosition(t *testing.T) {
	table, err := ReadTable(strings.NewReader(sampleDataset))
	require.NoError(t, err)

	t.Run("exact sample", func(t *testing.T) {
		pos, err := table.Position(domain.BodySun, mustParse(t, "2026-01-01T00:00:00Z"))
		require.NoError(t, err)
		assert.InDelta(t, 280.0, pos.Lon, 1e-9)
		assert.False(t, pos.Retrograde)
	})

	t.Run("interpolates between samples", func(t *testing.T) {
		pos, err := table.Position(domain.BodySun, mustParse(t, "2026-01-06T00:00:00Z"))
		require.NoError(t, err)
		assert.InDelta(t, 285.1, pos.Lon, 1e-9)
	})

	t.Run("interpolates across the zero point", func(t *testing.T) {
		pos, err := table.Position(domain.BodyMoon, mustParse(t, "2026-01-01T12:00:00Z"))
		require.NoError(t, err)
		// shorter arc from 355.0 to 8.2 passes through 0
		assert.InDelta(t, 1.6, pos.Lon, 1e-9)
	})

	t.Run("retrograde flag from speed", func(t *testing.T) {
		pos, err := table.Position(domain.BodyMars, mustParse(t, "2026-01-03T00:00:00Z"))
		require.NoError(t, err)
		assert.True(t, pos.Retrograde)
		assert.Negative(t, pos.Speed)
	})

	t.Run("unknown body", func(t *testing.T) {
		_, err := table.Position(domain.BodyPluto, mustParse(t, "2026-01-02T00:00:00Z"))
		require.Error(t, err)
		assert.True(t, IsUnavailable(err))
	})

	t.Run("instant outside range", func(t *testing.T) {
		_, err := table.Position(domain.BodySun, mustParse(t, "2030-01-01T00:00:00Z"))
		require.Error(t, err)
		assert.True(t, IsUnavailable(err))
	})
}

func TestMemoCachesErrorsAndValues(t *testing.T) {
	table, err := ReadTable(strings.NewReader(sampleDataset))
	require.NoError(t, err)

	memo := NewMemo(table)
	at := mustParse(t, "2026-01-02T00:00:00Z")

	first, err := memo.Position(domain.BodySun, at)
	require.NoError(t, err)
	second, err := memo.Position(domain.BodySun, at)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, memo.Size())

	_, err = memo.Position(domain.BodyPluto, at)
	require.Error(t, err)
	_, err2 := memo.Position(domain.BodyPluto, at)
	require.Error(t, err2)
	assert.Equal(t, err.Error(), err2.Error())
	assert.Equal(t, 2, memo.Size())
}

func TestMemoResolvesSubSecondInstants(t *testing.T) {
	table, err := ReadTable(strings.NewReader(sampleDataset))
	require.NoError(t, err)

	// Progression scans map minute-grid instants onto sub-second spacing,
	// so instants inside the same second must stay distinct cache entries.
	memo := NewMemo(table)
	at := mustParse(t, "2026-01-02T00:00:00Z")
	later := at.Add(500 * time.Millisecond)

	for _, instant := range []time.Time{at, later} {
		want, err := table.Position(domain.BodySun, instant)
		require.NoError(t, err)
		got, err := memo.Position(domain.BodySun, instant)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 2, memo.Size())

	wantAt, _ := table.Position(domain.BodySun, at)
	wantLater, _ := table.Position(domain.BodySun, later)
	assert.NotEqual(t, wantAt.Lon, wantLater.Lon)
}
