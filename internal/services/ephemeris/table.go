package ephemeris

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/pkg/degrees"
)

// sample is one dataset row, timestamps in unix seconds.
type sample struct {
	at    int64
	lon   float64
	lat   float64
	speed float64
}

// Table is a provider backed by a sampled position dataset
// (CSV: body,timestamp_utc,lon,lat,speed). Positions between samples
// are interpolated linearly along the shorter arc, which keeps lookups
// deterministic and cheap. The table is read-only after load and safe
// for concurrent use.
type Table struct {
	series map[domain.Body][]sample
}

// LoadTable reads the dataset from path. Rows must be sorted by body
// and timestamp; malformed rows fail the load because a silently
// skipped row would change results between deployments.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open ephemeris dataset")
	}
	defer f.Close()
	return ReadTable(f)
}

// ReadTable parses the dataset from r. The first row is a header.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 5

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read ephemeris dataset")
	}
	if len(rows) < 2 {
		return nil, errors.New("ephemeris dataset has no samples")
	}

	series := make(map[domain.Body][]sample)
	for i, row := range rows[1:] {
		at, err := time.Parse(time.RFC3339, row[1])
		if err != nil {
			return nil, errors.Wrapf(err, "ephemeris row %d: bad timestamp", i+2)
		}
		lon, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "ephemeris row %d: bad longitude", i+2)
		}
		lat, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "ephemeris row %d: bad latitude", i+2)
		}
		speed, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "ephemeris row %d: bad speed", i+2)
		}

		body := domain.Body(row[0])
		series[body] = append(series[body], sample{
			at:    at.Unix(),
			lon:   degrees.Normalize(lon),
			lat:   lat,
			speed: speed,
		})
	}

	for body, ss := range series {
		if !sort.SliceIsSorted(ss, func(i, j int) bool { return ss[i].at < ss[j].at }) {
			return nil, errors.Errorf("ephemeris dataset: %s samples out of order", body)
		}
	}

	return &Table{series: series}, nil
}

// Bodies lists the bodies present in the dataset in enumeration order.
func (t *Table) Bodies() []domain.Body {
	out := make([]domain.Body, 0, len(t.series))
	for body := range t.series {
		out = append(out, body)
	}
	sort.Slice(out, func(i, j int) bool {
		return domain.Rank(string(out[i])) < domain.Rank(string(out[j]))
	})
	return out
}

// Position implements Provider.
func (t *Table) Position(body domain.Body, at time.Time) (Position, error) {
	ss, ok := t.series[body]
	if !ok || len(ss) == 0 {
		return Position{}, Unavailable(body, at, errors.New("body not in dataset"))
	}

	ts := at.Unix()
	if ts < ss[0].at || ts > ss[len(ss)-1].at {
		return Position{}, Unavailable(body, at, errors.New("instant outside dataset range"))
	}

	idx := sort.Search(len(ss), func(i int) bool { return ss[i].at >= ts })
	if ss[idx].at == ts {
		return toPosition(ss[idx]), nil
	}

	a, b := ss[idx-1], ss[idx]
	frac := float64(ts-a.at) / float64(b.at-a.at)
	lon := degrees.Normalize(a.lon + frac*degrees.NormalizeSigned(b.lon-a.lon))
	speed := a.speed + frac*(b.speed-a.speed)

	return Position{
		Lon:        lon,
		Lat:        a.lat + frac*(b.lat-a.lat),
		Speed:      speed,
		Retrograde: speed < 0,
	}, nil
}

func toPosition(s sample) Position {
	return Position{
		Lon:        s.lon,
		Lat:        s.lat,
		Speed:      s.speed,
		Retrograde: s.speed < 0,
	}
}
