// Package lunations serves the static lunation and eclipse dataset.
// The catalog loads once at process start and is never derived at
// runtime; timeline filters that ask for lunation tokens read from it
// instead of scanning moving bodies.
package lunations

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/astarte-labs/stellium/internal/domain"
)

// Catalog is the immutable lunation dataset, ordered by timestamp.
type Catalog struct {
	events []domain.LunationEvent
}

// Load reads a catalog from a CSV file with the columns
// timestamp_utc,type,eclipse,magnitude and a header row. Magnitude and
// eclipse may be empty for ordinary lunations.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open lunation dataset")
	}
	defer f.Close()
	return Read(f)
}

// Read parses a catalog from r.
func Read(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read lunation dataset")
	}
	if len(rows) < 2 {
		return nil, errors.New("lunation dataset has no entries")
	}

	events := make([]domain.LunationEvent, 0, len(rows)-1)
	for i, row := range rows[1:] {
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, errors.Wrapf(err, "lunation row %d timestamp", i+1)
		}
		kind := domain.LunationKind(row[1])
		if kind != domain.LunationNew && kind != domain.LunationFull {
			return nil, errors.Errorf("lunation row %d: unknown type %q", i+1, row[1])
		}
		event := domain.LunationEvent{Timestamp: ts.UTC(), Kind: kind}
		if row[2] != "" {
			eclipse := domain.EclipseKind(row[2])
			if eclipse != domain.EclipseSolar && eclipse != domain.EclipseLunar {
				return nil, errors.Errorf("lunation row %d: unknown eclipse kind %q", i+1, row[2])
			}
			event.EclipseKind = eclipse
		}
		if row[3] != "" {
			mag, err := strconv.ParseFloat(row[3], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "lunation row %d magnitude", i+1)
			}
			event.Magnitude = domain.Deg(mag)
		}
		events = append(events, event)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return &Catalog{events: events}, nil
}

// Filter narrows a catalog query. Zero values match everything.
type Filter struct {
	Kind         domain.LunationKind
	Eclipse      domain.EclipseKind
	EclipsesOnly bool
}

// Range returns every event inside [start, end] that passes the
// filter, in timestamp order. The bounds are inclusive.
func (c *Catalog) Range(start, end time.Time, filter Filter) []domain.LunationEvent {
	var out []domain.LunationEvent
	for _, event := range c.events {
		if event.Timestamp.Before(start) || event.Timestamp.After(end) {
			continue
		}
		if filter.Kind != "" && event.Kind != filter.Kind {
			continue
		}
		if filter.Eclipse != "" && event.EclipseKind != filter.Eclipse {
			continue
		}
		if filter.EclipsesOnly && event.EclipseKind == "" {
			continue
		}
		out = append(out, event)
	}
	return out
}

// Len reports the catalog size.
func (c *Catalog) Len() int { return len(c.events) }
