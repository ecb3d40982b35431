package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/pkg/retrier"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim resolves place names through the OpenStreetMap Nominatim
// search API. Transient failures retry with backoff; an empty result
// set is permanent and surfaces as a geocode failure.
type Nominatim struct {
	baseURL string
	client  *http.Client
	retrier *retrier.Retrier
	log     *zap.Logger
}

func NewNominatim(baseURL string, client *http.Client, log *zap.Logger) *Nominatim {
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Nominatim{
		baseURL: baseURL,
		client:  client,
		retrier: retrier.New(retrier.WithAttempts(3), retrier.WithBase(time.Second)),
		log:     log,
	}
}

type nominatimRow struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *Nominatim) Resolve(ctx context.Context, query string) (domain.Location, error) {
	if query == "" {
		return domain.Location{}, errors.WithMessage(domain.ErrInputInvalid, "empty place query")
	}
	return retrier.DoWithData(n.retrier, ctx, func(ctx context.Context) (domain.Location, error) {
		loc, err := n.lookup(ctx, query)
		if err != nil {
			n.log.Warn("nominatim lookup failed", zap.String("query", query), zap.Error(err))
		}
		return loc, err
	})
}

func (n *Nominatim) lookup(ctx context.Context, query string) (domain.Location, error) {
	u := n.baseURL + "/search?format=json&limit=1&q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Location{}, errors.Wrap(err, "build nominatim request")
	}
	req.Header.Set("User-Agent", "stellium")

	resp, err := n.client.Do(req)
	if err != nil {
		return domain.Location{}, errors.Wrap(err, "nominatim request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := errors.Wrapf(domain.ErrGeocodeFailure, "nominatim status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return domain.Location{}, retrier.Permanent(err)
		}
		return domain.Location{}, err
	}

	var rows []nominatimRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return domain.Location{}, errors.Wrap(err, "decode nominatim response")
	}
	if len(rows) == 0 {
		return domain.Location{}, retrier.Permanent(
			errors.Wrapf(domain.ErrGeocodeFailure, "place %q not found", query))
	}

	lat, err := strconv.ParseFloat(rows[0].Lat, 64)
	if err != nil {
		return domain.Location{}, errors.Wrap(err, "nominatim latitude")
	}
	lon, err := strconv.ParseFloat(rows[0].Lon, 64)
	if err != nil {
		return domain.Location{}, errors.Wrap(err, "nominatim longitude")
	}
	return domain.Location{Lat: lat, Lon: lon, Place: rows[0].DisplayName}, nil
}
