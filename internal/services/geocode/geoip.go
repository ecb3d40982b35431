package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/pkg/retrier"
)

const defaultGeoIPURL = "http://ip-api.com/json"

// GeoIP resolves an IP address to an approximate location through the
// ip-api.com service. Used as a fallback when the caller sends no
// birthplace.
type GeoIP struct {
	baseURL string
	client  *http.Client
	retrier *retrier.Retrier
	log     *zap.Logger
}

func NewGeoIP(baseURL string, client *http.Client, log *zap.Logger) *GeoIP {
	if baseURL == "" {
		baseURL = defaultGeoIPURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GeoIP{
		baseURL: baseURL,
		client:  client,
		retrier: retrier.New(retrier.WithAttempts(3), retrier.WithBase(time.Second)),
		log:     log,
	}
}

type geoIPRow struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Country string  `json:"country"`
}

func (g *GeoIP) Resolve(ctx context.Context, ip string) (domain.Location, error) {
	if ip == "" {
		return domain.Location{}, errors.WithMessage(domain.ErrInputInvalid, "empty ip")
	}
	return retrier.DoWithData(g.retrier, ctx, func(ctx context.Context) (domain.Location, error) {
		return g.lookup(ctx, ip)
	})
}

func (g *GeoIP) lookup(ctx context.Context, ip string) (domain.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/"+ip, nil)
	if err != nil {
		return domain.Location{}, errors.Wrap(err, "build geoip request")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Location{}, errors.Wrap(err, "geoip request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Location{}, errors.Wrapf(domain.ErrGeocodeFailure, "geoip status %d", resp.StatusCode)
	}

	var row geoIPRow
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		return domain.Location{}, errors.Wrap(err, "decode geoip response")
	}
	if row.Status != "success" {
		g.log.Warn("geoip refused lookup", zap.String("ip", ip), zap.String("message", row.Message))
		return domain.Location{}, retrier.Permanent(
			errors.Wrapf(domain.ErrGeocodeFailure, "ip %s: %s", ip, row.Message))
	}

	place := row.City
	if place != "" && row.Country != "" {
		place = fmt.Sprintf("%s, %s", row.City, row.Country)
	} else if place == "" {
		place = row.Country
	}
	return domain.Location{Lat: row.Lat, Lon: row.Lon, Place: place}, nil
}
