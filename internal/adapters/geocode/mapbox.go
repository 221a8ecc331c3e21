package geocode

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"help_directory/internal/adapters/observability"
	"help_directory/internal/domain"
)

// Mapbox is the commercial forward geocoder; requires an access token.
type Mapbox struct {
	c     *resty.Client
	token string
}

type mapboxResponse struct {
	Features []struct {
		Center []float64 `json:"center"` // lon, lat
	} `json:"features"`
}

func NewMapbox(base, token string) (*Mapbox, error) {
	if token == "" {
		return nil, fmt.Errorf("mapbox: access token is required")
	}
	c := resty.New().
		SetBaseURL(base).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	return &Mapbox{c: c, token: token}, nil
}

func (m *Mapbox) Name() string { return "mapbox" }

func (m *Mapbox) Geocode(ctx context.Context, address string) (domain.Coords, error) {
	var out mapboxResponse
	start := time.Now()
	resp, err := m.c.R().
		SetContext(ctx).
		SetPathParam("query", address).
		SetQueryParams(map[string]string{
			"access_token": m.token,
			"limit":        "1",
			"country":      "pl",
		}).
		SetResult(&out).
		Get("/geocoding/v5/mapbox.places/{query}.json")
	if err != nil {
		observability.ObserveExternal(m.Name(), "places", 0, time.Since(start))
		return domain.Coords{}, fmt.Errorf("mapbox: %v: %w", err, domain.ErrUpstream)
	}
	observability.ObserveExternal(m.Name(), "places", resp.StatusCode(), time.Since(start))

	if resp.IsError() {
		return domain.Coords{}, fmt.Errorf("mapbox: bad status %d: %w", resp.StatusCode(), domain.ErrUpstream)
	}
	if len(out.Features) == 0 || len(out.Features[0].Center) < 2 {
		return domain.Coords{}, domain.ErrNotFound
	}
	c := out.Features[0].Center
	return domain.Coords{Lat: c[1], Lon: c[0]}, nil
}
