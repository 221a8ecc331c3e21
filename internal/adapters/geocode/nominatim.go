package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"help_directory/internal/adapters/observability"
	"help_directory/internal/domain"
)

// Nominatim is the public OpenStreetMap geocoder. Its usage policy allows one request
// per second and requires an identifying User-Agent.
type Nominatim struct {
	base string
	hc   *http.Client
	ua   string
	rl   *rate.Limiter
}

func NewNominatim(base, userAgent string, interval time.Duration) (*Nominatim, error) {
	if userAgent == "" {
		return nil, fmt.Errorf("nominatim: user agent is required")
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Nominatim{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
		ua:   userAgent,
		rl:   rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

func (n *Nominatim) Name() string { return "nominatim" }

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) Geocode(ctx context.Context, address string) (domain.Coords, error) {
	if err := n.rl.Wait(ctx); err != nil {
		return domain.Coords{}, err
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("countrycodes", "pl")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.base+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.Coords{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", n.ua)

	start := time.Now()
	resp, err := n.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(n.Name(), "search", 0, time.Since(start))
		return domain.Coords{}, fmt.Errorf("nominatim: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()
	observability.ObserveExternal(n.Name(), "search", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Coords{}, fmt.Errorf("nominatim: bad status %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(b)), domain.ErrUpstream)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.Coords{}, fmt.Errorf("nominatim: decode: %w", err)
	}
	if len(places) == 0 {
		return domain.Coords{}, domain.ErrNotFound
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return domain.Coords{}, fmt.Errorf("nominatim: lat %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return domain.Coords{}, fmt.Errorf("nominatim: lon %q: %w", places[0].Lon, err)
	}
	return domain.Coords{Lat: lat, Lon: lon}, nil
}
