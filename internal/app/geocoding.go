package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"help_directory/internal/domain"
)

const (
	mapboxPause  = 200 * time.Millisecond
	errorBackoff = 2 * time.Second
)

// GeocodingService fills in coordinates for facilities from their address.
type GeocodingService struct {
	repo    domain.FacilityRepository
	geo     domain.Geocoder
	cache   domain.Cache
	log     zerolog.Logger
	pause   time.Duration
	backoff time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewGeocodingService(repo domain.FacilityRepository, geo domain.Geocoder, cache domain.Cache, l zerolog.Logger) *GeocodingService {
	s := &GeocodingService{repo: repo, geo: geo, cache: cache, log: l, backoff: errorBackoff, sleep: sleepCtx}
	// Nominatim paces itself with a limiter.
	if geo.Name() == "mapbox" {
		s.pause = mapboxPause
	}
	return s
}

// Run geocodes facilities without coordinates, or every facility when force is set.
func (s *GeocodingService) Run(ctx context.Context, force bool) (Report, error) {
	rep := Report{Command: "geocode"}
	fs, err := s.repo.FacilitiesToGeocode(ctx, force)
	if err != nil {
		return rep, err
	}
	s.log.Info().Int("facilities", len(fs)).Str("provider", s.geo.Name()).Bool("force", force).Msg("geocoding")

	for i, f := range fs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		l := s.log.With().Int("n", i+1).Str("facility", f.Name).Logger()
		addr, ok := geocodeAddress(f)
		if !ok {
			l.Warn().Msg("not enough address data")
			rep.inc(outcomeSkipped)
			continue
		}

		c, err := s.geo.Geocode(ctx, addr)
		switch {
		case err == nil:
			if err := s.repo.SetCoordinates(ctx, f.ID, c); err != nil {
				l.Error().Err(err).Msg("save coordinates")
				rep.inc(outcomeFailed)
				break
			}
			invalidateFacility(ctx, s.cache, f.Slug)
			l.Info().Float64("lat", c.Lat).Float64("lon", c.Lon).Msg("updated")
			rep.inc(outcomeUpdated)
		case errors.Is(err, domain.ErrNotFound):
			l.Warn().Str("address", addr).Msg("no coordinates found")
			rep.inc(outcomeNotFound)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return rep, err
		default:
			l.Error().Err(err).Str("address", addr).Msg("geocoder error")
			rep.inc(outcomeFailed)
			if err := s.sleep(ctx, s.backoff); err != nil {
				return rep, err
			}
			continue
		}
		if s.pause > 0 {
			if err := s.sleep(ctx, s.pause); err != nil {
				return rep, err
			}
		}
	}
	if rep.Updated > 0 {
		invalidate(ctx, s.cache, keyMap)
	}
	return rep, nil
}

// geocodeAddress joins street, city and voivodeship with the country. The full
// address line stands in when street and city are both unknown.
func geocodeAddress(f domain.Facility) (string, bool) {
	var parts []string
	add := func(p *string) {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	add(f.AddressStreet)
	add(f.AddressCity)
	if len(parts) == 0 {
		add(f.FullAddress)
	}
	add(f.Voivodeship)
	parts = append(parts, "Poland")
	if len(parts) < 2 {
		return "", false
	}
	return strings.Join(parts, ", "), true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
