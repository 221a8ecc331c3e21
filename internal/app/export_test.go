package app

import (
	"context"
	"time"
)

// SetSleep replaces the pause used between geocoder calls.
func (s *GeocodingService) SetSleep(f func(ctx context.Context, d time.Duration) error) { s.sleep = f }
