package app

import (
	"context"
	"fmt"

	"help_directory/internal/domain"
)

const (
	keyMap        = "map"
	keyCategories = "categories"
)

func keyFacility(slug string) string { return "facility:" + slug }

func keyCategory(d domain.Dimension, slug string) string {
	return fmt.Sprintf("category:%s:%s", d, slug)
}

func invalidate(ctx context.Context, c domain.Cache, keys ...string) {
	if c == nil {
		return
	}
	for _, k := range keys {
		_ = c.Del(ctx, k)
	}
}

// invalidateFacility drops the detail view and the map, which embeds name and coordinates.
func invalidateFacility(ctx context.Context, c domain.Cache, slug string) {
	if slug == "" {
		return
	}
	invalidate(ctx, c, keyFacility(slug), keyMap)
}
