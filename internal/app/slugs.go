package app

import (
	"context"
	"fmt"

	"help_directory/internal/textnorm"
)

type slugChecker interface {
	SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)
}

const fallbackSlug = "placowka"

// UniqueSlug slugifies name and appends -1, -2, ... until no other facility uses it.
func UniqueSlug(ctx context.Context, repo slugChecker, name string, excludeID int64) (string, error) {
	base := textnorm.Slugify(name)
	if base == "" {
		base = fallbackSlug
	}
	slug := base
	for i := 1; ; i++ {
		taken, err := repo.SlugTaken(ctx, slug, excludeID)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
