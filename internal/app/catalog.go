package app

import (
	"context"
	"fmt"
	"strings"

	"help_directory/internal/domain"
	"help_directory/internal/textnorm"
)

type entryLister interface {
	ListEntries(ctx context.Context, d domain.Dimension) ([]domain.ClassificationEntry, error)
}

// catalog is an in-memory copy of every classification table, loaded once per run.
type catalog struct {
	byDim map[domain.Dimension][]domain.ClassificationEntry
}

func loadCatalog(ctx context.Context, repo entryLister) (*catalog, error) {
	c := &catalog{byDim: make(map[domain.Dimension][]domain.ClassificationEntry, len(domain.Dimensions))}
	for _, di := range domain.Dimensions {
		es, err := repo.ListEntries(ctx, di.Dimension)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", di.Dimension, err)
		}
		c.byDim[di.Dimension] = es
	}
	return c, nil
}

// exact matches name case-insensitively against the stored name or its display form.
func (c *catalog) exact(d domain.Dimension, name string) (domain.ClassificationEntry, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ClassificationEntry{}, false
	}
	for _, e := range c.byDim[d] {
		if strings.EqualFold(e.Name, name) || strings.EqualFold(e.DisplayName(), name) {
			return e, true
		}
	}
	return domain.ClassificationEntry{}, false
}

func (c *catalog) bySlug(d domain.Dimension, slug string) (domain.ClassificationEntry, bool) {
	for _, e := range c.byDim[d] {
		if e.Slug == slug {
			return e, true
		}
	}
	return domain.ClassificationEntry{}, false
}

// lookup resolves a scraped term: a unique folded exact name first, then a unique
// entry whose folded name contains the term.
func (c *catalog) lookup(d domain.Dimension, term string) (domain.ClassificationEntry, error) {
	t := textnorm.Fold(strings.TrimSpace(term))
	if t == "" {
		return domain.ClassificationEntry{}, domain.ErrNotFound
	}
	var exact, partial []domain.ClassificationEntry
	for _, e := range c.byDim[d] {
		name := textnorm.Fold(e.DisplayName())
		switch {
		case name == t:
			exact = append(exact, e)
		case strings.Contains(name, t):
			partial = append(partial, e)
		}
	}
	for _, set := range [][]domain.ClassificationEntry{exact, partial} {
		switch len(set) {
		case 0:
			continue
		case 1:
			return set[0], nil
		default:
			return domain.ClassificationEntry{}, fmt.Errorf("%s %q matches %d entries: %w", d, term, len(set), domain.ErrAmbiguous)
		}
	}
	return domain.ClassificationEntry{}, fmt.Errorf("%s %q: %w", d, term, domain.ErrNotFound)
}

// resolve finds a category by slug, then exact name, then a unique containing name.
func (c *catalog) resolve(d domain.Dimension, name string) (domain.ClassificationEntry, error) {
	if e, ok := c.bySlug(d, textnorm.Slugify(name)); ok {
		return e, nil
	}
	if e, ok := c.exact(d, name); ok {
		return e, nil
	}
	return c.lookup(d, name)
}
