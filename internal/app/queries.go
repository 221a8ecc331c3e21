package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"help_directory/internal/domain"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type QueryService struct {
	repo     domain.DirectoryReader
	cache    domain.Cache
	cacheTTL time.Duration
	group    singleflight.Group
}

func NewQueryService(r domain.DirectoryReader, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

// cached is cache-aside with concurrent misses for one key collapsed into a single load.
func cached[T any](ctx context.Context, s *QueryService, key string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		// the load is shared by every waiter, so it must outlive the first caller's request
		lctx := context.WithoutCancel(ctx)
		val, err := load(lctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			_ = s.cache.Set(lctx, key, val, int(s.cacheTTL.Seconds()))
		}
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Search is not cached: the filter space is unbounded.
func (s *QueryService) Search(ctx context.Context, q domain.FacilityQuery) (domain.FacilityPage, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.repo.SearchFacilities(ctx, q)
}

func (s *QueryService) Facility(ctx context.Context, slug string) (domain.FacilityView, error) {
	return cached(ctx, s, keyFacility(slug), func(ctx context.Context) (domain.FacilityView, error) {
		f, err := s.repo.GetFacilityBySlug(ctx, slug)
		if err != nil {
			return domain.FacilityView{}, err
		}
		classes, err := s.repo.FacilityClassifications(ctx, f.ID)
		if err != nil {
			return domain.FacilityView{}, fmt.Errorf("classifications: %w", err)
		}
		comments, err := s.repo.ApprovedComments(ctx, f.ID)
		if err != nil {
			return domain.FacilityView{}, fmt.Errorf("comments: %w", err)
		}
		ratings, err := s.repo.RatingSummary(ctx, f.ID)
		if err != nil {
			return domain.FacilityView{}, fmt.Errorf("ratings: %w", err)
		}
		return facilityView(f, classes, comments, ratings), nil
	})
}

func (s *QueryService) Categories(ctx context.Context) ([]domain.CategoryGroup, error) {
	return cached(ctx, s, keyCategories, func(ctx context.Context) ([]domain.CategoryGroup, error) {
		out := make([]domain.CategoryGroup, 0, len(domain.Dimensions))
		for _, di := range domain.Dimensions {
			es, err := s.repo.ListEntries(ctx, di.Dimension)
			if err != nil {
				return nil, err
			}
			out = append(out, domain.CategoryGroup{Dimension: di.Dimension, Segment: di.Segment, Entries: refs(es)})
		}
		return out, nil
	})
}

func (s *QueryService) Category(ctx context.Context, d domain.Dimension, slug string) (domain.CategoryListing, error) {
	return cached(ctx, s, keyCategory(d, slug), func(ctx context.Context) (domain.CategoryListing, error) {
		e, fs, err := s.repo.EntryFacilities(ctx, d, slug)
		if err != nil {
			return domain.CategoryListing{}, err
		}
		if fs == nil {
			fs = []domain.FacilitySummary{}
		}
		return domain.CategoryListing{Dimension: d, Entry: e.Ref(), Facilities: fs}, nil
	})
}

func (s *QueryService) Map(ctx context.Context) ([]domain.MapPoint, error) {
	return cached(ctx, s, keyMap, func(ctx context.Context) ([]domain.MapPoint, error) {
		pts, err := s.repo.MapPoints(ctx)
		if err != nil {
			return nil, err
		}
		if pts == nil {
			pts = []domain.MapPoint{}
		}
		return pts, nil
	})
}
