package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"help_directory/internal/domain"
	"help_directory/internal/textnorm"
)

// LinkageService rebuilds classification sets from the legacy free-text columns.
type LinkageService struct {
	facilities domain.FacilityRepository
	entries    domain.ClassificationRepository
	cache      domain.Cache
	log        zerolog.Logger
}

func NewLinkageService(f domain.FacilityRepository, e domain.ClassificationRepository, cache domain.Cache, l zerolog.Logger) *LinkageService {
	return &LinkageService{facilities: f, entries: e, cache: cache, log: l}
}

func (s *LinkageService) Run(ctx context.Context) (Report, error) {
	rep := Report{Command: "assign"}
	cat, err := loadCatalog(ctx, s.entries)
	if err != nil {
		return rep, err
	}
	all, err := s.facilities.ListFacilities(ctx)
	if err != nil {
		return rep, err
	}
	for _, f := range all {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		links := s.resolve(cat, f)
		if err := s.facilities.ReplaceLinks(ctx, f.ID, links); err != nil {
			s.log.Error().Err(err).Str("facility", f.Name).Msg("replace links")
			rep.inc(outcomeFailed)
			continue
		}
		n := 0
		for _, ids := range links {
			n += len(ids)
		}
		rep.inc(outcomeUpdated)
		rep.add(outcomeLinked, n)
		invalidateFacility(ctx, s.cache, f.Slug)
	}
	return rep, nil
}

// resolve maps every token of every source column onto entries of the target dimension.
// All dimensions are present in the result so unmatched ones end up empty.
func (s *LinkageService) resolve(cat *catalog, f domain.Facility) map[domain.Dimension][]int64 {
	links := make(map[domain.Dimension][]int64, len(domain.Dimensions))
	hits := make(map[string][]domain.Dimension)
	for _, di := range domain.Dimensions {
		links[di.Dimension] = nil
		seen := make(map[int64]bool)
		for _, tok := range textnorm.SplitFreeText(f.FreeText(di.Source)) {
			e, ok := cat.exact(di.Dimension, tok)
			if !ok || seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			links[di.Dimension] = append(links[di.Dimension], e.ID)
			hits[tok] = append(hits[tok], di.Dimension)
		}
	}
	for tok, ds := range hits {
		if len(ds) > 1 {
			names := make([]string, len(ds))
			for i, d := range ds {
				names[i] = string(d)
			}
			s.log.Warn().Str("facility", f.Name).Str("token", tok).
				Str("dimensions", strings.Join(names, ",")).Msg("token matches several dimensions")
		}
	}
	return links
}
