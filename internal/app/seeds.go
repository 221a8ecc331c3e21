package app

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"help_directory/internal/domain"
)

//go:embed seeds.yaml
var seedData []byte

type SeedEntry struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type Seeds struct {
	RatingCategories []domain.RatingCategory `yaml:"rating_categories"`
	AgeGenderGroups  []SeedEntry             `yaml:"age_gender_groups"`
}

// DefaultSeeds returns the built-in seed data.
func DefaultSeeds() (Seeds, error) {
	var s Seeds
	if err := yaml.Unmarshal(seedData, &s); err != nil {
		return Seeds{}, fmt.Errorf("decode seeds: %w", err)
	}
	return s, nil
}

type ratingCategoryWriter interface {
	UpsertRatingCategory(ctx context.Context, c domain.RatingCategory) (bool, error)
}

// Seeder upserts rating categories and the fixed age/gender groups by slug.
type Seeder struct {
	ratings ratingCategoryWriter
	entries domain.ClassificationRepository
	log     zerolog.Logger
}

func NewSeeder(ratings ratingCategoryWriter, entries domain.ClassificationRepository, l zerolog.Logger) *Seeder {
	return &Seeder{ratings: ratings, entries: entries, log: l}
}

func (s *Seeder) Run(ctx context.Context, seeds Seeds) (Report, error) {
	rep := Report{Command: "seed"}
	for _, c := range seeds.RatingCategories {
		created, err := s.ratings.UpsertRatingCategory(ctx, c)
		if err != nil {
			return rep, fmt.Errorf("rating category %s: %w", c.Slug, err)
		}
		s.log.Info().Str("rating_category", c.Slug).Bool("created", created).Msg("seeded")
		rep.inc(outcomeOf(created))
	}
	for _, g := range seeds.AgeGenderGroups {
		created, err := s.entries.UpsertEntry(ctx, domain.AgeGenderGroup, g.Name, g.Slug)
		if err != nil {
			return rep, fmt.Errorf("age/gender group %s: %w", g.Slug, err)
		}
		s.log.Info().Str("age_gender_group", g.Slug).Bool("created", created).Msg("seeded")
		rep.inc(outcomeOf(created))
	}
	return rep, nil
}

func outcomeOf(created bool) string {
	if created {
		return outcomeCreated
	}
	return outcomeUpdated
}
