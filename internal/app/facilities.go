package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"help_directory/internal/adapters/legacysite"
	"help_directory/internal/domain"
	"help_directory/internal/textnorm"
)

// FacilityImporter creates or refreshes facilities from the crawler manifest and
// the cached facility pages.
type FacilityImporter struct {
	repo        domain.FacilityRepository
	cache       domain.Cache
	manifest    string
	placowkaDir string
	baseURL     *url.URL
	log         zerolog.Logger
}

func NewFacilityImporter(repo domain.FacilityRepository, cache domain.Cache, manifest, placowkaDir, baseURL string, l zerolog.Logger) (*FacilityImporter, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	return &FacilityImporter{
		repo:        repo,
		cache:       cache,
		manifest:    manifest,
		placowkaDir: placowkaDir,
		baseURL:     base,
		log:         l,
	}, nil
}

func (fi *FacilityImporter) Run(ctx context.Context) (Report, error) {
	rep := Report{Command: "facilities"}
	entries, err := legacysite.LoadManifest(fi.manifest)
	if err != nil {
		return rep, err
	}
	fi.log.Info().Int("entries", len(entries)).Str("manifest", fi.manifest).Msg("manifest loaded")

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if strings.TrimSpace(e.URL) == "" {
			fi.log.Warn().Str("facility", e.Name).Msg("manifest entry without url")
			rep.inc(outcomeSkipped)
			continue
		}
		outcome, err := fi.importEntry(ctx, e)
		if err != nil {
			fi.log.Error().Err(err).Str("facility", e.Name).Str("url", e.URL).Msg("facility import failed")
			_ = fi.repo.LogMiss(ctx, e.URL, missStatus(err), err.Error())
		}
		rep.inc(outcome)
	}
	return rep, nil
}

func (fi *FacilityImporter) importEntry(ctx context.Context, e legacysite.ManifestEntry) (string, error) {
	file := legacysite.FacilityFile(fi.placowkaDir, e.URL)
	doc, err := legacysite.ParseFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fi.log.Warn().Str("file", file).Msg("cached page missing")
			return outcomeNotFound, nil
		}
		return outcomeFailed, err
	}
	page := legacysite.ParseFacilityPage(doc)

	source := e.URL
	if page.Canonical != "" {
		if u, err := fi.baseURL.Parse(page.Canonical); err == nil {
			source = u.String()
		}
	} else {
		fi.log.Warn().Str("file", file).Msg("no canonical link, using manifest url")
	}

	f, err := fi.repo.GetFacilityBySource(ctx, source)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		f = domain.Facility{}
	case err != nil:
		return outcomeFailed, err
	}

	f.Name = strings.TrimSpace(e.Name)
	if page.HasMainNode {
		mergePage(&f, page)
	} else {
		fi.log.Warn().Str("file", file).Msg("main content node not found")
	}
	if f.Name == "" {
		f.Name = textnorm.TitleName(page.Title)
	}
	if f.Name == "" {
		return outcomeFailed, fmt.Errorf("%s: %w", source, domain.ErrMissingName)
	}
	f.SourceURL = &source

	if f.ID == 0 {
		slug, err := UniqueSlug(ctx, fi.repo, f.Name, 0)
		if err != nil {
			return outcomeFailed, err
		}
		f.Slug = slug
		if err := fi.repo.InsertFacility(ctx, &f); err != nil {
			return outcomeFailed, err
		}
		fi.log.Info().Str("facility", f.Name).Str("slug", f.Slug).Msg("created")
		return outcomeCreated, nil
	}

	if f.Slug == "" {
		if f.Slug, err = UniqueSlug(ctx, fi.repo, f.Name, f.ID); err != nil {
			return outcomeFailed, err
		}
	}
	if err := fi.repo.UpdateFacility(ctx, f); err != nil {
		return outcomeFailed, err
	}
	invalidateFacility(ctx, fi.cache, f.Slug)
	fi.log.Info().Str("facility", f.Name).Str("slug", f.Slug).Msg("updated")
	return outcomeUpdated, nil
}

// mergePage copies the fields present on the page; free-text fields the page lacks keep
// their stored value.
func mergePage(f *domain.Facility, p legacysite.FacilityPage) {
	setStr(&f.FullAddress, p.FullAddress)
	setStr(&f.Phone, p.Phone)
	setStr(&f.Email, p.Email)
	setStr(&f.Website, p.Website)
	setStr(&f.Voivodeship, p.Voivodeship)
	if p.Places != nil {
		f.Places = p.Places
	}
	setStr(&f.AddictionTypesText, p.AddictionTypes)
	setStr(&f.ProgramLengthsText, p.ProgramLengths)
	setStr(&f.TherapyTypesText, p.TherapyTypes)
	setStr(&f.FacilityTypeText, p.FacilityType)
	setStr(&f.PsychotherapyTypesText, p.Psychotherapy)
	setStr(&f.CounselingTypesText, p.Counseling)
	setStr(&f.OtherActivitiesText, p.OtherActivities)
	setStr(&f.SourceUpdatedText, p.ChangedDate)
}

func setStr(dst **string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = &v
	}
}

func missStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return 404
	case errors.Is(err, domain.ErrMissingName), errors.Is(err, domain.ErrAmbiguous):
		return 422
	}
	return 0
}
