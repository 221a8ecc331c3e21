package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"help_directory/internal/adapters/legacysite"
	"help_directory/internal/domain"
	"help_directory/internal/textnorm"
)

// DetailImporter reads the labelled fields of every cached facility page, updates
// contact data and rebuilds the facility's classification sets.
type DetailImporter struct {
	facilities domain.FacilityRepository
	entries    domain.ClassificationRepository
	cache      domain.Cache
	dir        string
	log        zerolog.Logger
}

func NewDetailImporter(f domain.FacilityRepository, e domain.ClassificationRepository, cache domain.Cache, placowkaDir string, l zerolog.Logger) *DetailImporter {
	return &DetailImporter{facilities: f, entries: e, cache: cache, dir: placowkaDir, log: l}
}

// pageDetails is what one facility page contributes.
type pageDetails struct {
	Address string
	Phone   string
	Email   string
	Website string
	Places  *int
	Links   map[domain.Dimension][]int64
}

func (di *DetailImporter) Run(ctx context.Context) (Report, error) {
	rep := Report{Command: "details"}
	files, err := legacysite.ListHTML(di.dir)
	if err != nil {
		return rep, err
	}
	cat, err := loadCatalog(ctx, di.entries)
	if err != nil {
		return rep, err
	}
	all, err := di.facilities.ListFacilities(ctx)
	if err != nil {
		return rep, err
	}
	di.log.Info().Int("files", len(files)).Int("facilities", len(all)).Msg("importing details")

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.inc(di.importFile(ctx, cat, all, file))
	}
	return rep, nil
}

func (di *DetailImporter) importFile(ctx context.Context, cat *catalog, all []domain.Facility, file string) string {
	l := di.log.With().Str("file", filepath.Base(file)).Logger()
	doc, err := legacysite.ParseFile(file)
	if err != nil {
		l.Error().Err(err).Msg("parse page")
		_ = di.facilities.LogMiss(ctx, "details:"+file, 0, err.Error())
		return outcomeFailed
	}
	name := textnorm.TitleName(legacysite.Title(doc))
	if name == "" {
		l.Warn().Msg("page without title")
		return outcomeSkipped
	}
	f, ok := matchFacility(all, name)
	if !ok {
		l.Warn().Str("facility", name).Msg("could not find facility")
		return outcomeNotFound
	}

	d := extractDetails(cat, legacysite.LabeledItems(doc), l)
	setStr(&f.FullAddress, d.Address)
	setStr(&f.Phone, d.Phone)
	setStr(&f.Email, d.Email)
	setStr(&f.Website, d.Website)
	if d.Places != nil {
		f.Places = d.Places
	}
	if err := di.facilities.SaveDetails(ctx, f, d.Links); err != nil {
		l.Error().Err(err).Str("facility", f.Name).Msg("save details")
		_ = di.facilities.LogMiss(ctx, "details:"+file, 0, err.Error())
		return outcomeFailed
	}
	invalidateFacility(ctx, di.cache, f.Slug)
	l.Info().Str("facility", f.Name).Msg("updated")
	return outcomeUpdated
}

// matchFacility finds the facility named by a page title: exact case-insensitive name
// first, then the first row whose name contains or is contained in it.
func matchFacility(all []domain.Facility, name string) (domain.Facility, bool) {
	for _, f := range all {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	low := strings.ToLower(name)
	for _, f := range all {
		fl := strings.ToLower(f.Name)
		if fl == "" {
			continue
		}
		if strings.Contains(fl, low) || strings.Contains(low, fl) {
			return f, true
		}
	}
	return domain.Facility{}, false
}

func extractDetails(cat *catalog, items []legacysite.LabeledItem, l zerolog.Logger) pageDetails {
	out := pageDetails{Links: make(map[domain.Dimension][]int64, len(domain.Dimensions))}
	for _, di := range domain.Dimensions {
		out.Links[di.Dimension] = nil
	}
	seen := make(map[domain.Dimension]map[int64]bool)

	for _, it := range items {
		label := textnorm.Fold(it.Label)
		switch {
		case strings.Contains(label, "www") || strings.Contains(label, "strona"):
			out.Website = it.Text
			if len(it.Links) > 0 && it.Links[0].Href != "" {
				out.Website = it.Links[0].Href
			}
		case strings.Contains(label, "email") || strings.Contains(label, "e-mail"):
			// "Adres e-mail:" must not land in the address
			out.Email = it.Text
		case strings.Contains(label, "adres"):
			out.Address = it.Text
		case strings.Contains(label, "telefon"):
			out.Phone = it.Text
		case strings.Contains(label, "miejsc"):
			if n, ok := textnorm.FirstInt(it.Text); ok {
				out.Places = &n
			}
		}

		if len(it.Links) == 0 {
			continue
		}
		info, ok := dimensionForLabel(label)
		if !ok {
			continue
		}
		for _, a := range it.Links {
			term := searchTerm(info, a.Text)
			e, err := cat.lookup(info.Dimension, term)
			switch {
			case errors.Is(err, domain.ErrAmbiguous):
				l.Warn().Str("dimension", string(info.Dimension)).Str("label", a.Text).Msg("ambiguous label skipped")
				continue
			case err != nil:
				l.Debug().Str("dimension", string(info.Dimension)).Str("label", a.Text).Msg("no matching entry")
				continue
			}
			if seen[info.Dimension] == nil {
				seen[info.Dimension] = make(map[int64]bool)
			}
			if !seen[info.Dimension][e.ID] {
				seen[info.Dimension][e.ID] = true
				out.Links[info.Dimension] = append(out.Links[info.Dimension], e.ID)
			}
		}
	}
	return out
}

// dimensionForLabel returns the first dimension whose label key occurs in the folded label.
func dimensionForLabel(folded string) (domain.DimensionInfo, bool) {
	for _, di := range domain.Dimensions {
		for _, k := range di.LabelKeys {
			if strings.Contains(folded, k) {
				return di, true
			}
		}
	}
	return domain.DimensionInfo{}, false
}

// searchTerm replaces the anchor text with a dimension keyword it contains.
func searchTerm(info domain.DimensionInfo, text string) string {
	folded := textnorm.Fold(text)
	for _, k := range info.Keywords {
		if strings.Contains(folded, k) {
			return k
		}
	}
	return text
}
