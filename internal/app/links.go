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

// Pager and "read more" anchors on the listing pages.
var navigationTexts = []string{
	"czytaj dalej", "nast.", "ostatnia", "poprzednia", "pierwsza", "więcej", "zobacz więcej", "czytaj więcej",
}

// CategoryLinker links facilities to the category whose listing page mentions them.
// Links are only added, never cleared.
type CategoryLinker struct {
	facilities domain.FacilityRepository
	entries    domain.ClassificationRepository
	dir        string
	log        zerolog.Logger
}

func NewCategoryLinker(f domain.FacilityRepository, e domain.ClassificationRepository, htmlDir string, l zerolog.Logger) *CategoryLinker {
	return &CategoryLinker{facilities: f, entries: e, dir: htmlDir, log: l}
}

func (cl *CategoryLinker) Run(ctx context.Context) (Report, error) {
	rep := Report{Command: "links"}
	cat, err := loadCatalog(ctx, cl.entries)
	if err != nil {
		return rep, err
	}
	all, err := cl.facilities.ListFacilities(ctx)
	if err != nil {
		return rep, err
	}
	byName := make(map[string]domain.Facility, len(all))
	for _, f := range all {
		k := textnorm.NormalizeName(f.Name)
		if _, dup := byName[k]; !dup {
			byName[k] = f
		}
	}

	for _, di := range domain.Dimensions {
		for _, folder := range di.Folders {
			dir := filepath.Join(cl.dir, folder)
			files, err := legacysite.ListHTML(dir)
			if err != nil {
				if !legacysite.IsMissingDir(err) {
					cl.log.Error().Err(err).Str("dir", dir).Msg("list category folder")
					rep.inc(outcomeFailed)
				}
				continue
			}
			for _, file := range files {
				if err := ctx.Err(); err != nil {
					return rep, err
				}
				cl.linkPage(ctx, &rep, cat, byName, di.Dimension, file)
			}
		}
	}
	return rep, nil
}

func (cl *CategoryLinker) linkPage(ctx context.Context, rep *Report, cat *catalog, byName map[string]domain.Facility, d domain.Dimension, file string) {
	l := cl.log.With().Str("dimension", string(d)).Str("file", filepath.Base(file)).Logger()
	doc, err := legacysite.ParseFile(file)
	if err != nil {
		l.Error().Err(err).Msg("parse page")
		rep.inc(outcomeFailed)
		return
	}
	catName := legacysite.Heading(doc)
	if catName == "" {
		rep.inc(outcomeSkipped)
		return
	}

	var entry *domain.ClassificationEntry
	for _, a := range legacysite.Anchors(doc.Selection) {
		if !isFacilityHref(a.Href) || isNavigation(a.Text) {
			continue
		}
		f, ok := byName[textnorm.NormalizeName(a.Text)]
		if !ok {
			l.Warn().Str("facility", a.Text).Msg("facility not found")
			rep.inc(outcomeNotFound)
			continue
		}
		if entry == nil {
			e, err := cat.resolve(d, catName)
			if err != nil {
				if errors.Is(err, domain.ErrAmbiguous) {
					l.Warn().Str("category", catName).Msg("several categories match, skipping page")
				} else {
					l.Warn().Str("category", catName).Msg("category not found")
				}
				rep.inc(outcomeSkipped)
				return
			}
			entry = &e
		}
		if err := cl.facilities.AddLink(ctx, f.ID, d, entry.ID); err != nil {
			l.Error().Err(err).Str("facility", f.Name).Msg("add link")
			rep.inc(outcomeFailed)
			continue
		}
		rep.inc(outcomeLinked)
	}
}

func isFacilityHref(href string) bool {
	return strings.Contains(href, "/help/placowka/") || strings.Contains(href, "placowka_")
}

func isNavigation(text string) bool {
	if text == "" || textnorm.IsNumber(text) {
		return true
	}
	low := strings.ToLower(text)
	for _, n := range navigationTexts {
		if strings.Contains(low, n) {
			return true
		}
	}
	return false
}
