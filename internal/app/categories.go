package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"help_directory/internal/adapters/legacysite"
	"help_directory/internal/domain"
	"help_directory/internal/textnorm"
)

// MissLogger records items a batch command could not process.
type MissLogger interface {
	LogMiss(ctx context.Context, key string, status int, reason string) error
}

// CategoryImporter fills the classification tables from the cached category listing pages.
type CategoryImporter struct {
	repo   domain.ClassificationRepository
	misses MissLogger
	dir    string
	log    zerolog.Logger
}

func NewCategoryImporter(repo domain.ClassificationRepository, misses MissLogger, htmlDir string, l zerolog.Logger) *CategoryImporter {
	return &CategoryImporter{repo: repo, misses: misses, dir: htmlDir, log: l}
}

func (ci *CategoryImporter) Run(ctx context.Context) (Report, error) {
	rep := Report{Command: "categories"}
	for _, di := range domain.Dimensions {
		for _, folder := range di.Folders {
			if err := ci.importFolder(ctx, di.Dimension, folder, &rep); err != nil {
				return rep, err
			}
		}
	}
	return rep, nil
}

func (ci *CategoryImporter) importFolder(ctx context.Context, d domain.Dimension, folder string, rep *Report) error {
	dir := filepath.Join(ci.dir, folder)
	files, err := legacysite.ListHTML(dir)
	if err != nil {
		if legacysite.IsMissingDir(err) {
			ci.log.Warn().Str("dimension", string(d)).Str("dir", dir).Msg("category folder missing")
			return nil
		}
		ci.log.Error().Err(err).Str("dir", dir).Msg("list category folder")
		rep.inc(outcomeFailed)
		return nil
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		stem := strings.TrimSuffix(filepath.Base(file), ".html")
		doc, err := legacysite.ParseFile(file)
		if err != nil {
			ci.fail(ctx, rep, d, file, err)
			continue
		}
		label := legacysite.Label(doc, stem)
		slug := textnorm.Slugify(label)
		if slug == "" {
			ci.fail(ctx, rep, d, file, domain.ErrMissingName)
			continue
		}
		created, err := ci.repo.UpsertEntry(ctx, d, label, slug)
		if err != nil {
			ci.fail(ctx, rep, d, file, err)
			continue
		}
		if created {
			rep.inc(outcomeCreated)
		} else {
			rep.inc(outcomeUpdated)
		}
		ci.log.Debug().Str("dimension", string(d)).Str("slug", slug).Bool("created", created).Msg("category")
	}
	return nil
}

func (ci *CategoryImporter) fail(ctx context.Context, rep *Report, d domain.Dimension, file string, err error) {
	rep.inc(outcomeFailed)
	ci.log.Error().Err(err).Str("dimension", string(d)).Str("file", file).Msg("category import failed")
	if ci.misses != nil {
		_ = ci.misses.LogMiss(ctx, "category:"+file, 0, err.Error())
	}
}
