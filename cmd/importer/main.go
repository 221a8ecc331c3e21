// Command importer runs the batch steps that load the legacy help site into the directory:
//
//	importer categories   classification tables from the cached category pages
//	importer facilities   facilities from the crawler manifest
//	importer details      contact data and classifications from facility pages
//	importer links        facility links from the category listing pages
//	importer assign       classifications from the legacy free-text columns
//	importer geocode      coordinates (-force, -provider nominatim|mapbox)
//	importer seed         rating categories and age/gender groups
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"help_directory/internal/adapters/geocode"
	"help_directory/internal/adapters/observability"
	redisad "help_directory/internal/adapters/redis"
	"help_directory/internal/app"
	"help_directory/internal/domain"
	"help_directory/internal/shared"
	mysqlrepo "help_directory/internal/storage/mysql"
)

const nominatimInterval = time.Second

func usage() {
	fmt.Fprintln(os.Stderr, "usage: importer <categories|facilities|details|links|assign|geocode|seed> [flags]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	repo := mysqlrepo.New(db)

	// importers evict stale read models; the pipeline still works when redis is down
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	var c domain.Cache = cache
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, cache eviction disabled")
		c = nil
	}

	l := observability.CommandLogger(log.Logger, cmd)
	rep, err := run(ctx, cmd, args, cfg, repo, c, l)
	if err != nil {
		l.Error().Err(err).Msg("command failed")
		rep.Log(l)
		os.Exit(1)
	}
	rep.Log(l)
}

func run(ctx context.Context, cmd string, args []string, cfg shared.Config, repo *mysqlrepo.Repo, cache domain.Cache, l zerolog.Logger) (app.Report, error) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	switch cmd {
	case "categories":
		dir := fs.String("html-dir", cfg.HTMLCacheDir, "root of the cached legacy site")
		_ = fs.Parse(args)
		return app.NewCategoryImporter(repo, repo, *dir, l).Run(ctx)

	case "facilities":
		manifest := fs.String("manifest", cfg.ManifestPath, "crawler manifest (placowki_data.json)")
		dir := fs.String("html-dir", cfg.PlacowkaDir(), "folder with cached facility pages")
		base := fs.String("base-url", cfg.LegacyBaseURL, "base for canonical links")
		_ = fs.Parse(args)
		imp, err := app.NewFacilityImporter(repo, cache, *manifest, *dir, *base, l)
		if err != nil {
			return app.Report{Command: cmd}, err
		}
		return imp.Run(ctx)

	case "details":
		dir := fs.String("html-dir", cfg.PlacowkaDir(), "folder with cached facility pages")
		_ = fs.Parse(args)
		return app.NewDetailImporter(repo, repo, cache, *dir, l).Run(ctx)

	case "links":
		dir := fs.String("html-dir", cfg.HTMLCacheDir, "root of the cached legacy site")
		_ = fs.Parse(args)
		return app.NewCategoryLinker(repo, repo, *dir, l).Run(ctx)

	case "assign":
		_ = fs.Parse(args)
		return app.NewLinkageService(repo, repo, cache, l).Run(ctx)

	case "geocode":
		force := fs.Bool("force", false, "geocode facilities that already have coordinates")
		provider := fs.String("provider", cfg.GeocodeProvider, "nominatim or mapbox")
		_ = fs.Parse(args)
		g, err := newGeocoder(*provider, cfg)
		if err != nil {
			return app.Report{Command: cmd}, err
		}
		return app.NewGeocodingService(repo, g, cache, l).Run(ctx, *force)

	case "seed":
		_ = fs.Parse(args)
		seeds, err := app.DefaultSeeds()
		if err != nil {
			return app.Report{Command: cmd}, err
		}
		return app.NewSeeder(repo, repo, l).Run(ctx, seeds)
	}
	usage()
	return app.Report{}, nil
}

func newGeocoder(provider string, cfg shared.Config) (domain.Geocoder, error) {
	switch provider {
	case "nominatim":
		return geocode.NewNominatim(cfg.NominatimURL, cfg.UserAgent, nominatimInterval)
	case "mapbox":
		return geocode.NewMapbox(cfg.MapboxURL, cfg.MapboxToken)
	}
	return nil, fmt.Errorf("unknown geocoding provider %q", provider)
}
