// Command crawler mirrors the legacy help site into the local HTML cache and writes
// the facility manifest consumed by "importer facilities".
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"help_directory/internal/adapters/legacysite"
	"help_directory/internal/adapters/observability"
	"help_directory/internal/shared"
)

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	base := flag.String("base-url", cfg.LegacyBaseURL, "legacy site root")
	dir := flag.String("out", cfg.HTMLCacheDir, "cache directory")
	manifest := flag.String("manifest", cfg.ManifestPath, "manifest output path")
	delay := flag.Duration("delay", cfg.CrawlDelay, "pause between requests")
	flag.Parse()

	observability.Serve(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := observability.CommandLogger(log.Logger, "crawl")
	c, err := legacysite.NewCrawler(*base, cfg.UserAgent, *delay, legacysite.Store{Dir: *dir})
	if err != nil {
		l.Fatal().Err(err).Msg("crawler init failed")
	}

	start := time.Now()
	entries, err := c.Run(ctx)
	if err != nil {
		l.Error().Err(err).Msg("crawl interrupted, saving what was found")
	}
	if err := legacysite.SaveManifest(*manifest, entries); err != nil {
		l.Fatal().Err(err).Msg("write manifest failed")
	}
	l.Info().Int("facilities", len(entries)).Str("manifest", *manifest).
		Dur("took", time.Since(start)).Msg("crawl finished")
}
