package shared

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration
	HTTPTimeout time.Duration

	// batch pipeline
	HTMLCacheDir  string
	ManifestPath  string
	LegacyBaseURL string
	CrawlDelay    time.Duration
	UserAgent     string

	// geocoding
	GeocodeProvider string
	NominatimURL    string
	MapboxURL       string
	MapboxToken     string
}

// Load reads the configuration from the environment. A .env file in the working
// directory is applied first; variables already set win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env not loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", ""),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/help_directory?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		HTTPTimeout: time.Duration(atoi("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,

		HTMLCacheDir:  env("HTML_CACHE_DIR", filepath.Join("data", "scraped_hyperreal_help_html")),
		ManifestPath:  env("MANIFEST_PATH", filepath.Join("data", "placowki_data.json")),
		LegacyBaseURL: env("LEGACY_BASE_URL", "https://hyperreal.info/help/"),
		CrawlDelay:    time.Duration(atoi("CRAWL_DELAY_MS", 1000)) * time.Millisecond,
		UserAgent:     env("USER_AGENT", "help-directory/1.0 (kontakt@hyperreal.info)"),

		GeocodeProvider: env("GEOCODE_PROVIDER", "nominatim"),
		NominatimURL:    env("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		MapboxURL:       env("MAPBOX_URL", "https://api.mapbox.com"),
		MapboxToken:     env("MAPBOX_TOKEN", ""),
	}
	if c.GeocodeProvider == "mapbox" && c.MapboxToken == "" {
		log.Warn().Msg("MAPBOX_TOKEN is empty")
	}
	return c
}

// PlacowkaDir is the cache folder holding one page per facility.
func (c Config) PlacowkaDir() string { return filepath.Join(c.HTMLCacheDir, "placowka") }

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
