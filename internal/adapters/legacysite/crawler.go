package legacysite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"help_directory/internal/adapters/observability"
)

const (
	alphabeticalSegment = "alfabetyczny_spis_wszystkich_placowek"
	categoriesSegment   = "kategorie-placowek"
)

var ErrStatus = errors.New("legacysite: bad status")

// Crawler walks the legacy help site and mirrors every page it touches into the cache.
// It is sequential; one Crawler per run.
type Crawler struct {
	base  *url.URL
	hc    *http.Client
	rl    *rate.Limiter
	ua    string
	store Store

	visited   map[string]bool // pages saved to the cache
	processed map[string]bool // facility pages already in the manifest
	entries   []ManifestEntry
}

func NewCrawler(base, userAgent string, delay time.Duration, store Store) (*Crawler, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if delay <= 0 {
		delay = time.Second
	}
	return &Crawler{
		base:      u,
		hc:        &http.Client{Timeout: 10 * time.Second},
		rl:        rate.NewLimiter(rate.Every(delay), 1),
		ua:        userAgent,
		store:     store,
		visited:   map[string]bool{},
		processed: map[string]bool{},
	}, nil
}

// Run crawls the alphabetical index and the category index and returns the manifest.
// Page level failures are logged and skipped; only context cancellation aborts the run.
func (c *Crawler) Run(ctx context.Context) ([]ManifestEntry, error) {
	c.crawlAlphabetical(ctx)
	if err := ctx.Err(); err != nil {
		return c.entries, err
	}
	c.crawlCategories(ctx)
	return c.entries, ctx.Err()
}

func (c *Crawler) crawlAlphabetical(ctx context.Context) {
	mainURL := c.resolve(c.base, alphabeticalSegment)
	doc, contentURL, err := c.fetch(ctx, mainURL)
	if err != nil {
		log.Error().Err(err).Str("url", mainURL).Msg("alphabetical index unavailable")
		return
	}

	letters := map[string]bool{}
	for _, a := range Anchors(doc.Selection) {
		text := []rune(a.Text)
		if strings.Contains(a.Href, "litera=") || strings.Contains(a.Href, "start=") ||
			(len(text) == 1 && unicode.IsLetter(text[0])) {
			letters[c.resolveRef(contentURL, a.Href)] = true
		}
	}
	if len(letters) == 0 {
		letters[mainURL] = true
	}

	for _, letterURL := range sortedKeys(letters) {
		if ctx.Err() != nil {
			return
		}
		ldoc, lurl, err := c.fetch(ctx, letterURL)
		if err != nil {
			log.Warn().Err(err).Str("url", letterURL).Msg("letter page skipped")
			continue
		}
		c.facilities(ctx, ldoc, lurl, letterURL, `td a[href*="help/placowka/"]`)
	}
}

func (c *Crawler) crawlCategories(ctx context.Context) {
	mainURL := c.resolve(c.base, categoriesSegment)
	doc, contentURL, err := c.fetch(ctx, mainURL)
	if err != nil {
		log.Error().Err(err).Str("url", mainURL).Msg("category index unavailable")
		return
	}

	cats := map[string]bool{}
	doc.Find("div.views-field-name span.field-content a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		cats[c.resolveRef(contentURL, href)] = true
	})
	if len(cats) == 0 {
		cats[mainURL] = true
	}

	for _, catURL := range sortedKeys(cats) {
		if ctx.Err() != nil {
			return
		}
		cdoc, curl, err := c.fetch(ctx, catURL)
		if err != nil {
			log.Warn().Err(err).Str("url", catURL).Msg("category page skipped")
			continue
		}
		c.facilities(ctx, cdoc, curl, catURL, `article header h2 a[href*="help/placowka/"]`)
	}
}

// facilities fetches every facility linked from a listing page and records it in the manifest.
func (c *Crawler) facilities(ctx context.Context, doc *goquery.Document, contentURL, parentURL, sel string) {
	urls := map[string]bool{}
	doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		urls[c.resolveRef(contentURL, href)] = true
	})
	for _, u := range sortedKeys(urls) {
		if ctx.Err() != nil {
			return
		}
		if c.processed[u] {
			continue
		}
		fdoc, furl, err := c.fetch(ctx, u)
		if err != nil {
			log.Warn().Err(err).Str("url", u).Msg("facility page skipped")
			continue
		}
		name := strings.TrimSpace(fdoc.Find("h1.page-header").First().Text())
		if name == "" {
			log.Warn().Str("url", furl).Msg("facility page without name")
			continue
		}
		c.processed[u] = true
		c.processed[furl] = true
		c.entries = append(c.entries, ManifestEntry{Name: name, URL: furl, ParentURL: parentURL})
		log.Info().Str("facility", name).Str("url", furl).Msg("facility crawled")
	}
}

// fetch returns the parsed page, following the first iframe/frame when present.
// The second return value is the URL the content actually came from.
func (c *Crawler) fetch(ctx context.Context, pageURL string) (*goquery.Document, string, error) {
	body, err := c.page(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}
	doc, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}

	src, ok := doc.Find("iframe[src]").First().Attr("src")
	if !ok {
		src, ok = doc.Find("frame[src]").First().Attr("src")
	}
	if !ok || strings.TrimSpace(src) == "" {
		return doc, pageURL, nil
	}
	frameURL := c.resolveRef(pageURL, src)
	fbody, err := c.page(ctx, frameURL)
	if err != nil {
		return nil, "", fmt.Errorf("frame %s: %w", frameURL, err)
	}
	fdoc, err := Parse(bytes.NewReader(fbody))
	if err != nil {
		return nil, "", err
	}
	return fdoc, frameURL, nil
}

// page returns the raw page, from the cache when it was already fetched in this run.
func (c *Crawler) page(ctx context.Context, pageURL string) ([]byte, error) {
	if c.visited[pageURL] {
		if b, err := c.store.Load(pageURL); err == nil {
			return b, nil
		}
	}
	b, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if p, err := c.store.Save(pageURL, b); err != nil {
		log.Error().Err(err).Str("url", pageURL).Msg("cache write failed")
	} else {
		log.Debug().Str("url", pageURL).Str("path", p).Msg("page saved")
	}
	c.visited[pageURL] = true
	return b, nil
}

func (c *Crawler) get(ctx context.Context, pageURL string) ([]byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("legacysite", "page", 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("legacysite", "page", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Crawler) resolve(base *url.URL, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return base.String() + ref
	}
	return base.ResolveReference(r).String()
}

func (c *Crawler) resolveRef(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return c.resolve(b, strings.TrimSpace(ref))
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
