package fixes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bakkerme/manifest-watch/internal/core"
)

// CachedScraper runs the scripted scrape and keeps the cache file current. When the
// scrape fails it serves the cache; with no cache the result is empty.
type CachedScraper struct {
	scraper Scraper
	cache   *Cache
	logger  *slog.Logger
}

func NewCachedScraper(scraper Scraper, cache *Cache, logger *slog.Logger) *CachedScraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedScraper{scraper: scraper, cache: cache, logger: logger}
}

func (c *CachedScraper) Fetch(ctx context.Context) core.FetchResult {
	entries, err := c.scraper.Scrape(ctx)
	if err == nil && len(entries) > 0 {
		if saveErr := c.cache.Save(entries); saveErr != nil {
			c.logger.Warn("failed to save fixes cache", "error", saveErr)
		}
		return core.Fetched(Items(entries))
	}
	if err == nil {
		err = fmt.Errorf("scripted scrape returned no fixes")
	}
	c.logger.Warn("scripted fixes scrape failed, using cache", "error", err)

	cached, cacheErr := c.cache.Load()
	if cacheErr != nil {
		c.logger.Warn("failed to load fixes cache", "error", cacheErr)
		return core.FetchError(fmt.Errorf("scrape fixes: %w", err))
	}
	if len(cached) == 0 {
		return core.FetchError(fmt.Errorf("scrape fixes: %w", err))
	}
	return core.Fetched(Items(cached))
}

// Chain tries each fetcher in turn and returns the first result with items. When
// none succeed the last result is returned.
type Chain []Fetcher

func (c Chain) Fetch(ctx context.Context) core.FetchResult {
	last := core.FetchResult{Status: core.FetchEmpty}
	for _, fetcher := range c {
		result := fetcher.Fetch(ctx)
		if result.OK() {
			return result
		}
		last = result
		if ctx.Err() != nil {
			break
		}
	}
	return last
}
