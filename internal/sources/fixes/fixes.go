// Package fixes turns the upstream fixes listing into fix items.
package fixes

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/bakkerme/manifest-watch/internal/core"
)

// Entry is one downloadable fix as listed upstream and stored in the cache file.
type Entry struct {
	Title    string `json:"title"`
	Download string `json:"download"`
	Size     string `json:"size"`
}

func (e Entry) Item() core.Item {
	return core.NewFix(e.Title, e.Download, e.Size)
}

// Scraper extracts entries from the fixes page.
type Scraper interface {
	Scrape(ctx context.Context) ([]Entry, error)
}

// Fetcher returns the current fixes as normalized items.
type Fetcher interface {
	Fetch(ctx context.Context) core.FetchResult
}

var archiveSuffix = regexp.MustCompile(`(?i)\.(zip|rar|7z|tar\.gz)$`)

// NormalizeTitle strips a trailing archive extension and surrounding whitespace.
func NormalizeTitle(name string) string {
	return strings.TrimSpace(archiveSuffix.ReplaceAllString(strings.TrimSpace(name), ""))
}

// TitleFromHref derives a title from the last path segment of a download link.
func TitleFromHref(href string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(href), "/")
	if trimmed == "" {
		return ""
	}
	segment := trimmed
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		segment = trimmed[idx+1:]
	}
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}
	return NormalizeTitle(segment)
}

// ResolveURL makes a relative link absolute against the scheme and host of
// pageURL; the page path never prefixes the link. Absolute links and unparsable
// input are returned unchanged.
func ResolveURL(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || pageURL == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return href
	}
	page, err := url.Parse(pageURL)
	if err != nil || page.Host == "" {
		return href
	}
	origin := &url.URL{Scheme: page.Scheme, Host: page.Host, Path: "/"}
	return origin.ResolveReference(ref).String()
}

// Dedupe drops entries whose title was already seen, keeping first-seen order.
func Dedupe(entries []Entry) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Title]; ok {
			continue
		}
		seen[e.Title] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Items converts entries to fix items, skipping untitled ones.
func Items(entries []Entry) []core.Item {
	items := make([]core.Item, 0, len(entries))
	for _, e := range entries {
		if e.Title == "" {
			continue
		}
		items = append(items, e.Item())
	}
	return items
}
