package impl

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/sources/fixes"
)

type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// MarkupScanner reads the fixes page without running its scripts. It only sees
// entries present in the served markup.
type MarkupScanner struct {
	client  Getter
	pageURL string
}

var _ fixes.Fetcher = (*MarkupScanner)(nil)

func NewMarkupScanner(client Getter, pageURL string) *MarkupScanner {
	return &MarkupScanner{client: client, pageURL: pageURL}
}

func (m *MarkupScanner) Fetch(ctx context.Context) core.FetchResult {
	body, err := m.client.Get(ctx, m.pageURL)
	if err != nil {
		return core.FetchError(fmt.Errorf("fetch fixes page: %w", err))
	}
	entries, err := ParseMarkup(m.pageURL, body)
	if err != nil {
		return core.FetchError(err)
	}
	return core.Fetched(fixes.Items(entries))
}

// ParseMarkup extracts a.file-item anchors. An anchor without a .file-name takes
// its title from the last segment of its link.
func ParseMarkup(pageURL string, body []byte) ([]fixes.Entry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse fixes page: %w", err)
	}

	var entries []fixes.Entry
	doc.Find("a.file-item").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		name := strings.TrimSpace(s.Find(".file-name").First().Text())
		size := strings.TrimSpace(s.Find(".file-size").First().Text())

		title := fixes.NormalizeTitle(name)
		if name == "" {
			title = fixes.TitleFromHref(href)
		}
		if title == "" {
			return
		}
		entries = append(entries, fixes.Entry{
			Title:    title,
			Download: fixes.ResolveURL(pageURL, href),
			Size:     size,
		})
	})
	return fixes.Dedupe(entries), nil
}
