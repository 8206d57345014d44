package impl

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/bakkerme/manifest-watch/internal/sources/fixes"
	"github.com/bakkerme/manifest-watch/internal/sources/web"
)

const extractFileItems = `Array.from(document.querySelectorAll('.file-item')).map(function (el) {
	var name = el.querySelector('.file-name');
	var size = el.querySelector('.file-size');
	return {
		name: name ? name.innerText : '',
		size: size ? size.innerText : '',
		href: el.getAttribute('href') || ''
	};
})`

type BrowserOptions struct {
	// ExecPath overrides the Chrome binary; empty lets chromedp look it up.
	ExecPath    string
	Timeout     time.Duration
	WaitTimeout time.Duration
	Scrolls     int
	Settle      time.Duration
}

// BrowserScraper renders the fixes page in headless Chrome so lazily loaded
// entries are present before extraction.
type BrowserScraper struct {
	pageURL string
	options BrowserOptions
}

var _ fixes.Scraper = (*BrowserScraper)(nil)

func NewBrowserScraper(pageURL string, options BrowserOptions) *BrowserScraper {
	if options.Timeout <= 0 {
		options.Timeout = 45 * time.Second
	}
	if options.WaitTimeout <= 0 {
		options.WaitTimeout = 30 * time.Second
	}
	if options.Scrolls <= 0 {
		options.Scrolls = 5
	}
	if options.Settle <= 0 {
		options.Settle = time.Second
	}
	return &BrowserScraper{pageURL: pageURL, options: options}
}

type fileItem struct {
	Name string `json:"name"`
	Size string `json:"size"`
	Href string `json:"href"`
}

func (b *BrowserScraper) Scrape(ctx context.Context) ([]fixes.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, b.options.Timeout)
	defer cancel()

	browserCtx, closeBrowser := web.NewBrowserContext(ctx, b.options.ExecPath)
	defer closeBrowser()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(b.pageURL)); err != nil {
		return nil, fmt.Errorf("open fixes page: %w", err)
	}

	waitCtx, cancelWait := context.WithTimeout(browserCtx, b.options.WaitTimeout)
	err := chromedp.Run(waitCtx, chromedp.WaitReady(".file-item", chromedp.ByQuery))
	cancelWait()
	if err != nil {
		return nil, fmt.Errorf("wait for fixes list: %w", err)
	}

	scroll := make([]chromedp.Action, 0, b.options.Scrolls*2)
	for i := 0; i < b.options.Scrolls; i++ {
		scroll = append(scroll,
			chromedp.Evaluate(`window.scrollBy(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(b.options.Settle),
		)
	}
	if err := chromedp.Run(browserCtx, scroll...); err != nil {
		return nil, fmt.Errorf("scroll fixes list: %w", err)
	}

	var rows []fileItem
	if err := chromedp.Run(browserCtx, chromedp.Evaluate(extractFileItems, &rows)); err != nil {
		return nil, fmt.Errorf("extract fixes: %w", err)
	}
	return entriesFromItems(b.pageURL, rows), nil
}

func entriesFromItems(pageURL string, rows []fileItem) []fixes.Entry {
	entries := make([]fixes.Entry, 0, len(rows))
	for _, row := range rows {
		title := fixes.NormalizeTitle(row.Name)
		if title == "" {
			continue
		}
		entries = append(entries, fixes.Entry{
			Title:    title,
			Download: fixes.ResolveURL(pageURL, row.Href),
			Size:     row.Size,
		})
	}
	return entries
}
