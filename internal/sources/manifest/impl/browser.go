package impl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"github.com/bakkerme/manifest-watch/internal/sources/manifest"
	"github.com/bakkerme/manifest-watch/internal/sources/web"
)

const (
	inputSelector  = `input[type='text']`
	submitSelector = `button[type='submit']`
)

// BrowserDownloader drives the manifest generator page and captures the file it
// downloads.
type BrowserDownloader struct {
	pageURL  string
	execPath string
	timeout  time.Duration
}

var _ manifest.Downloader = (*BrowserDownloader)(nil)

func NewBrowserDownloader(pageURL, execPath string, timeout time.Duration) *BrowserDownloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrowserDownloader{pageURL: pageURL, execPath: execPath, timeout: timeout}
}

func (d *BrowserDownloader) Download(ctx context.Context, appID string) (manifest.File, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "manifest-*")
	if err != nil {
		return manifest.File{}, fmt.Errorf("create download dir: %w", err)
	}
	defer os.RemoveAll(dir)

	browserCtx, closeBrowser := web.NewBrowserContext(ctx, d.execPath)
	defer closeBrowser()

	done := make(chan *browser.EventDownloadProgress, 1)
	chromedp.ListenTarget(browserCtx, func(ev any) {
		progress, ok := ev.(*browser.EventDownloadProgress)
		if !ok {
			return
		}
		if progress.State == browser.DownloadProgressStateCompleted || progress.State == browser.DownloadProgressStateCanceled {
			select {
			case done <- progress:
			default:
			}
		}
	})

	err = chromedp.Run(browserCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
		chromedp.Navigate(d.pageURL),
		chromedp.WaitVisible(inputSelector, chromedp.ByQuery),
		chromedp.SendKeys(inputSelector, appID, chromedp.ByQuery),
		chromedp.Click(submitSelector, chromedp.ByQuery),
	)
	if err != nil {
		return manifest.File{}, fmt.Errorf("submit app id: %w", err)
	}

	var progress *browser.EventDownloadProgress
	select {
	case <-ctx.Done():
		return manifest.File{}, fmt.Errorf("wait for manifest download: %w", ctx.Err())
	case progress = <-done:
	}
	if progress.State != browser.DownloadProgressStateCompleted {
		return manifest.File{}, fmt.Errorf("manifest download %s", progress.State)
	}

	// AllowAndName stores the file under its download GUID.
	data, err := os.ReadFile(filepath.Join(dir, progress.GUID))
	if err != nil {
		return manifest.File{}, fmt.Errorf("read manifest download: %w", err)
	}
	if len(data) == 0 {
		return manifest.File{}, fmt.Errorf("manifest download is empty")
	}
	return manifest.File{Name: manifest.FileName(appID), Data: data}, nil
}
