package web

import (
	"context"
	"os"
	"os/exec"

	"github.com/chromedp/chromedp"
)

var chromeNames = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
}

// LocateChrome reports the Chrome binary a browser context would start: execPath
// when it is set, otherwise the first well-known name found on PATH.
func LocateChrome(execPath string) (string, bool) {
	if execPath != "" {
		if _, err := os.Stat(execPath); err != nil {
			return execPath, false
		}
		return execPath, true
	}
	for _, name := range chromeNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// NewBrowserContext starts a headless Chrome tied to ctx. The returned func shuts
// the browser down and must always be called, including after a timeout.
func NewBrowserContext(ctx context.Context, execPath string) (context.Context, context.CancelFunc) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.NoSandbox, chromedp.DisableGPU)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	return browserCtx, func() {
		cancelBrowser()
		cancelAlloc()
	}
}
