package impl

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/sources/status"
)

// blockSelector matches the per-server indicator blocks of the status page.
const blockSelector = "div.truncate.text-xs.font-semibold.text-api-up"

type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Fetcher struct {
	client  Getter
	pageURL string
}

var _ status.Fetcher = (*Fetcher)(nil)

func NewFetcher(client Getter, pageURL string) *Fetcher {
	return &Fetcher{client: client, pageURL: pageURL}
}

func (f *Fetcher) Fetch(ctx context.Context) status.Report {
	body, err := f.client.Get(ctx, f.pageURL)
	if err != nil {
		return status.Failed(fmt.Errorf("fetch status page: %w", err))
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return status.Failed(fmt.Errorf("parse status page: %w", err))
	}

	var blocks []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, s.Text())
	})
	result := core.FetchOK
	if len(blocks) == 0 {
		result = core.FetchEmpty
	}
	return status.Report{Lines: status.FormatLines(blocks), Status: result}
}
