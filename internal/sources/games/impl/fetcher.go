package impl

import (
	"bytes"
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/sources/games"
	"github.com/bakkerme/manifest-watch/internal/sources/web"
)

// Getter is the subset of web.Client used by the fetcher.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Fetcher struct {
	client Getter
	url    string
}

var _ games.Fetcher = (*Fetcher)(nil)
var _ Getter = (*web.Client)(nil)

func NewFetcher(client Getter, url string) *Fetcher {
	return &Fetcher{client: client, url: url}
}

// Fetch downloads the catalog. A body that is not a JSON array yields an empty
// result, never "every game removed".
func (f *Fetcher) Fetch(ctx context.Context) core.FetchResult {
	body, err := f.client.Get(ctx, f.url)
	if err != nil {
		return core.FetchError(fmt.Errorf("fetch catalog: %w", err))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return core.FetchError(fmt.Errorf("decode catalog: %w: %v", core.ErrBadShape, err))
	}
	records, ok := raw.([]any)
	if !ok {
		return core.FetchError(fmt.Errorf("decode catalog: %w: got %T", core.ErrBadShape, raw))
	}
	return core.Fetched(games.NormalizeAll(records))
}
