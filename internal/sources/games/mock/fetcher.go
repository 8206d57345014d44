package mock

import (
	"context"
	"sync"

	"github.com/bakkerme/manifest-watch/internal/core"
)

// Fetcher returns queued results in order and repeats the last one once the queue
// is drained.
type Fetcher struct {
	mu      sync.Mutex
	Results []core.FetchResult
	Calls   int
}

func (f *Fetcher) Fetch(ctx context.Context) core.FetchResult {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if len(f.Results) == 0 {
		return core.FetchResult{Status: core.FetchEmpty}
	}
	result := f.Results[0]
	if len(f.Results) > 1 {
		f.Results = f.Results[1:]
	}
	return result
}

// Items is a convenience for a single successful fetch.
func Items(items ...core.Item) *Fetcher {
	return &Fetcher{Results: []core.FetchResult{core.Fetched(items)}}
}
