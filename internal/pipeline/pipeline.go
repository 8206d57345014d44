// Package pipeline runs one fetch, detect, notify and persist pass per source.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/filter"
	"github.com/bakkerme/manifest-watch/internal/notify"
	"github.com/bakkerme/manifest-watch/internal/observability/metrics"
	"github.com/bakkerme/manifest-watch/internal/store"
)

// Pipeline is one scheduled unit of work.
type Pipeline interface {
	Name() string
	Run(ctx context.Context) (*core.Run, error)
}

// Fetcher is satisfied by both the games and the fixes sources.
type Fetcher interface {
	Fetch(ctx context.Context) core.FetchResult
}

// Deps are shared by the watch pipelines.
type Deps struct {
	Store    *store.Store
	Notifier *notify.Notifier
	Filters  filter.Rules
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
