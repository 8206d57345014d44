package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/detect"
	"github.com/bakkerme/manifest-watch/internal/notify"
	"github.com/bakkerme/manifest-watch/internal/observability/otelx"
)

// route maps a detection bucket to the feature whose binding receives it.
type route struct {
	feature core.Feature
	items   func(detect.Result) []core.Item
}

// Watch polls one source and notifies the bound channels about changes.
type Watch struct {
	name    string
	kind    core.Kind
	fetcher Fetcher
	routes  []route
	deps    Deps
}

// NewGames watches the catalog. New games go to the "new" binding and changed
// games to the "update" binding.
func NewGames(deps Deps, fetcher Fetcher) *Watch {
	return &Watch{
		name:    "games",
		kind:    core.KindGame,
		fetcher: fetcher,
		deps:    deps,
		routes: []route{
			{feature: core.FeatureNew, items: func(r detect.Result) []core.Item { return r.New }},
			{feature: core.FeatureUpdate, items: func(r detect.Result) []core.Item { return r.Updated }},
		},
	}
}

// NewFixes watches the fixes listing. New fixes go to the "fixed" binding.
func NewFixes(deps Deps, fetcher Fetcher) *Watch {
	return &Watch{
		name:    "fixes",
		kind:    core.KindFix,
		fetcher: fetcher,
		deps:    deps,
		routes: []route{
			{feature: core.FeatureFixed, items: func(r detect.Result) []core.Item { return r.New }},
		},
	}
}

func (w *Watch) Name() string {
	return w.name
}

// Run holds the kind lock from the snapshot read until the commit, so two runs over
// the same snapshot never interleave. A fetch that yields nothing is a skipped run,
// not an error: the snapshot is left as is and the next tick tries again.
func (w *Watch) Run(ctx context.Context) (run *core.Run, err error) {
	started := time.Now()
	run = &core.Run{
		ID:        uuid.NewString(),
		Pipeline:  w.name,
		StartedAt: started.UTC(),
		Status:    core.RunStatusRunning,
	}
	logger := w.deps.logger().With("pipeline", w.name, "run_id", run.ID)
	ctx = core.WithLogger(core.WithRunID(ctx, run.ID), logger)
	ctx, span := otelx.Start(ctx, "pipeline."+w.name, attribute.String("pipeline", w.name))
	defer func() {
		otelx.End(span, err)
		w.deps.Metrics.ObservePipeline(w.name, time.Since(started), err)
	}()

	unlock := w.deps.Store.Lock(w.kind)
	defer unlock()

	fetched := w.fetcher.Fetch(ctx)
	run.Fetch = fetched.Status
	w.deps.Metrics.ObserveFetch(w.name, string(fetched.Status))
	if !fetched.OK() {
		if fetched.Err != nil {
			logger.Warn("fetch failed, skipping run", "status", fetched.Status, "error", fetched.Err)
		} else {
			logger.Info("fetch returned no items, skipping run", "status", fetched.Status)
		}
		run.Finish(core.RunStatusSkipped)
		return run, nil
	}

	items := w.deps.Filters.Apply(ctx, fetched.Items)
	result := detect.Detect(w.kind, items, w.deps.Store.Snapshot(w.kind))
	run.New = len(result.New)
	run.Updated = len(result.Updated)
	if result.Empty() {
		logger.Debug("no changes detected", "fetched", len(fetched.Items), "kept", len(items))
		run.Finish(core.RunStatusCompleted)
		return run, nil
	}

	for _, r := range w.routes {
		routed := r.items(result)
		w.deps.Metrics.ObserveDetected(string(r.feature), len(routed))
		if len(routed) == 0 {
			continue
		}
		channel, bound := w.deps.Store.Binding(r.feature)
		if !bound {
			logger.Info("feature has no channel bound, skipping delivery", "feature", r.feature, "items", len(routed))
			continue
		}
		outcomes := w.deps.Notifier.Deliver(ctx, r.feature, routed, channel)
		failed := notify.Failed(outcomes)
		run.Delivered += len(outcomes) - failed
		run.Failed += failed
	}

	// Seen state is committed even when deliveries failed.
	if err := w.deps.Store.Commit(ctx, w.kind, result.Snapshot); err != nil {
		run.Finish(core.RunStatusFailed)
		return run, fmt.Errorf("commit %s snapshot: %w", w.kind, err)
	}
	run.Finish(core.RunStatusCompleted)
	logger.Info("pipeline run completed",
		"new", run.New,
		"updated", run.Updated,
		"delivered", run.Delivered,
		"failed", run.Failed,
	)
	return run, nil
}
