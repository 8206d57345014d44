package commands

import (
	"context"
	"strings"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/detect"
	"github.com/bakkerme/manifest-watch/internal/notify"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
)

// List pages through the whole catalog.
func (h *Handlers) List(ctx context.Context) (Reply, error) {
	result := h.deps.Games.Fetch(ctx)
	if !result.OK() {
		return failure("game list", result), result.Err
	}
	lines := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		lines = append(lines, notify.GameLine(item))
	}
	pages := notify.Paginate(lines, h.deps.Pagination.ListPageSize)
	return Reply{Messages: h.deps.Renderer.GameListPages(len(result.Items), pages), Paged: true}, nil
}

// Search matches the query case-insensitively against titles and as a substring
// of app ids.
func (h *Handlers) Search(ctx context.Context, query string) (Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Text("⚠ Please enter a game name or App ID."), nil
	}
	result := h.deps.Games.Fetch(ctx)
	if !result.OK() {
		return failure("game list", result), result.Err
	}
	lower := strings.ToLower(query)
	var lines []string
	for _, item := range result.Items {
		appID := ""
		if item.Game != nil {
			appID = item.Game.AppID
		}
		if strings.Contains(strings.ToLower(item.Key), lower) || strings.Contains(appID, query) {
			lines = append(lines, notify.GameLine(item))
		}
	}
	if len(lines) == 0 {
		return Text("⚠ No games found matching: `%s`", query), nil
	}
	pages := notify.Paginate(lines, h.deps.Pagination.ListPageSize)
	return Reply{Messages: h.deps.Renderer.SearchPages(query, pages), Paged: true}, nil
}

// ShowNew lists the games the next poll would announce as new.
func (h *Handlers) ShowNew(ctx context.Context) (Reply, error) {
	return h.showDetected(ctx, core.FeatureNew)
}

// ShowUpdated runs the updated-games query in the background. The caller either
// waits on the job or lets it finish on its own; Close waits for it either way.
func (h *Handlers) ShowUpdated(ctx context.Context) *Job {
	job := newJob()
	h.jobs.Go(func() {
		job.finish(h.showDetected(ctx, core.FeatureUpdate))
	})
	return job
}

func (h *Handlers) showDetected(ctx context.Context, feature core.Feature) (Reply, error) {
	result := h.deps.Games.Fetch(ctx)
	if !result.OK() {
		return failure("game list", result), result.Err
	}
	items := h.deps.Filters.Apply(ctx, result.Items)
	detected := detect.Games(items, h.deps.Store.Snapshot(core.KindGame))

	found := detected.New
	if feature == core.FeatureUpdate {
		found = detected.Updated
	}
	if len(found) == 0 {
		if feature == core.FeatureUpdate {
			return Text("⚠ No UPDATED games found."), nil
		}
		return Text("⚠ No newly added games found."), nil
	}

	limit := h.deps.Pagination.ShowNewLimit
	shown := found
	if len(shown) > limit {
		shown = shown[:limit]
	}
	messages := make([]chat.Message, 0, len(shown)+1)
	for _, item := range shown {
		messages = append(messages, h.deps.Renderer.Game(item, feature))
	}
	if len(found) > limit {
		label := "new"
		if feature == core.FeatureUpdate {
			label = "updated"
		}
		messages = append(messages, Text("✅ %d %s games found — showing first %d.", len(found), label, limit).Messages...)
	}
	return Reply{Messages: messages}, nil
}

// Fixes pages through the current fixes listing.
func (h *Handlers) Fixes(ctx context.Context) (Reply, error) {
	result := h.deps.Fixes.Fetch(ctx)
	if !result.OK() {
		return failure("fixes", result), result.Err
	}
	lines := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		lines = append(lines, notify.FixLine(item))
	}
	pages := notify.Paginate(lines, h.deps.Pagination.FixesPageSize)
	return Reply{Messages: h.deps.Renderer.FixesPages(pages), Paged: true}, nil
}
