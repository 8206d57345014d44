// Package commands answers the on-demand slash commands. Queries fetch fresh
// upstream data and never change the stored snapshots.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"

	"github.com/bakkerme/manifest-watch/internal/config"
	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/filter"
	"github.com/bakkerme/manifest-watch/internal/notify"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
	"github.com/bakkerme/manifest-watch/internal/pipeline"
	"github.com/bakkerme/manifest-watch/internal/sources/manifest"
	"github.com/bakkerme/manifest-watch/internal/sources/steam"
	"github.com/bakkerme/manifest-watch/internal/store"
)

// Deps are the collaborators shared by every command.
type Deps struct {
	Games          pipeline.Fetcher
	Fixes          pipeline.Fetcher
	Store          *store.Store
	StatusBindings *store.StatusBindings
	Sender         chat.Sender
	Renderer       notify.Renderer
	Filters        filter.Rules
	Steam          steam.Lookup
	Manifests      manifest.Downloader
	Pagination     config.PaginationSettings
	Logger         *slog.Logger
}

// Reply is a command's answer. A paged reply is shown as one message whose
// content is replaced page by page; otherwise every message is posted.
type Reply struct {
	Messages []chat.Message
	Paged    bool
}

// Text is a reply made of one plain message.
func Text(format string, args ...any) Reply {
	return Reply{Messages: []chat.Message{{Content: fmt.Sprintf(format, args...)}}}
}

type Handlers struct {
	deps Deps
	jobs conc.WaitGroup
}

func New(deps Deps) *Handlers {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	defaults := config.DefaultSettings().Pagination
	if deps.Pagination.ListPageSize <= 0 {
		deps.Pagination.ListPageSize = defaults.ListPageSize
	}
	if deps.Pagination.FixesPageSize <= 0 {
		deps.Pagination.FixesPageSize = defaults.FixesPageSize
	}
	if deps.Pagination.ShowNewLimit <= 0 {
		deps.Pagination.ShowNewLimit = defaults.ShowNewLimit
	}
	return &Handlers{deps: deps}
}

// Close waits for background jobs to finish.
func (h *Handlers) Close() {
	h.jobs.Wait()
}

// failure turns a fetch that produced nothing into the message shown to the user.
func failure(subject string, result core.FetchResult) Reply {
	switch result.Status {
	case core.FetchTimedOut:
		return Text("❌ Failed to load %s: the upstream did not answer in time.", subject)
	case core.FetchForbidden:
		return Text("❌ Failed to load %s: the upstream refused the request.", subject)
	default:
		return Text("❌ Failed to load %s.", subject)
	}
}
