// Package factory builds the long-lived components from the environment and the
// settings document.
package factory

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bakkerme/manifest-watch/internal/commands"
	"github.com/bakkerme/manifest-watch/internal/config"
	"github.com/bakkerme/manifest-watch/internal/filter"
	"github.com/bakkerme/manifest-watch/internal/notify"
	"github.com/bakkerme/manifest-watch/internal/observability/metrics"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
	"github.com/bakkerme/manifest-watch/internal/pipeline"
	"github.com/bakkerme/manifest-watch/internal/processors/trigger"
	"github.com/bakkerme/manifest-watch/internal/runner"
	"github.com/bakkerme/manifest-watch/internal/sources/fixes"
	fixesimpl "github.com/bakkerme/manifest-watch/internal/sources/fixes/impl"
	gamesimpl "github.com/bakkerme/manifest-watch/internal/sources/games/impl"
	"github.com/bakkerme/manifest-watch/internal/sources/manifest"
	manifestimpl "github.com/bakkerme/manifest-watch/internal/sources/manifest/impl"
	"github.com/bakkerme/manifest-watch/internal/sources/status"
	statusimpl "github.com/bakkerme/manifest-watch/internal/sources/status/impl"
	"github.com/bakkerme/manifest-watch/internal/sources/steam"
	steamimpl "github.com/bakkerme/manifest-watch/internal/sources/steam/impl"
	"github.com/bakkerme/manifest-watch/internal/sources/web"
	"github.com/bakkerme/manifest-watch/internal/store"
)

type Factory struct {
	Logger   *slog.Logger
	Env      config.EnvConfig
	Settings config.Settings
	Metrics  *metrics.Metrics
	Health   *metrics.Health
}

// Sources are the upstream clients shared by the pipelines and the commands.
type Sources struct {
	Games      pipeline.Fetcher
	Fixes      pipeline.Fetcher
	FixesQuery pipeline.Fetcher
	Status     status.Fetcher
	Steam      steam.Lookup
	Manifests  manifest.Downloader
}

// App holds everything built from one configuration.
type App struct {
	Store          *store.Store
	StatusBindings *store.StatusBindings
	Renderer       notify.Renderer
	Notifier       *notify.Notifier
	Filters        filter.Rules
	Sources        Sources
	Runner         *runner.Runner
	Handlers       *commands.Handlers
}

func NewFromEnvConfig(logger *slog.Logger, env config.EnvConfig, settings config.Settings, m *metrics.Metrics, health *metrics.Health) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{Logger: logger, Env: env, Settings: settings, Metrics: m, Health: health}
}

// Sources builds the upstream clients. Plain HTTP sources share one client; the
// fixes page and the manifest generator drive headless Chrome.
func (f *Factory) Sources() Sources {
	client := web.NewClient(web.Options{
		Timeout:   f.Env.HTTP.Timeout,
		UserAgent: f.Env.HTTP.UserAgent,
		Attempts:  f.Env.HTTP.Attempts,
	})
	src := f.Settings.Sources
	if _, ok := web.LocateChrome(f.Env.Browser.ExecPath); !ok {
		f.Logger.Warn("chrome not found, fixes scraping falls back to the cache and /manifest will fail", "exec_path", f.Env.Browser.ExecPath)
	}

	scripted := fixes.NewCachedScraper(
		fixesimpl.NewBrowserScraper(src.FixesURL, fixesimpl.BrowserOptions{
			ExecPath:    f.Env.Browser.ExecPath,
			Timeout:     f.Env.Browser.ScrapeTimeout,
			WaitTimeout: f.Env.Browser.WaitTimeout,
		}),
		fixes.NewCache(f.Env.FixesCachePath),
		f.Logger,
	)
	return Sources{
		Games:      gamesimpl.NewFetcher(client, src.CatalogURL),
		Fixes:      scripted,
		FixesQuery: fixes.Chain{scripted, fixesimpl.NewMarkupScanner(client, src.FixesURL)},
		Status:     statusimpl.NewFetcher(client, src.StatusURL),
		Steam:      steamimpl.NewClient(client, src.SteamURL),
		Manifests:  manifestimpl.NewBrowserDownloader(src.ManifestURL, f.Env.Browser.ExecPath, f.Env.Browser.ManifestTimeout),
	}
}

// Build opens the durable files and wires pipelines, runner and commands.
// Only a malformed file or an invalid setting is an error here.
func (f *Factory) Build(sender chat.Sender, sources Sources) (*App, error) {
	st, err := store.Open(f.Env.ConfigPath, f.Logger)
	if err != nil {
		return nil, err
	}
	statusBindings, err := store.OpenStatusBindings(f.Env.StatusConfigPath)
	if err != nil {
		return nil, err
	}
	renderer, err := notify.NewRenderer(f.Settings.Embeds)
	if err != nil {
		return nil, fmt.Errorf("load embeds: %w", err)
	}
	rules, err := filter.NewRules(f.Settings.Filters)
	if err != nil {
		return nil, err
	}
	notifier := notify.New(sender, renderer, f.Metrics)

	deps := pipeline.Deps{
		Store:    st,
		Notifier: notifier,
		Filters:  rules,
		Metrics:  f.Metrics,
		Logger:   f.Logger,
	}
	schedule := f.Settings.Schedule
	statusBoard := pipeline.NewStatus(pipeline.StatusOptions{
		Fetcher:  sources.Status,
		Bindings: statusBindings,
		Sender:   sender,
		Renderer: renderer,
		Next:     f.untilNext(schedule.Status),
		Metrics:  f.Metrics,
		Logger:   f.Logger,
	})

	r := runner.New(f.Logger, f.Health,
		runner.Schedule{
			Trigger: f.cronTrigger("monitor", schedule.Monitor, schedule.Timezone),
			Pipelines: []pipeline.Pipeline{
				pipeline.NewGames(deps, sources.Games),
				pipeline.NewFixes(deps, sources.Fixes),
			},
		},
		runner.Schedule{
			Trigger:   f.cronTrigger("status", schedule.Status, schedule.Timezone),
			Pipelines: []pipeline.Pipeline{statusBoard},
		},
	)

	handlers := commands.New(commands.Deps{
		Games:          sources.Games,
		Fixes:          sources.FixesQuery,
		Store:          st,
		StatusBindings: statusBindings,
		Sender:         sender,
		Renderer:       renderer,
		Filters:        rules,
		Steam:          sources.Steam,
		Manifests:      sources.Manifests,
		Pagination:     f.Settings.Pagination,
		Logger:         f.Logger,
	})

	return &App{
		Store:          st,
		StatusBindings: statusBindings,
		Renderer:       renderer,
		Notifier:       notifier,
		Filters:        rules,
		Sources:        sources,
		Runner:         r,
		Handlers:       handlers,
	}, nil
}

// Paginator paces paged command replies.
func (f *Factory) Paginator() *notify.Paginator {
	return notify.NewPaginator(f.Settings.Pagination.PageDelay, f.Logger)
}

func (f *Factory) cronTrigger(name, schedule, timezone string) *trigger.CronProcessor {
	c := trigger.NewCronProcessor(name, schedule, timezone)
	c.OnDrop = func(name string) {
		f.Metrics.ObserveTickDropped(name)
		f.Logger.Warn("scheduler tick dropped, previous run still busy", "schedule", name)
	}
	return c
}

func (f *Factory) untilNext(schedule string) func() time.Duration {
	return func() time.Duration {
		d, err := trigger.Until(schedule, time.Now())
		if err != nil {
			return 0
		}
		return d
	}
}
