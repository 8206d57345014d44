package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/notify"
	"github.com/bakkerme/manifest-watch/internal/observability/metrics"
	"github.com/bakkerme/manifest-watch/internal/observability/otelx"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
	"github.com/bakkerme/manifest-watch/internal/sources/status"
	"github.com/bakkerme/manifest-watch/internal/store"
)

// StatusOptions configures the status board.
type StatusOptions struct {
	Fetcher  status.Fetcher
	Bindings *store.StatusBindings
	Sender   chat.Sender
	Renderer notify.Renderer
	// Next returns the time until the following refresh, shown in the footer.
	Next    func() time.Duration
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Status keeps one status message per bound channel up to date. The first run
// posts it; later runs edit the same message and fall back to a new one when the
// edit fails.
type Status struct {
	opts StatusOptions

	mu   sync.Mutex
	refs map[core.ChannelID]chat.MessageRef
}

func NewStatus(opts StatusOptions) *Status {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Next == nil {
		opts.Next = func() time.Duration { return 0 }
	}
	return &Status{opts: opts, refs: map[core.ChannelID]chat.MessageRef{}}
}

func (s *Status) Name() string {
	return "status"
}

func (s *Status) Run(ctx context.Context) (run *core.Run, err error) {
	started := time.Now()
	run = &core.Run{
		ID:        uuid.NewString(),
		Pipeline:  s.Name(),
		StartedAt: started.UTC(),
		Status:    core.RunStatusRunning,
	}
	logger := s.opts.Logger.With("pipeline", s.Name(), "run_id", run.ID)
	ctx = core.WithLogger(core.WithRunID(ctx, run.ID), logger)
	ctx, span := otelx.Start(ctx, "pipeline.status", attribute.String("pipeline", s.Name()))
	defer func() {
		otelx.End(span, err)
		s.opts.Metrics.ObservePipeline(s.Name(), time.Since(started), err)
	}()

	bindings := s.opts.Bindings.All()
	if len(bindings) == 0 {
		run.Finish(core.RunStatusSkipped)
		return run, nil
	}

	report := s.opts.Fetcher.Fetch(ctx)
	run.Fetch = report.Status
	s.opts.Metrics.ObserveFetch(s.Name(), string(report.Status))
	if report.Err != nil {
		logger.Warn("status fetch failed", "status", report.Status, "error", report.Err)
	}
	message := s.opts.Renderer.Status(report.Text(), s.opts.Next())

	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, binding := range bindings {
		err := s.post(ctx, binding.Channel, message)
		s.opts.Metrics.ObserveDelivery(string(core.FeatureStatus), err)
		if err != nil {
			logger.Warn("failed to post status", "guild_id", binding.GuildID, "channel", binding.Channel, "error", err)
			run.Failed++
			errs = append(errs, err)
			continue
		}
		run.Delivered++
	}
	if run.Delivered == 0 {
		run.Finish(core.RunStatusFailed)
		return run, errors.Join(errs...)
	}
	run.Finish(core.RunStatusCompleted)
	return run, nil
}

func (s *Status) post(ctx context.Context, channel core.ChannelID, message chat.Message) error {
	if ref, ok := s.refs[channel]; ok {
		err := s.opts.Sender.Edit(ctx, ref, message)
		if err == nil {
			return nil
		}
		core.LoggerFromContext(ctx).Info("status edit failed, posting a new message", "channel", channel, "error", err)
		delete(s.refs, channel)
	}
	ref, err := s.opts.Sender.Send(ctx, channel, message)
	if err != nil {
		return err
	}
	s.refs[channel] = ref
	return nil
}
