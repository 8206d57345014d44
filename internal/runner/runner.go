package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"

	"github.com/bakkerme/manifest-watch/internal/observability/metrics"
	"github.com/bakkerme/manifest-watch/internal/pipeline"
	"github.com/bakkerme/manifest-watch/internal/processors/trigger"
)

// Trigger produces scheduler ticks until ctx is done.
type Trigger interface {
	Name() string
	Start(ctx context.Context) (<-chan trigger.Event, error)
}

// Schedule runs its pipelines in order on every tick of its trigger.
type Schedule struct {
	Trigger   Trigger
	Pipelines []pipeline.Pipeline
}

type Runner struct {
	logger    *slog.Logger
	health    *metrics.Health
	schedules []Schedule
}

func New(logger *slog.Logger, health *metrics.Health, schedules ...Schedule) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, health: health, schedules: schedules}
}

// Run waits for ready, runs every schedule once, then on each tick until ctx is
// done. Each schedule is served by one goroutine, so a schedule's ticks never
// overlap.
func (r *Runner) Run(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return nil
	case <-ready:
	}
	r.logger.Info("runner started", "schedules", len(r.schedules))

	streams := make([]<-chan trigger.Event, 0, len(r.schedules))
	for _, schedule := range r.schedules {
		if schedule.Trigger == nil {
			return fmt.Errorf("schedule without trigger")
		}
		events, err := schedule.Trigger.Start(ctx)
		if err != nil {
			return fmt.Errorf("start trigger %s: %w", schedule.Trigger.Name(), err)
		}
		streams = append(streams, events)
	}

	var wg conc.WaitGroup
	for i, schedule := range r.schedules {
		events := streams[i]
		wg.Go(func() {
			_ = r.runSchedule(ctx, schedule)
			r.listen(ctx, schedule, events)
		})
	}
	wg.Wait()
	return nil
}

// RunOnce runs every pipeline one time, in schedule order.
func (r *Runner) RunOnce(ctx context.Context) error {
	var errs []error
	for _, schedule := range r.schedules {
		if err := r.runSchedule(ctx, schedule); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) listen(ctx context.Context, schedule Schedule, events <-chan trigger.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.logger.Debug("trigger event", "schedule", event.Schedule, "time", event.Timestamp)
			_ = r.runSchedule(ctx, schedule)
		}
	}
}

// runSchedule runs the pipelines sequentially. A failing pipeline is logged and
// the next one still runs.
func (r *Runner) runSchedule(ctx context.Context, schedule Schedule) error {
	var errs []error
	for _, p := range schedule.Pipelines {
		if ctx.Err() != nil {
			return errors.Join(append(errs, ctx.Err())...)
		}
		run, err := p.Run(ctx)
		r.health.MarkRun(p.Name())
		if err != nil {
			r.logger.Error("pipeline run failed", "pipeline", p.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if run != nil {
			r.logger.Debug("pipeline run finished", "pipeline", p.Name(), "run_id", run.ID, "status", run.Status)
		}
	}
	return errors.Join(errs...)
}
