package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Event is one scheduler tick.
type Event struct {
	Schedule  string
	Timestamp time.Time
}

// CronProcessor emits an Event per cron tick. Events go through a one-slot
// channel; a tick that finds the slot full is dropped, so a slow consumer never
// builds a backlog of runs.
type CronProcessor struct {
	name     string
	schedule string
	timezone string
	cron     *cron.Cron
	events   chan Event
	stopOnce sync.Once
	// OnDrop, when set, is called for every dropped tick.
	OnDrop func(name string)
}

func NewCronProcessor(name, schedule, timezone string) *CronProcessor {
	return &CronProcessor{
		name:     name,
		schedule: schedule,
		timezone: timezone,
	}
}

func (c *CronProcessor) Name() string {
	return c.name
}

func (c *CronProcessor) Validate() error {
	if c.schedule == "" {
		return fmt.Errorf("cron schedule is required")
	}
	if c.timezone != "" {
		if _, err := time.LoadLocation(c.timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	return nil
}

// Start schedules the ticks. The returned channel is closed once ctx is done and
// the scheduler has stopped.
func (c *CronProcessor) Start(ctx context.Context) (<-chan Event, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	location := time.UTC
	if c.timezone != "" {
		tz, err := time.LoadLocation(c.timezone)
		if err != nil {
			return nil, err
		}
		location = tz
	}

	c.events = make(chan Event, 1)
	c.cron = cron.New(cron.WithLocation(location))
	_, err := c.cron.AddFunc(c.schedule, c.fire)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", c.name, err)
	}

	c.cron.Start()

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return c.events, nil
}

func (c *CronProcessor) fire() {
	select {
	case c.events <- Event{Schedule: c.name, Timestamp: time.Now().UTC()}:
	default:
		if c.OnDrop != nil {
			c.OnDrop(c.name)
		}
	}
}

func (c *CronProcessor) Stop() error {
	c.stopOnce.Do(func() {
		if c.cron != nil {
			ctx := c.cron.Stop()
			<-ctx.Done()
		}
		if c.events != nil {
			close(c.events)
		}
	})
	return nil
}

// Until returns the time from now to the next tick of schedule.
func Until(schedule string, now time.Time) (time.Duration, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return 0, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	return sched.Next(now).Sub(now), nil
}
