// Package scheduler implements the cron-like job runner: an explicit
// ET-calendar job registry that owns no business logic of its own, only
// firing named handlers on schedule with a misfire grace window, a
// single-concurrent-execution guarantee per job, and panic containment.
// Cron expressions are parsed and evaluated by github.com/robfig/cron/v3.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/pickengine/internal/etclock"
)

// DefaultMisfireGraceSeconds is the default misfire grace window.
const DefaultMisfireGraceSeconds = 600

// Handler is one job's business logic. The scheduler never inspects the
// error beyond logging it.
type Handler func(ctx context.Context) error

// JobSpec describes one registered job.
type JobSpec struct {
	Name                string
	Trigger             string // cron expression, evaluated in America/New_York
	MisfireGraceSeconds int
	Handler             Handler
}

// StatusEntry is one row of the SchedulerStatus operator operation.
type StatusEntry struct {
	Name       string `json:"name"`
	NextRunET  string `json:"next_run_et"`
	Trigger    string `json:"trigger"`
	Registered bool   `json:"registered"`
}

// jobEntry is a registered job's runtime state. mu is held for the
// duration of a run; TryLock is how "at most once concurrently with
// itself" is enforced without a separate running flag that could race with
// the lock itself.
type jobEntry struct {
	spec JobSpec

	mu sync.Mutex

	schedule   cron.Schedule
	nextFireAt time.Time
	lastRunAt  time.Time

	misfireCount           int64
	panicCount             int64
	droppedConcurrentCount int64
}

// Scheduler runs registered jobs on their cron triggers. The zero value is
// not usable; construct with New.
type Scheduler struct {
	mu    sync.Mutex
	jobs  map[string]*jobEntry
	order []string
	loc   *time.Location
	tick  time.Duration
}

// New constructs an empty Scheduler evaluating triggers in America/New_York.
func New() *Scheduler {
	return &Scheduler{
		jobs: make(map[string]*jobEntry),
		loc:  etclock.MustLocation(),
		tick: 30 * time.Second,
	}
}

// Register adds a job to the registry. Must be called before Start; jobs
// cannot be added once the scheduler is running.
func (s *Scheduler) Register(spec JobSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("scheduler: job name is required")
	}
	if spec.Handler == nil {
		return fmt.Errorf("scheduler: job %q has no handler", spec.Name)
	}
	schedule, err := cron.ParseStandard(spec.Trigger)
	if err != nil {
		return fmt.Errorf("scheduler: job %q: parse trigger %q: %w", spec.Name, spec.Trigger, err)
	}
	if spec.MisfireGraceSeconds <= 0 {
		spec.MisfireGraceSeconds = DefaultMisfireGraceSeconds
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[spec.Name]; exists {
		return fmt.Errorf("scheduler: job %q already registered", spec.Name)
	}
	now := time.Now().In(s.loc)
	s.jobs[spec.Name] = &jobEntry{spec: spec, schedule: schedule, nextFireAt: schedule.Next(now)}
	s.order = append(s.order, spec.Name)
	return nil
}

// Start runs the scheduler loop until ctx is cancelled. Every tick, each
// registered job is checked against the wall clock; a job due and still
// within its misfire grace window fires in its own goroutine, a job due but
// past its grace window is counted as a misfire and skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.mu.Lock()
	n := len(s.order)
	s.mu.Unlock()
	log.Info().Int("jobs", n).Msg("scheduler starting")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tickOnce(ctx)
		}
	}
}

func (s *Scheduler) tickOnce(ctx context.Context) {
	s.mu.Lock()
	names := append([]string(nil), s.order...)
	s.mu.Unlock()

	now := time.Now().In(s.loc)
	for _, name := range names {
		s.mu.Lock()
		entry := s.jobs[name]
		s.mu.Unlock()
		s.maybeFire(ctx, entry, now)
	}
}

// maybeFire checks one job against now and, if due, either dispatches it or
// records a misfire/dropped-concurrent outcome.
func (s *Scheduler) maybeFire(ctx context.Context, e *jobEntry, now time.Time) {
	s.mu.Lock()
	due := !now.Before(e.nextFireAt)
	fireAt := e.nextFireAt
	s.mu.Unlock()
	if !due {
		return
	}

	grace := time.Duration(e.spec.MisfireGraceSeconds) * time.Second
	withinWindow := now.Before(fireAt.Add(grace))

	s.mu.Lock()
	e.nextFireAt = e.schedule.Next(now)
	s.mu.Unlock()

	if !withinWindow {
		e.misfireCount++
		log.Warn().Str("job", e.spec.Name).Time("scheduled_for", fireAt).Msg("scheduler: missed firing window")
		return
	}

	if !e.mu.TryLock() {
		e.droppedConcurrentCount++
		log.Warn().Str("job", e.spec.Name).Msg("scheduler: firing dropped, previous run still in progress")
		return
	}
	go s.run(ctx, e)
}

// run executes one job's handler while holding its lock, recovering from any
// panic so a bad job can never take down the scheduler.
func (s *Scheduler) run(ctx context.Context, e *jobEntry) {
	defer e.mu.Unlock()
	e.lastRunAt = time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.panicCount++
			log.Error().
				Str("job", e.spec.Name).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("scheduler: job panicked")
		}
	}()

	log.Info().Str("job", e.spec.Name).Msg("scheduler: job starting")
	if err := e.spec.Handler(ctx); err != nil {
		log.Error().Err(err).Str("job", e.spec.Name).Msg("scheduler: job failed")
		return
	}
	log.Info().Str("job", e.spec.Name).Msg("scheduler: job completed")
}

// RunNow triggers a named job immediately, outside its cron schedule,
// blocking until it completes. It is still subject to the single-concurrent-
// execution guarantee: triggering an already-running job returns an error
// rather than queuing a second execution.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	if !e.mu.TryLock() {
		return fmt.Errorf("scheduler: job %q already running", name)
	}
	s.run(ctx, e)
	return nil
}

// Status implements the SchedulerStatus operator operation:
// one entry per registered job.
func (s *Scheduler) Status() []StatusEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StatusEntry, 0, len(s.order))
	for _, name := range s.order {
		e := s.jobs[name]
		out = append(out, StatusEntry{
			Name:       e.spec.Name,
			NextRunET:  etclock.DisplayString(e.nextFireAt),
			Trigger:    e.spec.Trigger,
			Registered: true,
		})
	}
	return out
}
