// Package scheduler provides recurring job scheduling on top of gocron/v2.
// The store server uses it for housekeeping jobs and the console uses it to
// drive the per-endpoint sync cadence.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/tvloop/tvloop/pkg/log"
)

// Scheduler wraps a gocron scheduler and keys jobs by name so callers can
// add, trigger and remove them without tracking gocron job IDs.
type Scheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
	logger    *zerolog.Logger
}

// NewScheduler creates a Scheduler. Options are forwarded to gocron, which
// lets tests inject a fake clock via gocron.WithClock.
func NewScheduler(opts ...gocron.SchedulerOption) (*Scheduler, error) {
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		jobs:      make(map[string]gocron.Job),
		logger:    log.Logger(),
	}, nil
}

// AddCron adds a job driven by a cron expression.
func (s *Scheduler) AddCron(name, cronExpr string, task func(ctx context.Context), ctx context.Context) error {
	return s.add(name, gocron.CronJob(cronExpr, false), task, ctx)
}

// AddInterval adds a job that runs every interval. When immediate is true the
// first run fires as soon as the scheduler starts instead of one interval in.
func (s *Scheduler) AddInterval(name string, interval time.Duration, task func(ctx context.Context), ctx context.Context, immediate bool) error {
	var opts []gocron.JobOption
	if immediate {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	return s.add(name, gocron.DurationJob(interval), task, ctx, opts...)
}

func (s *Scheduler) add(name string, def gocron.JobDefinition, task func(ctx context.Context), ctx context.Context, opts ...gocron.JobOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	wrapped := func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Str("job", name).Interface("panic", r).Msg("Job panicked")
			}
		}()

		task(ctx)
	}

	opts = append(opts, gocron.WithName(name))

	j, err := s.scheduler.NewJob(def, gocron.NewTask(wrapped, ctx), opts...)
	if err != nil {
		return err
	}

	s.jobs[name] = j
	s.logger.Info().Str("job", name).Msg("Added job")

	return nil
}

// RemoveJobByName removes a job by its name.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	if err := s.scheduler.RemoveJob(job.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)
	s.logger.Info().Str("job", name).Msg("Removed job")

	return nil
}

// RunJobNow triggers an off-schedule run of the named job. The regular
// cadence is unaffected.
func (s *Scheduler) RunJobNow(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	return job.RunNow()
}

// HasJob reports whether a job with the given name is registered.
func (s *Scheduler) HasJob(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.jobs[name]

	return exists
}

// JobNames returns the names of all registered jobs.
func (s *Scheduler) JobNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}

	return names
}

// Jobs returns all the jobs currently in the scheduler.
func (s *Scheduler) Jobs() []gocron.Job {
	return s.scheduler.Jobs()
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")

	return s.scheduler.Shutdown()
}
