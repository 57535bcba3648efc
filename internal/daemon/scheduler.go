package daemon

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Scheduler wraps the gocron scheduler for periodic and one-shot deploys.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs fn at a fixed interval and returns the job id.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, fn func()) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("%s: interval must be positive, got %s", name, interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create %s job: %w", name, err)
	}
	return job.ID().String(), nil
}

// ScheduleJittered runs fn with a random extra delay of up to jitter added to
// each interval.
func (s *Scheduler) ScheduleJittered(name string, interval, jitter time.Duration, fn func()) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("%s: interval must be positive, got %s", name, interval)
	}
	if jitter <= 0 {
		return s.ScheduleEvery(name, interval, fn)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationRandomJob(interval, interval+jitter),
		gocron.NewTask(fn),
		gocron.WithName(name),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create %s job: %w", name, err)
	}
	return job.ID().String(), nil
}

// ScheduleAt runs fn once at the given time and returns the job id.
func (s *Scheduler) ScheduleAt(name string, at time.Time, fn func()) (string, error) {
	if !at.After(time.Now()) {
		return "", fmt.Errorf("%s: scheduled time %s is not in the future", name, at.Format(time.RFC3339))
	}
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(fn),
		gocron.WithName(name),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create %s job: %w", name, err)
	}
	return job.ID().String(), nil
}

// RemoveJob cancels a scheduled job by id.
func (s *Scheduler) RemoveJob(id string) error {
	jobID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", id, err)
	}
	if err := s.scheduler.RemoveJob(jobID); err != nil {
		return fmt.Errorf("failed to remove job %s: %w", id, err)
	}
	return nil
}
