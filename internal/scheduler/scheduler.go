// Package scheduler runs named jobs once a day at a fixed local time.
//
// Jobs live in memory; callers re-register them at startup from whatever
// they persist (for reminders, the session store).
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"budgeter/internal/core"
	"budgeter/internal/log"
)

// Func is the callback a job runs. payload is whatever was registered.
type Func func(ctx context.Context, payload any) error

// TimeOfDay is a wall-clock time in the scheduler's location.
type TimeOfDay struct {
	Hour, Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q: want HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// on returns the instant t falls on during the given day in loc.
func (t TimeOfDay) on(d core.Date, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// ReminderJobName is the job name of a user's daily reminder.
func ReminderJobName(userID int64) string {
	return fmt.Sprintf("reminder-%d", userID)
}

type job struct {
	name    string
	at      TimeOfDay
	payload any
	fn      Func
	lastRun core.Date
}

type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*job
	loc    *time.Location
	tick   time.Duration
	now    func() time.Time
	logger *log.Logger
}

func New(loc *time.Location, tick time.Duration, logger *log.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if tick <= 0 {
		tick = 30 * time.Second
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Scheduler{
		jobs:   map[string]*job{},
		loc:    loc,
		tick:   tick,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentScheduler),
	}
}

// RegisterDaily adds a job firing every day at at. It returns false and
// changes nothing when a job with that name already exists. A job
// registered after today's time first fires tomorrow.
func (s *Scheduler) RegisterDaily(name string, at TimeOfDay, payload any, fn Func) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return false
	}
	j := &job{name: name, at: at, payload: payload, fn: fn}
	now := s.now().In(s.loc)
	today := core.DateOf(now)
	if !now.Before(at.on(today, s.loc)) {
		j.lastRun = today
	}
	s.jobs[name] = j
	s.logger.Info("job registered", log.FieldJob, name, "at", at.String())
	return true
}

// Cancel removes a job and reports whether it existed.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; !ok {
		return false
	}
	delete(s.jobs, name)
	s.logger.Info("job cancelled", log.FieldJob, name)
	return true
}

// Has reports whether a job is registered under name.
func (s *Scheduler) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[name]
	return ok
}

// Jobs returns the registered job names in order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run fires due jobs on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "scheduler started", "tick", s.tick.String(), "location", s.loc.String())
	s.RunDue(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue fires every job whose time has passed today and that has not run
// yet today. It returns how many jobs fired. Failures are logged; a failed
// job is not retried until the next day.
func (s *Scheduler) RunDue(ctx context.Context) int {
	now := s.now().In(s.loc)
	due := s.collectDue(now)
	for _, j := range due {
		if err := j.fn(ctx, j.payload); err != nil {
			s.logger.ErrorContext(ctx, "job failed", log.FieldJob, j.name, log.FieldError, err)
			continue
		}
		s.logger.DebugContext(ctx, "job ran", log.FieldJob, j.name)
	}
	return len(due)
}

func (s *Scheduler) collectDue(now time.Time) []job {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := core.DateOf(now)
	var due []job
	for _, j := range s.jobs {
		if isDue(j.lastRun, today, now, j.at.on(today, s.loc)) {
			j.lastRun = today
			due = append(due, *j)
		}
	}
	sort.Slice(due, func(a, b int) bool { return due[a].name < due[b].name })
	return due
}

// isDue reports whether a daily job last run on lastRun should run at now.
func isDue(lastRun, today core.Date, now, scheduled time.Time) bool {
	if now.Before(scheduled) {
		return false
	}
	return lastRun.IsEmpty() || lastRun.Compare(today) < 0
}
