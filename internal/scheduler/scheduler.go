// Package scheduler runs the background tasks that originate workflow
// executions: fixed-rate and fixed-delay repetition, one-shot delays,
// and cron schedules. Task failures are isolated per invocation and
// never cancel a repeating schedule.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/veldt/synapse/pkg/schema"
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context) error

// Scheduler owns the background timer goroutines. All schedules share
// one root context cancelled by Stop.
type Scheduler struct {
	logger *slog.Logger
	parser cron.Parser

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	cancels map[uint64]context.CancelFunc
	seq     atomic.Uint64
	stopped bool
}

// New creates a running Scheduler.
func New(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:  logger,
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		ctx:     ctx,
		cancel:  cancel,
		cancels: make(map[uint64]context.CancelFunc),
	}
}

// FixedRate runs the task every interval measured start-to-start, after
// an initial delay. Returns the schedule's cancel function.
func (s *Scheduler) FixedRate(delay, interval time.Duration, task Task) func() {
	return s.spawn(func(ctx context.Context) {
		if !sleep(ctx, delay) {
			return
		}
		s.runIsolated(ctx, task)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runIsolated(ctx, task)
			}
		}
	})
}

// FixedDelay runs the task repeatedly, waiting interval between the end
// of one invocation and the start of the next, after an initial delay.
func (s *Scheduler) FixedDelay(delay, interval time.Duration, task Task) func() {
	return s.spawn(func(ctx context.Context) {
		if !sleep(ctx, delay) {
			return
		}
		for {
			s.runIsolated(ctx, task)
			if !sleep(ctx, interval) {
				return
			}
		}
	})
}

// Once runs the task a single time after the delay.
func (s *Scheduler) Once(delay time.Duration, task Task) func() {
	return s.spawn(func(ctx context.Context) {
		if !sleep(ctx, delay) {
			return
		}
		s.runIsolated(ctx, task)
	})
}

// Cron runs the task on a standard 5-field cron schedule.
func (s *Scheduler) Cron(spec string, task Task) (func(), error) {
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"parse cron expression %q: %s", spec, err.Error()).WithCause(err)
	}

	cancel := s.spawn(func(ctx context.Context) {
		for {
			now := time.Now()
			next := sched.Next(now)
			if !sleep(ctx, next.Sub(now)) {
				return
			}
			s.runIsolated(ctx, task)
		}
	})
	return cancel, nil
}

// NextRun computes the next fire time of a cron expression. Exposed for
// tooling.
func (s *Scheduler) NextRun(spec string, from time.Time) (time.Time, error) {
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return time.Time{}, schema.NewErrorf(schema.ErrCodeValidation,
			"parse cron expression %q: %s", spec, err.Error()).WithCause(err)
	}
	return sched.Next(from), nil
}

// spawn starts a schedule goroutine with its own cancellable context and
// returns the cancel function. Cancelling is idempotent.
func (s *Scheduler) spawn(loop func(ctx context.Context)) func() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return func() {}
	}
	id := s.seq.Add(1)
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancels[id] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.release(id)
		loop(ctx)
	}()

	return func() {
		cancel()
	}
}

func (s *Scheduler) release(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
}

// runIsolated executes one task invocation, recovering panics and
// logging failures so the schedule itself survives.
func (s *Scheduler) runIsolated(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", slog.Any("panic", r))
		}
	}()

	if err := task(ctx); err != nil {
		s.logger.Error("scheduled task failed", slog.String("error", err.Error()))
	}
}

// Active returns the number of live schedules.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

// Stop cancels every schedule and waits for running invocations to
// finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// sleep waits for d or until the context is cancelled. Returns false on
// cancellation. Non-positive delays return immediately.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
