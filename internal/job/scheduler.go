package job

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adhocore/gronx"
)

const maxSleepCap = 60 * time.Second

// ValidateSchedule checks a 5-field cron expression (minute hour day-of-month month day-of-week).
func ValidateSchedule(expr string) error {
	// gronx.IsValid also accepts a seconds field; the job runs at minute granularity.
	if len(strings.Fields(expr)) != 5 || !gronx.IsValid(expr) {
		return fmt.Errorf("invalid cron expression %q, expected 5-field format (minute hour day-of-month month day-of-week)", expr)
	}
	return nil
}

// NextTick returns the first time expr fires strictly after from.
func NextTick(expr string, from time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, from, false)
}

// Scheduler fires a callback on every tick of a cron expression. Each tick runs the
// callback in its own goroutine so a long run never delays the next tick.
type Scheduler struct {
	expr   string
	fn     func(ctx context.Context)
	logger *slog.Logger
	next   func(from time.Time) (time.Time, error)

	nextAt  atomic.Value // time.Time
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	runsWG  sync.WaitGroup
	started atomic.Bool
}

// NewScheduler validates expr and returns a stopped scheduler.
func NewScheduler(expr string, fn func(ctx context.Context), logger *slog.Logger) (*Scheduler, error) {
	if err := ValidateSchedule(expr); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		expr:   expr,
		fn:     fn,
		logger: logger.With("component", "scheduler", "schedule", expr),
		next: func(from time.Time) (time.Time, error) {
			return NextTick(expr, from)
		},
	}
	s.nextAt.Store(time.Time{})
	return s, nil
}

// Expr returns the cron expression.
func (s *Scheduler) Expr() string {
	return s.expr
}

// NextRun returns the next planned tick, or the zero time when stopped.
func (s *Scheduler) NextRun() time.Time {
	return s.nextAt.Load().(time.Time)
}

// Start begins ticking until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.loopWG.Add(1)
	go s.run(ctx)
}

// Stop cancels the loop and any in-flight runs, then waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.loopWG.Wait()
	s.runsWG.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.loopWG.Done()
	defer s.nextAt.Store(time.Time{})

	next, err := s.next(time.Now())
	if err != nil {
		s.logger.Error("failed to compute next tick, scheduler stopped", "error", err)
		return
	}
	s.nextAt.Store(next)
	s.logger.Info("scheduler started", "next_run", next)

	timer := time.NewTimer(capSleep(time.Until(next)))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-timer.C:
			now := time.Now()
			if now.Before(next) {
				timer.Reset(capSleep(next.Sub(now)))
				continue
			}

			s.runsWG.Add(1)
			go func() {
				defer s.runsWG.Done()
				s.fn(ctx)
			}()

			next, err = s.next(now)
			if err != nil {
				s.logger.Error("failed to compute next tick, scheduler stopped", "error", err)
				return
			}
			s.nextAt.Store(next)
			s.logger.Debug("tick fired", "next_run", next)
			timer.Reset(capSleep(time.Until(next)))
		}
	}
}

func capSleep(d time.Duration) time.Duration {
	if d > maxSleepCap {
		return maxSleepCap
	}
	if d < 0 {
		return 0
	}
	return d
}
