package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/marcioluisms/hotelly2-sub000/internal/app"
	"github.com/marcioluisms/hotelly2-sub000/internal/clock"
	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
	"github.com/marcioluisms/hotelly2-sub000/internal/metrics"
)

// RetryPolicy is exponential backoff with clamping.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the delay for a 1-based attempt number.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Scheduler publishes expiry tasks; it is the injected collaborator the
// hold service calls after commit.
type Scheduler struct {
	queue Queue
	clock clock.Clock
}

func NewScheduler(queue Queue, clk clock.Clock) *Scheduler {
	return &Scheduler{queue: queue, clock: clk}
}

func (s *Scheduler) ScheduleExpiry(ctx context.Context, holdID string, expiresAt time.Time) error {
	task := NewExpireHold(holdID, expiresAt)
	if delay := expiresAt.Sub(s.clock.Now()); delay > 0 {
		return s.queue.PublishWithDelay(ctx, task, delay)
	}
	return s.queue.Publish(ctx, task)
}

// HoldExpirer is the slice of the hold service the worker drives.
type HoldExpirer interface {
	Expire(ctx context.Context, holdID, taskToken string) (app.ExpireResult, error)
	DueForExpiry(ctx context.Context, limit int) ([]domain.Hold, error)
}

// Worker consumes expiry tasks and sweeps for overdue holds the queue lost.
type Worker struct {
	queue         Queue
	holds         HoldExpirer
	clock         clock.Clock
	retry         RetryPolicy
	sweepInterval time.Duration
	sweepBatch    int
	logger        zerolog.Logger
}

func NewWorker(queue Queue, holds HoldExpirer, clk clock.Clock, logger zerolog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue: queue,
		holds: holds,
		clock: clk,
		retry: RetryPolicy{
			MaxAttempts:   5,
			InitialDelay:  2 * time.Second,
			MaxDelay:      time.Minute,
			BackoffFactor: 2,
		},
		sweepInterval: time.Minute,
		sweepBatch:    100,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type WorkerOption func(*Worker)

func WithSweepInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.sweepInterval = d
		}
	}
}

func WithRetryPolicy(p RetryPolicy) WorkerOption {
	return func(w *Worker) {
		w.retry = p
	}
}

// Start begins consuming and sweeping until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.queue.Consume(ctx, func(body []byte) error {
		return w.handle(ctx, body)
	}); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	go w.sweepLoop(ctx)
	return nil
}

func (w *Worker) handle(ctx context.Context, body []byte) error {
	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		// Unparseable payloads never become parseable; drop with a trace.
		w.logger.Error().Err(err).Msg("drop malformed task")
		return nil
	}

	switch task.Kind {
	case KindExpireHold:
		return w.handleExpire(ctx, task)
	default:
		w.logger.Error().Str("kind", task.Kind).Msg("drop unknown task kind")
		return nil
	}
}

func (w *Worker) handleExpire(ctx context.Context, task Task) error {
	result, err := w.holds.Expire(ctx, task.HoldID, task.ID)
	if err != nil {
		task.Attempts++
		if task.Attempts >= w.retry.MaxAttempts {
			// The sweeper re-enqueues overdue active holds, so dropping
			// here cannot strand a hold.
			w.logger.Error().Err(err).Str("hold_id", task.HoldID).Int("attempts", task.Attempts).
				Msg("expire task exhausted retries")
			return nil
		}
		w.logger.Warn().Err(err).Str("hold_id", task.HoldID).Int("attempts", task.Attempts).
			Msg("expire task failed, backing off")
		return w.queue.PublishWithDelay(ctx, task, w.retry.NextDelay(task.Attempts))
	}

	switch result.Outcome {
	case app.OutcomeNotExpiredYet:
		// Delivered early; the dedupe token was not consumed, so the same
		// task works when it comes back after the real deadline.
		delay := result.ExpiresAt.Sub(w.clock.Now())
		return w.queue.PublishWithDelay(ctx, task, delay)
	case app.OutcomeDuplicate:
		metrics.IncTaskRedelivery()
		return nil
	default:
		return nil
	}
}

func (w *Worker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}

func (w *Worker) sweep(ctx context.Context) error {
	due, err := w.holds.DueForExpiry(ctx, w.sweepBatch)
	if err != nil {
		return err
	}
	for _, hold := range due {
		// Same hold and deadline derive the same task id, so a sweep racing
		// the original delivery collapses in the dedupe table.
		if err := w.queue.Publish(ctx, NewExpireHold(hold.ID, hold.ExpiresAt)); err != nil {
			return err
		}
	}
	if len(due) > 0 {
		w.logger.Info().Int("count", len(due)).Msg("re-enqueued overdue holds")
	}
	return nil
}
