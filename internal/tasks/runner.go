// Package tasks runs fire-and-forget work after an HTTP response has been
// sent. A Runner bounds how many tasks execute at once, recovers panics, and
// can be drained at shutdown. Tasks are held in memory only: a task that has
// not finished when the process exits is lost.
package tasks

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/tbourn/site-backend/internal/tasks"

// ErrClosed is returned by Submit once Shutdown has begun.
var ErrClosed = errors.New("tasks: runner closed")

// Func is a unit of deferred work. The context is detached from any request
// and carries a task-scoped logger (see zerolog.Ctx).
type Func func(ctx context.Context) error

var (
	taskRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_tasks_total",
			Help: "Completed post-response tasks by name and outcome.",
		},
		[]string{"task", "outcome"}, // outcome: ok|error|panic
	)
	taskDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "background_task_duration_seconds",
			Help:    "Duration of post-response tasks in seconds.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"task"},
	)
	taskInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "background_tasks_inflight",
			Help: "Post-response tasks submitted but not yet finished.",
		},
	)
)

func init() {
	prometheus.MustRegister(taskRuns, taskDur, taskInflight)
}

// Runner executes submitted tasks on their own goroutines.
type Runner struct {
	log zerolog.Logger
	sem chan struct{}
	wg  sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRunner returns a Runner that executes at most concurrency tasks at a
// time. Values below 1 are treated as 1.
func NewRunner(concurrency int, log zerolog.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		log: log.With().Str("component", "tasks").Logger(),
		sem: make(chan struct{}, concurrency),
	}
}

// Submit schedules fn and returns immediately. It never blocks on the
// concurrency limit; excess tasks wait on their own goroutine.
func (r *Runner) Submit(name string, fn Func) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	r.wg.Add(1)
	taskInflight.Inc()
	go r.run(name, fn)
	return nil
}

func (r *Runner) run(name string, fn Func) {
	defer r.wg.Done()
	defer taskInflight.Dec()

	r.sem <- struct{}{}
	defer func() { <-r.sem }()

	lg := r.log.With().Str("task", name).Logger()
	ctx, span := otel.Tracer(tracerName).Start(context.Background(), "task "+name)
	span.SetAttributes(attribute.String("task.name", name))
	ctx = lg.WithContext(ctx)
	start := time.Now()

	defer func() {
		taskDur.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			span.SetStatus(codes.Error, "panic")
			taskRuns.WithLabelValues(name, "panic").Inc()
			lg.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("task panicked")
		}
		span.End()
	}()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		taskRuns.WithLabelValues(name, "error").Inc()
		lg.Warn().Err(err).Dur("latency", time.Since(start)).Msg("task failed")
		return
	}
	taskRuns.WithLabelValues(name, "ok").Inc()
	lg.Debug().Dur("latency", time.Since(start)).Msg("task done")
}

// Accepting reports whether Submit will take new work.
func (r *Runner) Accepting() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.closed
}

// Shutdown stops accepting tasks and waits for in-flight ones until ctx is
// done. It is safe to call more than once.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.log.Warn().Msg("shutdown deadline reached with tasks still running")
		return ctx.Err()
	}
}
