package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/site-backend/internal/tasks"
)

// ErrNoTaskRunner is returned by AddTask when Background is not installed.
var ErrNoTaskRunner = errors.New("post-response tasks are not enabled")

const pendingKey = "postResponseTasks"

// TaskSubmitter is satisfied by *tasks.Runner.
type TaskSubmitter interface {
	Submit(name string, fn tasks.Func) error
}

type pending struct {
	runner  TaskSubmitter
	release chan struct{}
	dropped atomic.Bool
}

// Background lets handlers register work that must start only after the
// handler chain has finished. Tasks are handed to the runner immediately (so
// a closed runner is reported while the handler can still answer) but wait
// until the response is complete. If the chain ends with a status >= 400 or
// panics, registered tasks are dropped without running.
func Background(runner TaskSubmitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := &pending{runner: runner, release: make(chan struct{})}
		c.Set(pendingKey, p)

		completed := false
		defer func() {
			if !completed || c.Writer.Status() >= http.StatusBadRequest {
				p.dropped.Store(true)
			}
			close(p.release)
		}()

		c.Next()
		completed = true
	}
}

// AddTask registers fn to run after the current response. fn receives a
// context detached from the request but carrying the request-scoped logger.
// It fails with ErrNoTaskRunner or tasks.ErrClosed when the work cannot be
// scheduled.
func AddTask(c *gin.Context, name string, fn tasks.Func) error {
	v, ok := c.Get(pendingKey)
	if !ok {
		return ErrNoTaskRunner
	}
	p, ok := v.(*pending)
	if !ok || p.runner == nil {
		return ErrNoTaskRunner
	}

	lg := LoggerFrom(c).With().Str("task", name).Logger()
	return p.runner.Submit(name, func(ctx context.Context) error {
		<-p.release
		if p.dropped.Load() {
			lg.Debug().Msg("task dropped: request did not succeed")
			return nil
		}
		return fn(lg.WithContext(ctx))
	})
}
