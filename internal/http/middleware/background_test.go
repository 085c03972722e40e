package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/site-backend/internal/tasks"
)

func TestAddTask_WithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	if err := AddTask(c, "x", func(context.Context) error { return nil }); !errors.Is(err, ErrNoTaskRunner) {
		t.Fatalf("expected ErrNoTaskRunner, got %v", err)
	}
}

func TestBackground_RunsAfterResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := tasks.NewRunner(2, zerolog.Nop())

	var handlerDone atomic.Bool
	var startedAfter atomic.Bool
	ran := make(chan struct{})

	r := gin.New()
	r.Use(Background(runner))
	r.POST("/contact", func(c *gin.Context) {
		err := AddTask(c, "notify", func(ctx context.Context) error {
			startedAfter.Store(handlerDone.Load())
			if ctx.Err() != nil {
				t.Errorf("task context must not be cancelled")
			}
			close(ran)
			return nil
		})
		if err != nil {
			t.Errorf("AddTask: %v", err)
		}
		// Give an eager task a chance to (wrongly) run before the handler ends.
		time.Sleep(20 * time.Millisecond)
		c.JSON(http.StatusOK, gin.H{"status": "success"})
		handlerDone.Store(true)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/contact", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	if !startedAfter.Load() {
		t.Fatal("task started before the handler finished")
	}
	if err := runner.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestBackground_DropsTasksOnErrorOrPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := tasks.NewRunner(2, zerolog.Nop())
	var ran atomic.Int32
	task := func(context.Context) error {
		ran.Add(1)
		return nil
	}

	r := gin.New()
	r.Use(Recovery())
	r.Use(Background(runner))
	r.POST("/bad", func(c *gin.Context) {
		_ = AddTask(c, "t", task)
		c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request"})
	})
	r.POST("/panic", func(c *gin.Context) {
		_ = AddTask(c, "t", task)
		panic("boom")
	})

	for _, p := range []string{"/bad", "/panic"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, p, nil))
	}
	if err := runner.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if n := ran.Load(); n != 0 {
		t.Fatalf("dropped tasks ran %d times", n)
	}
}

func TestAddTask_ClosedRunner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := tasks.NewRunner(1, zerolog.Nop())
	if err := runner.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	var got error
	r := gin.New()
	r.Use(Background(runner))
	r.POST("/contact", func(c *gin.Context) {
		got = AddTask(c, "notify", func(context.Context) error { return nil })
		c.Status(http.StatusInternalServerError)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/contact", nil))

	if !errors.Is(got, tasks.ErrClosed) {
		t.Fatalf("expected tasks.ErrClosed, got %v", got)
	}
}
