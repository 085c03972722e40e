package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyByIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	if key := KeyByIP()(c); key != "ip:203.0.113.9" {
		t.Fatalf("expected ip-based key; got %q", key)
	}
}

func TestNewRateLimiter_Defaults_AndReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, nil)
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", rl.burst)
	}
	if rl.keyFn == nil {
		t.Fatalf("expected default key function")
	}
	now := time.Now()
	lim := rl.limiterFor("k1", now)
	if got := rl.limiterFor("k1", now); got != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, KeyByIP())
	rl.ttl = time.Nanosecond

	rl.mu.Lock()
	rl.visitors["old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: time.Now().Add(-time.Hour)}
	rl.lookups = 4999
	rl.mu.Unlock()

	_ = rl.limiterFor("new", time.Now())

	rl.mu.Lock()
	_, existsOld := rl.visitors["old"]
	_, existsNew := rl.visitors["new"]
	lookups := rl.lookups
	rl.mu.Unlock()

	if existsOld {
		t.Fatalf("expected idle visitor to be evicted")
	}
	if !existsNew {
		t.Fatalf("expected requested visitor to be present")
	}
	if lookups != 0 {
		t.Fatalf("expected lookup counter reset, got %d", lookups)
	}
}

func TestRateLimiter_Handler_DefaultReject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.5, 2, KeyByIP())

	r := gin.New()
	r.Use(RequestID())
	r.POST("/contact", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/contact", nil)
		req.RemoteAddr = net.JoinHostPort(ip, "1000")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := do("198.51.100.1"); w.Code != http.StatusOK {
		t.Fatalf("1st = %d", w.Code)
	}
	if w := do("198.51.100.1"); w.Code != http.StatusOK {
		t.Fatalf("2nd = %d", w.Code)
	}
	w := do("198.51.100.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("3rd = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q, want 2", got)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["code"] != "too_many_requests" || body["request_id"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}

	// Another client has its own bucket.
	if w := do("198.51.100.2"); w.Code != http.StatusOK {
		t.Fatalf("other ip = %d", w.Code)
	}
}

func TestRateLimiter_Handler_CustomReject_NoRefill(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0, 1, KeyByIP())
	rl.Reject = func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{"custom": true})
	}

	called := 0
	r := gin.New()
	r.GET("/x", rl.Handler(), func(c *gin.Context) {
		called++
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "" {
		t.Fatalf("code=%d retry-after=%q", w.Code, w.Header().Get("Retry-After"))
	}
	if called != 1 {
		t.Fatalf("handler should run once, ran %d", called)
	}
}
