package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/site-backend/internal/domain"
	"github.com/tbourn/site-backend/internal/http/middleware"
	"github.com/tbourn/site-backend/internal/services"
	"github.com/tbourn/site-backend/internal/tasks"
)

const (
	trReceived = "Mesajınız başarıyla alındı. En kısa sürede size dönüş yapacağız."
	trFailed   = "Mesaj gönderilemedi. Lütfen daha sonra tekrar deneyin."
)

const validContact = `{"name":"Ayşe Yılmaz","phone":"0555 123 45 67","email":"ayse@example.com","service":"elektrik-ariza","message":"Prizler çalışmıyor"}`

// notifierFunc adapts a function to services.Notifier.
type notifierFunc func(ctx context.Context, sub domain.ContactSubmission) error

func (f notifierFunc) Send(ctx context.Context, sub domain.ContactSubmission) error {
	return f(ctx, sub)
}

func contactRouter(t *testing.T, n services.Notifier) (*gin.Engine, *tasks.Runner) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	runner := tasks.NewRunner(4, zerolog.Nop())
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Background(runner))
	r.POST("/contact", New(nil, nil, services.NewContactService(n)).SubmitContact)
	return r, runner
}

func shutdown(t *testing.T, runner *tasks.Runner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func decodeContact(t *testing.T, body []byte) ContactResponse {
	t.Helper()
	var resp ContactResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("json: %v (%s)", err, body)
	}
	return resp
}

func TestSubmitContact_SuccessSendsOnce(t *testing.T) {
	var calls atomic.Int32
	var got atomic.Value
	r, runner := contactRouter(t, notifierFunc(func(_ context.Context, sub domain.ContactSubmission) error {
		calls.Add(1)
		got.Store(sub)
		return nil
	}))

	w := doJSON(r, http.MethodPost, "/contact", validContact)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	resp := decodeContact(t, w.Body.Bytes())
	if resp.Status != "success" || resp.Message != trReceived {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if w.Header().Get("Content-Language") != "tr" {
		t.Fatalf("Content-Language = %q", w.Header().Get("Content-Language"))
	}

	shutdown(t, runner)
	if n := calls.Load(); n != 1 {
		t.Fatalf("notifier calls = %d, want 1", n)
	}
	if sub := got.Load().(domain.ContactSubmission); sub.Email != "ayse@example.com" || sub.Service != "elektrik-ariza" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
}

func TestSubmitContact_InvalidEmailNeverNotifies(t *testing.T) {
	var calls atomic.Int32
	r, runner := contactRouter(t, notifierFunc(func(context.Context, domain.ContactSubmission) error {
		calls.Add(1)
		return nil
	}))

	tests := []struct {
		name, body, msg string
	}{
		{"bad email", `{"name":"A","phone":"1","email":"not-an-email","service":"s","message":"m"}`, "email must be a valid email address"},
		{"missing phone", `{"name":"A","email":"a@b.com","service":"s","message":"m"}`, "phone is required"},
		{"blank name", `{"name":"   ","phone":"1","email":"a@b.com","service":"s","message":"m"}`, "invalid contact submission: name must not be blank"},
		{"not json", `name=A`, "invalid JSON body"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/contact", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d %s", w.Code, w.Body.String())
			}
			if er := decodeError(t, w); er.Code != ErrCodeBadRequest || er.Message != tc.msg {
				t.Fatalf("envelope = %+v", er)
			}
		})
	}

	shutdown(t, runner)
	if n := calls.Load(); n != 0 {
		t.Fatalf("notifier invoked %d times for rejected submissions", n)
	}
}

func TestSubmitContact_ResponseDoesNotWaitForTransport(t *testing.T) {
	unblock := make(chan struct{})
	started := make(chan struct{})
	var done atomic.Bool
	r, runner := contactRouter(t, notifierFunc(func(context.Context, domain.ContactSubmission) error {
		close(started)
		<-unblock
		done.Store(true)
		return nil
	}))

	begin := time.Now()
	w := doJSON(r, http.MethodPost, "/contact", validContact)
	elapsed := time.Since(begin)

	if w.Code != http.StatusOK || decodeContact(t, w.Body.Bytes()).Status != "success" {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	if done.Load() {
		t.Fatal("response waited for the mail transport")
	}
	if elapsed > time.Second {
		t.Fatalf("response took %v", elapsed)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("notification never started")
	}
	close(unblock)
	shutdown(t, runner)
	if !done.Load() {
		t.Fatal("notification did not complete")
	}
}

func TestSubmitContact_TransportFailureIsAbsorbed(t *testing.T) {
	var calls atomic.Int32
	r, runner := contactRouter(t, notifierFunc(func(context.Context, domain.ContactSubmission) error {
		calls.Add(1)
		return errors.New("535 authentication failed")
	}))

	w := doJSON(r, http.MethodPost, "/contact", validContact)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	if resp := decodeContact(t, w.Body.Bytes()); resp.Status != "success" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	shutdown(t, runner)
	if calls.Load() != 1 {
		t.Fatalf("notifier calls = %d", calls.Load())
	}
}

func TestSubmitContact_SchedulingFailure(t *testing.T) {
	r, runner := contactRouter(t, notifierFunc(func(context.Context, domain.ContactSubmission) error {
		t.Error("notifier must not run")
		return nil
	}))
	shutdown(t, runner)

	w := doJSON(r, http.MethodPost, "/contact", validContact)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if er := decodeError(t, w); er.Code != ErrCodeInternal || er.Message != trFailed {
		t.Fatalf("envelope = %+v", er)
	}

	// Without the Background middleware the task cannot be scheduled either.
	gin.SetMode(gin.TestMode)
	bare := gin.New()
	bare.POST("/contact", New(nil, nil, services.NewContactService(notifierFunc(func(context.Context, domain.ContactSubmission) error {
		return nil
	}))).SubmitContact)
	w = doJSON(bare, http.MethodPost, "/contact", validContact, "Accept-Language", "en-US,en;q=0.9")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("bare status = %d", w.Code)
	}
	if er := decodeError(t, w); er.Message != "Your message could not be sent. Please try again later." {
		t.Fatalf("envelope = %+v", er)
	}
}

func TestSubmitContact_Localized(t *testing.T) {
	r, runner := contactRouter(t, notifierFunc(func(context.Context, domain.ContactSubmission) error { return nil }))
	defer shutdown(t, runner)

	tests := []struct {
		accept, lang, msg string
	}{
		{"", "tr", trReceived},
		{"en", "en", "Your message has been received. We will get back to you as soon as possible."},
		{"de-DE,en;q=0.8", "en", "Your message has been received. We will get back to you as soon as possible."},
		{"tr-TR", "tr", trReceived},
		{"fr", "tr", trReceived},
		{";;;garbage", "tr", trReceived},
	}
	for _, tc := range tests {
		w := doJSON(r, http.MethodPost, "/contact", validContact, "Accept-Language", tc.accept)
		if w.Code != http.StatusOK {
			t.Fatalf("%q: status = %d", tc.accept, w.Code)
		}
		if got := decodeContact(t, w.Body.Bytes()).Message; got != tc.msg {
			t.Fatalf("%q: message = %q", tc.accept, got)
		}
		if got := w.Header().Get("Content-Language"); got != tc.lang {
			t.Fatalf("%q: Content-Language = %q, want %q", tc.accept, got, tc.lang)
		}
	}
}
