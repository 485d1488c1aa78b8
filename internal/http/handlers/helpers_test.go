package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
	"github.com/tbourn/go-slack-scheduler/internal/http/middleware"
	"github.com/tbourn/go-slack-scheduler/internal/repo"
	"github.com/tbourn/go-slack-scheduler/internal/scheduler"
	"github.com/tbourn/go-slack-scheduler/internal/services"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:sched_handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- stubs ----------

type stubSend struct {
	err  error
	mu   sync.Mutex
	sent []domain.Destination
}

func (s *stubSend) SendNow(_ context.Context, dest domain.Destination, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, dest)
	return s.err
}

type stubChannels struct {
	listing *services.ChannelListing
	diag    []services.StrategyResult
	err     error
}

func (s stubChannels) List(context.Context, string) (*services.ChannelListing, error) {
	return s.listing, s.err
}

func (s stubChannels) Diagnose(context.Context, string) ([]services.StrategyResult, error) {
	return s.diag, s.err
}

type stubAccounts struct {
	linkErr error
	status  services.TokenStatus
}

func (s stubAccounts) LinkAccount(_ context.Context, in services.LinkInput) (*domain.User, error) {
	if s.linkErr != nil {
		return nil, s.linkErr
	}
	return &domain.User{ID: "u-1", SlackUserID: in.SlackUserID, TeamID: in.TeamID}, nil
}

func (s stubAccounts) TokenStatus(context.Context, string) (services.TokenStatus, error) {
	return s.status, nil
}

type stubStatus struct{ st scheduler.Status }

func (s stubStatus) Status() scheduler.Status { return s.st }

// memIdem is an in-memory IdempotencyStore.
type memIdem struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemIdem() *memIdem { return &memIdem{m: map[string]string{}} }

func (s *memIdem) Lookup(_ context.Context, userID, scope, key string, _ time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.m[userID+"|"+scope+"|"+key]
	return id, ok
}

func (s *memIdem) Remember(_ context.Context, userID, scope, key, resourceID string, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID+"|"+scope+"|"+key] = resourceID
}

// ---------- router ----------

type testEnv struct {
	r     *gin.Engine
	db    *gorm.DB
	send  *stubSend
	sched *services.ScheduleService
}

// newEnv wires the handlers over a real ScheduleService backed by SQLite.
func newEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerDB(t)
	sched := services.NewScheduleService(db)
	sched.WebhookEnabled = true
	send := &stubSend{}
	d := Deps{
		Schedule:       sched,
		Send:           send,
		Channels:       stubChannels{listing: &services.ChannelListing{Source: "conversations"}},
		Accounts:       stubAccounts{},
		Idempotency:    newMemIdem(),
		WebhookEnabled: true,
	}
	if mutate != nil {
		mutate(&d)
	}
	if s, isSvc := d.Schedule.(*services.ScheduleService); isSvc {
		s.WebhookEnabled = d.WebhookEnabled
	}
	h := New(d)

	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))

	r.POST("/messages/send", h.SendMessage)
	r.POST("/messages/schedule", h.ScheduleMessage)
	r.GET("/messages/scheduled", h.ListScheduled)
	r.GET("/messages/scheduled/:id", h.GetScheduled)
	r.PUT("/messages/scheduled/:id", h.EditScheduled)
	r.POST("/messages/scheduled/:id/cancel", h.CancelScheduled)
	r.DELETE("/messages/scheduled/:id", h.DeleteScheduled)

	r.POST("/accounts/link", h.LinkAccount)
	r.GET("/me/token-status", h.TokenStatus)
	r.GET("/channels", h.ListChannels)
	r.GET("/channels/debug", h.DiagnoseChannels)
	r.GET("/scheduler/status", h.SchedulerStatus)

	wh := r.Group("/webhook", h.RequireWebhook())
	wh.POST("/send", h.WebhookSend)
	wh.POST("/schedule", h.WebhookSchedule)
	wh.GET("/scheduled", h.WebhookListScheduled)
	wh.PUT("/scheduled/:id", h.WebhookEditScheduled)
	wh.POST("/scheduled/:id/cancel", h.WebhookCancelScheduled)

	return &testEnv{r: r, db: db, send: send, sched: sched}
}

func (e *testEnv) do(method, path, user string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return er
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) ScheduledMessageView {
	t.Helper()
	var v ScheduledMessageView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view %q: %v", w.Body.String(), err)
	}
	return v
}

func future() int64 { return time.Now().Add(time.Hour).Unix() }

func (e *testEnv) schedule(t *testing.T, user string) ScheduledMessageView {
	t.Helper()
	w := e.do(http.MethodPost, "/messages/schedule", user, ScheduleMessageRequest{
		ChannelID: "C1", ChannelName: "general", Message: "hello", ScheduledFor: future(),
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("schedule: status=%d body=%s", w.Code, w.Body.String())
	}
	return decodeView(t, w)
}
