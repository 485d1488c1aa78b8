// Scheduled message HTTP handlers.
//
// This file exposes REST endpoints for the lifecycle of scheduled messages:
//   - POST   /messages/schedule                (create, Idempotency-Key aware)
//   - GET    /messages/scheduled               (list, paginated, ETag support)
//   - GET    /messages/scheduled/{id}          (fetch one)
//   - PUT    /messages/scheduled/{id}          (edit body and/or time)
//   - POST   /messages/scheduled/{id}/cancel   (cancel)
//   - DELETE /messages/scheduled/{id}          (delete while pending)
//
// Handlers are transport-thin: they bind input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
	"github.com/tbourn/go-slack-scheduler/internal/http/middleware"
	"github.com/tbourn/go-slack-scheduler/internal/scheduler"
	"github.com/tbourn/go-slack-scheduler/internal/services"
)

//
// Service contracts (context-aware)
//

// ScheduleService defines the scheduled message lifecycle consumed by HTTP
// handlers. Owners are opaque ids; rows of other owners behave as missing.
type ScheduleService interface {
	Create(ctx context.Context, dest domain.Destination, body string, scheduledFor int64) (*domain.ScheduledMessage, error)
	Get(ctx context.Context, id, owner string) (*domain.ScheduledMessage, error)
	ListPage(ctx context.Context, owner string, page, pageSize int) ([]domain.ScheduledMessage, int64, error)
	Stats(ctx context.Context, owner string) (count, maxUpdatedAt int64, err error)
	PendingCount(ctx context.Context) (int64, error)
	Cancel(ctx context.Context, id, owner string) (*domain.ScheduledMessage, error)
	Edit(ctx context.Context, id, owner string, f services.EditFields) (*domain.ScheduledMessage, error)
	Delete(ctx context.Context, id, owner string) error
}

// SendService delivers a message immediately.
type SendService interface {
	SendNow(ctx context.Context, dest domain.Destination, body string) error
}

// ChannelService lists the channels a caller can post into.
type ChannelService interface {
	List(ctx context.Context, ownerID string) (*services.ChannelListing, error)
	Diagnose(ctx context.Context, ownerID string) ([]services.StrategyResult, error)
}

// AccountService links Slack accounts and reports credential health.
type AccountService interface {
	LinkAccount(ctx context.Context, in services.LinkInput) (*domain.User, error)
	TokenStatus(ctx context.Context, ownerID string) (services.TokenStatus, error)
}

// SchedulerStatus reports the state of the background dispatcher.
type SchedulerStatus interface {
	Status() scheduler.Status
}

// IdempotencyStore remembers which resource a create request produced so a
// retry with the same key replays it instead of scheduling twice.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, scope, key string, now time.Time) (resourceID string, found bool)
	Remember(ctx context.Context, userID, scope, key, resourceID string, status int)
}

//
// Handler wiring
//

// Deps bundles the services the handlers depend on. Scheduler and
// Idempotency are optional.
type Deps struct {
	Schedule       ScheduleService
	Send           SendService
	Channels       ChannelService
	Accounts       AccountService
	Scheduler      SchedulerStatus
	Idempotency    IdempotencyStore
	WebhookEnabled bool
}

// Handlers groups HTTP endpoints for scheduled messages, immediate sends,
// channels, accounts and the scheduler. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	sched    ScheduleService
	send     SendService
	channels ChannelService
	accounts AccountService
	status   SchedulerStatus
	idem     IdempotencyStore
	webhook  bool
}

// New constructs and returns a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	return &Handlers{
		sched:    d.Schedule,
		send:     d.Send,
		channels: d.Channels,
		accounts: d.Accounts,
		status:   d.Scheduler,
		idem:     d.Idempotency,
		webhook:  d.WebhookEnabled,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// channelOwner is userID(c) for the channel flow. The webhook owner id is
// reserved: on id routes it answers 404 as if the row did not exist, elsewhere
// 400. ok is false once the response has been written.
func channelOwner(c *gin.Context, idRoute bool) (owner string, ok bool) {
	owner = userID(c)
	if owner != domain.WebhookOwner {
		return owner, true
	}
	if idRoute {
		fail(c, http.StatusNotFound, ErrCodeNotFound, services.ErrNotFound.Error())
	} else {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "X-User-ID "+domain.WebhookOwner+" is reserved for the webhook flow")
	}
	return "", false
}

//
// DTOs
//

// ScheduleMessageRequest is the JSON payload for scheduling a channel message.
type ScheduleMessageRequest struct {
	ChannelID   string `json:"channel_id" binding:"required" example:"C024BE91L"`
	ChannelName string `json:"channel_name" binding:"required" example:"general"`
	// Message is the text to post (1–4000 characters).
	Message string `json:"message" binding:"required" example:"Standup in 5 minutes"`
	// ScheduledFor is the delivery time in epoch seconds; must be in the future.
	ScheduledFor int64 `json:"scheduled_for" binding:"required" example:"1767225600"`
}

// UpdateScheduledRequest edits a pending message. Omitted fields are kept.
type UpdateScheduledRequest struct {
	Message      *string `json:"message,omitempty" example:"Standup moved to 10:15"`
	ScheduledFor *int64  `json:"scheduled_for,omitempty" example:"1767226500"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ScheduledMessageView is a scheduled message plus its delivery time in
// RFC 3339 for display.
type ScheduledMessageView struct {
	domain.ScheduledMessage
	ScheduledForReadable string `json:"scheduled_for_readable" example:"2026-01-01T00:00:00Z"`
}

// ListScheduledResponse wraps a page of scheduled messages and pagination information.
type ListScheduledResponse struct {
	Messages   []ScheduledMessageView `json:"messages"`
	Pagination Pagination             `json:"pagination"`
}

func view(m *domain.ScheduledMessage) ScheduledMessageView {
	return ScheduledMessageView{
		ScheduledMessage:     *m,
		ScheduledForReadable: time.Unix(m.ScheduledFor, 0).UTC().Format(time.RFC3339),
	}
}

func views(ms []domain.ScheduledMessage) []ScheduledMessageView {
	out := make([]ScheduledMessageView, 0, len(ms))
	for i := range ms {
		out = append(out, view(&ms[i]))
	}
	return out
}

//
// Helpers
//

// clampPagination reads page and page_size, falling back to 1 and 20 when
// absent or malformed and capping page_size at 100.
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = max(queryInt(c, "page", 1), 1)
	pageSize = min(max(queryInt(c, "page_size", 20), 1), 100)
	return page, pageSize
}

func queryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return n
}

// messageID reads and validates the :id path parameter. It writes a 400 and
// returns false when the id is not a UUID.
func messageID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return "", false
	}
	return id, true
}

// createScheduled runs the shared create path for channel and webhook rows,
// replaying a previous result when the Idempotency-Key was already used.
func (h *Handlers) createScheduled(c *gin.Context, dest domain.Destination, body string, at int64) {
	ctx := c.Request.Context()
	owner := dest.Owner()
	scope := middleware.IdempotencyScope(c)
	key, _ := middleware.GetIdempotencyKey(c)

	if key != "" && h.idem != nil {
		if id, found := h.idem.Lookup(ctx, owner, scope, key, time.Now().UTC()); found {
			if prev, err := h.sched.Get(ctx, id, owner); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, view(prev))
				return
			}
		}
	}

	m, err := h.sched.Create(ctx, dest, body, at)
	if err != nil {
		failErr(c, err)
		return
	}

	if key != "" && h.idem != nil {
		h.idem.Remember(ctx, owner, scope, key, m.ID, http.StatusCreated)
	}
	ok(c, http.StatusCreated, view(m))
}

// listScheduled writes one page of owner's messages behind a weak ETag.
func (h *Handlers) listScheduled(c *gin.Context, owner string) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.sched.Stats(ctx, owner); err == nil {
		etag := fmt.Sprintf(`W/"scheduled:%s:%d:%d"`, owner, count, maxTS)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.sched.ListPage(ctx, owner, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListScheduledResponse{
		Messages: views(items),
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

func (h *Handlers) editScheduled(c *gin.Context, owner string) {
	id, valid := messageID(c)
	if !valid {
		return
	}
	var req UpdateScheduledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	m, err := h.sched.Edit(c.Request.Context(), id, owner, services.EditFields{
		Body:         req.Message,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view(m))
}

func (h *Handlers) cancelScheduled(c *gin.Context, owner string) {
	id, valid := messageID(c)
	if !valid {
		return
	}
	m, err := h.sched.Cancel(c.Request.Context(), id, owner)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view(m))
}

//
// Handlers
//

// ScheduleMessage godoc
// @ID          scheduleMessage
// @Summary     Schedule a channel message
// @Description Queues a message for delivery to a channel at scheduled_for (epoch seconds).
// @Description Supports idempotency via the Idempotency-Key header (same key → same message).
// @Tags        Scheduled
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "Owner user ID"  example(6f1c2b7e-0d7a-4b43-9a55-6d3c1f0f2a11)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ScheduleMessageRequest  true  "Schedule payload"
//
// @Success     201  {object}  handlers.ScheduledMessageView
// @Success     200  {object}  handlers.ScheduledMessageView  "Replayed"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /messages/schedule [post]
func (h *Handlers) ScheduleMessage(c *gin.Context) {
	owner, valid := channelOwner(c, false)
	if !valid {
		return
	}
	var req ScheduleMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "channel_id, channel_name, message and scheduled_for are required")
		return
	}
	dest := domain.UserChannel{UserID: owner, ChannelID: req.ChannelID, ChannelName: req.ChannelName}
	h.createScheduled(c, dest, req.Message, req.ScheduledFor)
}

// ListScheduled godoc
// @ID          listScheduled
// @Summary     List scheduled messages (paginated)
// @Description Returns the caller's messages ordered by scheduled_for. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Scheduled
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "Owner user ID"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListScheduledResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages/scheduled [get]
func (h *Handlers) ListScheduled(c *gin.Context) {
	if owner, valid := channelOwner(c, false); valid {
		h.listScheduled(c, owner)
	}
}

// GetScheduled godoc
// @ID          getScheduled
// @Summary     Get a scheduled message
// @Tags        Scheduled
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner user ID"
// @Param       id         path    string  true  "Message ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.ScheduledMessageView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Router      /messages/scheduled/{id} [get]
func (h *Handlers) GetScheduled(c *gin.Context) {
	owner, valid := channelOwner(c, true)
	if !valid {
		return
	}
	id, valid := messageID(c)
	if !valid {
		return
	}
	m, err := h.sched.Get(c.Request.Context(), id, owner)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view(m))
}

// EditScheduled godoc
// @ID          editScheduled
// @Summary     Edit a pending message
// @Description Updates the text and/or delivery time. Only pending messages can be edited.
// @Tags        Scheduled
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner user ID"
// @Param       id         path    string  true  "Message ID (UUID)"  format(uuid)
// @Param       body       body    handlers.UpdateScheduledRequest  true  "Fields to change"
//
// @Success     200  {object} handlers.ScheduledMessageView
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "No longer pending"
// @Router      /messages/scheduled/{id} [put]
func (h *Handlers) EditScheduled(c *gin.Context) {
	if owner, valid := channelOwner(c, true); valid {
		h.editScheduled(c, owner)
	}
}

// CancelScheduled godoc
// @ID          cancelScheduled
// @Summary     Cancel a pending message
// @Tags        Scheduled
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner user ID"
// @Param       id         path    string  true  "Message ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.ScheduledMessageView
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "No longer pending"
// @Router      /messages/scheduled/{id}/cancel [post]
func (h *Handlers) CancelScheduled(c *gin.Context) {
	if owner, valid := channelOwner(c, true); valid {
		h.cancelScheduled(c, owner)
	}
}

// DeleteScheduled godoc
// @ID          deleteScheduled
// @Summary     Delete a pending message
// @Tags        Scheduled
//
// @Param       X-User-ID  header  string  true  "Owner user ID"
// @Param       id         path    string  true  "Message ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "No longer pending"
// @Router      /messages/scheduled/{id} [delete]
func (h *Handlers) DeleteScheduled(c *gin.Context) {
	owner, valid := channelOwner(c, true)
	if !valid {
		return
	}
	id, valid := messageID(c)
	if !valid {
		return
	}
	if err := h.sched.Delete(c.Request.Context(), id, owner); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
