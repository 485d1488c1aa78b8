// Webhook flow handlers.
//
// These endpoints deliver through the deployment-wide incoming webhook and
// need no linked Slack account. Every row they create is owned by
// domain.WebhookOwner, so the list/edit/cancel endpoints only ever see
// webhook rows. When no webhook URL is configured the whole group answers
// 503 webhook_unavailable.
//
//   - POST /webhook/send
//   - POST /webhook/schedule
//   - GET  /webhook/scheduled
//   - PUT  /webhook/scheduled/{id}
//   - POST /webhook/scheduled/{id}/cancel
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

// WebhookSendRequest is the JSON payload for an immediate webhook post.
type WebhookSendRequest struct {
	Message string `json:"message" binding:"required" example:"Build is green"`
}

// WebhookScheduleRequest is the JSON payload for scheduling a webhook post.
type WebhookScheduleRequest struct {
	Message      string `json:"message" binding:"required" example:"Weekly report is out"`
	ScheduledFor int64  `json:"scheduled_for" binding:"required" example:"1767225600"`
}

// RequireWebhook aborts with 503 when the webhook flow is not configured.
func (h *Handlers) RequireWebhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.webhook {
			fail(c, http.StatusServiceUnavailable, ErrCodeWebhookUnavailable, "webhook URL not configured")
			return
		}
		c.Next()
	}
}

// WebhookSend godoc
// @ID          webhookSend
// @Summary     Post through the webhook now
// @Tags        Webhook
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.WebhookSendRequest  true  "Message"
// @Success     200  {object}  handlers.SendMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     502  {object}  handlers.ErrorResponse  "Delivery failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Webhook not configured"
// @Router      /webhook/send [post]
func (h *Handlers) WebhookSend(c *gin.Context) {
	var req WebhookSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message is required")
		return
	}
	if err := h.send.SendNow(c.Request.Context(), domain.FixedWebhook{}, req.Message); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SendMessageResponse{OK: true})
}

// WebhookSchedule godoc
// @ID          webhookSchedule
// @Summary     Schedule a webhook post
// @Tags        Webhook
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body  body  handlers.WebhookScheduleRequest  true  "Schedule payload"
// @Success     201  {object}  handlers.ScheduledMessageView
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Webhook not configured"
// @Router      /webhook/schedule [post]
func (h *Handlers) WebhookSchedule(c *gin.Context) {
	var req WebhookScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message and scheduled_for are required")
		return
	}
	h.createScheduled(c, domain.FixedWebhook{}, req.Message, req.ScheduledFor)
}

// WebhookListScheduled godoc
// @ID          webhookListScheduled
// @Summary     List scheduled webhook posts
// @Tags        Webhook
// @Produce     json
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListScheduledResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Webhook not configured"
// @Router      /webhook/scheduled [get]
func (h *Handlers) WebhookListScheduled(c *gin.Context) {
	h.listScheduled(c, domain.WebhookOwner)
}

// WebhookEditScheduled godoc
// @ID          webhookEditScheduled
// @Summary     Edit a pending webhook post
// @Tags        Webhook
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Message ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateScheduledRequest  true  "Fields to change"
// @Success     200  {object}  handlers.ScheduledMessageView
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     409  {object}  handlers.ErrorResponse  "No longer pending"
// @Router      /webhook/scheduled/{id} [put]
func (h *Handlers) WebhookEditScheduled(c *gin.Context) {
	h.editScheduled(c, domain.WebhookOwner)
}

// WebhookCancelScheduled godoc
// @ID          webhookCancelScheduled
// @Summary     Cancel a pending webhook post
// @Tags        Webhook
// @Produce     json
// @Param       id  path  string  true  "Message ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.ScheduledMessageView
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     409  {object}  handlers.ErrorResponse  "No longer pending"
// @Router      /webhook/scheduled/{id}/cancel [post]
func (h *Handlers) WebhookCancelScheduled(c *gin.Context) {
	h.cancelScheduled(c, domain.WebhookOwner)
}
