// Immediate delivery handlers.
//
//   - POST /messages/send   (post to a channel with the caller's credential)
//
// Delivery failures surface as 429 (rate limited) or 502 with a
// "delivery_<kind>" code; nothing is persisted.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

// SendMessageRequest is the JSON payload for an immediate channel send.
type SendMessageRequest struct {
	ChannelID string `json:"channel_id" binding:"required" example:"C024BE91L"`
	Message   string `json:"message" binding:"required" example:"Deploy finished"`
}

// SendMessageResponse acknowledges a delivered message.
type SendMessageResponse struct {
	OK        bool   `json:"ok" example:"true"`
	ChannelID string `json:"channel_id,omitempty" example:"C024BE91L"`
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a message now
// @Description Posts the message to the channel immediately using the caller's linked Slack account.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner user ID"
// @Param       body       body    handlers.SendMessageRequest  true  "Send payload"
//
// @Success     200  {object}  handlers.SendMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "No linked Slack account"
// @Failure     429  {object}  handlers.ErrorResponse  "Slack rate limited"
// @Failure     502  {object}  handlers.ErrorResponse  "Delivery failed"
// @Router      /messages/send [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	owner, valid := channelOwner(c, false)
	if !valid {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "channel_id and message are required")
		return
	}
	dest := domain.UserChannel{UserID: owner, ChannelID: req.ChannelID}
	if err := h.send.SendNow(c.Request.Context(), dest, req.Message); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SendMessageResponse{OK: true, ChannelID: req.ChannelID})
}
