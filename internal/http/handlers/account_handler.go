// Account, channel and scheduler handlers.
//
//   - POST /accounts/link       (store a Slack credential after OAuth)
//   - GET  /me/token-status     (is the caller's credential still accepted)
//   - GET  /channels            (postable channels, degraded fallback flagged)
//   - GET  /channels/debug      (per-strategy outcome of the channel listing)
//   - GET  /scheduler/status    (dispatcher loop state and pending count)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-slack-scheduler/internal/scheduler"
	"github.com/tbourn/go-slack-scheduler/internal/services"
)

// TokenStatusResponse reports the caller's credential state.
type TokenStatusResponse struct {
	UserID string `json:"user_id"`
	Linked bool   `json:"linked"`
	Valid  bool   `json:"valid"`
}

// ChannelDebugResponse lists what every channel strategy returned.
type ChannelDebugResponse struct {
	Strategies []services.StrategyResult `json:"strategies"`
}

// SchedulerStatusResponse describes the background dispatcher.
type SchedulerStatusResponse struct {
	Enabled bool `json:"enabled"`
	scheduler.Status
	Pending int64 `json:"pending"`
}

// LinkAccount godoc
// @ID          linkAccount
// @Summary     Link a Slack account
// @Description Stores (or refreshes) the credential for a Slack user. Called by the OAuth callback.
// @Tags        Accounts
// @Accept      json
// @Produce     json
// @Param       body  body  services.LinkInput  true  "Slack identity and token"
// @Success     201  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /accounts/link [post]
func (h *Handlers) LinkAccount(c *gin.Context) {
	var in services.LinkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.accounts.LinkAccount(c.Request.Context(), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}

// TokenStatus godoc
// @ID          tokenStatus
// @Summary     Check the caller's Slack credential
// @Tags        Accounts
// @Produce     json
// @Param       X-User-ID  header  string  true  "Owner user ID"
// @Success     200  {object}  handlers.TokenStatusResponse
// @Router      /me/token-status [get]
func (h *Handlers) TokenStatus(c *gin.Context) {
	uid := userID(c)
	st, err := h.accounts.TokenStatus(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TokenStatusResponse{UserID: uid, Linked: st.Linked, Valid: st.Valid})
}

// ListChannels godoc
// @ID          listChannels
// @Summary     List postable channels
// @Description Returns channels the caller is a member of. When Slack cannot be queried the
// @Description result is the general channel only, with degraded=true and a warning.
// @Tags        Channels
// @Produce     json
// @Param       X-User-ID  header  string  true  "Owner user ID"
// @Success     200  {object}  services.ChannelListing
// @Failure     401  {object}  handlers.ErrorResponse  "No linked Slack account"
// @Router      /channels [get]
func (h *Handlers) ListChannels(c *gin.Context) {
	owner, valid := channelOwner(c, false)
	if !valid {
		return
	}
	res, err := h.channels.List(c.Request.Context(), owner)
	if err != nil {
		failErr(c, err)
		return
	}
	if res.Degraded {
		c.Header("Warning", `199 - "`+res.Warning+`"`)
	}
	ok(c, http.StatusOK, res)
}

// DiagnoseChannels godoc
// @ID          diagnoseChannels
// @Summary     Channel listing diagnostics
// @Tags        Channels
// @Produce     json
// @Param       X-User-ID  header  string  true  "Owner user ID"
// @Success     200  {object}  handlers.ChannelDebugResponse
// @Failure     401  {object}  handlers.ErrorResponse  "No linked Slack account"
// @Router      /channels/debug [get]
func (h *Handlers) DiagnoseChannels(c *gin.Context) {
	owner, valid := channelOwner(c, false)
	if !valid {
		return
	}
	res, err := h.channels.Diagnose(c.Request.Context(), owner)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ChannelDebugResponse{Strategies: res})
}

// SchedulerStatus godoc
// @ID          schedulerStatus
// @Summary     Dispatcher status
// @Tags        Scheduler
// @Produce     json
// @Success     200  {object}  handlers.SchedulerStatusResponse
// @Router      /scheduler/status [get]
func (h *Handlers) SchedulerStatus(c *gin.Context) {
	var resp SchedulerStatusResponse
	if h.status != nil {
		resp.Enabled = true
		resp.Status = h.status.Status()
	}
	if n, err := h.sched.PendingCount(c.Request.Context()); err == nil {
		resp.Pending = n
	}
	ok(c, http.StatusOK, resp)
}
