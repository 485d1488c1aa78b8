// Error codes returned in ErrorResponse.Code, and the mapping from service
// and Slack errors onto them. Delivery failures surface as
// "delivery_<kind>", kind being the Slack error classification.

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-slack-scheduler/internal/services"
	"github.com/tbourn/go-slack-scheduler/internal/slack"
)

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeRateLimited = "too_many_requests"
	ErrCodeInternal    = "internal_error"

	ErrCodeValidation         = "validation_failed"
	ErrCodeInvalidState       = "invalid_state"
	ErrCodeWebhookUnavailable = "webhook_unavailable"
	ErrCodeNoCredential       = "no_credential"
	ErrCodeDeliveryPrefix     = "delivery_"
	ErrCodeListFailed         = "list_failed"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)

// failErr translates a service error into the matching status and code.
// Unknown errors become 500 internal_error.
func failErr(c *gin.Context, err error) {
	var ve *services.ValidationError
	var de *slack.DeliveryError

	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ErrCodeValidation, ve.Error())
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidState):
		fail(c, http.StatusConflict, ErrCodeInvalidState, err.Error())
	case errors.Is(err, services.ErrConfiguration):
		fail(c, http.StatusServiceUnavailable, ErrCodeWebhookUnavailable, err.Error())
	case errors.Is(err, services.ErrNoCredential):
		fail(c, http.StatusUnauthorized, ErrCodeNoCredential, err.Error())
	case errors.As(err, &de):
		if de.Kind == slack.KindRateLimited {
			if de.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(de.RetryAfter.Seconds())))
			}
			fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, de.Error())
			return
		}
		fail(c, http.StatusBadGateway, ErrCodeDeliveryPrefix+string(de.Kind), de.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
