package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

func TestWebhookRoutes_UnavailableWhenUnconfigured(t *testing.T) {
	env := newEnv(t, func(d *Deps) { d.WebhookEnabled = false })

	reqs := []struct{ method, path string }{
		{http.MethodPost, "/webhook/send"},
		{http.MethodPost, "/webhook/schedule"},
		{http.MethodGet, "/webhook/scheduled"},
		{http.MethodPut, "/webhook/scheduled/00000000-0000-0000-0000-000000000000"},
		{http.MethodPost, "/webhook/scheduled/00000000-0000-0000-0000-000000000000/cancel"},
	}
	for _, rq := range reqs {
		w := env.do(rq.method, rq.path, "", map[string]any{"message": "x"}, nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s %s: status=%d", rq.method, rq.path, w.Code)
		}
		if er := decodeErr(t, w); er.Code != ErrCodeWebhookUnavailable {
			t.Fatalf("%s %s: code=%q", rq.method, rq.path, er.Code)
		}
	}

	// Channel routes keep working.
	env.schedule(t, "u1")
}

func TestWebhookSchedule_OwnedByWebhookUser(t *testing.T) {
	env := newEnv(t, nil)

	w := env.do(http.MethodPost, "/webhook/schedule", "", WebhookScheduleRequest{Message: "report", ScheduledFor: future()}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	v := decodeView(t, w)
	if v.OwnerID != domain.WebhookOwner || v.Kind != domain.KindWebhook {
		t.Fatalf("unexpected row: %+v", v)
	}

	// Channel owners do not see webhook rows.
	env.schedule(t, "u1")
	w = env.do(http.MethodGet, "/webhook/scheduled", "", nil, nil)
	var resp ListScheduledResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Pagination.Total != 1 || resp.Messages[0].ID != v.ID {
		t.Fatalf("webhook list: %+v", resp)
	}

	w = env.do(http.MethodPut, "/webhook/scheduled/"+v.ID, "", map[string]any{"message": "report v2"}, nil)
	if w.Code != http.StatusOK || decodeView(t, w).Body != "report v2" {
		t.Fatalf("edit: status=%d body=%s", w.Code, w.Body.String())
	}
	w = env.do(http.MethodPost, "/webhook/scheduled/"+v.ID+"/cancel", "", nil, nil)
	if w.Code != http.StatusOK || decodeView(t, w).Status != domain.StatusCancelled {
		t.Fatalf("cancel: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestWebhookRoutes_CannotTouchChannelRows(t *testing.T) {
	env := newEnv(t, nil)
	v := env.schedule(t, "u1")

	if w := env.do(http.MethodPost, "/webhook/scheduled/"+v.ID+"/cancel", "", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestChannelRoutes_RejectWebhookIdentity(t *testing.T) {
	env := newEnv(t, nil)
	w := env.do(http.MethodPost, "/webhook/schedule", "", WebhookScheduleRequest{Message: "report", ScheduledFor: future()}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("webhook schedule: status=%d", w.Code)
	}
	row := decodeView(t, w)

	// Id routes behave as if the webhook row did not exist.
	for _, rq := range []struct{ method, path string }{
		{http.MethodGet, "/messages/scheduled/" + row.ID},
		{http.MethodPut, "/messages/scheduled/" + row.ID},
		{http.MethodPost, "/messages/scheduled/" + row.ID + "/cancel"},
		{http.MethodDelete, "/messages/scheduled/" + row.ID},
	} {
		w := env.do(rq.method, rq.path, domain.WebhookOwner, map[string]any{"message": "hijack"}, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s %s: status=%d", rq.method, rq.path, w.Code)
		}
	}

	w = env.do(http.MethodPost, "/messages/schedule", domain.WebhookOwner, ScheduleMessageRequest{
		ChannelID: "C1", ChannelName: "general", Message: "x", ScheduledFor: future(),
	}, nil)
	if w.Code != http.StatusBadRequest || decodeErr(t, w).Code != ErrCodeValidation {
		t.Fatalf("schedule as webhook owner: status=%d body=%s", w.Code, w.Body.String())
	}
	for _, rq := range []struct{ method, path string }{
		{http.MethodGet, "/messages/scheduled"},
		{http.MethodPost, "/messages/send"},
		{http.MethodGet, "/channels"},
	} {
		if w := env.do(rq.method, rq.path, domain.WebhookOwner, map[string]any{"channel_id": "C1", "message": "x"}, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: status=%d", rq.method, rq.path, w.Code)
		}
	}
	if len(env.send.sent) != 0 {
		t.Fatalf("send reached the service: %+v", env.send.sent)
	}

	// The webhook row survived untouched.
	w = env.do(http.MethodGet, "/webhook/scheduled", "", nil, nil)
	var resp ListScheduledResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Pagination.Total != 1 || resp.Messages[0].Status != domain.StatusPending || resp.Messages[0].Body != "report" {
		t.Fatalf("webhook row changed: %+v", resp)
	}
}

func TestWebhookSend(t *testing.T) {
	env := newEnv(t, nil)

	w := env.do(http.MethodPost, "/webhook/send", "", WebhookSendRequest{Message: "ping"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if _, isHook := env.send.sent[0].(domain.FixedWebhook); !isHook {
		t.Fatalf("expected webhook destination, got %#v", env.send.sent[0])
	}
}
