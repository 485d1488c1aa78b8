// Package domain defines the persistence models for scheduled Slack messages,
// linked Slack accounts and idempotency records. These types are mapped with
// GORM and form the core data layer of the scheduler.
package domain

import (
	"strings"
	"time"
)

// Status is the delivery lifecycle state of a ScheduledMessage.
//
// A message starts as StatusPending and moves exactly once to one of the
// terminal states. It never moves backwards.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a final state (sent, failed or cancelled).
func (s Status) Terminal() bool {
	switch s {
	case StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// TerminalStatuses lists every state a message can end in.
var TerminalStatuses = []Status{StatusSent, StatusFailed, StatusCancelled}

// DestinationKind tags how a message is delivered.
type DestinationKind string

const (
	// KindChannel posts into a workspace channel using the owner's credential.
	KindChannel DestinationKind = "channel"
	// KindWebhook posts to the deployment-wide incoming webhook URL.
	KindWebhook DestinationKind = "webhook"
)

// WebhookOwner is the reserved owner id for messages created through the
// unauthenticated webhook flow.
const WebhookOwner = "webhook-user"

// ScheduledMessage is a chat message queued for delivery at ScheduledFor.
//
// Fields:
//   - ID: UUID primary key (char(36)); never reused.
//   - OwnerID: user id, or WebhookOwner for webhook-flow rows.
//   - Kind: explicit destination tag; see Destination.
//   - ChannelID / ChannelName: target channel for KindChannel rows.
//   - Body: message text (json "message").
//   - ScheduledFor: epoch seconds; the message is due once now >= ScheduledFor.
//   - Status: lifecycle state.
//   - CreatedAt / UpdatedAt: epoch seconds; UpdatedAt is maintained by GORM.
//   - SentAt: set exactly once on the transition to sent.
//   - ErrorMessage: set only when Status is failed.
type ScheduledMessage struct {
	ID           string          `json:"id"             gorm:"type:char(36);primaryKey"`
	OwnerID      string          `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_owner_sched,priority:1"`
	Kind         DestinationKind `json:"kind"           gorm:"type:varchar(16);not null;default:'channel'"`
	ChannelID    string          `json:"channel_id"     gorm:"type:varchar(64)"`
	ChannelName  string          `json:"channel_name"   gorm:"type:varchar(255)"`
	Body         string          `json:"message"        gorm:"type:text;not null"`
	ScheduledFor int64           `json:"scheduled_for"  gorm:"not null;index:idx_owner_sched,priority:2;index:idx_due,priority:2"`
	Status       Status          `json:"status"         gorm:"type:varchar(16);not null;default:'pending';index:idx_due,priority:1"`
	CreatedAt    int64           `json:"created_at"     gorm:"not null;autoCreateTime"`
	UpdatedAt    int64           `json:"updated_at"     gorm:"autoUpdateTime"`
	SentAt       *int64          `json:"sent_at,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty" gorm:"type:text"`
}

// TableName returns the database table name for ScheduledMessage.
func (ScheduledMessage) TableName() string { return "scheduled_messages" }

// Due reports whether the message is pending and its time has come.
func (m *ScheduledMessage) Due(now time.Time) bool {
	return m.Status == StatusPending && m.ScheduledFor <= now.Unix()
}

// Destination returns the tagged delivery target of the message. Rows with a
// missing kind are treated by their owner: WebhookOwner means webhook.
func (m *ScheduledMessage) Destination() Destination {
	kind := m.Kind
	if kind == "" {
		kind = KindChannel
		if m.OwnerID == WebhookOwner {
			kind = KindWebhook
		}
	}
	if kind == KindWebhook {
		return FixedWebhook{}
	}
	return UserChannel{UserID: m.OwnerID, ChannelID: m.ChannelID, ChannelName: m.ChannelName}
}

// Destination is the delivery target of a message. It is a closed set:
// UserChannel or FixedWebhook.
type Destination interface {
	Kind() DestinationKind
	Owner() string
}

// UserChannel delivers into ChannelID with the credential of UserID.
type UserChannel struct {
	UserID      string `json:"-"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

// FixedWebhook delivers to the configured incoming webhook.
type FixedWebhook struct{}

func (UserChannel) Kind() DestinationKind  { return KindChannel }
func (d UserChannel) Owner() string        { return d.UserID }
func (FixedWebhook) Kind() DestinationKind { return KindWebhook }
func (FixedWebhook) Owner() string         { return WebhookOwner }

// NewScheduledMessage builds a pending row for dest. The id and timestamps are
// filled in by the repository on insert.
func NewScheduledMessage(dest Destination, body string, scheduledFor int64) *ScheduledMessage {
	m := &ScheduledMessage{
		OwnerID:      dest.Owner(),
		Kind:         dest.Kind(),
		Body:         body,
		ScheduledFor: scheduledFor,
		Status:       StatusPending,
	}
	if uc, ok := dest.(UserChannel); ok {
		m.ChannelID = strings.TrimSpace(uc.ChannelID)
		m.ChannelName = strings.TrimSpace(uc.ChannelName)
	}
	return m
}
