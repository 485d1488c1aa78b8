// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ScheduledMessage model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a message is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Status transitions are conditional on the row still being pending.
//     Functions that perform them report whether the write applied instead
//     of failing, so callers can tell a lost race from a DB error.
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateScheduledMessage inserts m. When m.ID is empty a UUID is generated;
// CreatedAt keeps a caller-provided value and otherwise defaults to now.
func CreateScheduledMessage(ctx context.Context, db *gorm.DB, m *domain.ScheduledMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.StatusPending
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}
	return db.WithContext(ctx).Create(m).Error
}

// GetScheduledMessage fetches a message by id regardless of owner. It is the
// dispatcher's point lookup; owner-facing code uses GetScheduledMessageForOwner.
func GetScheduledMessage(ctx context.Context, db *gorm.DB, id string) (*domain.ScheduledMessage, error) {
	var m domain.ScheduledMessage
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetScheduledMessageForOwner fetches a message by id and owner. A message
// owned by someone else is reported as ErrNotFound.
func GetScheduledMessageForOwner(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.ScheduledMessage, error) {
	var m domain.ScheduledMessage
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListScheduledMessages returns every message of ownerID in every status,
// ordered by scheduled_for ascending (ties by id).
func ListScheduledMessages(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.ScheduledMessage, error) {
	var out []domain.ScheduledMessage
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("scheduled_for ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountScheduledMessages returns the number of messages owned by ownerID.
func CountScheduledMessages(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ScheduledMessage{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error
	return total, err
}

// ListScheduledMessagesPage returns a page of ownerID's messages using the
// same ordering as ListScheduledMessages.
func ListScheduledMessagesPage(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.ScheduledMessage, error) {
	var out []domain.ScheduledMessage
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("scheduled_for ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListDueScheduledMessages returns pending messages with scheduled_for <= now,
// earliest first. A limit <= 0 returns all of them.
func ListDueScheduledMessages(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.ScheduledMessage, error) {
	var out []domain.ScheduledMessage
	q := db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", domain.StatusPending, now.Unix()).
		Order("scheduled_for ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountPendingScheduledMessages returns the number of pending messages across
// all owners.
func CountPendingScheduledMessages(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ScheduledMessage{}).
		Where("status = ?", domain.StatusPending).
		Count(&total).Error
	return total, err
}

// MessageFields is a column-level partial update for a pending message.
// Nil fields are left untouched.
type MessageFields struct {
	Body         *string
	ScheduledFor *int64
}

func (f MessageFields) empty() bool { return f.Body == nil && f.ScheduledFor == nil }

// UpdatePendingScheduledMessage applies fields to the message (id, ownerID)
// only while it is still pending. It reports whether a row was updated; a
// false result means the message is missing, foreign, or no longer pending.
func UpdatePendingScheduledMessage(ctx context.Context, db *gorm.DB, id, ownerID string, fields MessageFields) (bool, error) {
	if fields.empty() {
		return false, nil
	}
	cols := map[string]any{}
	if fields.Body != nil {
		cols["body"] = *fields.Body
	}
	if fields.ScheduledFor != nil {
		cols["scheduled_for"] = *fields.ScheduledFor
	}
	res := db.WithContext(ctx).
		Model(&domain.ScheduledMessage{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, domain.StatusPending).
		Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Resolution is the terminal write for a pending message.
type Resolution struct {
	Status       domain.Status
	SentAt       *int64
	ErrorMessage *string
}

// Sent builds the resolution for a delivered message.
func Sent(at time.Time) Resolution {
	ts := at.Unix()
	return Resolution{Status: domain.StatusSent, SentAt: &ts}
}

// Failed builds the resolution for a message that could not be delivered.
func Failed(reason string) Resolution {
	return Resolution{Status: domain.StatusFailed, ErrorMessage: &reason}
}

// Cancelled builds the resolution for a message withdrawn by its owner.
func Cancelled() Resolution {
	return Resolution{Status: domain.StatusCancelled}
}

// ResolvePendingScheduledMessage moves message id from pending to r.Status.
// The write is conditional on the row still being pending, so at most one
// resolver wins. ownerID scopes the write when non-empty (lifecycle path);
// the dispatcher passes "".
func ResolvePendingScheduledMessage(ctx context.Context, db *gorm.DB, id, ownerID string, r Resolution) (bool, error) {
	cols := map[string]any{"status": r.Status}
	if r.SentAt != nil {
		cols["sent_at"] = *r.SentAt
	}
	if r.ErrorMessage != nil {
		cols["error_message"] = *r.ErrorMessage
	}
	q := db.WithContext(ctx).
		Model(&domain.ScheduledMessage{}).
		Where("id = ? AND status = ?", id, domain.StatusPending)
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	res := q.Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteScheduledMessage physically removes message (id, ownerID) whatever
// its status. It reports whether a row was removed.
func DeleteScheduledMessage(ctx context.Context, db *gorm.DB, id, ownerID string) (bool, error) {
	res := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&domain.ScheduledMessage{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeletePendingScheduledMessage removes message (id, ownerID) only while it
// is still pending.
func DeletePendingScheduledMessage(ctx context.Context, db *gorm.DB, id, ownerID string) (bool, error) {
	res := db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, domain.StatusPending).
		Delete(&domain.ScheduledMessage{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// PurgeTerminalScheduledMessages deletes terminal messages created before
// cutoff and returns how many rows were removed. Pending rows are never
// touched.
func PurgeTerminalScheduledMessages(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", domain.TerminalStatuses, cutoff.Unix()).
		Delete(&domain.ScheduledMessage{})
	return res.RowsAffected, res.Error
}
