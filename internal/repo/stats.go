package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

// ScheduledMessagesStats returns how many messages ownerID has and the
// newest updated_at among them (epoch seconds), both 0 when there are none.
// Every edit, cancel and dispatcher resolution bumps updated_at, so list
// ETags built from the pair change when the owner's list does.
func ScheduledMessagesStats(ctx context.Context, db *gorm.DB, ownerID string) (count, maxUpdatedAt int64, err error) {
	var row struct {
		N      int64
		Latest int64
	}
	err = db.WithContext(ctx).
		Model(&domain.ScheduledMessage{}).
		Select("COUNT(*) AS n, COALESCE(MAX(updated_at), 0) AS latest").
		Where("owner_id = ?", ownerID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.N, row.Latest, nil
}
