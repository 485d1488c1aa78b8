// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for linked Slack
// accounts (the User model).
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

// CreateUser inserts u, generating an id when empty.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(u).Error
}

// GetUser fetches a user by internal id.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserBySlackID fetches a user by the Slack user id.
func GetUserBySlackID(ctx context.Context, db *gorm.DB, slackUserID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("slack_user_id = ?", slackUserID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUserBySlackID inserts u or, when a row with the same SlackUserID
// exists, refreshes its team, token and webhook in place. The returned user
// carries the persisted internal id.
func UpsertUserBySlackID(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error) {
	var out *domain.User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := GetUserBySlackID(ctx, tx, u.SlackUserID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fresh := *u
			if err := CreateUser(ctx, tx, &fresh); err != nil {
				return err
			}
			out = &fresh
			return nil
		case err != nil:
			return err
		}

		cols := map[string]any{
			"team_id":      u.TeamID,
			"access_token": u.AccessToken,
			"updated_at":   time.Now().UTC(),
		}
		if u.WebhookURL != "" {
			cols["webhook_url"] = u.WebhookURL
		}
		if err := tx.Model(&domain.User{}).Where("id = ?", existing.ID).Updates(cols).Error; err != nil {
			return err
		}
		out, err = GetUser(ctx, tx, existing.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
