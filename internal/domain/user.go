package domain

import "time"

// User is a linked Slack account. It holds the bearer credential used to post
// on the user's behalf.
//
// Identity reconciliation is keyed by SlackUserID: re-linking the same Slack
// user refreshes the credential in place and keeps the internal ID.
type User struct {
	ID          string    `json:"id"            gorm:"type:char(36);primaryKey"`
	SlackUserID string    `json:"slack_user_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_users_slack_user"`
	TeamID      string    `json:"team_id"       gorm:"type:varchar(64)"`
	AccessToken string    `json:"-"             gorm:"type:text"`
	WebhookURL  string    `json:"-"             gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// HasCredential reports whether the user has a stored access token.
func (u *User) HasCredential() bool { return u != nil && u.AccessToken != "" }

// Channel is a conversation the caller can post into. It is not persisted.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	IsGeneral  bool   `json:"is_general"`
	IsArchived bool   `json:"is_archived"`
	IsMember   bool   `json:"is_member"`
}
