package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationTypeMention is the only notification type that participates in
// read-state reconciliation: advancing a membership's read pointer marks the
// mentions it covers as read.
const NotificationTypeMention = "mention"

// Notification represents an in-app notification targeted to a specific user.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	Type      string            `gorm:"size:64;not null;index" json:"type"`
	MessageID *uint             `gorm:"index" json:"message_id"`
	ChannelID *uint             `gorm:"index" json:"channel_id"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	Data      datatypes.JSONMap `gorm:"type:json" json:"data"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
