package models

import (
	"time"

	"gorm.io/gorm"
)

// Channel represents a chat channel users can join.
type Channel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Slug      string    `gorm:"size:255;uniqueIndex" json:"slug"`
	Private   bool      `gorm:"not null;default:false" json:"private"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership is a user's subscription record to a channel. It is the sole
// source of truth for that user's read position in the channel; the pointer
// only ever moves forward.
type Membership struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;uniqueIndex:idx_memberships_user_channel" json:"user_id"`
	ChannelID         uint      `gorm:"not null;uniqueIndex:idx_memberships_user_channel" json:"channel_id"`
	LastReadMessageID *uint     `json:"last_read_message_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Message is a single entry in a channel's message log. Messages are never
// physically removed; DeletedAt marks them trashed so they stay around for
// audit while being excluded from counts and groupings. Identifiers are
// assigned in strictly increasing creation order.
type Message struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ChannelID   uint           `gorm:"not null;index" json:"channel_id"`
	ThreadID    *uint          `gorm:"index" json:"thread_id"`
	InReplyToID *uint          `json:"in_reply_to_id"`
	AuthorID    uint           `gorm:"not null;index" json:"author_id"`
	Content     string         `gorm:"type:text" json:"content"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Trashed reports whether the message has been soft deleted.
func (m Message) Trashed() bool {
	return m.DeletedAt.Valid
}

// Thread groups messages anchored by one original message within a channel.
// RepliesCount is a cache over the message log: the number of non-trashed
// messages in the thread excluding the original message. It must always be
// recomputable from Messages and is never the primary record.
type Thread struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ChannelID         uint      `gorm:"not null;index" json:"channel_id"`
	OriginalMessageID uint      `gorm:"not null;index" json:"original_message_id"`
	RepliesCount      int64     `gorm:"not null;default:0" json:"replies_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
