package dto

// UpdateLastReadRequest carries a client's "I have read up to this message"
// action. All three identifiers are required by the contract stage.
type UpdateLastReadRequest struct {
	UserID    uint `json:"user_id" validate:"required"`
	ChannelID uint `json:"channel_id" validate:"required"`
	MessageID uint `json:"message_id" validate:"required"`
}

// ReadStateResponse is the success payload of a last-read advancement.
type ReadStateResponse struct {
	ChannelID         uint `json:"channel_id"`
	LastReadMessageID uint `json:"last_read_message_id"`
}

// TrackingStateUpdate is broadcast to every open session of a user after a
// successful advancement so all tabs converge to the same read position.
type TrackingStateUpdate struct {
	UserID            uint `json:"user_id"`
	ChannelID         uint `json:"channel_id"`
	LastReadMessageID uint `json:"last_read_message_id"`
}

// GroupedThreadMessages reports, per thread, the message identifiers that
// belong to it in ascending creation order.
type GroupedThreadMessages struct {
	ThreadID          uint   `json:"thread_id"`
	OriginalMessageID uint   `json:"original_message_id"`
	ThreadMessageIDs  []uint `json:"thread_message_ids"`
}

// NotificationResponse is the API projection of a stored notification.
type NotificationResponse struct {
	ID        uint   `json:"id"`
	Type      string `json:"type"`
	MessageID *uint  `json:"message_id,omitempty"`
	ChannelID *uint  `json:"channel_id,omitempty"`
	Read      bool   `json:"read"`
}

// UnreadMentionsResponse reports how many mention notifications remain
// unread for a user across all channels.
type UnreadMentionsResponse struct {
	UnreadMentions int64 `json:"unread_mentions"`
}

// EnsureConsistencyRequest optionally narrows a reconciliation run to a
// subset of threads; an empty list reconciles every thread.
type EnsureConsistencyRequest struct {
	ThreadIDs []uint `json:"thread_ids"`
}

// EnsureConsistencyResponse reports how many cached counts drifted and were
// rewritten during a reconciliation pass.
type EnsureConsistencyResponse struct {
	UpdatedThreads int `json:"updated_threads"`
}
