package models

import "time"

// Message is a flat chat row between two users. Conversations are
// derived by grouping messages on the canonical pair key, never stored.
type Message struct {
	ID         string    `db:"id" json:"id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	ReceiverID string    `db:"receiver_id" json:"receiver_id"`
	Content    string    `db:"content" json:"content"`
	FileName   string    `db:"file_name" json:"file_name,omitempty"`
	FilePath   string    `db:"file_path" json:"-"`
	Read       bool      `db:"read" json:"read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	// FileURL is a signed link computed on read, never stored.
	FileURL string `db:"-" json:"file_url,omitempty"`
}

// Conversation is the derived view of a message thread with one partner.
type Conversation struct {
	Key         string  `json:"key"`
	PartnerID   string  `json:"partner_id"`
	LastMessage Message `json:"last_message"`
	UnreadCount int     `json:"unread_count"`
}
