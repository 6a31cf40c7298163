package domain

import "time"

// Conversation groups the messages of one chat thread for an owner.
type Conversation struct {
	ID        string    `json:"id"         db:"id"`
	OwnerID   string    `json:"owner_id"   db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is a single utterance in a conversation. IsBot distinguishes
// assistant replies from user messages.
type Message struct {
	ID             string    `json:"id"              db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Content        string    `json:"content"         db:"content"`
	IsBot          bool      `json:"is_bot"          db:"is_bot"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
}
