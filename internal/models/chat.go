package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is keyed by an unordered pair of user ids. The smaller uuid
// string is always stored as UserAID so the composite unique index gives at
// most one conversation per pair regardless of who opened it.
type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	UserAID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_pair" json:"user_a_id"`
	UserBID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_pair" json:"user_b_id"`

	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	UserA    *User     `gorm:"foreignKey:UserAID" json:"user_a,omitempty"`
	UserB    *User     `gorm:"foreignKey:UserBID" json:"user_b,omitempty"`
	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// NormalizePair orders two user ids into the canonical (UserA, UserB) form.
func NormalizePair(x, y uuid.UUID) (uuid.UUID, uuid.UUID) {
	if strings.Compare(x.String(), y.String()) <= 0 {
		return x, y
	}
	return y, x
}

// HasMember reports whether userID is one of the two parties.
func (c *Conversation) HasMember(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Other returns the counterpart of userID in the conversation.
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// Message is an append-only chat record, optionally tied to a job for
// context. Delivery is poll-based; readers page through messages.
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;index;not null" json:"conversation_id"`
	SenderID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"sender_id"`
	JobID          *uuid.UUID `gorm:"type:uuid;index" json:"job_id,omitempty"`

	Text   string `gorm:"type:text;not null" json:"text"`
	IsRead bool   `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Job    *Job  `gorm:"foreignKey:JobID" json:"job,omitempty"`
}
