package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Match statuses
const (
	MatchStatusActive    = "active"
	MatchStatusUnmatched = "unmatched"
)

// Match represents a mutual match between two users.
// UserAID is always the lexically smaller UUID so a pair maps to a
// single row regardless of who initiated.
type Match struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserAID     uuid.UUID  `json:"user_a_id" gorm:"type:uuid;index:idx_match_pair,unique" validate:"required,uuid"`
	UserBID     uuid.UUID  `json:"user_b_id" gorm:"type:uuid;index:idx_match_pair,unique" validate:"required,uuid"`
	Status      string     `json:"status" gorm:"size:20;default:active" validate:"required,oneof=active unmatched"`
	UnmatchedBy *uuid.UUID `json:"unmatched_by" gorm:"type:uuid"`
	UnmatchedAt *time.Time `json:"unmatched_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OrderUserPair returns the pair in canonical (a < b) order
func OrderUserPair(x, y uuid.UUID) (uuid.UUID, uuid.UUID) {
	if strings.Compare(x.String(), y.String()) < 0 {
		return x, y
	}
	return y, x
}

// OtherUser returns the participant that is not the given user
func (m *Match) OtherUser(userID uuid.UUID) uuid.UUID {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// HasParticipant reports whether the user is part of the match
func (m *Match) HasParticipant(userID uuid.UUID) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// MatchWithProfile pairs a match with the other party's card
type MatchWithProfile struct {
	Match   Match        `json:"match"`
	Profile ProfileBrief `json:"profile"`
}

// Message is a chat message inside a match
type Message struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	MatchID   uuid.UUID  `json:"match_id" gorm:"type:uuid;index" validate:"required,uuid"`
	SenderID  uuid.UUID  `json:"sender_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Content   string     `json:"content" gorm:"type:text" validate:"required,min=1,max=2000"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// ChatPreview is the inbox row for a match
type ChatPreview struct {
	MatchID     uuid.UUID    `json:"match_id"`
	Profile     ProfileBrief `json:"profile"`
	LastMessage *Message     `json:"last_message,omitempty"`
	UnreadCount int64        `json:"unread_count"`
}
