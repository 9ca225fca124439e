// Package domain defines the persistence models for the live message log,
// message fingerprints, and duplicate-event audit records. These types are
// mapped with GORM and form the core data layer of the dedup service.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Message is a row of a room's live message log. The filter only reads it and,
// when the message is rejected as a duplicate, removes it from the log.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - RoomID: identifier of the origin room; indexed with CreatedAt for paging.
//   - UserID: author identifier; nil when the producer did not send one.
//   - AuthorKind: explicit author classification; empty for legacy producers.
//   - Content: message text; nil means the message carried no content field.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (a rejected message stays for audit but
//     is no longer part of the live log).
type Message struct {
	ID         string         `json:"id"                    gorm:"type:char(36);primaryKey"`
	RoomID     string         `json:"room_id"               gorm:"type:varchar(128);not null;index:idx_room_msgs,priority:1"`
	UserID     *string        `json:"user_id,omitempty"     gorm:"type:varchar(128);index"`
	AuthorKind AuthorKind     `json:"author_kind,omitempty" gorm:"type:varchar(16);not null;default:''"`
	Content    *string        `json:"content,omitempty"     gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at"            gorm:"index:idx_room_msgs,priority:2"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"                     gorm:"index"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Fingerprint is the canonical shape of one accepted automated message. It is
// written once and never updated; rows older than the comparison window are
// simply no longer read.
//
// Fields:
//   - ID: UUID primary key.
//   - RoomID / MessageID: origin of the accepted message (unique pair, which
//     makes redelivered inserts detectable).
//   - UserID: author identifier (nullable).
//   - Normalized: canonicalized text.
//   - Tokens: distinct tokens of Normalized, first-seen order, stored as JSON.
//   - CreatedAt: server-assigned; drives both ordering and windowing.
type Fingerprint struct {
	ID         string    `json:"id"                gorm:"type:char(36);primaryKey"`
	RoomID     string    `json:"room_id"           gorm:"type:varchar(128);not null;uniqueIndex:ux_fingerprint_room_message,priority:1"`
	MessageID  string    `json:"message_id"        gorm:"type:char(36);not null;uniqueIndex:ux_fingerprint_room_message,priority:2"`
	UserID     *string   `json:"user_id,omitempty" gorm:"type:varchar(128)"`
	Normalized string    `json:"normalized"        gorm:"type:text;not null"`
	Tokens     []string  `json:"tokens"            gorm:"type:text;not null;serializer:json"`
	CreatedAt  time.Time `json:"created_at"        gorm:"not null;index:idx_fingerprint_created"`
}

// TableName returns the database table name for Fingerprint.
func (Fingerprint) TableName() string { return "fingerprints" }

// MatchType describes how a rejected message matched a prior fingerprint.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchSimilar MatchType = "similar"
)

// MatchInfo records which fingerprint a rejected message matched and how.
type MatchInfo struct {
	Type          MatchType `json:"type"           gorm:"type:varchar(16);not null"`
	FingerprintID string    `json:"fingerprint_id" gorm:"type:char(36);not null"`
	Similarity    float64   `json:"similarity"     gorm:"not null"`
}

// DuplicateEvent is the audit record written when a message is rejected.
// A given (room, message) pair is rejected at most once.
type DuplicateEvent struct {
	ID         string    `json:"id"                gorm:"type:char(36);primaryKey"`
	RoomID     string    `json:"room_id"           gorm:"type:varchar(128);not null;uniqueIndex:ux_duplicate_room_message,priority:1;index:idx_duplicate_room_created,priority:1"`
	MessageID  string    `json:"message_id"        gorm:"type:char(36);not null;uniqueIndex:ux_duplicate_room_message,priority:2"`
	UserID     *string   `json:"user_id,omitempty" gorm:"type:varchar(128)"`
	Normalized string    `json:"normalized"        gorm:"type:text;not null"`
	Match      MatchInfo `json:"match_info"        gorm:"embedded;embeddedPrefix:match_"`
	CreatedAt  time.Time `json:"created_at"        gorm:"not null;index:idx_duplicate_room_created,priority:2"`
}

// TableName returns the database table name for DuplicateEvent.
func (DuplicateEvent) TableName() string { return "duplicate_events" }

// MessageCreated is the trigger payload emitted once per inserted message.
type MessageCreated struct {
	RoomID    string    `json:"room_id"`
	MessageID string    `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
