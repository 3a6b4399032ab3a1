package models

import (
	"time"

	"gorm.io/gorm"
)

// MediaKind classifies an uploaded media object.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaContent is one uploaded object attached to an event. Key is the
// object-storage key used for later removal.
type MediaContent struct {
	URL  string    `json:"url"`
	Key  string    `json:"key"`
	Kind MediaKind `json:"kind"`
}

// AccessList holds the account ids allowed to read a private event,
// in addition to the owner and participants.
type AccessList []string

// Contains reports whether accountID is on the list.
func (a AccessList) Contains(accountID string) bool {
	for _, id := range a {
		if id == accountID {
			return true
		}
	}
	return false
}

// Event is the root entity comments and reviews hang off.
type Event struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Owner Ref    `gorm:"embedded;embeddedPrefix:owner_" json:"owner"`

	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`

	Private      bool       `gorm:"default:false" json:"private"`
	AccessOnlyTo AccessList `gorm:"type:jsonb;serializer:json" json:"access_only_to,omitempty"`

	Media []MediaContent `gorm:"type:jsonb;serializer:json" json:"media,omitempty"`

	CommentCount int `gorm:"default:0" json:"comment_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// EventParticipant records one account having joined an event.
// Uniqueness over (event_id, account_id) makes join idempotent at the
// store level.
type EventParticipant struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	EventID     string     `gorm:"not null;uniqueIndex:idx_event_participants_event_account;index" json:"event_id"`
	AccountID   string     `gorm:"not null;uniqueIndex:idx_event_participants_event_account" json:"account_id"`
	AccountKind EntityKind `gorm:"not null" json:"account_kind"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	return nil
}

func (p *EventParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
