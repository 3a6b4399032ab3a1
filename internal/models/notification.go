package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType classifies what produced a notification.
type NotificationType string

const (
	NotificationComment     NotificationType = "comment"
	NotificationReply       NotificationType = "reply"
	NotificationReaction    NotificationType = "reaction"
	NotificationReview      NotificationType = "review"
	NotificationEventInvite NotificationType = "event_invite"
	NotificationEventJoin   NotificationType = "event_join"
)

// Notification carries an actor, a discriminated reference to the
// entity it is about, and per-recipient delivery state in
// NotificationRecipient rows.
type Notification struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Actor Ref    `gorm:"embedded;embeddedPrefix:actor_" json:"actor"`

	Type      NotificationType `gorm:"not null" json:"type"`
	Reference Ref              `gorm:"embedded;embeddedPrefix:reference_" json:"reference"`
	Message   string           `gorm:"type:text" json:"message"`

	Recipients []NotificationRecipient `gorm:"foreignKey:NotificationID" json:"recipients,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NotificationRecipient is one recipient's view of a notification.
// Deletion is a per-recipient soft delete: flipping Deleted hides the
// notification from this recipient and nobody else.
type NotificationRecipient struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	NotificationID string     `gorm:"not null;uniqueIndex:idx_notification_recipients_pair;index" json:"notification_id"`
	AccountID      string     `gorm:"not null;uniqueIndex:idx_notification_recipients_pair;index" json:"account_id"`
	AccountKind    EntityKind `gorm:"not null" json:"account_kind"`

	Seen    bool `gorm:"default:false" json:"seen"`
	Deleted bool `gorm:"default:false" json:"deleted"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}

func (r *NotificationRecipient) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
