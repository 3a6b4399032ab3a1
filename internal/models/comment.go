package models

import (
	"time"

	"gorm.io/gorm"
)

// EditRevision is one snapshot of a body before an edit replaced it.
type EditRevision struct {
	PreviousBody string    `json:"previous_body"`
	EditedAt     time.Time `json:"edited_at"`
}

// EditHistory is the ordered list of revisions, oldest first.
type EditHistory []EditRevision

// Comment is authored on an event. Its author is an actor reference
// resolved once at creation and never re-resolved.
type Comment struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	EventID string `gorm:"not null;index" json:"event_id"`
	Author  Ref    `gorm:"embedded;embeddedPrefix:author_" json:"author"`

	Body        string      `gorm:"type:text;not null" json:"body"`
	Edited      bool        `gorm:"default:false" json:"edited"`
	EditHistory EditHistory `gorm:"type:jsonb;serializer:json" json:"edit_history,omitempty"`

	ReplyCount int `gorm:"default:0" json:"reply_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reply hangs off a polymorphic parent: a Comment, another Reply, or a
// Review. The parent Ref is produced by the parent resolver only.
type Reply struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	Parent Ref    `gorm:"embedded;embeddedPrefix:parent_" json:"parent"`
	Author Ref    `gorm:"embedded;embeddedPrefix:author_" json:"author"`

	Body        string      `gorm:"type:text;not null" json:"body"`
	Edited      bool        `gorm:"default:false" json:"edited"`
	EditHistory EditHistory `gorm:"type:jsonb;serializer:json" json:"edit_history,omitempty"`

	ReplyCount int `gorm:"default:0" json:"reply_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Review is authored on an event with a rating; replies may hang off
// it like any other repliable entity.
type Review struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	EventID string `gorm:"not null;index" json:"event_id"`
	Author  Ref    `gorm:"embedded;embeddedPrefix:author_" json:"author"`

	Body        string      `gorm:"type:text;not null" json:"body"`
	Rating      int         `gorm:"not null" json:"rating"`
	Edited      bool        `gorm:"default:false" json:"edited"`
	EditHistory EditHistory `gorm:"type:jsonb;serializer:json" json:"edit_history,omitempty"`

	ReplyCount int `gorm:"default:0" json:"reply_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reaction is one actor's current reaction to one target. The unique
// index over (target_id, subject_id) is what lets the ledger upsert
// and remove in single statements.
type Reaction struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"`

	TargetID   string     `gorm:"not null;uniqueIndex:idx_reactions_target_subject;index" json:"-"`
	TargetKind EntityKind `gorm:"not null" json:"-"`

	SubjectID   string     `gorm:"not null;uniqueIndex:idx_reactions_target_subject" json:"subject_id"`
	SubjectKind EntityKind `gorm:"not null" json:"subject_kind"`

	Kind ReactionKind `gorm:"not null" json:"kind"`

	CreatedAt time.Time `json:"created_at"`
}

// Target returns the discriminated reference this reaction is held on.
func (r *Reaction) Target() Ref {
	return Ref{ID: r.TargetID, Kind: r.TargetKind}
}

// Subject returns the actor holding the reaction.
func (r *Reaction) Subject() Ref {
	return Ref{ID: r.SubjectID, Kind: r.SubjectKind}
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
