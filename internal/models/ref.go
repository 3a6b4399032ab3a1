package models

import "github.com/google/uuid"

// EntityKind discriminates which table a reference points at.
// The set is closed; resolvers are the only code that assigns kinds.
type EntityKind string

const (
	KindUser         EntityKind = "User"
	KindProfessional EntityKind = "Professional"
	KindEvent        EntityKind = "Event"
	KindComment      EntityKind = "Comment"
	KindReply        EntityKind = "Reply"
	KindReview       EntityKind = "Review"
)

// Ref is a discriminated reference: an id plus the kind of the table
// that contains it. A Ref is only valid if it was produced by one of
// the resolvers in internal/resolve; nothing else may pair an id with
// a kind.
type Ref struct {
	ID   string     `gorm:"type:uuid" json:"id"`
	Kind EntityKind `json:"kind"`
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.ID == "" && r.Kind == ""
}

// ValidReactionKind reports whether k is a member of the closed
// reaction enum.
func ValidReactionKind(k ReactionKind) bool {
	switch k {
	case ReactionLike, ReactionLove, ReactionLaugh, ReactionSad, ReactionAngry:
		return true
	}
	return false
}

// ReactionKind is the closed enum of reactions an actor can hold on a
// target. One entry per (target, subject) pair.
type ReactionKind string

const (
	ReactionLike  ReactionKind = "like"
	ReactionLove  ReactionKind = "love"
	ReactionLaugh ReactionKind = "laugh"
	ReactionSad   ReactionKind = "sad"
	ReactionAngry ReactionKind = "angry"
)

func generateUUID() string {
	return uuid.New().String()
}
