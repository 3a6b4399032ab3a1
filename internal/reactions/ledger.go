// Package reactions maintains the per-target reaction ledger: at most
// one entry per (target, subject) pair. Mutations are expressed as
// single conditional statements against the store, so two racing
// requests on the same target cannot lose an update.
package reactions

import (
	apperrors "github.com/gatherly/backend/internal/errors"
	"github.com/gatherly/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger applies and reads reactions for any target entity.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a ledger over the given connection.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Apply sets, replaces, or removes subject's reaction on target.
//
//   - kind non-nil: upsert on the (target_id, subject_id) unique index.
//     Applying the same kind twice is idempotent; a different kind
//     replaces the entry in place, never appending a duplicate.
//   - kind nil: remove the entry. Removing an entry that does not
//     exist is a bad request ("reactionType is required"), matching
//     the toggle contract.
func (l *Ledger) Apply(target, subject models.Ref, kind *models.ReactionKind) error {
	if target.IsZero() || subject.IsZero() {
		return apperrors.BadRequest("target and subject are required")
	}

	if kind == nil {
		res := l.db.
			Where("target_id = ? AND subject_id = ?", target.ID, subject.ID).
			Delete(&models.Reaction{})
		if res.Error != nil {
			return apperrors.InternalError("failed to remove reaction")
		}
		if res.RowsAffected == 0 {
			return apperrors.BadRequest("reactionType is required")
		}
		return nil
	}

	if !models.ValidReactionKind(*kind) {
		return apperrors.ValidationError("reactionType", "unknown reaction type")
	}

	reaction := models.Reaction{
		TargetID:    target.ID,
		TargetKind:  target.Kind,
		SubjectID:   subject.ID,
		SubjectKind: subject.Kind,
		Kind:        *kind,
	}

	err := l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "target_id"}, {Name: "subject_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"kind": *kind}),
	}).Create(&reaction).Error
	if err != nil {
		return apperrors.InternalError("failed to apply reaction")
	}

	return nil
}

// List returns target's reactions in insertion order.
func (l *Ledger) List(target models.Ref) ([]models.Reaction, error) {
	var entries []models.Reaction
	err := l.db.
		Where("target_id = ?", target.ID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.InternalError("failed to list reactions")
	}
	return entries, nil
}

// Count returns the number of reactions held on target.
func (l *Ledger) Count(target models.Ref) (int64, error) {
	var count int64
	err := l.db.Model(&models.Reaction{}).
		Where("target_id = ?", target.ID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.InternalError("failed to count reactions")
	}
	return count, nil
}
