// Package cascade removes an entity together with everything whose
// discriminated reference points at it, transitively through the reply
// tree. Deletion is not transactional: each step is its own statement,
// and a step that fails after an earlier step succeeded is logged and
// skipped rather than rolled back.
package cascade

import (
	"context"

	apperrors "github.com/gatherly/backend/internal/errors"
	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/metrics"
	"github.com/gatherly/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MediaRemover removes a stored object by key. Satisfied by the S3
// media store; optional, event deletion works without one.
type MediaRemover interface {
	Remove(ctx context.Context, key string) error
}

// Coordinator walks the reference graph and deletes descendants.
type Coordinator struct {
	db    *gorm.DB
	media MediaRemover
}

// NewCoordinator creates a coordinator over the given connection.
func NewCoordinator(db *gorm.DB) *Coordinator {
	return &Coordinator{db: db}
}

// SetMediaRemover wires object-storage cleanup for event media.
func (c *Coordinator) SetMediaRemover(media MediaRemover) {
	c.media = media
}

// collectReplyTree returns the ids of every reply in the subtree
// rooted at the given parent ids, breadth first. The roots themselves
// are not included.
func (c *Coordinator) collectReplyTree(rootIDs []string) ([]string, error) {
	var collected []string
	frontier := rootIDs

	for len(frontier) > 0 {
		var children []string
		err := c.db.Model(&models.Reply{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &children).Error
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			break
		}
		collected = append(collected, children...)
		frontier = children
	}

	return collected, nil
}

// purgeReferences removes reactions held on the given ids and
// notifications (with their recipient rows) whose reference points at
// any of them. Failures are logged and do not stop later steps.
func (c *Coordinator) purgeReferences(ids []string) {
	if len(ids) == 0 {
		return
	}

	if err := c.db.Where("target_id IN ?", ids).Delete(&models.Reaction{}).Error; err != nil {
		logger.Log.Warn("cascade: reaction cleanup incomplete", zap.Error(err))
	}

	var notificationIDs []string
	err := c.db.Model(&models.Notification{}).
		Where("reference_id IN ?", ids).
		Pluck("id", &notificationIDs).Error
	if err != nil {
		logger.Log.Warn("cascade: notification lookup failed", zap.Error(err))
		return
	}
	if len(notificationIDs) == 0 {
		return
	}

	if err := c.db.Where("notification_id IN ?", notificationIDs).Delete(&models.NotificationRecipient{}).Error; err != nil {
		logger.Log.Warn("cascade: notification recipient cleanup incomplete", zap.Error(err))
	}
	if err := c.db.Where("id IN ?", notificationIDs).Delete(&models.Notification{}).Error; err != nil {
		logger.Log.Warn("cascade: notification cleanup incomplete", zap.Error(err))
	}
}

// deleteReplySubtree removes every reply under the given roots and
// all references to them. Returns the ids of the deleted replies.
func (c *Coordinator) deleteReplySubtree(rootIDs []string) []string {
	subtree, err := c.collectReplyTree(rootIDs)
	if err != nil {
		logger.Log.Warn("cascade: reply tree walk failed", zap.Error(err))
		return nil
	}
	if len(subtree) == 0 {
		return nil
	}

	if err := c.db.Where("id IN ?", subtree).Delete(&models.Reply{}).Error; err != nil {
		logger.Log.Warn("cascade: reply subtree delete incomplete",
			zap.Int("replies", len(subtree)), zap.Error(err))
	}
	c.purgeReferences(subtree)

	return subtree
}

// DeleteComment removes a comment, its full reply subtree, and every
// reaction and notification referencing any of them. The caller has
// already verified ownership; the coordinator performs no auth.
func (c *Coordinator) DeleteComment(comment *models.Comment) error {
	c.deleteReplySubtree([]string{comment.ID})

	if err := c.db.Delete(&models.Comment{}, "id = ?", comment.ID).Error; err != nil {
		return apperrors.InternalError("failed to delete comment")
	}
	c.purgeReferences([]string{comment.ID})

	err := c.db.Model(&models.Event{}).
		Where("id = ? AND comment_count > 0", comment.EventID).
		UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	if err != nil {
		logger.Log.Warn("cascade: comment count decrement failed",
			logger.WithEventID(comment.EventID), zap.Error(err))
	}

	metrics.Get().CascadeDeletesTotal.WithLabelValues("comment").Inc()
	return nil
}

// DeleteReply removes a reply and its subtree.
func (c *Coordinator) DeleteReply(reply *models.Reply) error {
	c.deleteReplySubtree([]string{reply.ID})

	if err := c.db.Delete(&models.Reply{}, "id = ?", reply.ID).Error; err != nil {
		return apperrors.InternalError("failed to delete reply")
	}
	c.purgeReferences([]string{reply.ID})

	c.decrementReplyCount(reply.Parent)

	metrics.Get().CascadeDeletesTotal.WithLabelValues("reply").Inc()
	return nil
}

// DeleteReview removes a review and its reply subtree.
func (c *Coordinator) DeleteReview(review *models.Review) error {
	c.deleteReplySubtree([]string{review.ID})

	if err := c.db.Delete(&models.Review{}, "id = ?", review.ID).Error; err != nil {
		return apperrors.InternalError("failed to delete review")
	}
	c.purgeReferences([]string{review.ID})

	metrics.Get().CascadeDeletesTotal.WithLabelValues("review").Inc()
	return nil
}

// DeleteEvent removes an event together with its comments, reviews,
// their reply subtrees, participants, referencing notifications and
// reactions, and (best effort) its stored media objects.
func (c *Coordinator) DeleteEvent(ctx context.Context, event *models.Event) error {
	var commentIDs []string
	if err := c.db.Model(&models.Comment{}).Where("event_id = ?", event.ID).Pluck("id", &commentIDs).Error; err != nil {
		logger.Log.Warn("cascade: comment lookup failed", logger.WithEventID(event.ID), zap.Error(err))
	}
	var reviewIDs []string
	if err := c.db.Model(&models.Review{}).Where("event_id = ?", event.ID).Pluck("id", &reviewIDs).Error; err != nil {
		logger.Log.Warn("cascade: review lookup failed", logger.WithEventID(event.ID), zap.Error(err))
	}

	roots := append(append([]string{}, commentIDs...), reviewIDs...)
	c.deleteReplySubtree(roots)

	if len(commentIDs) > 0 {
		if err := c.db.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error; err != nil {
			logger.Log.Warn("cascade: comment cleanup incomplete", zap.Error(err))
		}
	}
	if len(reviewIDs) > 0 {
		if err := c.db.Where("id IN ?", reviewIDs).Delete(&models.Review{}).Error; err != nil {
			logger.Log.Warn("cascade: review cleanup incomplete", zap.Error(err))
		}
	}
	c.purgeReferences(roots)

	if err := c.db.Where("event_id = ?", event.ID).Delete(&models.EventParticipant{}).Error; err != nil {
		logger.Log.Warn("cascade: participant cleanup incomplete", zap.Error(err))
	}

	if c.media != nil {
		for _, m := range event.Media {
			if err := c.media.Remove(ctx, m.Key); err != nil {
				logger.Log.Warn("cascade: media removal failed",
					zap.String("key", m.Key), zap.Error(err))
			}
		}
	}

	if err := c.db.Unscoped().Delete(&models.Event{}, "id = ?", event.ID).Error; err != nil {
		return apperrors.InternalError("failed to delete event")
	}
	c.purgeReferences([]string{event.ID})

	metrics.Get().CascadeDeletesTotal.WithLabelValues("event").Inc()
	return nil
}

// DeleteAccount removes everything an account owns or authored: its
// events with their full content trees, comments, replies, and reviews
// with their subtrees, reactions it holds, participant rows, its
// notification inbox rows, and notifications referencing it. The
// account row itself is deleted last.
func (c *Coordinator) DeleteAccount(ctx context.Context, actor models.Ref) error {
	var events []models.Event
	if err := c.db.Where("owner_id = ?", actor.ID).Find(&events).Error; err != nil {
		logger.Log.Warn("cascade: owned event lookup failed", zap.Error(err))
	}
	for i := range events {
		if err := c.DeleteEvent(ctx, &events[i]); err != nil {
			logger.Log.Warn("cascade: owned event delete failed",
				logger.WithEventID(events[i].ID), zap.Error(err))
		}
	}

	var commentIDs []string
	if err := c.db.Model(&models.Comment{}).Where("author_id = ?", actor.ID).Pluck("id", &commentIDs).Error; err != nil {
		logger.Log.Warn("cascade: authored comment lookup failed", zap.Error(err))
	}
	for _, id := range commentIDs {
		var comment models.Comment
		if err := c.db.First(&comment, "id = ?", id).Error; err == nil {
			if err := c.DeleteComment(&comment); err != nil {
				logger.Log.Warn("cascade: authored comment delete failed",
					zap.String("comment_id", id), zap.Error(err))
			}
		}
	}

	var reviewIDs []string
	if err := c.db.Model(&models.Review{}).Where("author_id = ?", actor.ID).Pluck("id", &reviewIDs).Error; err != nil {
		logger.Log.Warn("cascade: authored review lookup failed", zap.Error(err))
	}
	for _, id := range reviewIDs {
		var review models.Review
		if err := c.db.First(&review, "id = ?", id).Error; err == nil {
			if err := c.DeleteReview(&review); err != nil {
				logger.Log.Warn("cascade: authored review delete failed",
					zap.String("review_id", id), zap.Error(err))
			}
		}
	}

	// Remaining authored replies whose parents belong to other actors
	var replyIDs []string
	if err := c.db.Model(&models.Reply{}).Where("author_id = ?", actor.ID).Pluck("id", &replyIDs).Error; err != nil {
		logger.Log.Warn("cascade: authored reply lookup failed", zap.Error(err))
	}
	for _, id := range replyIDs {
		var reply models.Reply
		if err := c.db.First(&reply, "id = ?", id).Error; err == nil {
			if err := c.DeleteReply(&reply); err != nil {
				logger.Log.Warn("cascade: authored reply delete failed",
					zap.String("reply_id", id), zap.Error(err))
			}
		}
	}

	if err := c.db.Where("subject_id = ?", actor.ID).Delete(&models.Reaction{}).Error; err != nil {
		logger.Log.Warn("cascade: held reaction cleanup incomplete", zap.Error(err))
	}
	if err := c.db.Where("account_id = ?", actor.ID).Delete(&models.EventParticipant{}).Error; err != nil {
		logger.Log.Warn("cascade: participation cleanup incomplete", zap.Error(err))
	}
	if err := c.db.Where("account_id = ?", actor.ID).Delete(&models.NotificationRecipient{}).Error; err != nil {
		logger.Log.Warn("cascade: inbox cleanup incomplete", zap.Error(err))
	}

	// Notifications whose reference points at the account itself
	c.purgeReferences([]string{actor.ID})

	var err error
	switch actor.Kind {
	case models.KindUser:
		err = c.db.Unscoped().Delete(&models.User{}, "id = ?", actor.ID).Error
	case models.KindProfessional:
		err = c.db.Unscoped().Delete(&models.Professional{}, "id = ?", actor.ID).Error
	default:
		return apperrors.BadRequest("unknown account kind")
	}
	if err != nil {
		return apperrors.InternalError("failed to delete account")
	}

	metrics.Get().CascadeDeletesTotal.WithLabelValues("account").Inc()
	return nil
}

func (c *Coordinator) decrementReplyCount(parent models.Ref) {
	var err error
	switch parent.Kind {
	case models.KindComment:
		err = c.db.Model(&models.Comment{}).
			Where("id = ? AND reply_count > 0", parent.ID).
			UpdateColumn("reply_count", gorm.Expr("reply_count - 1")).Error
	case models.KindReply:
		err = c.db.Model(&models.Reply{}).
			Where("id = ? AND reply_count > 0", parent.ID).
			UpdateColumn("reply_count", gorm.Expr("reply_count - 1")).Error
	case models.KindReview:
		err = c.db.Model(&models.Review{}).
			Where("id = ? AND reply_count > 0", parent.ID).
			UpdateColumn("reply_count", gorm.Expr("reply_count - 1")).Error
	}
	if err != nil {
		logger.Log.Warn("cascade: reply count decrement failed",
			zap.String("parent_id", parent.ID), zap.Error(err))
	}
}
