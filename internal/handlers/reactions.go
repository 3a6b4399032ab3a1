package handlers

import (
	"net/http"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/util"
	"github.com/gatherly/backend/internal/websocket"
	"github.com/gin-gonic/gin"
)

// ToggleReaction sets or clears the caller's reaction on a comment,
// reply, or review. A null or absent reactionType clears it; clearing
// a reaction that does not exist is a bad request.
// PATCH /api/likes/:id
func (h *Handlers) ToggleReaction(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		ReactionType *string `json:"reactionType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	target, handle, err := h.resolver.ResolveParent(c.Param("id"))
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	var kind *models.ReactionKind
	if req.ReactionType != nil {
		k := models.ReactionKind(*req.ReactionType)
		kind = &k
	}

	if err := h.ledger.Apply(target, actor, kind); err != nil {
		util.RespondServiceError(c, err)
		return
	}

	count, err := h.ledger.Count(target)
	if err != nil {
		count = 0
	}

	if author, ok := authorOf(handle); ok {
		if kind != nil {
			h.notifyAccount(actor, models.NotificationReaction, target, "reacted to your post", author)
		}
		if h.wsHandler != nil {
			payload := websocket.ReactionPayload{
				Target:  target,
				Subject: actor,
				Count:   count,
			}
			if kind != nil {
				payload.Kind = string(*kind)
			}
			h.wsHandler.BroadcastToAccount(author.ID, websocket.MessageTypeReaction, payload)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"target":         target,
		"reaction_count": count,
	})
}

// ListReactions returns the reactions held on a target
// GET /api/likes/:id
func (h *Handlers) ListReactions(c *gin.Context) {
	if _, ok := util.GetActorFromContext(c); !ok {
		return
	}

	target, _, err := h.resolver.ResolveParent(c.Param("id"))
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	list, err := h.ledger.List(target)
	if err != nil {
		util.RespondInternalError(c, "Failed to get reactions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"target":    target,
		"reactions": list,
		"count":     len(list),
	})
}

// authorOf extracts the author reference from a resolved parent handle.
func authorOf(handle interface{}) (models.Ref, bool) {
	switch v := handle.(type) {
	case *models.Comment:
		return v.Author, true
	case *models.Reply:
		return v.Author, true
	case *models.Review:
		return v.Author, true
	}
	return models.Ref{}, false
}
