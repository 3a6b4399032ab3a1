package handlers

import (
	"net/http"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// GetAccount retrieves a public account profile by id, resolving which
// kind of account it is from the id alone.
// GET /api/accounts/:id
func (h *Handlers) GetAccount(c *gin.Context) {
	if _, ok := util.GetActorFromContext(c); !ok {
		return
	}

	actor, err := h.resolver.ResolveActor(c.Param("id"))
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	switch actor.Kind {
	case models.KindUser:
		var user models.User
		if err := h.db.First(&user, "id = ?", actor.ID).Error; err != nil {
			util.RespondNotFound(c, "account")
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": user, "kind": actor.Kind})
	case models.KindProfessional:
		var professional models.Professional
		if err := h.db.First(&professional, "id = ?", actor.ID).Error; err != nil {
			util.RespondNotFound(c, "account")
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": professional, "kind": actor.Kind})
	}
}

// ListUsers returns user accounts, newest first
// GET /api/users
func (h *Handlers) ListUsers(c *gin.Context) {
	if _, ok := util.GetActorFromContext(c); !ok {
		return
	}

	page := util.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.User{}).Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count users")
		return
	}

	var users []models.User
	err := h.db.
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&users).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to get users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"meta":  util.PageMeta(page, total),
	})
}

// ListProfessionals returns professional accounts, newest first
// GET /api/professionals
func (h *Handlers) ListProfessionals(c *gin.Context) {
	if _, ok := util.GetActorFromContext(c); !ok {
		return
	}

	page := util.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.Professional{}).Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count professionals")
		return
	}

	var professionals []models.Professional
	err := h.db.
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&professionals).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to get professionals")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"professionals": professionals,
		"meta":          util.PageMeta(page, total),
	})
}

// UpdateMyAccount updates the caller's own profile. Fields that do not
// apply to the caller's account kind are rejected.
// PUT /api/accounts/me
func (h *Handlers) UpdateMyAccount(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		DisplayName  *string `json:"display_name,omitempty" binding:"omitempty,min=1,max=50"`
		Bio          *string `json:"bio,omitempty" binding:"omitempty,max=500"`
		AvatarURL    *string `json:"avatar_url,omitempty" binding:"omitempty,url"`
		BusinessName *string `json:"business_name,omitempty" binding:"omitempty,min=1,max=100"`
		Profession   *string `json:"profession,omitempty" binding:"omitempty,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}

	switch actor.Kind {
	case models.KindUser:
		if req.BusinessName != nil || req.Profession != nil {
			util.RespondValidationError(c, "business_name", "not valid for user accounts")
			return
		}
		if req.DisplayName != nil {
			updates["display_name"] = *req.DisplayName
		}
		if req.Bio != nil {
			updates["bio"] = *req.Bio
		}
		if req.AvatarURL != nil {
			updates["avatar_url"] = *req.AvatarURL
		}
		if len(updates) == 0 {
			util.RespondBadRequest(c, "no fields to update")
			return
		}
		if err := h.db.Model(&models.User{}).Where("id = ?", actor.ID).Updates(updates).Error; err != nil {
			util.RespondInternalError(c, "Failed to update account")
			return
		}
		var user models.User
		if err := h.db.First(&user, "id = ?", actor.ID).Error; err != nil {
			util.RespondInternalError(c, "Failed to reload account")
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": user})

	case models.KindProfessional:
		if req.DisplayName != nil {
			util.RespondValidationError(c, "display_name", "not valid for professional accounts")
			return
		}
		if req.Bio != nil {
			updates["bio"] = *req.Bio
		}
		if req.AvatarURL != nil {
			updates["avatar_url"] = *req.AvatarURL
		}
		if req.BusinessName != nil {
			updates["business_name"] = *req.BusinessName
		}
		if req.Profession != nil {
			updates["profession"] = *req.Profession
		}
		if len(updates) == 0 {
			util.RespondBadRequest(c, "no fields to update")
			return
		}
		if err := h.db.Model(&models.Professional{}).Where("id = ?", actor.ID).Updates(updates).Error; err != nil {
			util.RespondInternalError(c, "Failed to update account")
			return
		}
		var professional models.Professional
		if err := h.db.First(&professional, "id = ?", actor.ID).Error; err != nil {
			util.RespondInternalError(c, "Failed to reload account")
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": professional})
	}
}

// DeleteMyAccount deletes the caller's account and everything authored
// by it: events with their content trees, comments, replies, reviews,
// reactions, and inbox rows.
// DELETE /api/accounts/me
func (h *Handlers) DeleteMyAccount(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	if err := h.cascade.DeleteAccount(c.Request.Context(), actor); err != nil {
		util.RespondInternalError(c, "Failed to delete account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account_deleted"})
}
