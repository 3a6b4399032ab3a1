package util

import (
	"net/http"

	"github.com/gatherly/backend/internal/models"
	"github.com/gin-gonic/gin"
)

// GetActorFromContext extracts the authenticated actor reference from
// the Gin context (set by the auth middleware). If the request is not
// authenticated it responds 401 and returns false.
func GetActorFromContext(c *gin.Context) (models.Ref, bool) {
	accountID, exists := c.Get("account_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return models.Ref{}, false
	}
	accountKind, exists := c.Get("account_kind")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return models.Ref{}, false
	}

	id, okID := accountID.(string)
	kind, okKind := accountKind.(string)
	if !okID || !okKind {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid account data in context"})
		return models.Ref{}, false
	}

	return models.Ref{ID: id, Kind: models.EntityKind(kind)}, true
}

// GetAccountIDFromContext extracts just the account id, responding 401
// when absent.
func GetAccountIDFromContext(c *gin.Context) (string, bool) {
	actor, ok := GetActorFromContext(c)
	if !ok {
		return "", false
	}
	return actor.ID, true
}
