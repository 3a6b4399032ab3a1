package handlers

import (
	"errors"
	"net/http"

	"github.com/gatherly/backend/internal/auth"
	"github.com/gatherly/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// AuthHandlers wraps the auth service for HTTP.
type AuthHandlers struct {
	service *auth.Service
}

// NewAuthHandlers creates auth handlers backed by the given service
func NewAuthHandlers(service *auth.Service) *AuthHandlers {
	return &AuthHandlers{service: service}
}

// RegisterUser creates a user account
// POST /api/auth/users/register
func (a *AuthHandlers) RegisterUser(c *gin.Context) {
	var req auth.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := a.service.RegisterUser(req)
	if err != nil {
		a.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// RegisterProfessional creates a professional account
// POST /api/auth/professionals/register
func (a *AuthHandlers) RegisterProfessional(c *gin.Context) {
	var req auth.RegisterProfessionalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := a.service.RegisterProfessional(req)
	if err != nil {
		a.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// LoginUser authenticates a user account
// POST /api/auth/users/login
func (a *AuthHandlers) LoginUser(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := a.service.LoginUser(req)
	if err != nil {
		a.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// LoginProfessional authenticates a professional account
// POST /api/auth/professionals/login
func (a *AuthHandlers) LoginProfessional(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := a.service.LoginProfessional(req)
	if err != nil {
		a.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the full account record behind the current token
// GET /api/auth/me
func (a *AuthHandlers) Me(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	account, err := a.service.GetAccount(actor)
	if err != nil {
		util.RespondNotFound(c, "account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

func (a *AuthHandlers) respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailExists):
		util.RespondConflict(c, "email")
	case errors.Is(err, auth.ErrUsernameExists):
		util.RespondConflict(c, "username")
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrAccountNotFound):
		util.RespondUnauthorized(c, "invalid credentials")
	default:
		util.RespondInternalError(c, "authentication failed")
	}
}
