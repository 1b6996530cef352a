package handlers

import (
	"context"
	"net/http"

	"showroom/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// AuthAPI is implemented by services.AuthService.
type AuthAPI interface {
	Register(ctx context.Context, in models.RegisterInput) (models.PublicUser, error)
	Login(ctx context.Context, in models.LoginInput) (string, models.PublicUser, error)
}

type AuthHandler struct {
	Svc AuthAPI
}

// POST /api/auth/login
func (h AuthHandler) Login(c *gin.Context) {
	var req models.LoginInput
	if !BindJSONOrError(c, &req) {
		return
	}
	token, user, err := h.Svc.Login(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// POST /api/auth/register
func (h AuthHandler) Register(c *gin.Context) {
	var req models.RegisterInput
	if !BindJSONOrError(c, &req) {
		return
	}
	user, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "registrasi berhasil",
		"user":    user,
	})
}
