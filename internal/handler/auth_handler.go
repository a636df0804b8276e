package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"glowshot.app/glowshotcore/internal/service"
	"glowshot.app/glowshotcore/pkg/response"
	"glowshot.app/glowshotcore/pkg/validator"
)

type AuthHandler struct {
	service service.AuthService
}

func NewAuthHandler(service service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

type tokenInput struct {
	Username      string `json:"username" binding:"required,min=3,max=64"`
	AdminPassword string `json:"admin_password" binding:"omitempty,max=128"`
}

func (h *AuthHandler) Token(c *gin.Context) {
	var input tokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	token, user, err := h.service.Token(c.Request.Context(), input.Username, input.AdminPassword)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}
