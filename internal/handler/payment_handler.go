package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/model"
	"glowshot.app/glowshotcore/internal/repository"
	"glowshot.app/glowshotcore/pkg/response"
	"glowshot.app/glowshotcore/pkg/validator"
)

// PaymentHandler is thin enough that it talks to the repository
// directly; the webhook is append-only with no business rules.
type PaymentHandler struct {
	repo repository.PaymentRepository
}

func NewPaymentHandler(repo repository.PaymentRepository) *PaymentHandler {
	return &PaymentHandler{repo: repo}
}

type paymentWebhookInput struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	Provider  string `json:"provider" binding:"required,max=50"`
	AmountRub int    `json:"amount_rub" binding:"required,min=1"`
	OrderID   string `json:"order_id" binding:"required,max=100"`
	Status    string `json:"status" binding:"required,max=20"`
}

func (h *PaymentHandler) Webhook(c *gin.Context) {
	var input paymentWebhookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	payment := model.Payment{
		UserID:    userID,
		Provider:  input.Provider,
		AmountRub: input.AmountRub,
		OrderID:   input.OrderID,
		Status:    input.Status,
	}
	// Provider retries replay the same order_id; the append is a no-op
	// then and we still answer 200 so the provider stops retrying.
	if err := h.repo.Append(c.Request.Context(), &payment); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "recorded"})
}

func (h *PaymentHandler) AdminList(c *gin.Context) {
	limit := 50
	offset := 0
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}

	payments, err := h.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}
