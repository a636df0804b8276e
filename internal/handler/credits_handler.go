package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"glowshot.app/glowshotcore/internal/clock"
	"glowshot.app/glowshotcore/internal/service"
	"glowshot.app/glowshotcore/pkg/response"
	"glowshot.app/glowshotcore/pkg/validator"
)

type CreditsHandler struct {
	credits service.CreditsService
	auth    service.AuthService
	clk     *clock.Clock
}

func NewCreditsHandler(credits service.CreditsService, auth service.AuthService, clk *clock.Clock) *CreditsHandler {
	return &CreditsHandler{credits: credits, auth: auth, clk: clk}
}

func (h *CreditsHandler) MyStats(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	stats, err := h.credits.GetStats(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	referrals, err := h.credits.CountRewardsByInviter(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"stats":     stats,
			"referrals": referrals,
		},
	})
}

func (h *CreditsHandler) MyReferralCode(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	code, err := h.auth.EnsureReferralCode(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": code})
}

type registerReferralInput struct {
	Code string `json:"code" binding:"required,max=64"`
}

// RegisterReferral records which code the caller arrived with. The
// reward itself fires later, on their first vote.
func (h *CreditsHandler) RegisterReferral(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input registerReferralInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.credits.RegisterPendingReferral(c.Request.Context(), userID, input.Code); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "referral registered"})
}

// AdminGrantDaily sweeps the daily credit grant for a day, normally
// the scheduler's job.
func (h *CreditsHandler) AdminGrantDaily(c *gin.Context) {
	day := c.Param("day")
	if day == "" {
		day = h.clk.Today()
	}

	granted, err := h.credits.GrantDailyCreditsForActive(c.Request.Context(), day)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"granted": granted})
}
