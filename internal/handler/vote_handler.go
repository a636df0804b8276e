package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"glowshot.app/glowshotcore/internal/config"
	"glowshot.app/glowshotcore/internal/service"
	"glowshot.app/glowshotcore/pkg/apperror"
	"glowshot.app/glowshotcore/pkg/response"
	"glowshot.app/glowshotcore/pkg/validator"
)

type VoteHandler struct {
	service     service.VotingService
	redisClient *redis.Client
	cfg         *config.Config
}

func NewVoteHandler(service service.VotingService, redisClient *redis.Client, cfg *config.Config) *VoteHandler {
	return &VoteHandler{
		service:     service,
		redisClient: redisClient,
		cfg:         cfg,
	}
}

type castVoteInput struct {
	PhotoID string `json:"photo_id" binding:"required,uuid"`
	Score   int    `json:"score" binding:"required"`
}

func (h *VoteHandler) CastVote(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input castVoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	photoID, err := uuid.Parse(input.PhotoID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	allowed, err := service.CheckAndSetRateLimit(c.Request.Context(), h.redisClient, userID, "vote", h.cfg.RateLimitVote)
	if err != nil {
		response.ResponseError(c, apperror.ErrInternal)
		return
	}
	if !allowed {
		if ttl, err := service.GetRateLimitTTL(c.Request.Context(), h.redisClient, userID, "vote"); err == nil && ttl > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
		}
		response.ResponseError(c, apperror.ErrRateLimitExceeded)
		return
	}

	if err := h.service.CastVote(c.Request.Context(), userID, photoID, input.Score); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "vote accepted"})
}

func (h *VoteHandler) RecordView(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	photoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	counted, err := h.service.RecordView(c.Request.Context(), userID, photoID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"counted": counted})
}

func (h *VoteHandler) NextPhoto(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	photo, err := h.service.NextPhotoForViewer(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": photo})
}
