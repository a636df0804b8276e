package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/service"
	"glowshot.app/glowshotcore/pkg/apperror"
	"glowshot.app/glowshotcore/pkg/response"
	"glowshot.app/glowshotcore/pkg/validator"
)

type PhotoHandler struct {
	service service.LifecycleService
}

func NewPhotoHandler(service service.LifecycleService) *PhotoHandler {
	return &PhotoHandler{service: service}
}

type submitPhotoInput struct {
	Title string `form:"title" binding:"required,max=200"`
}

func (h *PhotoHandler) Submit(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input submitPhotoInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open photo file"})
		return
	}
	defer file.Close()

	photo, err := h.service.SubmitPhoto(c.Request.Context(), userID, file, fileHeader.Filename, input.Title)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": photo})
}

func (h *PhotoHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	photo, err := h.service.GetPhoto(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": photo})
}

type deletePhotoInput struct {
	Reason string `json:"reason" binding:"required,max=300"`
}

func (h *PhotoHandler) AdminDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	var input deletePhotoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.service.DeletePhoto(c.Request.Context(), id, input.Reason); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "photo deleted"})
}

// AdminArchiveSweep triggers the archive pass outside the cron
// schedule, mostly for ops.
func (h *PhotoHandler) AdminArchiveSweep(c *gin.Context) {
	count, err := h.service.ArchiveExpired(c.Request.Context())
	if err != nil {
		response.ResponseError(c, apperror.ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"archived": count})
}
