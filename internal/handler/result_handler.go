package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"glowshot.app/glowshotcore/internal/service"
	"glowshot.app/glowshotcore/pkg/response"
)

type ResultHandler struct {
	service service.RankingService
}

func NewResultHandler(service service.RankingService) *ResultHandler {
	return &ResultHandler{service: service}
}

func (h *ResultHandler) GetResults(c *gin.Context) {
	day := c.Param("day")

	result, err := h.service.GetResults(c.Request.Context(), day)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// AdminFinalize is the manual trigger for a day's ranking. Repeats
// return the snapshot already published.
func (h *ResultHandler) AdminFinalize(c *gin.Context) {
	day := c.Param("day")

	result, err := h.service.Finalize(c.Request.Context(), day)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *ResultHandler) AdminRecap(c *gin.Context) {
	day := c.Param("day")

	recap, err := h.service.Recap(c.Request.Context(), day)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": recap})
}
