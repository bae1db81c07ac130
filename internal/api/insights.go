package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mealscope/backend/internal/models"
	"github.com/mealscope/backend/internal/service"
)

// InsightsHandler serves the derived dietary signal statistics
type InsightsHandler struct {
	repo service.MealRepository
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(repo service.MealRepository) *InsightsHandler {
	return &InsightsHandler{repo: repo}
}

// GetInsights recomputes insights over completed meals in the requested
// window. Nothing is cached across windows.
func (h *InsightsHandler) GetInsights(c *gin.Context) {
	days := 30
	if d := c.Query("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid days", Message: "days must be a positive integer"})
			return
		}
		days = parsed
	}

	status := models.MealStatusCompleted
	from := time.Now().AddDate(0, 0, -days)
	meals, err := h.repo.Query(c.Request.Context(), service.MealFilter{
		Status: &status,
		From:   &from,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Query failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, service.ComputeInsights(meals))
}

// ListSignals exposes the fixed signal taxonomy and thresholds so UI and
// report rendering stay consistent with classification.
func (h *InsightsHandler) ListSignals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"signals": service.SignalTable()})
}

// RegisterRoutes registers the insights routes
func (h *InsightsHandler) RegisterRoutes(router *gin.RouterGroup) {
	insights := router.Group("/insights")
	{
		insights.GET("", h.GetInsights)
		insights.GET("/signals", h.ListSignals)
	}
}
