package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mealscope/backend/config"
	"github.com/mealscope/backend/internal/middleware"
	"github.com/mealscope/backend/internal/models"
	"github.com/mealscope/backend/internal/service"
)

// MealHandler handles meal capture and history requests
type MealHandler struct {
	capture     *service.CaptureService
	repo        service.MealRepository
	rateLimiter *middleware.RateLimiter
	images      *config.S3Config
}

// NewMealHandler creates a new meal handler. images may be nil, in which case
// the image redirect endpoint reports the photo as unavailable.
func NewMealHandler(capture *service.CaptureService, repo service.MealRepository, rateLimiter *middleware.RateLimiter, images *config.S3Config) *MealHandler {
	return &MealHandler{
		capture:     capture,
		repo:        repo,
		rateLimiter: rateLimiter,
		images:      images,
	}
}

// CaptureMeal accepts a meal photo and acknowledges as soon as the pending
// record is durable. The analysis resolves in the background; clients poll
// the meal until it leaves pending.
func (h *MealHandler) CaptureMeal(c *gin.Context) {
	var req CaptureMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	imageBytes, mimeType, err := decodeImagePayload(req.Image, req.MimeType)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid image", Message: err.Error()})
		return
	}

	loggedAt := time.Now()
	if req.LoggedAt != nil {
		loggedAt = *req.LoggedAt
	}

	meal, err := h.capture.Capture(c.Request.Context(), imageBytes, mimeType, loggedAt)
	if err != nil {
		if errors.Is(err, service.ErrEmptyImage) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid image", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Capture failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, meal)
}

// ListMeals returns meal history, newest first.
func (h *MealHandler) ListMeals(c *gin.Context) {
	filter := service.MealFilter{Limit: 50}

	if s := c.Query("status"); s != "" {
		status := models.MealStatus(s)
		switch status {
		case models.MealStatusPending, models.MealStatusCompleted, models.MealStatusFailed:
			filter.Status = &status
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid status", Message: "status must be pending, completed or failed"})
			return
		}
	}
	if d := c.Query("days"); d != "" {
		days, err := strconv.Atoi(d)
		if err != nil || days <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid days", Message: "days must be a positive integer"})
			return
		}
		from := time.Now().AddDate(0, 0, -days)
		filter.From = &from
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid limit", Message: "limit must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	meals, err := h.repo.Query(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Query failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"meals": meals, "count": len(meals)})
}

// GetMeal returns a single meal by id.
func (h *MealHandler) GetMeal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid meal id"})
		return
	}

	meal, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrMealNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Meal not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Lookup failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, meal)
}

// GetMealImage redirects to a short-lived presigned URL for the stored photo.
func (h *MealHandler) GetMealImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid meal id"})
		return
	}

	meal, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrMealNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Meal not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Lookup failed", Message: err.Error()})
		return
	}
	if meal.ImageRef == "" || h.images == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No image stored for this meal"})
		return
	}

	url, err := h.images.GeneratePresignedURL(c.Request.Context(), meal.ImageRef, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Image link failed", Message: err.Error()})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// DeleteMeal removes a meal from history.
func (h *MealHandler) DeleteMeal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid meal id"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrMealNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Meal not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Delete failed", Message: err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the meal routes
func (h *MealHandler) RegisterRoutes(router *gin.RouterGroup) {
	meals := router.Group("/meals")

	if h.rateLimiter != nil {
		meals.POST("", h.rateLimiter.RateLimitMiddleware(), h.CaptureMeal)
	} else {
		meals.POST("", h.CaptureMeal)
	}
	meals.GET("", h.ListMeals)
	meals.GET("/:id", h.GetMeal)
	meals.GET("/:id/image", h.GetMealImage)
	meals.DELETE("/:id", h.DeleteMeal)
}

// decodeImagePayload accepts "data:<mime>;base64,<data>" or bare base64.
func decodeImagePayload(payload, mimeType string) ([]byte, string, error) {
	data := payload
	if strings.HasPrefix(payload, "data:") {
		parts := strings.SplitN(payload, ",", 2)
		if len(parts) != 2 {
			return nil, "", fmt.Errorf("invalid data URI")
		}
		meta := strings.TrimPrefix(parts[0], "data:")
		mimeType = strings.SplitN(meta, ";", 2)[0]
		data = parts[1]
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	imageBytes, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return imageBytes, mimeType, nil
}
