package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mealscope/backend/internal/models"
)

// RecoveryService re-drives meals left pending by an interrupted session
// through analysis, so every record converges to a terminal state. It only
// ever updates existing records by id.
type RecoveryService struct {
	repo       MealRepository
	recognizer RecognitionClient
	storage    ObjectStorage
	batchSize  int
}

// NewRecoveryService creates a new RecoveryService instance
func NewRecoveryService(repo MealRepository, recognizer RecognitionClient, storage ObjectStorage, batchSize int) *RecoveryService {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &RecoveryService{
		repo:       repo,
		recognizer: recognizer,
		storage:    storage,
		batchSize:  batchSize,
	}
}

// RecoverPending resolves a bounded batch of pending meals. A pending meal
// without a stored image is marked failed directly; the rest are re-fetched
// and re-submitted under the same transition rules as the capture path.
// Meals already in a terminal state are never touched.
func (s *RecoveryService) RecoverPending(ctx context.Context) error {
	status := models.MealStatusPending
	meals, err := s.repo.Query(ctx, MealFilter{Status: &status, Limit: s.batchSize})
	if err != nil {
		return fmt.Errorf("failed to query pending meals: %w", err)
	}
	if len(meals) == 0 {
		return nil
	}

	log.Printf("[RecoveryService] Recovering %d pending meals", len(meals))
	for i := range meals {
		s.recoverOne(ctx, &meals[i])
	}
	return nil
}

func (s *RecoveryService) recoverOne(ctx context.Context, meal *models.Meal) {
	if meal.ImageRef == "" {
		log.Printf("[RecoveryService] Meal %s has no stored image, marking failed", meal.ID)
		if err := s.repo.Update(ctx, meal.ID, FailureUpdate(ErrNoRecoverableImage.Error())); err != nil {
			log.Printf("[RecoveryService] Failed to mark meal %s failed: %v", meal.ID, err)
		}
		return
	}

	imageBytes, err := s.storage.Get(ctx, meal.ImageRef)
	if err != nil {
		log.Printf("[RecoveryService] Image fetch failed for meal %s: %v", meal.ID, err)
		if err := s.repo.Update(ctx, meal.ID, FailureUpdate(fmt.Sprintf("image fetch failed: %v", err))); err != nil {
			log.Printf("[RecoveryService] Failed to mark meal %s failed: %v", meal.ID, err)
		}
		return
	}

	result, analysisErr := s.recognizer.Analyze(ctx, imageBytes, mimeTypeForRef(meal.ImageRef))
	resolveAnalysis(ctx, s.repo, meal.ID, meal.LoggedAt, result, analysisErr, "RecoveryService")
}

func mimeTypeForRef(ref string) string {
	switch {
	case strings.HasSuffix(ref, ".png"):
		return "image/png"
	case strings.HasSuffix(ref, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
