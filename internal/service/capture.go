package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealscope/backend/internal/models"
)

// Late-night window for the derived late_meal flag: 22:00 through 03:59.
const (
	lateMealStartHour = 22
	lateMealEndHour   = 4
)

// CaptureService orchestrates the optimistic capture path: store the image,
// create a pending meal, acknowledge, and resolve the analysis in a detached
// background task whose only effect is one terminal repository update.
type CaptureService struct {
	repo       MealRepository
	recognizer RecognitionClient
	storage    ObjectStorage

	inFlight sync.WaitGroup
}

// NewCaptureService creates a new CaptureService instance
func NewCaptureService(repo MealRepository, recognizer RecognitionClient, storage ObjectStorage) *CaptureService {
	return &CaptureService{
		repo:       repo,
		recognizer: recognizer,
		storage:    storage,
	}
}

// Capture stores the image, creates the pending meal record and returns it.
// Recognition runs in the background; the caller is never blocked on it. If
// the image upload fails the meal is still created without an image
// reference, since the in-memory bytes can carry this one analysis through.
func (s *CaptureService) Capture(ctx context.Context, imageBytes []byte, mimeType string, loggedAt time.Time) (*models.Meal, error) {
	if len(imageBytes) == 0 {
		return nil, ErrEmptyImage
	}
	if loggedAt.IsZero() {
		loggedAt = time.Now()
	}

	imageRef, err := s.storage.Put(ctx, imageBytes, mimeType)
	if err != nil {
		// The record is still created; recovery cannot re-fetch the image,
		// but this analysis pass has the bytes in hand.
		log.Printf("[CaptureService] Image upload failed, continuing without reference: %v", err)
		imageRef = ""
	}

	meal := &models.Meal{
		ID:       uuid.New(),
		LoggedAt: loggedAt,
		Status:   models.MealStatusPending,
		ImageRef: imageRef,
		Foods:    models.JSONBFoodItems{},
		Flags:    models.JSONBStringArray{},
	}
	if err := s.repo.Create(ctx, meal); err != nil {
		return nil, fmt.Errorf("failed to create meal record: %w", err)
	}

	s.inFlight.Add(1)
	go s.analyze(meal.ID, loggedAt, imageBytes, mimeType)

	return meal, nil
}

// Wait blocks until all dispatched analyses have resolved. Used at shutdown
// and by tests.
func (s *CaptureService) Wait() {
	s.inFlight.Wait()
}

// analyze runs detached from the caller. Every outcome, including a panic,
// converges to exactly one terminal update of the existing record.
func (s *CaptureService) analyze(id uuid.UUID, loggedAt time.Time, imageBytes []byte, mimeType string) {
	defer s.inFlight.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[CaptureService] Analysis panic for meal %s: %v", id, r)
			if err := s.repo.Update(context.Background(), id, FailureUpdate(fmt.Sprintf("internal analysis error: %v", r))); err != nil {
				log.Printf("[CaptureService] Failed to mark meal %s failed: %v", id, err)
			}
		}
	}()

	ctx := context.Background()
	result, err := s.recognizer.Analyze(ctx, imageBytes, mimeType)
	resolveAnalysis(ctx, s.repo, id, loggedAt, result, err, "CaptureService")
}

// resolveAnalysis applies the shared success/failure transition rules for
// both the capture path and the recovery path.
func resolveAnalysis(ctx context.Context, repo MealRepository, id uuid.UUID, loggedAt time.Time, result *AnalysisResult, analysisErr error, component string) {
	if analysisErr != nil {
		log.Printf("[%s] Analysis failed for meal %s: %v", component, id, analysisErr)
		if err := repo.Update(ctx, id, FailureUpdate(analysisErr.Error())); err != nil {
			log.Printf("[%s] Failed to mark meal %s failed: %v", component, id, err)
		}
		return
	}

	flags := deriveFlags(result.Flags, loggedAt)
	if err := repo.Update(ctx, id, CompletionUpdate(result, flags)); err != nil {
		log.Printf("[%s] Failed to complete meal %s: %v", component, id, err)
		return
	}
	log.Printf("[%s] Meal %s completed with %d foods", component, id, len(result.Foods))
}

// deriveFlags appends late_meal when the logged hour falls in the late-night
// window and the recognizer did not already set it. late_meal is the only
// flag ever added after the recognition result is received.
func deriveFlags(recognized []string, loggedAt time.Time) []string {
	flags := make([]string, 0, len(recognized)+1)
	flags = append(flags, recognized...)

	if !isLateMeal(loggedAt) {
		return flags
	}
	for _, f := range flags {
		if f == FlagLateMeal {
			return flags
		}
	}
	return append(flags, FlagLateMeal)
}

func isLateMeal(t time.Time) bool {
	h := t.Hour()
	return h >= lateMealStartHour || h < lateMealEndHour
}
