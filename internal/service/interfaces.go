package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mealscope/backend/internal/models"
)

// AnalysisResult is the structured output of the recognition backend for a
// single meal photo.
type AnalysisResult struct {
	Foods     []models.FoodItem `json:"foods"`
	Flags     []string          `json:"flags"`
	Nutrition models.Nutrition  `json:"nutrition"`
}

// RecognitionClient analyzes a meal photo into foods, signal flags and a
// nutrition estimate. Failures are classified with the sentinel errors in
// errors.go.
type RecognitionClient interface {
	Analyze(ctx context.Context, imageBytes []byte, mimeType string) (*AnalysisResult, error)
}

// ObjectStorage moves image bytes in and out of blob storage, independent of
// the meal record.
type ObjectStorage interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// MealFilter selects meals from the repository. Results are always ordered
// by logged_at descending.
type MealFilter struct {
	Status *models.MealStatus
	From   *time.Time
	To     *time.Time
	Limit  int
}

// MealUpdate is a single atomic transition applied to one meal record. The
// two constructors below are the only ways the pipeline builds one, so a
// completed meal always carries foods, flags and nutrition together and a
// failed meal only carries its error message.
type MealUpdate struct {
	Status       models.MealStatus
	Foods        models.JSONBFoodItems
	Flags        models.JSONBStringArray
	Nutrition    *models.Nutrition
	ErrorMessage string
}

// CompletionUpdate builds the terminal completed transition for a meal.
func CompletionUpdate(result *AnalysisResult, flags []string) MealUpdate {
	nutrition := result.Nutrition
	return MealUpdate{
		Status:    models.MealStatusCompleted,
		Foods:     models.JSONBFoodItems(result.Foods),
		Flags:     models.JSONBStringArray(flags),
		Nutrition: &nutrition,
	}
}

// FailureUpdate builds the terminal failed transition for a meal.
func FailureUpdate(cause string) MealUpdate {
	return MealUpdate{
		Status:       models.MealStatusFailed,
		ErrorMessage: cause,
	}
}

// MealRepository is the persistence boundary for meal records. Update must
// apply all fields of the given MealUpdate in one write.
type MealRepository interface {
	Create(ctx context.Context, meal *models.Meal) error
	Update(ctx context.Context, id uuid.UUID, update MealUpdate) error
	Get(ctx context.Context, id uuid.UUID) (*models.Meal, error)
	Query(ctx context.Context, filter MealFilter) ([]models.Meal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
