package testhelpers

import (
	"time"

	"github.com/google/uuid"

	"github.com/mealscope/backend/internal/models"
	"github.com/mealscope/backend/internal/service"
)

// CompletedMeal builds a deterministic completed meal carrying the given
// flags.
func CompletedMeal(loggedAt time.Time, flags ...string) models.Meal {
	if flags == nil {
		flags = []string{}
	}
	return models.Meal{
		ID:       uuid.New(),
		LoggedAt: loggedAt,
		Status:   models.MealStatusCompleted,
		ImageRef: "meal-images/fixture.jpg",
		Foods: models.JSONBFoodItems{
			{Name: "Grilled chicken", Portion: "1 breast"},
			{Name: "Rice", Portion: "1 cup"},
		},
		Flags: models.JSONBStringArray(flags),
		Nutrition: models.JSONBNutrition{Nutrition: &models.Nutrition{
			Calories: 520, Protein: 42, Carbs: 48, Fat: 14, Sodium: 640,
		}},
	}
}

// PendingMeal builds a meal stuck in the pending state, as left behind by an
// interrupted session.
func PendingMeal(loggedAt time.Time, imageRef string) models.Meal {
	return models.Meal{
		ID:       uuid.New(),
		LoggedAt: loggedAt,
		Status:   models.MealStatusPending,
		ImageRef: imageRef,
		Foods:    models.JSONBFoodItems{},
		Flags:    models.JSONBStringArray{},
	}
}

// SampleAnalysis returns a fixed recognition result.
func SampleAnalysis(flags ...string) *service.AnalysisResult {
	if flags == nil {
		flags = []string{}
	}
	return &service.AnalysisResult{
		Foods: []models.FoodItem{
			{Name: "Bacon", Portion: "3 strips", Container: "plate"},
			{Name: "Toast", Portion: "2 slices"},
		},
		Flags:     flags,
		Nutrition: models.Nutrition{Calories: 450, Protein: 18, Carbs: 32, Fat: 28, Sodium: 980},
	}
}

// DailyMeals builds one completed meal per day at the given clock hour,
// starting at start, with every meal carrying the same flags. The series is
// fully determined by its arguments.
func DailyMeals(start time.Time, days int, hour int, flags ...string) []models.Meal {
	meals := make([]models.Meal, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		at := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
		meals = append(meals, CompletedMeal(at, flags...))
	}
	return meals
}
