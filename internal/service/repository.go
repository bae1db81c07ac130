package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mealscope/backend/internal/models"
	"gorm.io/gorm"
)

// GormMealRepository is the GORM-backed MealRepository implementation.
type GormMealRepository struct {
	db *gorm.DB
}

// NewGormMealRepository creates a new GormMealRepository instance
func NewGormMealRepository(db *gorm.DB) *GormMealRepository {
	return &GormMealRepository{db: db}
}

// Create inserts a new meal record. New meals always start pending with
// empty foods and flags.
func (r *GormMealRepository) Create(ctx context.Context, meal *models.Meal) error {
	if meal.Status == "" {
		meal.Status = models.MealStatusPending
	}
	if meal.Foods == nil {
		meal.Foods = models.JSONBFoodItems{}
	}
	if meal.Flags == nil {
		meal.Flags = models.JSONBStringArray{}
	}
	if err := r.db.WithContext(ctx).Create(meal).Error; err != nil {
		return fmt.Errorf("failed to create meal: %w", err)
	}
	return nil
}

// Update applies one atomic transition to a single meal by id. All fields of
// the update land in one UPDATE statement.
func (r *GormMealRepository) Update(ctx context.Context, id uuid.UUID, update MealUpdate) error {
	fields := map[string]interface{}{
		"status": update.Status,
	}
	switch update.Status {
	case models.MealStatusCompleted:
		fields["foods"] = update.Foods
		fields["flags"] = update.Flags
		fields["nutrition"] = models.JSONBNutrition{Nutrition: update.Nutrition}
	case models.MealStatusFailed:
		fields["error_message"] = update.ErrorMessage
	}

	res := r.db.WithContext(ctx).Model(&models.Meal{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update meal %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMealNotFound
	}
	return nil
}

// Get retrieves a meal by ID
func (r *GormMealRepository) Get(ctx context.Context, id uuid.UUID) (*models.Meal, error) {
	var meal models.Meal
	if err := r.db.WithContext(ctx).First(&meal, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMealNotFound
		}
		return nil, err
	}
	return &meal, nil
}

// Query lists meals matching the filter, ordered by logged_at descending.
func (r *GormMealRepository) Query(ctx context.Context, filter MealFilter) ([]models.Meal, error) {
	q := r.db.WithContext(ctx).Order("logged_at DESC")
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		q = q.Where("logged_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("logged_at < ?", *filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var meals []models.Meal
	if err := q.Find(&meals).Error; err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	return meals, nil
}

// Delete removes a meal by id.
func (r *GormMealRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Meal{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMealNotFound
	}
	return nil
}
