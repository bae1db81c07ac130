package testhelpers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/mealscope/backend/internal/models"
	"github.com/mealscope/backend/internal/service"
)

// MockMealRepository is a mock implementation of the MealRepository interface
type MockMealRepository struct {
	mock.Mock
}

func (m *MockMealRepository) Create(ctx context.Context, meal *models.Meal) error {
	args := m.Called(ctx, meal)
	return args.Error(0)
}

func (m *MockMealRepository) Update(ctx context.Context, id uuid.UUID, update service.MealUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockMealRepository) Get(ctx context.Context, id uuid.UUID) (*models.Meal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Meal), args.Error(1)
}

func (m *MockMealRepository) Query(ctx context.Context, filter service.MealFilter) ([]models.Meal, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Meal), args.Error(1)
}

func (m *MockMealRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRecognitionClient is a mock implementation of the RecognitionClient interface
type MockRecognitionClient struct {
	mock.Mock
}

func (m *MockRecognitionClient) Analyze(ctx context.Context, imageBytes []byte, mimeType string) (*service.AnalysisResult, error) {
	args := m.Called(ctx, imageBytes, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnalysisResult), args.Error(1)
}

// MockObjectStorage is a mock implementation of the ObjectStorage interface
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) Get(ctx context.Context, ref string) ([]byte, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
