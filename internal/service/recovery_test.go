package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mealscope/backend/internal/models"
	"github.com/mealscope/backend/internal/service"
	"github.com/mealscope/backend/internal/testhelpers"
)

func TestRecoveryService_ReanalyzesPendingMeal(t *testing.T) {
	repo := new(testhelpers.MockMealRepository)
	recognizer := new(testhelpers.MockRecognitionClient)
	storage := new(testhelpers.MockObjectStorage)

	pending := testhelpers.PendingMeal(time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC), "meal-images/stale.jpg")
	imageBytes := []byte("stored-bytes")

	repo.On("Query", mock.Anything, mock.MatchedBy(func(f service.MealFilter) bool {
		return f.Status != nil && *f.Status == models.MealStatusPending
	})).Return([]models.Meal{pending}, nil)
	storage.On("Get", mock.Anything, "meal-images/stale.jpg").Return(imageBytes, nil)
	recognizer.On("Analyze", mock.Anything, imageBytes, "image/jpeg").
		Return(testhelpers.SampleAnalysis(service.FlagFriedFood), nil)
	repo.On("Update", mock.Anything, pending.ID, mock.MatchedBy(func(u service.MealUpdate) bool {
		return u.Status == models.MealStatusCompleted
	})).Return(nil)

	recovery := service.NewRecoveryService(repo, recognizer, storage, 25)
	require.NoError(t, recovery.RecoverPending(context.Background()))

	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "Update", 1)
}

func TestRecoveryService_NoImageMarksFailed(t *testing.T) {
	repo := new(testhelpers.MockMealRepository)
	recognizer := new(testhelpers.MockRecognitionClient)
	storage := new(testhelpers.MockObjectStorage)

	pending := testhelpers.PendingMeal(time.Now(), "")

	repo.On("Query", mock.Anything, mock.Anything).Return([]models.Meal{pending}, nil)

	var applied service.MealUpdate
	repo.On("Update", mock.Anything, pending.ID, mock.Anything).
		Run(func(args mock.Arguments) {
			applied = args.Get(2).(service.MealUpdate)
		}).Return(nil)

	recovery := service.NewRecoveryService(repo, recognizer, storage, 25)
	require.NoError(t, recovery.RecoverPending(context.Background()))

	assert.Equal(t, models.MealStatusFailed, applied.Status)
	assert.Equal(t, "no image available", applied.ErrorMessage)
	storage.AssertNotCalled(t, "Get")
	recognizer.AssertNotCalled(t, "Analyze")
}

func TestRecoveryService_ImageFetchFailureMarksFailed(t *testing.T) {
	repo := new(testhelpers.MockMealRepository)
	recognizer := new(testhelpers.MockRecognitionClient)
	storage := new(testhelpers.MockObjectStorage)

	pending := testhelpers.PendingMeal(time.Now(), "meal-images/gone.jpg")

	repo.On("Query", mock.Anything, mock.Anything).Return([]models.Meal{pending}, nil)
	storage.On("Get", mock.Anything, "meal-images/gone.jpg").Return(nil, errors.New("object not found"))

	var applied service.MealUpdate
	repo.On("Update", mock.Anything, pending.ID, mock.Anything).
		Run(func(args mock.Arguments) {
			applied = args.Get(2).(service.MealUpdate)
		}).Return(nil)

	recovery := service.NewRecoveryService(repo, recognizer, storage, 25)
	require.NoError(t, recovery.RecoverPending(context.Background()))

	assert.Equal(t, models.MealStatusFailed, applied.Status)
	assert.Contains(t, applied.ErrorMessage, "image fetch failed")
	recognizer.AssertNotCalled(t, "Analyze")
}

func TestRecoveryService_EachMealResolvedOnce(t *testing.T) {
	repo := new(testhelpers.MockMealRepository)
	recognizer := new(testhelpers.MockRecognitionClient)
	storage := new(testhelpers.MockObjectStorage)

	first := testhelpers.PendingMeal(time.Now(), "meal-images/a.jpg")
	second := testhelpers.PendingMeal(time.Now(), "")
	third := testhelpers.PendingMeal(time.Now(), "meal-images/c.png")

	repo.On("Query", mock.Anything, mock.Anything).Return([]models.Meal{first, second, third}, nil)
	storage.On("Get", mock.Anything, "meal-images/a.jpg").Return([]byte("a"), nil)
	storage.On("Get", mock.Anything, "meal-images/c.png").Return([]byte("c"), nil)
	recognizer.On("Analyze", mock.Anything, []byte("a"), "image/jpeg").
		Return(testhelpers.SampleAnalysis(), nil)
	recognizer.On("Analyze", mock.Anything, []byte("c"), "image/png").
		Return(nil, service.ErrRecognitionTimeout)
	repo.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	recovery := service.NewRecoveryService(repo, recognizer, storage, 25)
	require.NoError(t, recovery.RecoverPending(context.Background()))

	// One terminal update per pending meal, never a create.
	repo.AssertNumberOfCalls(t, "Update", 3)
	repo.AssertNotCalled(t, "Create")
}

func TestRecoveryService_NothingPendingIsANoop(t *testing.T) {
	repo := new(testhelpers.MockMealRepository)
	recognizer := new(testhelpers.MockRecognitionClient)
	storage := new(testhelpers.MockObjectStorage)

	repo.On("Query", mock.Anything, mock.Anything).Return([]models.Meal{}, nil)

	recovery := service.NewRecoveryService(repo, recognizer, storage, 25)
	require.NoError(t, recovery.RecoverPending(context.Background()))

	repo.AssertNotCalled(t, "Update")
}

func TestRecoveryService_QueryErrorPropagates(t *testing.T) {
	repo := new(testhelpers.MockMealRepository)
	recognizer := new(testhelpers.MockRecognitionClient)
	storage := new(testhelpers.MockObjectStorage)

	repo.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	recovery := service.NewRecoveryService(repo, recognizer, storage, 25)
	err := recovery.RecoverPending(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query pending meals")
}

func TestRecoveryService_BatchSizePassedToQuery(t *testing.T) {
	repo := new(testhelpers.MockMealRepository)
	recognizer := new(testhelpers.MockRecognitionClient)
	storage := new(testhelpers.MockObjectStorage)

	repo.On("Query", mock.Anything, mock.MatchedBy(func(f service.MealFilter) bool {
		return f.Limit == 10
	})).Return([]models.Meal{}, nil)

	recovery := service.NewRecoveryService(repo, recognizer, storage, 10)
	require.NoError(t, recovery.RecoverPending(context.Background()))
	repo.AssertExpectations(t)
}
