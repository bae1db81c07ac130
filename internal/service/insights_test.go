package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealscope/backend/internal/models"
	"github.com/mealscope/backend/internal/service"
	"github.com/mealscope/backend/internal/testhelpers"
)

func day(d, hour, min int) time.Time {
	return time.Date(2025, time.March, d, hour, min, 0, 0, time.UTC)
}

func signalByKey(t *testing.T, insights service.Insights, key string) service.SignalInsight {
	t.Helper()
	for _, s := range insights.Signals {
		if s.Signal == key {
			return s
		}
	}
	t.Fatalf("signal %s not found in insights", key)
	return service.SignalInsight{}
}

func TestComputeInsights_EmptyInput(t *testing.T) {
	insights := service.ComputeInsights(nil)

	assert.Equal(t, 0, insights.TotalMeals)
	assert.Equal(t, "no data", insights.DateRange)
	assert.Len(t, insights.Signals, len(service.SignalTable()))
	for _, s := range insights.Signals {
		assert.Equal(t, service.ConcernLow, s.ConcernLevel, "signal %s", s.Signal)
		assert.Zero(t, s.Count)
		assert.Zero(t, s.Rate)
	}
	assert.Equal(t, 0, insights.Patterns.LateCaffeineCount)
	assert.Equal(t, "balanced", insights.Patterns.WeekendSkew)
}

func TestComputeInsights_PerWeekNormalization(t *testing.T) {
	// 3 flagged meals over an exact 7-day span.
	meals := []models.Meal{
		testhelpers.CompletedMeal(day(1, 12, 0), service.FlagProcessedMeat),
		testhelpers.CompletedMeal(day(4, 12, 0), service.FlagProcessedMeat),
		testhelpers.CompletedMeal(day(8, 12, 0), service.FlagProcessedMeat),
	}

	insights := service.ComputeInsights(meals)
	require.Equal(t, 7, insights.DaySpan)

	s := signalByKey(t, insights, service.FlagProcessedMeat)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 3.0, s.Rate, 1e-9)
	// The elevated bound is a strict greater-than: a rate exactly at the
	// threshold of 3/week stays moderate.
	assert.Equal(t, service.ConcernModerate, s.ConcernLevel)
}

func TestComputeInsights_ElevatedAboveThreshold(t *testing.T) {
	meals := []models.Meal{
		testhelpers.CompletedMeal(day(1, 12, 0), service.FlagProcessedMeat),
		testhelpers.CompletedMeal(day(3, 12, 0), service.FlagProcessedMeat),
		testhelpers.CompletedMeal(day(5, 12, 0), service.FlagProcessedMeat),
		testhelpers.CompletedMeal(day(8, 12, 0), service.FlagProcessedMeat),
	}

	insights := service.ComputeInsights(meals)
	require.Equal(t, 7, insights.DaySpan)

	s := signalByKey(t, insights, service.FlagProcessedMeat)
	assert.InDelta(t, 4.0, s.Rate, 1e-9)
	assert.Equal(t, service.ConcernElevated, s.ConcernLevel)
}

func TestComputeInsights_Deterministic(t *testing.T) {
	meals := []models.Meal{
		testhelpers.CompletedMeal(day(1, 8, 15), service.FlagCaffeine),
		testhelpers.CompletedMeal(day(2, 19, 30), service.FlagProcessedMeat, service.FlagHighSodium),
		testhelpers.CompletedMeal(day(5, 22, 0), service.FlagLateMeal),
		testhelpers.CompletedMeal(day(9, 13, 45), "unknown_flag"),
	}

	first := service.ComputeInsights(meals)
	second := service.ComputeInsights(meals)
	assert.Equal(t, first, second)
}

func TestComputeInsights_SynonymMerging(t *testing.T) {
	meals := []models.Meal{
		testhelpers.CompletedMeal(day(1, 12, 0), "plastic"),
		testhelpers.CompletedMeal(day(1, 18, 0), "plastic_bottle"),
		// Both spellings on one meal still count it once.
		testhelpers.CompletedMeal(day(2, 12, 0), "plastic", "plastic_bottle"),
	}

	insights := service.ComputeInsights(meals)
	s := signalByKey(t, insights, service.FlagPlastic)
	assert.Equal(t, 3, s.Count)
}

func TestComputeInsights_UnknownFlagsAreInert(t *testing.T) {
	meals := []models.Meal{
		testhelpers.CompletedMeal(day(1, 12, 0), "mystery_flag", "another_one"),
		testhelpers.CompletedMeal(day(2, 12, 0)),
	}

	insights := service.ComputeInsights(meals)
	assert.Equal(t, 2, insights.TotalMeals)
	for _, s := range insights.Signals {
		assert.Zero(t, s.Count, "signal %s", s.Signal)
		assert.Equal(t, service.ConcernLow, s.ConcernLevel)
	}
}

func TestComputeInsights_PercentStrategy(t *testing.T) {
	meals := []models.Meal{
		testhelpers.CompletedMeal(day(1, 12, 0), service.FlagHighSodium),
		testhelpers.CompletedMeal(day(1, 18, 0)),
		testhelpers.CompletedMeal(day(2, 12, 0)),
	}

	insights := service.ComputeInsights(meals)
	s := signalByKey(t, insights, service.FlagHighSodium)
	// round(100 * 1/3) = 33, above the moderate bound of 30.
	assert.Equal(t, float64(33), s.Rate)
	assert.Equal(t, service.ConcernModerate, s.ConcernLevel)
}

func TestComputeInsights_ThresholdMonotonicity(t *testing.T) {
	rank := map[service.ConcernLevel]int{
		service.ConcernLow:      0,
		service.ConcernModerate: 1,
		service.ConcernElevated: 2,
	}

	prev := -1
	for count := 0; count <= 10; count++ {
		// Fixed 7-day span; only the flagged count varies.
		meals := []models.Meal{
			testhelpers.CompletedMeal(day(1, 12, 0)),
			testhelpers.CompletedMeal(day(8, 12, 0)),
		}
		for i := 0; i < count; i++ {
			meals = append(meals, testhelpers.CompletedMeal(day(2+(i%6), 12, 0), service.FlagProcessedMeat))
		}

		s := signalByKey(t, service.ComputeInsights(meals), service.FlagProcessedMeat)
		level := rank[s.ConcernLevel]
		assert.GreaterOrEqual(t, level, prev, "concern regressed at count %d", count)
		prev = level
	}
}

func TestComputeInsights_DaySpanFlooredAtOne(t *testing.T) {
	meals := []models.Meal{
		testhelpers.CompletedMeal(day(1, 8, 0), service.FlagCaffeine),
		testhelpers.CompletedMeal(day(1, 20, 0), service.FlagCaffeine),
	}

	insights := service.ComputeInsights(meals)
	assert.Equal(t, 1, insights.DaySpan)

	s := signalByKey(t, insights, service.FlagCaffeine)
	assert.InDelta(t, 2.0, s.Rate, 1e-9)
}

func TestComputeInsights_LateCaffeineCount(t *testing.T) {
	meals := []models.Meal{
		testhelpers.CompletedMeal(day(1, 9, 0), service.FlagCaffeine),  // morning, not counted
		testhelpers.CompletedMeal(day(1, 14, 0), service.FlagCaffeine), // at the boundary, counted
		testhelpers.CompletedMeal(day(2, 16, 30), "coffee"),            // synonym, counted
		testhelpers.CompletedMeal(day(2, 15, 0)),                       // no caffeine flag
	}

	insights := service.ComputeInsights(meals)
	assert.Equal(t, 2, insights.Patterns.LateCaffeineCount)
}

func TestComputeInsights_AverageDinnerTime(t *testing.T) {
	meals := []models.Meal{
		testhelpers.CompletedMeal(day(1, 18, 0)),
		testhelpers.CompletedMeal(day(2, 19, 30)),
		testhelpers.CompletedMeal(day(3, 8, 0)), // breakfast, outside the dinner window
	}

	insights := service.ComputeInsights(meals)
	assert.Equal(t, "6:45 pm", insights.Patterns.AverageDinnerTime)
}

func TestComputeInsights_BusiestWeekday(t *testing.T) {
	// March 3, 2025 is a Monday.
	meals := []models.Meal{
		testhelpers.CompletedMeal(day(3, 8, 0)),
		testhelpers.CompletedMeal(day(3, 12, 0)),
		testhelpers.CompletedMeal(day(3, 18, 0)),
		testhelpers.CompletedMeal(day(4, 12, 0)),
	}

	insights := service.ComputeInsights(meals)
	assert.Equal(t, "Monday", insights.Patterns.BusiestWeekday)
}

func TestComputeInsights_WeekendSkew(t *testing.T) {
	// March 1–2, 2025 fall on a weekend.
	weekendHeavy := []models.Meal{
		testhelpers.CompletedMeal(day(1, 9, 0)),
		testhelpers.CompletedMeal(day(1, 13, 0)),
		testhelpers.CompletedMeal(day(2, 9, 0)),
		testhelpers.CompletedMeal(day(2, 19, 0)),
		testhelpers.CompletedMeal(day(3, 12, 0)),
	}
	assert.Equal(t, "weekend-heavy", service.ComputeInsights(weekendHeavy).Patterns.WeekendSkew)

	weekdayHeavy := []models.Meal{
		testhelpers.CompletedMeal(day(3, 9, 0)),
		testhelpers.CompletedMeal(day(4, 9, 0)),
		testhelpers.CompletedMeal(day(5, 9, 0)),
		testhelpers.CompletedMeal(day(6, 9, 0)),
		testhelpers.CompletedMeal(day(7, 9, 0)),
	}
	assert.Equal(t, "weekday-heavy", service.ComputeInsights(weekdayHeavy).Patterns.WeekendSkew)
}

func TestSignalTable_IsACopy(t *testing.T) {
	table := service.SignalTable()
	require.NotEmpty(t, table)

	table[0].ModerateAt = -1
	fresh := service.SignalTable()
	assert.NotEqual(t, float64(-1), fresh[0].ModerateAt)
}
