package service

import (
	"fmt"
	"math"
	"time"

	"github.com/mealscope/backend/internal/models"
)

// Signal flag vocabulary. The recognizer is prompted with these; anything
// outside the list passes through meals untouched and counts toward no
// signal.
const (
	FlagProcessedMeat  = "processed_meat"
	FlagRedMeat        = "red_meat"
	FlagFriedFood      = "fried_food"
	FlagSugaryDrink    = "sugary_drink"
	FlagHighSodium     = "high_sodium"
	FlagUltraProcessed = "ultra_processed"
	FlagCaffeine       = "caffeine"
	FlagAlcohol        = "alcohol"
	FlagPlastic        = "plastic"
	FlagLateMeal       = "late_meal"
)

// NormalizationStrategy fixes how a signal's raw count is turned into a rate.
type NormalizationStrategy string

const (
	NormalizePerDay  NormalizationStrategy = "perDay"
	NormalizePerWeek NormalizationStrategy = "perWeek"
	NormalizePercent NormalizationStrategy = "percent"
)

// ConcernLevel is a severity band for a signal's normalized rate.
type ConcernLevel string

const (
	ConcernLow      ConcernLevel = "low"
	ConcernModerate ConcernLevel = "moderate"
	ConcernElevated ConcernLevel = "elevated"
)

// SignalDef fixes a tracked signal: its flag spelling(s), normalization
// strategy and concern thresholds. The table is static configuration shared
// with the UI and report layers.
type SignalDef struct {
	Key        string                `json:"key"`
	Label      string                `json:"label"`
	Strategy   NormalizationStrategy `json:"strategy"`
	Synonyms   []string              `json:"synonyms,omitempty"`
	ModerateAt float64               `json:"moderate_at"`
	ElevatedAt float64               `json:"elevated_at"`
}

// signalTable is the fixed signal taxonomy, iterated in this order so
// insights output is deterministic. Thresholds are strict greater-than
// bounds: a rate exactly at a bound stays in the lower band.
var signalTable = []SignalDef{
	{Key: FlagProcessedMeat, Label: "Processed meat", Strategy: NormalizePerWeek, ModerateAt: 2, ElevatedAt: 3},
	{Key: FlagRedMeat, Label: "Red meat", Strategy: NormalizePerWeek, ModerateAt: 3, ElevatedAt: 5},
	{Key: FlagFriedFood, Label: "Fried food", Strategy: NormalizePerWeek, Synonyms: []string{"fried"}, ModerateAt: 2, ElevatedAt: 4},
	{Key: FlagSugaryDrink, Label: "Sugary drinks", Strategy: NormalizePerWeek, Synonyms: []string{"soda"}, ModerateAt: 3, ElevatedAt: 7},
	{Key: FlagHighSodium, Label: "High sodium", Strategy: NormalizePercent, ModerateAt: 30, ElevatedAt: 50},
	{Key: FlagUltraProcessed, Label: "Ultra-processed food", Strategy: NormalizePercent, Synonyms: []string{"processed_food"}, ModerateAt: 30, ElevatedAt: 50},
	{Key: FlagCaffeine, Label: "Caffeine", Strategy: NormalizePerDay, Synonyms: []string{"coffee", "energy_drink"}, ModerateAt: 2, ElevatedAt: 4},
	{Key: FlagAlcohol, Label: "Alcohol", Strategy: NormalizePerWeek, ModerateAt: 3, ElevatedAt: 7},
	{Key: FlagPlastic, Label: "Plastic packaging", Strategy: NormalizePerDay, Synonyms: []string{"plastic_bottle"}, ModerateAt: 1, ElevatedAt: 3},
	{Key: FlagLateMeal, Label: "Late meals", Strategy: NormalizePerWeek, ModerateAt: 2, ElevatedAt: 4},
}

// SignalTable returns a copy of the signal taxonomy for UI and report
// rendering.
func SignalTable() []SignalDef {
	out := make([]SignalDef, len(signalTable))
	copy(out, signalTable)
	return out
}

// SignalInsight is the derived statistic for one signal over a meal set.
type SignalInsight struct {
	Signal       string                `json:"signal"`
	Label        string                `json:"label"`
	Count        int                   `json:"count"`
	Strategy     NormalizationStrategy `json:"strategy"`
	Rate         float64               `json:"rate"`
	ConcernLevel ConcernLevel          `json:"concern_level"`
}

// PatternSummary holds the day-of-week and timing patterns.
type PatternSummary struct {
	LateCaffeineCount int    `json:"late_caffeine_count"`
	AverageDinnerTime string `json:"average_dinner_time,omitempty"`
	BusiestWeekday    string `json:"busiest_weekday,omitempty"`
	WeekendSkew       string `json:"weekend_skew"`
}

// Insights is the full aggregate derived from a set of analyzed meals.
type Insights struct {
	TotalMeals int             `json:"total_meals"`
	DateRange  string          `json:"date_range"`
	DaySpan    int             `json:"day_span"`
	Signals    []SignalInsight `json:"signals"`
	Patterns   PatternSummary  `json:"patterns"`
}

// ComputeInsights derives per-signal statistics, concern levels and pattern
// summaries from a meal set. It is pure and deterministic: identical inputs
// always produce identical output, and unknown flags are inert.
func ComputeInsights(meals []models.Meal) Insights {
	if len(meals) == 0 {
		return emptyInsights()
	}

	minAt, maxAt := meals[0].LoggedAt, meals[0].LoggedAt
	for _, m := range meals[1:] {
		if m.LoggedAt.Before(minAt) {
			minAt = m.LoggedAt
		}
		if m.LoggedAt.After(maxAt) {
			maxAt = m.LoggedAt
		}
	}

	daySpan := int(math.Ceil(maxAt.Sub(minAt).Hours() / 24))
	if daySpan < 1 {
		daySpan = 1
	}

	out := Insights{
		TotalMeals: len(meals),
		DateRange:  fmt.Sprintf("%s to %s", minAt.Format("2006-01-02"), maxAt.Format("2006-01-02")),
		DaySpan:    daySpan,
		Signals:    make([]SignalInsight, 0, len(signalTable)),
		Patterns:   computePatterns(meals, daySpan),
	}

	for _, def := range signalTable {
		count := countSignal(meals, def)
		rate := normalizeRate(def.Strategy, count, daySpan, len(meals))
		out.Signals = append(out.Signals, SignalInsight{
			Signal:       def.Key,
			Label:        def.Label,
			Count:        count,
			Strategy:     def.Strategy,
			Rate:         rate,
			ConcernLevel: classifyConcern(rate, def),
		})
	}

	return out
}

func emptyInsights() Insights {
	signals := make([]SignalInsight, 0, len(signalTable))
	for _, def := range signalTable {
		signals = append(signals, SignalInsight{
			Signal:       def.Key,
			Label:        def.Label,
			Strategy:     def.Strategy,
			ConcernLevel: ConcernLow,
		})
	}
	return Insights{
		DateRange: "no data",
		Signals:   signals,
		Patterns:  PatternSummary{WeekendSkew: skewBalanced},
	}
}

// countSignal counts meals carrying the signal's flag or any synonymous
// spelling; a meal counts once even when it carries several spellings.
func countSignal(meals []models.Meal, def SignalDef) int {
	count := 0
	for i := range meals {
		if mealHasSignal(&meals[i], def) {
			count++
		}
	}
	return count
}

func mealHasSignal(m *models.Meal, def SignalDef) bool {
	if m.HasFlag(def.Key) {
		return true
	}
	for _, syn := range def.Synonyms {
		if m.HasFlag(syn) {
			return true
		}
	}
	return false
}

func normalizeRate(strategy NormalizationStrategy, count, daySpan, totalMeals int) float64 {
	switch strategy {
	case NormalizePerDay:
		return float64(count) / float64(daySpan)
	case NormalizePerWeek:
		return float64(count) / float64(daySpan) * 7
	case NormalizePercent:
		return math.Round(100 * float64(count) / float64(totalMeals))
	}
	return 0
}

// classifyConcern applies strict greater-than comparisons on both bounds: a
// rate exactly at a threshold classifies into the band below it.
func classifyConcern(rate float64, def SignalDef) ConcernLevel {
	if rate > def.ElevatedAt {
		return ConcernElevated
	}
	if rate > def.ModerateAt {
		return ConcernModerate
	}
	return ConcernLow
}

const (
	skewWeekendHeavy = "weekend-heavy"
	skewWeekdayHeavy = "weekday-heavy"
	skewBalanced     = "balanced"

	lateCaffeineHour = 14
	dinnerStartHour  = 17
	dinnerEndHour    = 23
	skewRatio        = 1.2
)

var caffeineDef = SignalDef{Key: FlagCaffeine, Synonyms: []string{"coffee", "energy_drink"}}

func computePatterns(meals []models.Meal, daySpan int) PatternSummary {
	out := PatternSummary{WeekendSkew: skewBalanced}

	var dinnerSum float64
	var dinnerCount int
	var weekdayCounts [7]int
	weekendMeals, weekdayMeals := 0, 0

	for i := range meals {
		m := &meals[i]
		hour := m.LoggedAt.Hour()

		if mealHasSignal(m, caffeineDef) && hour >= lateCaffeineHour {
			out.LateCaffeineCount++
		}

		if hour >= dinnerStartHour && hour < dinnerEndHour {
			dinnerSum += float64(hour) + float64(m.LoggedAt.Minute())/60
			dinnerCount++
		}

		wd := m.LoggedAt.Weekday()
		weekdayCounts[wd]++
		if wd == time.Saturday || wd == time.Sunday {
			weekendMeals++
		} else {
			weekdayMeals++
		}
	}

	if dinnerCount > 0 {
		out.AverageDinnerTime = formatClockTime(dinnerSum / float64(dinnerCount))
	}

	busiest := time.Sunday
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		if weekdayCounts[wd] > weekdayCounts[busiest] {
			busiest = wd
		}
	}
	out.BusiestWeekday = busiest.String()

	// Per-day averages against a generic week shape; the window is assumed
	// to cover whole weeks closely enough for a qualitative skew.
	weekendPerDay := float64(weekendMeals) / 2
	weekdayPerDay := float64(weekdayMeals) / 5
	switch {
	case weekendPerDay > skewRatio*weekdayPerDay:
		out.WeekendSkew = skewWeekendHeavy
	case weekdayPerDay > skewRatio*weekendPerDay:
		out.WeekendSkew = skewWeekdayHeavy
	}

	return out
}

// formatClockTime renders fractional hours as "h:mm am/pm".
func formatClockTime(hours float64) string {
	h := int(hours)
	m := int(math.Round((hours - float64(h)) * 60))
	if m == 60 {
		h++
		m = 0
	}
	suffix := "am"
	display := h % 24
	if display >= 12 {
		suffix = "pm"
	}
	display = display % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, m, suffix)
}
