package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MealStatus is the lifecycle state of a captured meal.
type MealStatus string

const (
	MealStatusPending   MealStatus = "pending"
	MealStatusCompleted MealStatus = "completed"
	MealStatusFailed    MealStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s MealStatus) Terminal() bool {
	return s == MealStatusCompleted || s == MealStatusFailed
}

// FoodItem is a single recognized food on a plate.
type FoodItem struct {
	Name      string `json:"name"`
	Portion   string `json:"portion,omitempty"`
	Container string `json:"container,omitempty"`
}

// Nutrition is the estimated nutritional breakdown for a whole meal.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Sodium   float64 `json:"sodium"`
}

// JSONBFoodItems stores a food list as JSONB.
type JSONBFoodItems []FoodItem

// Value implements the driver.Valuer interface
func (f JSONBFoodItems) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "[]", nil
	}
	return json.Marshal(f)
}

// Scan implements the sql.Scanner interface
func (f *JSONBFoodItems) Scan(value interface{}) error {
	if value == nil {
		*f = JSONBFoodItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, f)
}

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// JSONBNutrition stores an optional nutrition estimate as JSONB. A nil
// estimate means recognition has not produced one.
type JSONBNutrition struct {
	*Nutrition
}

// Value implements the driver.Valuer interface
func (n JSONBNutrition) Value() (driver.Value, error) {
	if n.Nutrition == nil {
		return nil, nil
	}
	return json.Marshal(n.Nutrition)
}

// Scan implements the sql.Scanner interface
func (n *JSONBNutrition) Scan(value interface{}) error {
	if value == nil {
		n.Nutrition = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	n.Nutrition = &Nutrition{}
	return json.Unmarshal(bytes, n.Nutrition)
}

// MarshalJSON renders the estimate itself, or null when absent.
func (n JSONBNutrition) MarshalJSON() ([]byte, error) {
	if n.Nutrition == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Nutrition)
}

// UnmarshalJSON accepts either null or an estimate object.
func (n *JSONBNutrition) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Nutrition = nil
		return nil
	}
	n.Nutrition = &Nutrition{}
	return json.Unmarshal(data, n.Nutrition)
}

// Meal is a captured meal record. A meal is created exactly once in pending
// status and reaches exactly one terminal status; foods, flags and nutrition
// are only ever written together with the completed transition.
type Meal struct {
	ID           uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    gorm.DeletedAt   `gorm:"index" json:"-"`
	LoggedAt     time.Time        `gorm:"not null;index" json:"logged_at"`
	Status       MealStatus       `gorm:"size:20;not null;index" json:"status"`
	ImageRef     string           `gorm:"size:512" json:"image_ref,omitempty"`
	Foods        JSONBFoodItems   `gorm:"type:jsonb;not null;default:'[]'" json:"foods"`
	Flags        JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"flags"`
	Nutrition    JSONBNutrition   `gorm:"type:jsonb" json:"nutrition"`
	ErrorMessage string           `gorm:"type:text" json:"error_message,omitempty"`
}

func (Meal) TableName() string {
	return "meals"
}

// BeforeCreate assigns an id so the model works on both postgres and sqlite.
func (m *Meal) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// HasFlag reports whether the meal carries the given signal flag.
func (m *Meal) HasFlag(flag string) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
