package models

import (
	"strings"
	"time"

	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/errors"
)

type MealType string

const (
	MealBreakfast MealType = "Breakfast"
	MealLunch     MealType = "Lunch"
	MealDinner    MealType = "Dinner"
	MealSnack     MealType = "Snack"
)

// MealTypes lists the meal types in the order they are displayed.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

// Valid reports whether m is one of the known meal types.
func (m MealType) Valid() bool {
	for _, known := range MealTypes {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMealType matches s case-insensitively against the known meal types.
func ParseMealType(s string) (MealType, error) {
	s = strings.TrimSpace(s)
	for _, known := range MealTypes {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", errors.Invalid("meal_type", "%q is not one of Breakfast, Lunch, Dinner, Snack", s)
}

// LibraryEntry is a reusable per-100g nutrient profile keyed by food name.
// Names are case-sensitive.
type LibraryEntry struct {
	FoodName string    `json:"food_name"`
	Per100g  Nutrients `json:"per_100g"`
}

func (e LibraryEntry) Validate() error {
	if strings.TrimSpace(e.FoodName) == "" {
		return errors.Invalid("food_name", "must not be empty")
	}
	return e.Per100g.Validate()
}

// LogEntryDraft is a log entry before the store assigns it an id.
type LogEntryDraft struct {
	Date      string    `json:"date"` // YYYY-MM-DD
	MealType  MealType  `json:"meal_type"`
	FoodName  string    `json:"food_name"`
	Nutrients Nutrients `json:"nutrients"`
}

func (d LogEntryDraft) Validate() error {
	if err := ValidateDate(d.Date); err != nil {
		return err
	}
	if !d.MealType.Valid() {
		return errors.Invalid("meal_type", "%q is not one of Breakfast, Lunch, Dinner, Snack", d.MealType)
	}
	if strings.TrimSpace(d.FoodName) == "" {
		return errors.Invalid("food_name", "must not be empty")
	}
	return d.Nutrients.Validate()
}

// LogEntry is one food logged for one meal on one day, with absolute nutrient amounts.
type LogEntry struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	MealType  MealType  `json:"meal_type"`
	FoodName  string    `json:"food_name"`
	Nutrients Nutrients `json:"nutrients"`
}

// Draft returns the entry without its id.
func (e LogEntry) Draft() LogEntryDraft {
	return LogEntryDraft{
		Date:      e.Date,
		MealType:  e.MealType,
		FoodName:  e.FoodName,
		Nutrients: e.Nutrients,
	}
}

// ValidateDate checks that date is a calendar day in YYYY-MM-DD form.
func ValidateDate(date string) error {
	t, err := time.Parse(constants.DateFormat, date)
	if err != nil || t.Format(constants.DateFormat) != date {
		return errors.Invalid("date", "%q must be a calendar date in YYYY-MM-DD format", date)
	}
	return nil
}
