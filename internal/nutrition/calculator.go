// Package nutrition converts per-100g profiles into served amounts and totals logged entries.
package nutrition

import (
	"math"

	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/errors"
	"github.com/julianstephens/nutrilog/internal/models"
)

// Scale converts a per-100g profile into the absolute amounts contained in grams.
// grams must be a finite number greater than zero. No rounding is applied.
func Scale(profile models.Nutrients, grams float64) (models.Nutrients, error) {
	if math.IsNaN(grams) || math.IsInf(grams, 0) {
		return models.Nutrients{}, errors.Invalid("grams", "must be a finite number")
	}
	if grams <= 0 {
		return models.Nutrients{}, errors.Invalid("grams", "must be greater than zero (got %g)", grams)
	}
	if err := profile.Validate(); err != nil {
		return models.Nutrients{}, err
	}
	return profile.Multiply(grams / constants.ReferenceGrams), nil
}

// ServingFromLibrary builds a log entry draft for grams of a library food.
// The draft holds resolved amounts, so later edits to the library entry do not affect it.
func ServingFromLibrary(entry models.LibraryEntry, grams float64, date string, meal models.MealType) (models.LogEntryDraft, error) {
	amounts, err := Scale(entry.Per100g, grams)
	if err != nil {
		return models.LogEntryDraft{}, err
	}
	draft := models.LogEntryDraft{
		Date:      date,
		MealType:  meal,
		FoodName:  entry.FoodName,
		Nutrients: amounts,
	}
	if err := draft.Validate(); err != nil {
		return models.LogEntryDraft{}, err
	}
	return draft, nil
}
