package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/nutrilog/internal/models"
	"github.com/julianstephens/nutrilog/internal/nutrition"
)

// AddFormModel backs the add-entry form. A food that is in the library is
// logged by weight; any other name is a manual entry with absolute amounts.
type AddFormModel struct {
	FoodName string
	Meal     models.MealType
	Grams    string
	Calories string
	Protein  string
	Carbs    string
	Fat      string
	Sugar    string
}

// Draft builds the log entry for date. library is keyed by exact food name.
func (f *AddFormModel) Draft(library map[string]models.LibraryEntry, date string) (models.LogEntryDraft, error) {
	name := strings.TrimSpace(f.FoodName)
	if entry, ok := library[name]; ok {
		grams, err := parseAmount("grams", f.Grams)
		if err != nil {
			return models.LogEntryDraft{}, err
		}
		return nutrition.ServingFromLibrary(entry, grams, date, f.Meal)
	}

	var n models.Nutrients
	fields := []struct {
		label string
		raw   string
		dst   *float64
	}{
		{"calories", f.Calories, &n.Calories},
		{"protein", f.Protein, &n.ProteinG},
		{"carbs", f.Carbs, &n.CarbsG},
		{"fat", f.Fat, &n.FatG},
		{"sugar", f.Sugar, &n.SugarG},
	}
	for _, field := range fields {
		if strings.TrimSpace(field.raw) == "" {
			continue
		}
		v, err := parseAmount(field.label, field.raw)
		if err != nil {
			return models.LogEntryDraft{}, err
		}
		*field.dst = v
	}
	n.SchemaVersion = models.CurrentSchema

	draft := models.LogEntryDraft{
		Date:      date,
		MealType:  f.Meal,
		FoodName:  name,
		Nutrients: n,
	}
	if err := draft.Validate(); err != nil {
		return models.LogEntryDraft{}, err
	}
	return draft, nil
}

func parseAmount(label, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", label)
	}
	return v, nil
}

func optionalAmount(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		v, err := parseAmount(label, s)
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("%s cannot be negative", label)
		}
		return nil
	}
}

// NewAddForm creates the add-entry form. names feeds the food name suggestions.
func NewAddForm(fm *AddFormModel, library map[string]models.LibraryEntry, names []string) *huh.Form {
	inLibrary := func() bool {
		_, ok := library[strings.TrimSpace(fm.FoodName)]
		return ok
	}

	mealOptions := make([]huh.Option[models.MealType], len(models.MealTypes))
	for i, meal := range models.MealTypes {
		mealOptions[i] = huh.NewOption(string(meal), meal)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Food").
				Description("A library food is logged by weight").
				Suggestions(names).
				Value(&fm.FoodName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("food name cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[models.MealType]().
				Title("Meal").
				Options(mealOptions...).
				Value(&fm.Meal),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Grams").
				Value(&fm.Grams).
				Validate(func(s string) error {
					v, err := parseAmount("grams", s)
					if err != nil {
						return err
					}
					if v <= 0 {
						return fmt.Errorf("grams must be greater than zero")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return !inLibrary() }),
		huh.NewGroup(
			huh.NewInput().Title("Calories").Value(&fm.Calories).Validate(optionalAmount("calories")),
			huh.NewInput().Title("Protein (g)").Value(&fm.Protein).Validate(optionalAmount("protein")),
			huh.NewInput().Title("Carbs (g)").Value(&fm.Carbs).Validate(optionalAmount("carbs")),
			huh.NewInput().Title("Fat (g)").Value(&fm.Fat).Validate(optionalAmount("fat")),
			huh.NewInput().Title("Sugar (g)").Value(&fm.Sugar).Validate(optionalAmount("sugar")),
		).WithHideFunc(inLibrary),
	).WithTheme(huh.ThemeDracula())
}
