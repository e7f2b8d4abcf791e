package nutrition

import (
	"github.com/julianstephens/nutrilog/internal/models"
)

// Aggregate sums the nutrients of entries. An empty slice yields a zero record.
func Aggregate(entries []models.LogEntry) models.Nutrients {
	total := models.Nutrients{SchemaVersion: models.SchemaV1}
	if len(entries) == 0 {
		return models.Nutrients{SchemaVersion: models.CurrentSchema}
	}
	for _, e := range entries {
		total = total.Add(e.Nutrients)
	}
	return total
}

// AggregateByMeal sums entries per meal type. Meals without entries are absent from the map.
func AggregateByMeal(entries []models.LogEntry) map[models.MealType]models.Nutrients {
	grouped := make(map[models.MealType][]models.LogEntry)
	for _, e := range entries {
		grouped[e.MealType] = append(grouped[e.MealType], e)
	}
	totals := make(map[models.MealType]models.Nutrients, len(grouped))
	for meal, list := range grouped {
		totals[meal] = Aggregate(list)
	}
	return totals
}

// FilterByDate returns the entries logged on date, preserving order.
func FilterByDate(entries []models.LogEntry, date string) []models.LogEntry {
	var out []models.LogEntry
	for _, e := range entries {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out
}

// MealTotal is the subtotal for one meal of a day.
type MealTotal struct {
	MealType models.MealType  `json:"meal_type"`
	Total    models.Nutrients `json:"total"`
	Count    int              `json:"count"`
}

// DaySummary is everything shown for one day: its entries, per-meal subtotals and the day total.
type DaySummary struct {
	Date    string            `json:"date"`
	Entries []models.LogEntry `json:"entries"`
	Meals   []MealTotal       `json:"meals"`
	Total   models.Nutrients  `json:"total"`
}

// Summarize builds the summary of date from entries. Entries of other dates are ignored.
func Summarize(date string, entries []models.LogEntry) DaySummary {
	day := FilterByDate(entries, date)
	if day == nil {
		day = []models.LogEntry{}
	}

	byMeal := AggregateByMeal(day)
	counts := make(map[models.MealType]int)
	for _, e := range day {
		counts[e.MealType]++
	}

	var meals []MealTotal
	for _, meal := range models.MealTypes {
		total, ok := byMeal[meal]
		if !ok {
			continue
		}
		meals = append(meals, MealTotal{MealType: meal, Total: total, Count: counts[meal]})
	}

	return DaySummary{
		Date:    date,
		Entries: day,
		Meals:   meals,
		Total:   Aggregate(day),
	}
}
