package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/nutrilog/internal/models"
	"github.com/julianstephens/nutrilog/internal/nutrition"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	mealStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	totalStyle  = lipgloss.NewStyle().Bold(true).
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("63"))
)

// FormatEntry renders one log line: "#12  Chicken Breast  247.5 kcal | ...".
func FormatEntry(e models.LogEntry) string {
	return fmt.Sprintf("#%-4d %-28s %s", e.ID, e.FoodName, e.Nutrients)
}

// RenderDay renders a day summary grouped by meal, with subtotals and the day total.
func RenderDay(s nutrition.DaySummary) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Food log for "+s.Date) + "\n")

	if len(s.Entries) == 0 {
		b.WriteString(mutedStyle.Render("No entries logged.") + "\n")
		return b.String()
	}

	for _, meal := range s.Meals {
		b.WriteString("\n" + mealStyle.Render(string(meal.MealType)) + "\n")
		for _, e := range s.Entries {
			if e.MealType == meal.MealType {
				b.WriteString("  " + FormatEntry(e) + "\n")
			}
		}
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  subtotal (%s): %s", Plural(meal.Count, "item"), meal.Total)) + "\n")
	}

	b.WriteString("\n" + totalStyle.Render(fmt.Sprintf("Total: %s", s.Total)) + "\n")
	return b.String()
}

// FormatLibraryEntry renders a library profile on one line.
func FormatLibraryEntry(e models.LibraryEntry) string {
	return fmt.Sprintf("%-32s per 100g: %s", e.FoodName, e.Per100g)
}
