package daylog

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/nutrilog/internal/models"
	"github.com/julianstephens/nutrilog/internal/nutrition"
)

var (
	mealStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Width(12)

	subtotalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	totalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)
)

// DeleteEntryMsg asks the parent to delete Entry after confirmation.
type DeleteEntryMsg struct {
	Entry models.LogEntry
}

type KeyMap struct {
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

// tableKeyMap keeps only cursor movement; letters are left to the parent model.
func tableKeyMap() table.KeyMap {
	km := table.DefaultKeyMap()
	km.LineUp = key.NewBinding(key.WithKeys("up", "k"))
	km.LineDown = key.NewBinding(key.WithKeys("down", "j"))
	km.PageUp = key.NewBinding(key.WithKeys("pgup"))
	km.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	km.HalfPageUp = key.NewBinding(key.WithKeys("ctrl+u"))
	km.HalfPageDown = key.NewBinding(key.WithKeys("ctrl+d"))
	km.GotoTop = key.NewBinding(key.WithKeys("home"))
	km.GotoBottom = key.NewBinding(key.WithKeys("end"))
	return km
}

// Model shows the entries of one day in meal order, followed by per-meal
// subtotals and the day total.
type Model struct {
	table   table.Model
	keys    KeyMap
	summary nutrition.DaySummary
	// entries in display order, indexed by the table cursor
	entries []models.LogEntry
}

func New(width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(tableHeight(height)),
		table.WithKeyMap(tableKeyMap()),
	)
	return Model{table: t, keys: DefaultKeyMap()}
}

func columns(width int) []table.Column {
	name := 28
	if width > 80 {
		name = width - 52
	}
	return []table.Column{
		{Title: "#", Width: 5},
		{Title: "Meal", Width: 10},
		{Title: "Food", Width: name},
		{Title: "kcal", Width: 7},
		{Title: "Prot", Width: 6},
		{Title: "Carb", Width: 6},
		{Title: "Fat", Width: 6},
		{Title: "Sugar", Width: 6},
	}
}

// The summary below the table needs a line per meal plus the total.
func tableHeight(height int) int {
	h := height - len(models.MealTypes) - 3
	if h < 3 {
		return 10
	}
	return h
}

// SetSummary replaces the displayed day, keeping the cursor in range.
func (m *Model) SetSummary(s nutrition.DaySummary) {
	m.summary = s
	entries := make([]models.LogEntry, 0, len(s.Entries))
	for _, meal := range models.MealTypes {
		for _, e := range s.Entries {
			if e.MealType == meal {
				entries = append(entries, e)
			}
		}
	}
	m.entries = entries

	rows := make([]table.Row, len(m.entries))
	for i, e := range m.entries {
		n := e.Nutrients
		rows[i] = table.Row{
			fmt.Sprintf("%d", e.ID),
			string(e.MealType),
			e.FoodName,
			fmt.Sprintf("%.1f", n.Calories),
			fmt.Sprintf("%.1f", n.ProteinG),
			fmt.Sprintf("%.1f", n.CarbsG),
			fmt.Sprintf("%.1f", n.FatG),
			fmt.Sprintf("%.1f", n.SugarG),
		}
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// Selected returns the entry under the cursor.
func (m Model) Selected() (models.LogEntry, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.entries) {
		return models.LogEntry{}, false
	}
	return m.entries[c], true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Delete) {
		if e, ok := m.Selected(); ok {
			return m, func() tea.Msg { return DeleteEntryMsg{Entry: e} }
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.entries) == 0 {
		return "\n  Nothing logged on " + m.summary.Date + ".\n  Press 'a' to add an entry."
	}

	var b strings.Builder
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	for _, meal := range m.summary.Meals {
		b.WriteString(mealStyle.Render(string(meal.MealType)))
		b.WriteString(subtotalStyle.Render(fmt.Sprintf("%s  (%d)", meal.Total, meal.Count)))
		b.WriteString("\n")
	}
	b.WriteString(totalStyle.Render("Total       " + m.summary.Total.String()))
	return b.String()
}

func (m *Model) SetSize(width, height int) {
	m.table.SetColumns(columns(width))
	m.table.SetWidth(width)
	m.table.SetHeight(tableHeight(height))
}
