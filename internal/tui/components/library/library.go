package library

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/nutrilog/internal/models"
)

// LogServingMsg asks the parent to log a serving of Entry.
type LogServingMsg struct {
	Entry models.LibraryEntry
}

type Item struct {
	Entry models.LibraryEntry
}

func (i Item) Title() string       { return i.Entry.FoodName }
func (i Item) Description() string { return "per 100g: " + i.Entry.Per100g.String() }
func (i Item) FilterValue() string { return i.Entry.FoodName }

type KeyMap struct {
	Log key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Log: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "log serving"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(entries []models.LibraryEntry, width, height int) Model {
	l := list.New(items(entries), list.NewDefaultDelegate(), width, height)
	l.Title = "Library"
	l.SetShowTitle(false)
	l.SetShowHelp(false) // We handle help globally in the main model

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Log}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Log}
	}

	return Model{list: l, keys: keys}
}

func items(entries []models.LibraryEntry) []list.Item {
	out := make([]list.Item, len(entries))
	for i, e := range entries {
		out[i] = Item{Entry: e}
	}
	return out
}

func (m *Model) SetEntries(entries []models.LibraryEntry) {
	m.list.SetItems(items(entries))
}

// Filtering reports whether the user is typing a filter, in which case
// every key belongs to the list.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && !m.Filtering() {
		if key.Matches(msg, m.keys.Log) {
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return LogServingMsg(i) }
			}
			return m, nil
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && !m.Filtering() {
		return "\n  No foods in the library yet.\n  Import a CSV with 'nutrilog import' or add one with 'nutrilog library add'."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
