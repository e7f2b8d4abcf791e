package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/logger"
	"github.com/julianstephens/nutrilog/internal/models"
	"github.com/julianstephens/nutrilog/internal/nutrition"
	"github.com/julianstephens/nutrilog/internal/storage"
	"github.com/julianstephens/nutrilog/internal/tui/components/daylog"
	"github.com/julianstephens/nutrilog/internal/tui/components/library"
)

type SessionState int

const (
	StateDay SessionState = iota
	StateLibrary
	StateAddEntry
	StateConfirmDelete
)

// Component size until the first tea.WindowSizeMsg arrives
const (
	defaultWidth  = 96
	defaultHeight = 24
)

// Options holds what the TUI needs from the command that starts it.
type Options struct {
	Store storage.Provider
	// DefaultMeal preselects the meal in the add form
	DefaultMeal models.MealType
	// Writable is checked before every change. It may be nil.
	Writable func() error
	// Now resolves today. Defaults to time.Now.
	Now func() time.Time
}

type Model struct {
	store       storage.Provider
	writable    func() error
	now         func() time.Time
	defaultMeal models.MealType

	state         SessionState
	previousState SessionState
	keys          KeyMap
	help          help.Model
	dayModel      daylog.Model
	libraryModel  library.Model
	form          *huh.Form
	addForm       *AddFormModel

	date          string
	libraryByName map[string]models.LibraryEntry
	names         []string
	pending       *models.LogEntry // entry awaiting delete confirmation

	status    string
	statusErr bool
	quitting  bool
	width     int
	height    int
}

var _ tea.Model = Model{}

func NewModel(opts Options) Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	meal := opts.DefaultMeal
	if !meal.Valid() {
		meal = models.MealSnack
	}

	m := Model{
		store:        opts.Store,
		writable:     opts.Writable,
		now:          now,
		defaultMeal:  meal,
		state:        StateDay,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		dayModel:     daylog.New(defaultWidth, defaultHeight),
		libraryModel: library.New(nil, defaultWidth, defaultHeight),
		date:         now().Format(constants.DateFormat),
	}
	m.reloadLibrary()
	m.reloadDay()
	return m
}

// Date returns the day being shown.
func (m Model) Date() string {
	return m.date
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case StateDay:
		keys = append(keys, m.keys.PrevDay, m.keys.NextDay, m.keys.Add, m.keys.Delete, m.keys.Undo)
	case StateLibrary:
		keys = append(keys, m.keys.Add)
	case StateConfirmDelete:
		keys = []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.PrevDay, m.keys.NextDay, m.keys.Today}

	var actions []key.Binding
	switch m.state {
	case StateDay:
		actions = []key.Binding{m.keys.Add, m.keys.Delete, m.keys.Undo}
	case StateLibrary:
		actions = []key.Binding{m.keys.Add}
	}

	return [][]key.Binding{global, navigation, actions}
}

func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle(constants.AppName)
}

func (m *Model) reloadDay() {
	entries, err := m.store.GetLogEntriesByDate(m.date)
	if err != nil {
		m.setError(fmt.Errorf("failed to read log: %w", err))
		entries = nil
	}
	m.dayModel.SetSummary(nutrition.Summarize(m.date, entries))
}

func (m *Model) reloadLibrary() {
	entries, err := m.store.ListLibraryEntries()
	if err != nil {
		m.setError(fmt.Errorf("failed to read library: %w", err))
		return
	}
	m.libraryByName = make(map[string]models.LibraryEntry, len(entries))
	m.names = make([]string, len(entries))
	for i, e := range entries {
		m.libraryByName[e.FoodName] = e
		m.names[i] = e.FoodName
	}
	m.libraryModel.SetEntries(entries)
}

// checkWritable reports a refused write in the status line.
func (m *Model) checkWritable() bool {
	if m.writable == nil {
		return true
	}
	if err := m.writable(); err != nil {
		m.setError(err)
		return false
	}
	return true
}

func (m *Model) setStatus(format string, args ...interface{}) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = false
}

func (m *Model) setError(err error) {
	logger.Warn("TUI action failed", "error", err)
	m.status = err.Error()
	m.statusErr = true
}

func (m *Model) shiftDay(days int) {
	t, err := time.Parse(constants.DateFormat, m.date)
	if err != nil {
		t = m.now()
	}
	m.date = t.AddDate(0, 0, days).Format(constants.DateFormat)
	m.reloadDay()
}
