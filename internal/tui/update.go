package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/tui/components/daylog"
	"github.com/julianstephens/nutrilog/internal/tui/components/library"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	switch m.state {
	case StateAddEntry:
		return m.updateAddEntry(msg)
	case StateConfirmDelete:
		if msg, ok := msg.(tea.KeyMsg); ok {
			return m.updateConfirmDelete(msg)
		}
		return m, nil
	}

	switch msg := msg.(type) {
	case daylog.DeleteEntryMsg:
		e := msg.Entry
		m.pending = &e
		m.previousState = m.state
		m.state = StateConfirmDelete
		return m, nil

	case library.LogServingMsg:
		return m.startAddEntry(msg.Entry.FoodName)

	case tea.KeyMsg:
		if m.state == StateLibrary && m.libraryModel.Filtering() {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab), key.Matches(msg, m.keys.ShiftTab):
			// Two tabs, so forward and back are the same
			if m.state == StateDay {
				m.state = StateLibrary
			} else {
				m.state = StateDay
			}
			return m, nil
		case key.Matches(msg, m.keys.Add):
			return m.startAddEntry("")
		}

		if m.state == StateDay {
			switch {
			case key.Matches(msg, m.keys.PrevDay):
				m.shiftDay(-1)
				return m, nil
			case key.Matches(msg, m.keys.NextDay):
				m.shiftDay(1)
				return m, nil
			case key.Matches(msg, m.keys.Today):
				m.date = m.now().Format(constants.DateFormat)
				m.reloadDay()
				return m, nil
			case key.Matches(msg, m.keys.Undo):
				m.undoLast()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateDay:
		m.dayModel, cmd = m.dayModel.Update(msg)
	case StateLibrary:
		m.libraryModel, cmd = m.libraryModel.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width

	// tabs, status line, help and padding
	contentWidth, contentHeight := width-4, height-8
	m.dayModel.SetSize(contentWidth, contentHeight)
	m.libraryModel.SetSize(contentWidth, contentHeight)
	if m.form != nil {
		m.form = m.form.WithWidth(contentWidth)
	}
}

func (m Model) startAddEntry(foodName string) (tea.Model, tea.Cmd) {
	if !m.checkWritable() {
		return m, nil
	}
	m.addForm = &AddFormModel{FoodName: foodName, Meal: m.defaultMeal}
	m.form = NewAddForm(m.addForm, m.libraryByName, m.names)
	if m.width > 0 {
		m.form = m.form.WithWidth(m.width - 4)
	}
	m.previousState = m.state
	m.state = StateAddEntry
	return m, m.form.Init()
}

func (m Model) updateAddEntry(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = m.previousState
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.saveEntry()
		m.state = StateDay
	case huh.StateAborted:
		m.state = m.previousState
	}
	return m, cmd
}

func (m *Model) saveEntry() {
	// serve may have taken the lock while the form was open
	if !m.checkWritable() {
		return
	}
	draft, err := m.addForm.Draft(m.libraryByName, m.date)
	if err != nil {
		m.setError(err)
		return
	}
	entry, err := m.store.AppendLogEntry(draft)
	if err != nil {
		m.setError(err)
		return
	}
	m.setStatus("✓ Logged #%d %s (%s)", entry.ID, entry.FoodName, entry.MealType)
	m.reloadDay()
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.deletePending()
	case key.Matches(msg, m.keys.Cancel):
		m.setStatus("Delete cancelled.")
	default:
		return m, nil
	}
	m.pending = nil
	m.state = m.previousState
	return m, nil
}

func (m *Model) deletePending() {
	if m.pending == nil || !m.checkWritable() {
		return
	}
	e := *m.pending
	if err := m.store.DeleteLogEntry(e.ID); err != nil {
		m.setError(err)
		return
	}
	m.setStatus("✓ Deleted #%d %s", e.ID, e.FoodName)
	m.reloadDay()
}

func (m *Model) undoLast() {
	if !m.checkWritable() {
		return
	}
	removed, ok, err := m.store.DeleteMostRecentLogEntry()
	if err != nil {
		m.setError(err)
		return
	}
	if !ok {
		m.setStatus("The log is empty, nothing to undo.")
		return
	}
	m.setStatus("✓ Undid #%d %s (%s, %s)", removed.ID, removed.FoodName, removed.MealType, removed.Date)
	m.reloadDay()
}
