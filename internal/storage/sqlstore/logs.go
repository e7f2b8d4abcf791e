package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/nutrilog/internal/errors"
	"github.com/julianstephens/nutrilog/internal/models"
)

const logColumns = `id, date, food_name, meal_type, calories, protein, carbs, fat, sugar`

// AppendLogEntry validates draft and stores it under a new, increasing id.
func (t *Tables) AppendLogEntry(draft models.LogEntryDraft) (models.LogEntry, error) {
	if err := t.ready(); err != nil {
		return models.LogEntry{}, err
	}
	if err := draft.Validate(); err != nil {
		return models.LogEntry{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := draft.Nutrients
	var id int64
	err := t.db.QueryRow(t.rebind(`
		INSERT INTO food_log (date, food_name, meal_type, calories, protein, carbs, fat, sugar)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		draft.Date, draft.FoodName, string(draft.MealType),
		n.Calories, n.ProteinG, n.CarbsG, n.FatG, sugarColumn(n),
	).Scan(&id)
	if err != nil {
		return models.LogEntry{}, fmt.Errorf("failed to append log entry: %w", err)
	}

	return models.LogEntry{
		ID:        id,
		Date:      draft.Date,
		MealType:  draft.MealType,
		FoodName:  draft.FoodName,
		Nutrients: n.Normalized(),
	}, nil
}

// DeleteLogEntry removes the entry with id. A missing id is reported as not found.
func (t *Tables) DeleteLogEntry(id int64) error {
	if err := t.ready(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := t.db.Exec(t.rebind("DELETE FROM food_log WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete log entry %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return errors.NotFoundf("log entry %d", id)
	}
	return nil
}

// DeleteLogEntriesByDate removes every entry logged on date and returns how many were removed.
func (t *Tables) DeleteLogEntriesByDate(date string) (int, error) {
	if err := t.ready(); err != nil {
		return 0, err
	}
	if err := models.ValidateDate(date); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := t.db.Exec(t.rebind("DELETE FROM food_log WHERE date = ?"), date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete log entries for %s: %w", date, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check deleted rows: %w", err)
	}
	return int(affected), nil
}

// DeleteMostRecentLogEntry removes the entry with the highest id and returns it.
// The boolean is false when the log was already empty.
func (t *Tables) DeleteMostRecentLogEntry() (models.LogEntry, bool, error) {
	if err := t.ready(); err != nil {
		return models.LogEntry{}, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.db.Begin()
	if err != nil {
		return models.LogEntry{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	entry, err := scanLogEntry(tx.QueryRow("SELECT " + logColumns + " FROM food_log ORDER BY id DESC LIMIT 1"))
	if err != nil {
		_ = tx.Rollback()
		if err == sql.ErrNoRows {
			return models.LogEntry{}, false, nil
		}
		return models.LogEntry{}, false, fmt.Errorf("failed to find most recent log entry: %w", err)
	}

	if _, err := tx.Exec(t.rebind("DELETE FROM food_log WHERE id = ?"), entry.ID); err != nil {
		_ = tx.Rollback()
		return models.LogEntry{}, false, fmt.Errorf("failed to delete log entry %d: %w", entry.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return models.LogEntry{}, false, fmt.Errorf("failed to commit delete: %w", err)
	}
	return entry, true, nil
}

// GetLogEntriesByDate returns the entries logged on date in id order.
func (t *Tables) GetLogEntriesByDate(date string) ([]models.LogEntry, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	return t.queryLogEntries(t.rebind("SELECT "+logColumns+" FROM food_log WHERE date = ? ORDER BY id"), date)
}

// GetAllLogEntries returns every entry in id order.
func (t *Tables) GetAllLogEntries() ([]models.LogEntry, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	return t.queryLogEntries("SELECT " + logColumns + " FROM food_log ORDER BY id")
}

// GetLogDates returns the distinct dates that have entries, newest first.
func (t *Tables) GetLogDates() ([]string, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}

	rows, err := t.db.Query("SELECT DISTINCT date FROM food_log ORDER BY date DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list log dates: %w", err)
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (t *Tables) queryLogEntries(query string, args ...interface{}) ([]models.LogEntry, error) {
	rows, err := t.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()

	entries := []models.LogEntry{}
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanLogEntry(row rowScanner) (models.LogEntry, error) {
	var e models.LogEntry
	var meal string
	var cal, prot, carb, fat float64
	var sugar sql.NullFloat64
	if err := row.Scan(&e.ID, &e.Date, &e.FoodName, &meal, &cal, &prot, &carb, &fat, &sugar); err != nil {
		return models.LogEntry{}, err
	}
	e.MealType = models.MealType(meal)
	e.Nutrients = nutrientsFromRow(cal, prot, carb, fat, sugar)
	return e, nil
}
