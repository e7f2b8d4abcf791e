package sqlstore

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/nutrilog/internal/errors"
	"github.com/julianstephens/nutrilog/internal/models"
)

const upsertLibrarySQL = `
	INSERT INTO food_library (food_name, cal_per_100, prot_per_100, carb_per_100, fat_per_100, sugar_per_100)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (food_name) DO UPDATE SET
		cal_per_100 = excluded.cal_per_100,
		prot_per_100 = excluded.prot_per_100,
		carb_per_100 = excluded.carb_per_100,
		fat_per_100 = excluded.fat_per_100,
		sugar_per_100 = excluded.sugar_per_100`

// UpsertLibraryEntry inserts entry or replaces the entry with the same food name.
func (t *Tables) UpsertLibraryEntry(entry models.LibraryEntry) error {
	return t.UpsertLibraryEntries([]models.LibraryEntry{entry})
}

// UpsertLibraryEntries writes all entries in one transaction. Later entries
// overwrite earlier ones with the same name. Nothing is written if any entry
// is invalid or any statement fails.
func (t *Tables) UpsertLibraryEntries(entries []models.LibraryEntry) error {
	if err := t.ready(); err != nil {
		return err
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("library entry %q: %w", e.FoodName, err)
		}
	}
	if len(entries) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(t.rebind(upsertLibrarySQL))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare library upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		n := e.Per100g
		if _, err := stmt.Exec(e.FoodName, n.Calories, n.ProteinG, n.CarbsG, n.FatG, sugarColumn(n)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert library entry %q: %w", e.FoodName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit library upsert: %w", err)
	}
	return nil
}

// GetLibraryEntry returns the entry stored under name. Names are case-sensitive.
func (t *Tables) GetLibraryEntry(name string) (models.LibraryEntry, error) {
	if err := t.ready(); err != nil {
		return models.LibraryEntry{}, err
	}

	row := t.db.QueryRow(t.rebind(`
		SELECT food_name, cal_per_100, prot_per_100, carb_per_100, fat_per_100, sugar_per_100
		FROM food_library WHERE food_name = ?`), name)

	e, err := scanLibraryEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.LibraryEntry{}, errors.NotFoundf("library entry %q", name)
		}
		return models.LibraryEntry{}, fmt.Errorf("failed to get library entry %q: %w", name, err)
	}
	return e, nil
}

// ListLibraryEntries returns every entry sorted by name in byte order.
func (t *Tables) ListLibraryEntries() ([]models.LibraryEntry, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}

	rows, err := t.db.Query(`
		SELECT food_name, cal_per_100, prot_per_100, carb_per_100, fat_per_100, sugar_per_100
		FROM food_library`)
	if err != nil {
		return nil, fmt.Errorf("failed to list library entries: %w", err)
	}
	defer rows.Close()

	entries := []models.LibraryEntry{}
	for rows.Next() {
		e, err := scanLibraryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Sorted here so both backends agree regardless of database collation
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FoodName < entries[j].FoodName
	})
	return entries, nil
}

// SearchLibraryEntries returns the entries whose name contains query.
// An empty query matches everything.
func (t *Tables) SearchLibraryEntries(query string, caseInsensitive bool) ([]models.LibraryEntry, error) {
	all, err := t.ListLibraryEntries()
	if err != nil {
		return nil, err
	}
	matches := []models.LibraryEntry{}
	for _, e := range all {
		if MatchName(e.FoodName, query, caseInsensitive) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

// MatchName reports whether name contains query. Case folding is Unicode-aware.
func MatchName(name, query string, caseInsensitive bool) bool {
	if caseInsensitive {
		return strings.Contains(strings.ToLower(name), strings.ToLower(query))
	}
	return strings.Contains(name, query)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLibraryEntry(row rowScanner) (models.LibraryEntry, error) {
	var e models.LibraryEntry
	var cal, prot, carb, fat float64
	var sugar sql.NullFloat64
	if err := row.Scan(&e.FoodName, &cal, &prot, &carb, &fat, &sugar); err != nil {
		return models.LibraryEntry{}, err
	}
	e.Per100g = nutrientsFromRow(cal, prot, carb, fat, sugar)
	return e, nil
}
