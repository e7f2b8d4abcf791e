// Package importer loads food library profiles from spreadsheet CSV exports.
//
// Exports are Windows-1252 encoded with one header row. Rows without a name
// are skipped, and nutrient cells that are not usable numbers are imported as
// zero. Anything else that goes wrong aborts the whole batch.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/errors"
	"github.com/julianstephens/nutrilog/internal/logger"
	"github.com/julianstephens/nutrilog/internal/models"
)

// LibraryWriter stores a batch of library entries atomically.
type LibraryWriter interface {
	UpsertLibraryEntries([]models.LibraryEntry) error
}

// Result summarizes an import. Errors holds per-row notes about coerced
// cells; they never fail the import.
type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Import decodes r, maps each data row through cols and upserts the rows into store
// in a single batch. Later rows overwrite earlier rows with the same name.
func Import(r io.Reader, cols ColumnMap, store LibraryWriter) (Result, error) {
	entries, res, err := Parse(r, cols)
	if err != nil {
		return Result{}, err
	}
	if err := store.UpsertLibraryEntries(entries); err != nil {
		return Result{}, &errors.ImportError{Cause: err}
	}

	logger.Info("Imported food library", "imported", res.Imported, "skipped", res.Skipped, "notes", len(res.Errors))
	return res, nil
}

// Parse reads the CSV without writing anything. The returned entries are in file order.
func Parse(r io.Reader, cols ColumnMap) ([]models.LibraryEntry, Result, error) {
	if err := cols.Validate(); err != nil {
		return nil, Result{}, err
	}

	reader := csv.NewReader(charmap.Windows1252.NewDecoder().Reader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	res := Result{Errors: []string{}}
	var entries []models.LibraryEntry

	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Result{}, &errors.ImportError{Row: row, Cause: err}
		}
		if row <= constants.ImportHeaderRows {
			continue
		}

		name := strings.TrimSpace(cell(record, cols.Name))
		if name == "" {
			res.Skipped++
			continue
		}

		entry := models.LibraryEntry{
			FoodName: name,
			Per100g: models.Nutrients{
				Calories:      coerce(record, cols.Calories, "calories", row, &res),
				ProteinG:      coerce(record, cols.Protein, "protein", row, &res),
				CarbsG:        coerce(record, cols.Carbs, "carbs", row, &res),
				FatG:          coerce(record, cols.Fat, "fat", row, &res),
				SugarG:        coerce(record, cols.Sugar, "sugar", row, &res),
				SchemaVersion: models.CurrentSchema,
			},
		}
		entries = append(entries, entry)
		res.Imported++
	}

	return entries, res, nil
}

func cell(record []string, index int) string {
	if index >= len(record) {
		return ""
	}
	return record[index]
}

// coerce parses a nutrient cell. Anything that is not a finite, non-negative
// number becomes 0 and leaves a note in res.
func coerce(record []string, index int, field string, row int, res *Result) float64 {
	raw := strings.TrimSpace(cell(record, index))
	if raw == "" {
		return 0
	}

	v, err := strconv.ParseFloat(raw, 64)
	switch {
	case err != nil:
		res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s %q is not a number, stored as 0", row, field, raw))
		return 0
	case math.IsNaN(v) || math.IsInf(v, 0):
		res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s %q is not finite, stored as 0", row, field, raw))
		return 0
	case v < 0:
		res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s %g is negative, stored as 0", row, field, v))
		return 0
	}
	return v
}
