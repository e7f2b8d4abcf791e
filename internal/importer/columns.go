package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/errors"
)

// ColumnMap holds the zero-based CSV column of each imported field.
type ColumnMap struct {
	Name     int `mapstructure:"name" json:"name"`
	Calories int `mapstructure:"calories" json:"calories"`
	Fat      int `mapstructure:"fat" json:"fat"`
	Carbs    int `mapstructure:"carbs" json:"carbs"`
	Sugar    int `mapstructure:"sugar" json:"sugar"`
	Protein  int `mapstructure:"protein" json:"protein"`
}

// DefaultColumns is the layout of the nutrition spreadsheet export:
// name J, calories W, fat Y, carbs AI, sugar AM, protein AO.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		Name:     constants.DefaultNameColumn,
		Calories: constants.DefaultCaloriesColumn,
		Fat:      constants.DefaultFatColumn,
		Carbs:    constants.DefaultCarbsColumn,
		Sugar:    constants.DefaultSugarColumn,
		Protein:  constants.DefaultProteinColumn,
	}
}

func (c ColumnMap) fields() []struct {
	name  string
	index int
} {
	return []struct {
		name  string
		index int
	}{
		{"name", c.Name},
		{"calories", c.Calories},
		{"fat", c.Fat},
		{"carbs", c.Carbs},
		{"sugar", c.Sugar},
		{"protein", c.Protein},
	}
}

// Validate rejects negative indices and a name column shared with a nutrient.
func (c ColumnMap) Validate() error {
	for _, f := range c.fields() {
		if f.index < 0 {
			return errors.Invalid("columns."+f.name, "must not be negative (got %d)", f.index)
		}
		if f.name != "name" && f.index == c.Name {
			return errors.Invalid("columns."+f.name, "shares column %d with the name column", f.index)
		}
	}
	return nil
}

// String renders the map with spreadsheet letters, e.g. "name=J calories=W ...".
func (c ColumnMap) String() string {
	parts := make([]string, 0, 6)
	for _, f := range c.fields() {
		parts = append(parts, f.name+"="+ColumnLetter(f.index))
	}
	return strings.Join(parts, " ")
}

// ParseColumn accepts either a zero-based index ("22") or a spreadsheet letter ("W", "ai").
func ParseColumn(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Invalid("column", "must not be empty")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, errors.Invalid("column", "must not be negative (got %d)", n)
		}
		return n, nil
	}

	n := 0
	for _, r := range strings.ToUpper(s) {
		if r < 'A' || r > 'Z' {
			return 0, errors.Invalid("column", "%q is neither an index nor a column letter", s)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

// ColumnLetter converts a zero-based index to its spreadsheet letter: 0 is A, 26 is AA.
func ColumnLetter(index int) string {
	if index < 0 {
		return fmt.Sprintf("%d", index)
	}
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}
