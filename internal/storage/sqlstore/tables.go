// Package sqlstore implements the food_library and food_log tables on top of
// database/sql. The sqlite and postgres stores own the connection lifecycle and
// share these queries.
package sqlstore

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/julianstephens/nutrilog/internal/migration"
	"github.com/julianstephens/nutrilog/internal/models"
)

// ErrNotLoaded is returned when a table method runs before the store is opened.
var ErrNotLoaded = errors.New("storage not loaded")

// Tables runs the library and log queries against an open database.
// Writes are serialized so concurrent callers in one process never interleave.
type Tables struct {
	db      *sql.DB
	dialect migration.Dialect
	mu      sync.Mutex
}

func New(db *sql.DB, dialect migration.Dialect) *Tables {
	return &Tables{db: db, dialect: dialect}
}

func (t *Tables) ready() error {
	if t == nil || t.db == nil {
		return ErrNotLoaded
	}
	return nil
}

// rebind rewrites ? placeholders into the dialect's syntax.
func (t *Tables) rebind(query string) string {
	if t.dialect != migration.DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// nutrientsFromRow rebuilds a record from its columns. A NULL sugar column
// means the row predates sugar tracking.
func nutrientsFromRow(cal, prot, carb, fat float64, sugar sql.NullFloat64) models.Nutrients {
	n := models.Nutrients{
		Calories:      cal,
		ProteinG:      prot,
		CarbsG:        carb,
		FatG:          fat,
		SchemaVersion: models.SchemaV1,
	}
	if sugar.Valid {
		n.SugarG = sugar.Float64
		n.SchemaVersion = models.SchemaV2
	}
	return n
}

func sugarColumn(n models.Nutrients) sql.NullFloat64 {
	n = n.Normalized()
	if !n.SchemaVersion.HasSugar() {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: n.SugarG, Valid: true}
}
