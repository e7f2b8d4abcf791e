package models

import (
	"fmt"
	"math"

	"github.com/julianstephens/nutrilog/internal/errors"
)

// SchemaVersion records which nutrient fields a record was written with.
type SchemaVersion int

const (
	// SchemaV1 records carry calories, protein, carbs and fat only.
	SchemaV1 SchemaVersion = 1
	// SchemaV2 adds sugar.
	SchemaV2 SchemaVersion = 2

	CurrentSchema = SchemaV2
)

// HasSugar reports whether records of this version store a sugar value.
func (v SchemaVersion) HasSugar() bool {
	return v >= SchemaV2
}

// Nutrients is a set of macronutrient quantities. Depending on context it is
// either a per-100g profile or an absolute amount for a logged serving.
type Nutrients struct {
	Calories      float64       `json:"calories"`
	ProteinG      float64       `json:"protein_g"`
	CarbsG        float64       `json:"carbs_g"`
	FatG          float64       `json:"fat_g"`
	SugarG        float64       `json:"sugar_g"`
	SchemaVersion SchemaVersion `json:"schema_version"`
}

// Normalized returns a copy with a concrete schema version and sugar zeroed
// for records written before sugar existed. A zero version is treated as current.
func (n Nutrients) Normalized() Nutrients {
	if n.SchemaVersion == 0 {
		n.SchemaVersion = CurrentSchema
	}
	if !n.SchemaVersion.HasSugar() {
		n.SugarG = 0
	}
	return n
}

// Add sums two records field by field. The result has the newer of the two schema versions.
func (n Nutrients) Add(o Nutrients) Nutrients {
	a, b := n.Normalized(), o.Normalized()
	version := a.SchemaVersion
	if b.SchemaVersion > version {
		version = b.SchemaVersion
	}
	return Nutrients{
		Calories:      a.Calories + b.Calories,
		ProteinG:      a.ProteinG + b.ProteinG,
		CarbsG:        a.CarbsG + b.CarbsG,
		FatG:          a.FatG + b.FatG,
		SugarG:        a.SugarG + b.SugarG,
		SchemaVersion: version,
	}
}

// Multiply scales every field by factor.
func (n Nutrients) Multiply(factor float64) Nutrients {
	n = n.Normalized()
	return Nutrients{
		Calories:      n.Calories * factor,
		ProteinG:      n.ProteinG * factor,
		CarbsG:        n.CarbsG * factor,
		FatG:          n.FatG * factor,
		SugarG:        n.SugarG * factor,
		SchemaVersion: n.SchemaVersion,
	}
}

// IsZero reports whether every quantity is zero.
func (n Nutrients) IsZero() bool {
	return n.Calories == 0 && n.ProteinG == 0 && n.CarbsG == 0 && n.FatG == 0 && n.SugarG == 0
}

// Fields returns the quantities paired with their storage names, in display order.
func (n Nutrients) Fields() []NutrientField {
	return []NutrientField{
		{Name: "calories", Value: n.Calories},
		{Name: "protein", Value: n.ProteinG},
		{Name: "carbs", Value: n.CarbsG},
		{Name: "fat", Value: n.FatG},
		{Name: "sugar", Value: n.SugarG},
	}
}

// NutrientField is a named quantity of a Nutrients record.
type NutrientField struct {
	Name  string
	Value float64
}

// Validate checks that every quantity is a finite, non-negative number.
func (n Nutrients) Validate() error {
	if n.SchemaVersion < 0 || n.SchemaVersion > CurrentSchema {
		return errors.Invalid("schema_version", "%d is not supported", n.SchemaVersion)
	}
	for _, f := range n.Fields() {
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
			return errors.Invalid(f.Name, "must be a finite number")
		}
		if f.Value < 0 {
			return errors.Invalid(f.Name, "must not be negative (got %g)", f.Value)
		}
	}
	return nil
}

// String renders the record with one decimal place, e.g. "247.5 kcal | P 46.5g | C 0.0g | F 5.4g | S 0.0g".
func (n Nutrients) String() string {
	n = n.Normalized()
	return fmt.Sprintf("%.1f kcal | P %.1fg | C %.1fg | F %.1fg | S %.1fg",
		n.Calories, n.ProteinG, n.CarbsG, n.FatG, n.SugarG)
}
