package lookup

import (
	"math"
	"strings"

	"github.com/julianstephens/nutrilog/internal/errors"
	"github.com/julianstephens/nutrilog/internal/models"
)

// kJPerKcal converts energy-kj_100g when a product has no kcal value.
const kJPerKcal = 4.184

// Product is a packaged food found by barcode.
type Product struct {
	UPC         string           `json:"upc"`
	Name        string           `json:"name"`
	Brand       string           `json:"brand,omitempty"`
	ServingSize string           `json:"serving_size,omitempty"`
	Per100g     models.Nutrients `json:"per_100g"`
	SodiumG     float64          `json:"sodium_g,omitempty"`
}

// LibraryEntry converts the product into a library profile. An empty name
// falls back to the product name, then to the barcode.
func (p Product) LibraryEntry(name string) (models.LibraryEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = p.DisplayName()
	}
	entry := models.LibraryEntry{FoodName: name, Per100g: p.Per100g}
	if err := entry.Validate(); err != nil {
		return models.LibraryEntry{}, err
	}
	return entry, nil
}

// DisplayName is "Brand Name", the name alone, or the barcode when the product is unnamed.
func (p Product) DisplayName() string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return p.UPC
	}
	if brand := firstBrand(p.Brand); brand != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(brand)) {
		return brand + " " + name
	}
	return name
}

func firstBrand(brands string) string {
	first, _, _ := strings.Cut(brands, ",")
	return strings.TrimSpace(first)
}

// offResponse is the subset of the Open Food Facts v0 product response we read.
type offResponse struct {
	Status  int        `json:"status"`
	Code    string     `json:"code"`
	Product offProduct `json:"product"`
}

type offProduct struct {
	ProductName string                 `json:"product_name"`
	Brands      string                 `json:"brands"`
	ServingSize string                 `json:"serving_size"`
	Nutriments  map[string]interface{} `json:"nutriments"`
}

func (r offResponse) toProduct(upc string) Product {
	n := r.Product.Nutriments

	kcal, ok := nutriment(n, "energy-kcal_100g")
	if !ok {
		if kj, ok := nutriment(n, "energy-kj_100g"); ok {
			kcal = kj / kJPerKcal
		}
	}
	protein, _ := nutriment(n, "proteins_100g")
	carbs, _ := nutriment(n, "carbohydrates_100g")
	fat, _ := nutriment(n, "fat_100g")
	sugar, _ := nutriment(n, "sugars_100g")
	sodium, _ := nutriment(n, "sodium_100g")

	return Product{
		UPC:         upc,
		Name:        strings.TrimSpace(r.Product.ProductName),
		Brand:       strings.TrimSpace(r.Product.Brands),
		ServingSize: strings.TrimSpace(r.Product.ServingSize),
		Per100g: models.Nutrients{
			Calories:      kcal,
			ProteinG:      protein,
			CarbsG:        carbs,
			FatG:          fat,
			SugarG:        sugar,
			SchemaVersion: models.CurrentSchema,
		},
		SodiumG: sodium,
	}
}

// nutriment reads a numeric nutriment. Open Food Facts sends numbers, but
// some products carry them as strings. Unusable values report false.
func nutriment(n map[string]interface{}, key string) (float64, bool) {
	var v float64
	switch raw := n[key].(type) {
	case float64:
		v = raw
	case string:
		parsed, err := parseNumber(raw)
		if err != nil {
			return 0, false
		}
		v = parsed
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// ValidateUPC accepts 8 to 14 digit barcodes (EAN-8, UPC-A, EAN-13, GTIN-14).
func ValidateUPC(upc string) error {
	if len(upc) < 8 || len(upc) > 14 {
		return errors.Invalid("upc", "must be 8 to 14 digits (got %d characters)", len(upc))
	}
	for _, r := range upc {
		if r < '0' || r > '9' {
			return errors.Invalid("upc", "%q must contain only digits", upc)
		}
	}
	return nil
}
