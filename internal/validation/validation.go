package validation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/julianstephens/nutrilog/internal/models"
)

// IssueType represents the kind of data-integrity problem found
type IssueType string

const (
	IssueBlankName        IssueType = "blank_name"
	IssueNegativeValue    IssueType = "negative_value"
	IssueNonFiniteValue   IssueType = "non_finite_value"
	IssueInvalidDate      IssueType = "invalid_date"
	IssueUnknownMealType  IssueType = "unknown_meal_type"
	IssueCaseOnlyDupNames IssueType = "case_only_duplicate_names"
)

// IsWarning reports whether issues of this type are suspicious rather than invalid.
func (t IssueType) IsWarning() bool {
	return t == IssueCaseOnlyDupNames
}

// Issue is one problem found in stored records
type Issue struct {
	Type        IssueType
	Description string
	EntryIDs    []int64  // log entries involved, if any
	FoodNames   []string // library entries involved, if any
}

// Result contains all detected issues
type Result struct {
	Issues []Issue
}

// HasIssues returns true if any issue was found
func (r *Result) HasIssues() bool {
	return len(r.Issues) > 0
}

// Count returns the number of issues of type t
func (r *Result) Count(t IssueType) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Type == t {
			n++
		}
	}
	return n
}

// Split separates invalid records from warnings.
func (r *Result) Split() (errs, warnings Result) {
	errs.Issues, warnings.Issues = []Issue{}, []Issue{}
	for _, issue := range r.Issues {
		if issue.Type.IsWarning() {
			warnings.Issues = append(warnings.Issues, issue)
		} else {
			errs.Issues = append(errs.Issues, issue)
		}
	}
	return errs, warnings
}

// FormatReport returns a human-readable report of all issues
func (r *Result) FormatReport() string {
	if !r.HasIssues() {
		return "No data issues detected."
	}

	var b strings.Builder
	b.WriteString("Data issues detected:\n")
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "- %s\n", issue.Description)
	}
	return b.String()
}

// Validator checks stored library and log records
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateLibrary checks library entries for blank names, bad nutrient
// values and names that differ only by case.
func (v *Validator) ValidateLibrary(entries []models.LibraryEntry) Result {
	result := Result{Issues: []Issue{}}

	byFolded := make(map[string][]string)
	for _, e := range entries {
		label := fmt.Sprintf("library entry %q", e.FoodName)
		if strings.TrimSpace(e.FoodName) == "" {
			result.Issues = append(result.Issues, Issue{
				Type:        IssueBlankName,
				Description: "Library entry with a blank food name",
				FoodNames:   []string{e.FoodName},
			})
		} else {
			folded := strings.ToLower(e.FoodName)
			byFolded[folded] = append(byFolded[folded], e.FoodName)
		}
		result.Issues = append(result.Issues, checkNutrients(label, e.Per100g, nil, []string{e.FoodName})...)
	}

	// Case-sensitive names are allowed, but usually a typo
	keys := make([]string, 0, len(byFolded))
	for k := range byFolded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		names := byFolded[k]
		if len(names) > 1 {
			result.Issues = append(result.Issues, Issue{
				Type:        IssueCaseOnlyDupNames,
				Description: fmt.Sprintf("Library names differ only by case: %s", strings.Join(names, ", ")),
				FoodNames:   names,
			})
		}
	}

	return result
}

// ValidateLog checks log entries for malformed dates, unknown meal types,
// blank names and bad nutrient values.
func (v *Validator) ValidateLog(entries []models.LogEntry) Result {
	result := Result{Issues: []Issue{}}

	for _, e := range entries {
		ids := []int64{e.ID}
		label := fmt.Sprintf("log entry #%d", e.ID)

		if err := models.ValidateDate(e.Date); err != nil {
			result.Issues = append(result.Issues, Issue{
				Type:        IssueInvalidDate,
				Description: fmt.Sprintf("Log entry #%d has invalid date %q", e.ID, e.Date),
				EntryIDs:    ids,
			})
		}
		if !e.MealType.Valid() {
			result.Issues = append(result.Issues, Issue{
				Type:        IssueUnknownMealType,
				Description: fmt.Sprintf("Log entry #%d has unknown meal type %q", e.ID, e.MealType),
				EntryIDs:    ids,
			})
		}
		if strings.TrimSpace(e.FoodName) == "" {
			result.Issues = append(result.Issues, Issue{
				Type:        IssueBlankName,
				Description: fmt.Sprintf("Log entry #%d has a blank food name", e.ID),
				EntryIDs:    ids,
			})
		}
		result.Issues = append(result.Issues, checkNutrients(label, e.Nutrients, ids, nil)...)
	}

	return result
}

func checkNutrients(label string, n models.Nutrients, ids []int64, names []string) []Issue {
	var issues []Issue
	for _, f := range n.Fields() {
		switch {
		case math.IsNaN(f.Value) || math.IsInf(f.Value, 0):
			issues = append(issues, Issue{
				Type:        IssueNonFiniteValue,
				Description: fmt.Sprintf("%s has non-finite %s", capitalize(label), f.Name),
				EntryIDs:    ids,
				FoodNames:   names,
			})
		case f.Value < 0:
			issues = append(issues, Issue{
				Type:        IssueNegativeValue,
				Description: fmt.Sprintf("%s has negative %s (%g)", capitalize(label), f.Name, f.Value),
				EntryIDs:    ids,
				FoodNames:   names,
			})
		}
	}
	return issues
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
