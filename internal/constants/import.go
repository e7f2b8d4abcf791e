package constants

// Default zero-based column positions of the spreadsheet export consumed by
// the bulk importer. Letters are the spreadsheet column names.
const (
	DefaultNameColumn     = 9  // J
	DefaultCaloriesColumn = 22 // W
	DefaultFatColumn      = 24 // Y
	DefaultCarbsColumn    = 34 // AI
	DefaultSugarColumn    = 38 // AM
	DefaultProteinColumn  = 40 // AO

	// ImportHeaderRows is the number of leading rows skipped before data starts
	ImportHeaderRows = 1
)
