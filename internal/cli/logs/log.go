package logs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/nutrilog/internal/backup"
	"github.com/julianstephens/nutrilog/internal/cli"
	"github.com/julianstephens/nutrilog/internal/models"
	"github.com/julianstephens/nutrilog/internal/nutrition"
)

type LogAddCmd struct {
	Name        string  `arg:"" optional:"" help:"Food name for a manual entry."`
	FromLibrary string  `help:"Library food to log, scaled by --grams." short:"l"`
	Grams       float64 `help:"Grams eaten (with --from-library)." short:"g"`
	Meal        string  `help:"Meal type: Breakfast, Lunch, Dinner or Snack. Defaults to the configured meal." short:"m"`
	Date        string  `help:"Date (YYYY-MM-DD, today or yesterday)." default:"today"`
	Calories    float64 `help:"Calories (manual entry)."`
	Protein     float64 `help:"Protein in grams (manual entry)."`
	Carbs       float64 `help:"Carbohydrates in grams (manual entry)."`
	Fat         float64 `help:"Fat in grams (manual entry)."`
	Sugar       float64 `help:"Sugar in grams (manual entry)."`
}

func (c *LogAddCmd) Run(ctx *cli.Context) error {
	hasName := strings.TrimSpace(c.Name) != ""
	hasLibrary := strings.TrimSpace(c.FromLibrary) != ""
	if hasName == hasLibrary {
		return errors.New("give either a food name for a manual entry or --from-library, not both")
	}

	if err := ctx.EnsureWritable(); err != nil {
		return err
	}

	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	meal, err := ctx.ResolveMeal(c.Meal)
	if err != nil {
		return err
	}

	var draft models.LogEntryDraft
	if hasLibrary {
		entry, err := ctx.Store.GetLibraryEntry(c.FromLibrary)
		if err != nil {
			return err
		}
		draft, err = nutrition.ServingFromLibrary(entry, c.Grams, date, meal)
		if err != nil {
			return err
		}
		fmt.Printf("Calculated: %s\n", draft.Nutrients)
	} else {
		draft = models.LogEntryDraft{
			Date:     date,
			MealType: meal,
			FoodName: strings.TrimSpace(c.Name),
			Nutrients: models.Nutrients{
				Calories:      c.Calories,
				ProteinG:      c.Protein,
				CarbsG:        c.Carbs,
				FatG:          c.Fat,
				SugarG:        c.Sugar,
				SchemaVersion: models.CurrentSchema,
			},
		}
	}

	logged, err := ctx.Store.AppendLogEntry(draft)
	if err != nil {
		return fmt.Errorf("failed to log entry: %w", err)
	}

	fmt.Printf("✓ Logged #%d %s (%s, %s)\n", logged.ID, logged.FoodName, logged.MealType, logged.Date)
	return nil
}

type LogListCmd struct {
	Date string `arg:"" optional:"" help:"Only show this date (YYYY-MM-DD, today or yesterday)."`
	All  bool   `help:"Show every entry of every day."`
}

func (c *LogListCmd) Run(ctx *cli.Context) error {
	var entries []models.LogEntry
	var err error
	if c.All {
		entries, err = ctx.Store.GetAllLogEntries()
	} else {
		date, rerr := ctx.ResolveDate(c.Date)
		if rerr != nil {
			return rerr
		}
		entries, err = ctx.Store.GetLogEntriesByDate(date)
	}
	if err != nil {
		return fmt.Errorf("failed to read log: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return nil
	}

	current := ""
	for _, e := range entries {
		if e.Date != current {
			current = e.Date
			fmt.Printf("%s\n", current)
		}
		fmt.Printf("  %-9s %s\n", e.MealType, cli.FormatEntry(e))
	}
	return nil
}

type LogDeleteCmd struct {
	ID   int64  `help:"Delete the entry with this id." xor:"target"`
	Date string `help:"Delete every entry of this date (YYYY-MM-DD, today or yesterday)." xor:"target"`
	Last bool   `help:"Delete the most recently logged entry." xor:"target"`
	Yes  bool   `help:"Do not ask for confirmation when deleting a whole day." short:"y"`
}

func (c *LogDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.EnsureWritable(); err != nil {
		return err
	}

	switch {
	case c.ID != 0:
		if err := ctx.Store.DeleteLogEntry(c.ID); err != nil {
			return err
		}
		fmt.Printf("✓ Deleted entry #%d\n", c.ID)

	case c.Date != "":
		date, err := ctx.ResolveDate(c.Date)
		if err != nil {
			return err
		}
		entries, err := ctx.Store.GetLogEntriesByDate(date)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("No entries logged on %s.\n", date)
			return nil
		}
		if !c.Yes {
			fmt.Printf("Delete %s logged on %s? [y/N]: ", cli.Plural(len(entries), "entry"), date)
			var answer string
			fmt.Scanln(&answer)
			if !cli.Confirm(answer) {
				fmt.Println("Delete cancelled.")
				return nil
			}
		}
		ctx.PerformAutomaticBackup(backup.ReasonDeleteDay)
		n, err := ctx.Store.DeleteLogEntriesByDate(date)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Deleted %s from %s\n", cli.Plural(n, "entry"), date)

	case c.Last:
		removed, ok, err := ctx.Store.DeleteMostRecentLogEntry()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("The log is empty, nothing to delete.")
			return nil
		}
		fmt.Printf("✓ Deleted #%d %s (%s, %s)\n", removed.ID, removed.FoodName, removed.MealType, removed.Date)

	default:
		return errors.New("specify one of --id, --date or --last")
	}
	return nil
}
