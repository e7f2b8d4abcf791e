package library

import (
	"fmt"

	"github.com/julianstephens/nutrilog/internal/cli"
	"github.com/julianstephens/nutrilog/internal/models"
)

type LibraryAddCmd struct {
	Name     string  `arg:"" help:"Food name. Names are case-sensitive; an existing entry is replaced."`
	Calories float64 `help:"Calories per 100g." required:""`
	Protein  float64 `help:"Protein grams per 100g."`
	Carbs    float64 `help:"Carbohydrate grams per 100g."`
	Fat      float64 `help:"Fat grams per 100g."`
	Sugar    float64 `help:"Sugar grams per 100g."`
}

func (c *LibraryAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.EnsureWritable(); err != nil {
		return err
	}

	entry := models.LibraryEntry{
		FoodName: c.Name,
		Per100g: models.Nutrients{
			Calories:      c.Calories,
			ProteinG:      c.Protein,
			CarbsG:        c.Carbs,
			FatG:          c.Fat,
			SugarG:        c.Sugar,
			SchemaVersion: models.CurrentSchema,
		},
	}
	if err := ctx.Store.UpsertLibraryEntry(entry); err != nil {
		return fmt.Errorf("failed to save library entry: %w", err)
	}

	fmt.Printf("✓ Saved %s\n", cli.FormatLibraryEntry(entry))
	return nil
}

type LibraryGetCmd struct {
	Name string `arg:"" help:"Exact food name."`
}

func (c *LibraryGetCmd) Run(ctx *cli.Context) error {
	entry, err := ctx.Store.GetLibraryEntry(c.Name)
	if err != nil {
		return err
	}
	fmt.Println(cli.FormatLibraryEntry(entry))
	return nil
}

type LibraryListCmd struct{}

func (c *LibraryListCmd) Run(ctx *cli.Context) error {
	entries, err := ctx.Store.ListLibraryEntries()
	if err != nil {
		return fmt.Errorf("failed to list library: %w", err)
	}
	printEntries(entries)
	return nil
}

type LibrarySearchCmd struct {
	Query         string `arg:"" help:"Substring to match against food names."`
	CaseSensitive bool   `help:"Match case exactly." short:"s"`
}

func (c *LibrarySearchCmd) Run(ctx *cli.Context) error {
	entries, err := ctx.Store.SearchLibraryEntries(c.Query, !c.CaseSensitive)
	if err != nil {
		return fmt.Errorf("failed to search library: %w", err)
	}
	printEntries(entries)
	return nil
}

func printEntries(entries []models.LibraryEntry) {
	if len(entries) == 0 {
		fmt.Println("No library entries found.")
		return
	}
	for _, e := range entries {
		fmt.Println(cli.FormatLibraryEntry(e))
	}
	fmt.Printf("\n%s\n", cli.Plural(len(entries), "food"))
}
