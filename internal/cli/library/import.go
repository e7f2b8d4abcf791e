package library

import (
	"fmt"
	"os"

	"github.com/julianstephens/nutrilog/internal/backup"
	"github.com/julianstephens/nutrilog/internal/cli"
	"github.com/julianstephens/nutrilog/internal/importer"
)

type ImportCmd struct {
	File string `arg:"" help:"CSV export to import (Windows-1252)." type:"existingfile"`

	NameCol     string `help:"Column holding the food name (index or letter)." name:"name-col"`
	CaloriesCol string `help:"Column holding calories per 100g." name:"calories-col"`
	FatCol      string `help:"Column holding fat per 100g." name:"fat-col"`
	CarbsCol    string `help:"Column holding carbohydrates per 100g." name:"carbs-col"`
	SugarCol    string `help:"Column holding sugar per 100g." name:"sugar-col"`
	ProteinCol  string `help:"Column holding protein per 100g." name:"protein-col"`

	DryRun bool `help:"Parse and report without writing to the library."`
	Quiet  bool `help:"Do not list per-row notes." short:"q"`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	cols, err := c.columns(ctx)
	if err != nil {
		return err
	}

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	var res importer.Result
	if c.DryRun {
		_, res, err = importer.Parse(f, cols)
		if err != nil {
			return err
		}
		fmt.Println("Dry run, nothing was written.")
	} else {
		if err := ctx.EnsureWritable(); err != nil {
			return err
		}
		ctx.PerformAutomaticBackup(backup.ReasonImport)
		res, err = importer.Import(f, cols, ctx.Store)
		if err != nil {
			return err
		}
	}

	fmt.Printf("✓ Imported %s, skipped %s (columns: %s)\n",
		cli.Plural(res.Imported, "row"), cli.Plural(res.Skipped, "row"), cols)
	if len(res.Errors) > 0 {
		fmt.Printf("%s stored as 0.\n", cli.Plural(len(res.Errors), "cell"))
		if !c.Quiet {
			for _, note := range res.Errors {
				fmt.Printf("  %s\n", note)
			}
		}
	}
	return nil
}

// columns overlays the flags on the configured column layout.
func (c *ImportCmd) columns(ctx *cli.Context) (importer.ColumnMap, error) {
	cols, err := ctx.Columns()
	if err != nil {
		return importer.ColumnMap{}, err
	}

	overrides := []struct {
		raw string
		dst *int
	}{
		{c.NameCol, &cols.Name},
		{c.CaloriesCol, &cols.Calories},
		{c.FatCol, &cols.Fat},
		{c.CarbsCol, &cols.Carbs},
		{c.SugarCol, &cols.Sugar},
		{c.ProteinCol, &cols.Protein},
	}
	for _, o := range overrides {
		if o.raw == "" {
			continue
		}
		idx, err := importer.ParseColumn(o.raw)
		if err != nil {
			return importer.ColumnMap{}, err
		}
		*o.dst = idx
	}
	if err := cols.Validate(); err != nil {
		return importer.ColumnMap{}, err
	}
	return cols, nil
}
