package logs

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/julianstephens/nutrilog/internal/cli"
	"github.com/julianstephens/nutrilog/internal/nutrition"
)

type DayCmd struct {
	Date string `arg:"" optional:"" help:"Date to summarize (YYYY-MM-DD, today or yesterday)." default:"today"`
	JSON bool   `help:"Print the summary as JSON."`
}

func (c *DayCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}

	entries, err := ctx.Store.GetLogEntriesByDate(date)
	if err != nil {
		return fmt.Errorf("failed to read log: %w", err)
	}
	summary := nutrition.Summarize(date, entries)

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Print(cli.RenderDay(summary))
	return nil
}

type DatesCmd struct {
	Totals bool `help:"Show the calorie total of each day."`
}

func (c *DatesCmd) Run(ctx *cli.Context) error {
	dates, err := ctx.Store.GetLogDates()
	if err != nil {
		return fmt.Errorf("failed to read log dates: %w", err)
	}
	if len(dates) == 0 {
		fmt.Println("Nothing logged yet.")
		return nil
	}

	for _, date := range dates {
		if !c.Totals {
			fmt.Println(date)
			continue
		}
		entries, err := ctx.Store.GetLogEntriesByDate(date)
		if err != nil {
			return fmt.Errorf("failed to read log for %s: %w", date, err)
		}
		total := nutrition.Aggregate(entries)
		fmt.Printf("%s  %7.1f kcal  (%s)\n", date, total.Calories, cli.Plural(len(entries), "entry"))
	}
	return nil
}
