package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/nutrilog/internal/cli"
	apperrors "github.com/julianstephens/nutrilog/internal/errors"
	"github.com/julianstephens/nutrilog/internal/logger"
)

type LookupCmd struct {
	UPC  string `arg:"" help:"Product barcode (8 to 14 digits)."`
	Save bool   `help:"Save the product to the food library."`
	As   string `help:"Library name to save under. Defaults to the product's brand and name."`
}

// Lookup problems are printed as warnings and do not fail the command.
func (c *LookupCmd) Run(ctx *cli.Context) error {
	if !ctx.Settings().Lookup.Enabled {
		fmt.Println("⚠ Product lookup is disabled in the configuration.")
		return nil
	}

	product, err := ctx.LookupClient().Lookup(context.Background(), c.UPC)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return err
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			fmt.Printf("⚠ Product %s not found.\n", c.UPC)
			return nil
		}
		logger.Warn("Lookup failed", "upc", c.UPC, "error", err)
		fmt.Printf("⚠ Failed to fetch product data: %v\n", err)
		return nil
	}

	fmt.Println("--- PRODUCT INFO ---")
	fmt.Printf("Name:         %s\n", product.Name)
	fmt.Printf("Brand:        %s\n", product.Brand)
	fmt.Printf("Serving size: %s\n", product.ServingSize)
	fmt.Println()
	fmt.Println("--- NUTRITION (per 100g) ---")
	fmt.Printf("%s\n", product.Per100g)
	if product.SodiumG > 0 {
		fmt.Printf("Sodium: %.2fg\n", product.SodiumG)
	}

	if !c.Save {
		return nil
	}
	if err := ctx.EnsureWritable(); err != nil {
		return err
	}
	entry, err := product.LibraryEntry(c.As)
	if err != nil {
		return err
	}
	if err := ctx.Store.UpsertLibraryEntry(entry); err != nil {
		return fmt.Errorf("failed to save library entry: %w", err)
	}
	fmt.Printf("\n✓ Saved to library as %q\n", entry.FoodName)
	return nil
}
