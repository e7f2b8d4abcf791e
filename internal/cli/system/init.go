package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/nutrilog/internal/cli"
	"github.com/julianstephens/nutrilog/internal/storage"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy the library and log from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if err := ctx.EnsureWritable(); err != nil {
		return err
	}

	if c.Force {
		dbPath := ctx.Store.GetConfigPath()
		if c.Source != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			absSource, err := filepath.Abs(c.Source)
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			// Close first so the file is not held open while it is removed
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized nutrilog storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		fmt.Printf("Copying data from: %s\n", c.Source)
		if err := c.copyData(ctx, c.Source); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
		fmt.Println("Copy completed successfully!")
	}

	return nil
}

// copyData copies the library and the log from sourcePath. Log entries are
// appended in their original order and get new ids.
func (c *InitCmd) copyData(ctx *cli.Context, sourcePath string) error {
	source, err := storage.New(sourcePath)
	if err != nil {
		return err
	}
	if err := source.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer source.Close()

	fmt.Println("  Copying food library...")
	library, err := source.ListLibraryEntries()
	if err != nil {
		return fmt.Errorf("failed to read library from source: %w", err)
	}
	if err := ctx.Store.UpsertLibraryEntries(library); err != nil {
		return fmt.Errorf("failed to write library to destination: %w", err)
	}
	fmt.Printf("    Copied %s\n", cli.Plural(len(library), "library entry"))

	fmt.Println("  Copying food log...")
	entries, err := source.GetAllLogEntries()
	if err != nil {
		return fmt.Errorf("failed to read log from source: %w", err)
	}
	for _, e := range entries {
		draft := e.Draft()
		if _, err := ctx.Store.AppendLogEntry(draft); err != nil {
			return fmt.Errorf("failed to copy log entry #%d: %w", e.ID, err)
		}
	}
	fmt.Printf("    Copied %s\n", cli.Plural(len(entries), "log entry"))

	return nil
}
