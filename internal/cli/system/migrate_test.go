package system

import (
	"path/filepath"
	"testing"

	"github.com/julianstephens/nutrilog/internal/cli"
	"github.com/julianstephens/nutrilog/internal/storage/sqlite"
)

func TestMigrateCmd_UpToDate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	ctx := &cli.Context{Store: sqlite.NewStore(dbPath)}
	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Errorf("migrate on an initialized database failed: %v", err)
	}
}

func TestMigrateCmd_Uninitialized(t *testing.T) {
	ctx := &cli.Context{Store: sqlite.NewStore(filepath.Join(t.TempDir(), "missing.db"))}
	if err := (&MigrateCmd{}).Run(ctx); err == nil {
		t.Error("migrate should fail when the database does not exist")
	}
}
