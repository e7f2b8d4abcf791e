package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/nutrilog/internal/cli"
	"github.com/julianstephens/nutrilog/internal/cli/backups"
	"github.com/julianstephens/nutrilog/internal/cli/library"
	"github.com/julianstephens/nutrilog/internal/cli/logs"
	"github.com/julianstephens/nutrilog/internal/cli/system"
	"github.com/julianstephens/nutrilog/internal/config"
	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/errors"
	"github.com/julianstephens/nutrilog/internal/keyring"
	"github.com/julianstephens/nutrilog/internal/logger"
	"github.com/julianstephens/nutrilog/internal/storage"
)

// keyringTarget as --db selects the connection string stored in the OS keyring
const keyringTarget = "postgres"

var CLI struct {
	Version    kong.VersionFlag
	DB         string `name:"db" help:"SQLite database path, a PostgreSQL URL without a password, or 'postgres' to use the connection string stored in the OS keyring. NUTRILOG_DB_CONNECTION is used when this is left at its default." type:"string" default:"~/.config/nutrilog/nutrilog.db"`
	ConfigFile string `help:"Config file path. Defaults to config.yaml next to the database." type:"path"`
	Debug      bool   `help:"Enable debug logging on stderr."`

	Init    system.InitCmd    `cmd:"" help:"Initialize nutrilog storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Tui     system.TuiCmd     `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Serve   system.ServeCmd   `cmd:"" help:"Serve the local HTTP API."`
	Log     struct {
		Add    logs.LogAddCmd    `cmd:"" help:"Log a food, manually or as a serving of a library food."`
		List   logs.LogListCmd   `cmd:"" help:"List logged entries."`
		Delete logs.LogDeleteCmd `cmd:"" help:"Delete log entries."`
	} `cmd:"" help:"Manage the food log."`
	Day     logs.DayCmd   `cmd:"" help:"Show the totals of a day."`
	Dates   logs.DatesCmd `cmd:"" help:"List the days that have entries."`
	Library struct {
		Add    library.LibraryAddCmd    `cmd:"" help:"Add or replace a library food."`
		Get    library.LibraryGetCmd    `cmd:"" help:"Show a library food."`
		List   library.LibraryListCmd   `cmd:"" help:"List the library." default:"1"`
		Search library.LibrarySearchCmd `cmd:"" help:"Search the library by name."`
	} `cmd:"" help:"Manage the food library."`
	Import library.ImportCmd `cmd:"" help:"Import library foods from a CSV file."`
	Lookup library.LookupCmd `cmd:"" help:"Look up a product by barcode on Open Food Facts."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check whether the OS keyring is available."`
	} `cmd:"" help:"Manage the connection string in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Personal nutrition log with a per-100g food library"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)
	command := ctx.Command()

	dataDir := config.Dir(CLI.DB)
	if CLI.DB == keyringTarget {
		dataDir = config.Dir(constants.DefaultConfigPath)
	}

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: dataDir}); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Failed to initialize logging: %v\n", err)
	}

	cfg, err := config.Load(config.Options{File: CLI.ConfigFile, Dir: dataDir})
	if err != nil {
		errors.Fatal(err)
	}

	store, err := openStore(CLI.DB, cfg)
	if err != nil && !strings.HasPrefix(command, "keyring") {
		errors.Fatal(err)
	}
	logger.Debug("Starting command", "command", command, "data_dir", dataDir)

	appCtx := &cli.Context{
		Store:   store,
		Config:  cfg,
		DataDir: dataDir,
	}

	// Load the store before running the command; these commands handle loading themselves
	if store != nil && !skipsLoad(command) {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	errors.Fatal(ctx.Run(appCtx))
}

func skipsLoad(command string) bool {
	for _, prefix := range []string{"init", "migrate", "doctor", "keyring", "backup"} {
		if strings.HasPrefix(command, prefix) {
			return true
		}
	}
	return false
}

// openStore resolves the database target: the keyring, NUTRILOG_DB_CONNECTION
// when --db is left at its default, or the flag itself.
func openStore(target string, cfg *config.Config) (storage.Provider, error) {
	switch {
	case target == keyringTarget:
		connStr, err := keyring.GetConnectionString()
		if err != nil {
			if stderrors.Is(err, keyring.ErrNotFound) {
				return nil, fmt.Errorf("no connection string in the OS keyring; store one with 'nutrilog keyring set'")
			}
			return nil, err
		}
		return storage.NewTrusted(connStr), nil
	case target == constants.DefaultConfigPath && cfg.DB.Connection != "":
		return storage.NewTrusted(cfg.DB.Connection), nil
	case storage.IsPostgres(target):
		return storage.New(target)
	default:
		return storage.New(config.ExpandHome(target))
	}
}
