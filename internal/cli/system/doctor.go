package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/nutrilog/internal/backup"
	"github.com/julianstephens/nutrilog/internal/cli"
	"github.com/julianstephens/nutrilog/internal/lock"
	"github.com/julianstephens/nutrilog/internal/migration"
	"github.com/julianstephens/nutrilog/internal/validation"
)

type DoctorCmd struct{}

type checkResult int

const (
	checkOK checkResult = iota
	checkWarn
	checkFail
	checkSkipped
)

func report(name string, result checkResult, detail string) {
	switch result {
	case checkOK:
		fmt.Printf("✓ %s: OK\n", name)
	case checkWarn:
		fmt.Printf("⚠ %s: WARNING\n", name)
	case checkFail:
		fmt.Printf("❌ %s: FAIL\n", name)
	case checkSkipped:
		fmt.Printf("⊘ %s: SKIPPED (%s)\n", name, detail)
		return
	}
	if detail != "" {
		fmt.Printf("   %s\n", detail)
	}
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	fail := func(name string, err error) {
		report(name, checkFail, "Error: "+err.Error())
		hasError = true
	}

	// Check 1: DB reachable. Load also fails on pending migrations, which
	// the schema checks below report on their own.
	loadErr := ctx.Store.Load()
	status, statusErr := ctx.Store.SchemaStatus()
	dbReachable := statusErr == nil
	if dbReachable {
		report("Database reachable", checkOK, "")
	} else {
		err := loadErr
		if err == nil {
			err = statusErr
		}
		fail("Database reachable", err)
	}

	// Check 2 and 3: schema version and migrations
	if dbReachable {
		if err := checkSchemaVersion(status); err != nil {
			fail("Schema version", err)
		} else {
			report("Schema version", checkOK, "")
		}
		if err := checkMigrationsComplete(status); err != nil {
			fail("Migrations complete", err)
		} else {
			report("Migrations complete", checkOK, "")
		}
	} else {
		report("Schema version", checkSkipped, "database not reachable")
		report("Migrations complete", checkSkipped, "database not reachable")
	}

	// Check 4: Backups present (warning only)
	switch msg, err := checkBackupsPresent(ctx); {
	case errors.Is(err, backup.ErrNotSQLite):
		report("Backups present", checkSkipped, "not a SQLite database")
	case err != nil:
		report("Backups present", checkWarn, err.Error())
	default:
		report("Backups present", checkOK, msg)
	}

	// Check 5: Data validation (needs a fully loaded store)
	if loadErr == nil {
		warnings, err := checkValidation(ctx)
		switch {
		case err != nil:
			fail("Data validation", err)
		case warnings != "":
			report("Data validation", checkWarn, warnings)
		default:
			report("Data validation", checkOK, "")
		}
	} else {
		report("Data validation", checkSkipped, "database not loaded")
	}

	// Check 6: Writer lock (informational)
	if msg := checkWriterLock(ctx); msg != "" {
		report("Writer lock", checkWarn, msg)
	} else {
		report("Writer lock", checkOK, "")
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkSchemaVersion(st migration.Status) error {
	if st.Current > st.Latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", st.Current, st.Latest)
	}
	return nil
}

func checkMigrationsComplete(st migration.Status) error {
	if st.Current < st.Latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run 'nutrilog migrate')", st.Current, st.Latest)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) (string, error) {
	mgr, err := backup.ForTarget(ctx.Store.GetConfigPath())
	if err != nil {
		return "", err
	}
	backups, err := mgr.List()
	if err != nil {
		return "", fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return "", fmt.Errorf("no backups found in %s (run 'nutrilog backup create')", mgr.Dir())
	}
	latest := backups[0]
	return fmt.Sprintf("%d backup(s), latest %s (%s)", len(backups), latest.Timestamp.Format("2006-01-02 15:04"), latest.Reason), nil
}

func checkValidation(ctx *cli.Context) (string, error) {
	validator := validation.New()

	library, err := ctx.Store.ListLibraryEntries()
	if err != nil {
		return "", fmt.Errorf("failed to read library: %w", err)
	}
	entries, err := ctx.Store.GetAllLogEntries()
	if err != nil {
		return "", fmt.Errorf("failed to read log: %w", err)
	}

	libResult := validator.ValidateLibrary(library)
	logResult := validator.ValidateLog(entries)
	combined := validation.Result{Issues: append(libResult.Issues, logResult.Issues...)}

	errs, warnings := combined.Split()
	if errs.HasIssues() {
		return "", fmt.Errorf("%d issue(s) found\n%s", len(errs.Issues), errs.FormatReport())
	}
	if warnings.HasIssues() {
		return warnings.FormatReport(), nil
	}
	return "", nil
}

func checkWriterLock(ctx *cli.Context) string {
	if ctx.DataDir == "" {
		return ""
	}
	holder, live, err := lock.Inspect(ctx.DataDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ""
	case errors.Is(err, lock.ErrMalformed):
		return "writer lockfile is malformed and will be replaced by the next 'nutrilog serve'"
	case err != nil:
		return fmt.Sprintf("failed to read writer lockfile: %v", err)
	case live:
		return fmt.Sprintf("'nutrilog serve' (pid %d, http://%s) owns the database; CLI writes are refused", holder.PID, holder.Addr)
	default:
		return fmt.Sprintf("stale writer lockfile from pid %d will be replaced", holder.PID)
	}
}
