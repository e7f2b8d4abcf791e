package backup

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nutrilog.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE food_log (id INTEGER PRIMARY KEY AUTOINCREMENT, date TEXT, food_name TEXT, meal_type TEXT, calories REAL)`,
		`CREATE TABLE food_library (food_name TEXT PRIMARY KEY, cal_per_100 REAL)`,
		`INSERT INTO food_log (date, food_name, meal_type, calories) VALUES ('2024-01-01', 'Oats', 'Breakfast', 300)`,
		`INSERT INTO food_library (food_name, cal_per_100) VALUES ('Oats', 389)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to prepare test database: %v", err)
		}
	}
	return dbPath
}

func countLogRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM food_log").Scan(&n); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

func fixedClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	path, err := mgr.Create(ReasonManual)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(filepath.Dir(dbPath), "backups") {
		t.Errorf("backup written to %s, want backups dir", path)
	}
	if !strings.HasPrefix(filepath.Base(path), "nutrilog-") || !strings.HasSuffix(path, "-manual.db") {
		t.Errorf("unexpected backup name %s", filepath.Base(path))
	}
	if countLogRows(t, path) != 1 {
		t.Error("backup does not contain the log row")
	}
}

func TestCreateMissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(ReasonManual); err == nil {
		t.Error("expected error for missing database")
	}
}

func TestCreateSameSecondGetsCounter(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	fixed := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	mgr.now = func() time.Time { return fixed }

	first, err := mgr.Create(ReasonImport)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := mgr.Create(ReasonImport)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first == second || !strings.HasSuffix(second, "-import-1.db") {
		t.Errorf("second backup = %s, want counter suffix", filepath.Base(second))
	}

	backups, _ := mgr.List()
	if len(backups) != 2 || backups[0].Path != second {
		t.Errorf("List() = %+v, want counter-suffixed backup first", backups)
	}
}

func TestListParsesNames(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	if err := os.MkdirAll(mgr.Dir(), 0700); err != nil {
		t.Fatal(err)
	}

	names := []string{
		"nutrilog-20240101-080000-manual.db",
		"nutrilog-20240102-080000-pre-restore.db",
		"nutrilog-20240102-080000-pre-restore-2.db",
		"nutrilog-garbage.db",
		"other-20240101-080000-manual.db",
		"notes.txt",
	}
	for _, n := range names {
		os.WriteFile(filepath.Join(mgr.Dir(), n), []byte("x"), 0600)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("got %d backups, want 3: %+v", len(backups), backups)
	}
	if backups[0].Reason != ReasonPreRestore || !strings.HasSuffix(backups[0].Path, "-2.db") {
		t.Errorf("newest = %+v", backups[0])
	}
	if backups[2].Reason != ReasonManual {
		t.Errorf("oldest = %+v", backups[2])
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.maxBackups = 3
	mgr.now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))

	var paths []string
	for i := 0; i < 5; i++ {
		p, err := mgr.Create(ReasonManual)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		paths = append(paths, p)
	}

	backups, _ := mgr.List()
	if len(backups) != 3 {
		t.Fatalf("got %d backups, want 3", len(backups))
	}
	if backups[0].Path != paths[4] {
		t.Errorf("newest = %s, want %s", backups[0].Path, paths[4])
	}
	if fileExists(paths[0]) || fileExists(paths[1]) {
		t.Error("oldest backups were not rotated out")
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))

	snapshot, err := mgr.Create(ReasonManual)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	db, _ := sql.Open("sqlite", dbPath)
	db.Exec("INSERT INTO food_log (date, food_name, meal_type, calories) VALUES ('2024-01-02', 'Soup', 'Dinner', 200)")
	db.Close()
	if countLogRows(t, dbPath) != 2 {
		t.Fatal("setup insert failed")
	}

	saved, err := mgr.Restore(snapshot)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if countLogRows(t, dbPath) != 1 {
		t.Error("database was not restored to the snapshot")
	}
	if !strings.HasSuffix(saved, "-pre-restore.db") || countLogRows(t, saved) != 2 {
		t.Errorf("pre-restore backup %s missing or wrong", saved)
	}
	if fileExists(dbPath + ".restore.tmp") {
		t.Error("temporary restore file left behind")
	}
}

func TestRestoreRejectsInvalidBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	bogus := filepath.Join(t.TempDir(), "bogus.db")
	db, _ := sql.Open("sqlite", bogus)
	db.Exec("CREATE TABLE unrelated (id INTEGER)")
	db.Close()

	if _, err := mgr.Restore(bogus); err == nil {
		t.Error("expected error restoring a database without nutrilog tables")
	}
	if _, err := mgr.Restore(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Error("expected error restoring a missing file")
	}
	if countLogRows(t, dbPath) != 1 {
		t.Error("database changed after rejected restore")
	}
}

func TestResolve(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))

	older, _ := mgr.Create(ReasonManual)
	newer, _ := mgr.Create(ReasonImport)

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "1", want: newer},
		{ref: "2", want: older},
		{ref: "3", wantErr: true},
		{ref: filepath.Base(older), want: older},
		{ref: newer, want: newer},
		{ref: "nope.db", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := mgr.Resolve(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v", tt.ref, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.ref, got, tt.want)
			}
		})
	}
}

func TestForTarget(t *testing.T) {
	if _, err := ForTarget("postgres://user@host/db"); !errors.Is(err, ErrNotSQLite) {
		t.Errorf("ForTarget(postgres) error = %v, want ErrNotSQLite", err)
	}
	mgr, err := ForTarget("/tmp/nutrilog/nutrilog.db")
	if err != nil || mgr.Dir() != "/tmp/nutrilog/backups" {
		t.Errorf("ForTarget(sqlite) = %v, %v", mgr, err)
	}
}
