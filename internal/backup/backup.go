// Package backup keeps rotating snapshots of the SQLite database next to it.
package backup

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/logger"
)

const timestampFormat = "20060102-150405"

// ErrNotSQLite is returned for databases that are not SQLite files.
var ErrNotSQLite = errors.New("backups are only supported for SQLite databases")

// Reason tags why a backup was taken. It is part of the file name.
type Reason string

const (
	ReasonManual     Reason = "manual"
	ReasonImport     Reason = "import"
	ReasonDeleteDay  Reason = "delete-day"
	ReasonMigrate    Reason = "migrate"
	ReasonPreRestore Reason = "pre-restore"
	ReasonTUI        Reason = "tui"
)

// nutrilog-20240101-120000-import.db, with an optional -N counter before the suffix
var backupNameRe = regexp.MustCompile(`^` + regexp.QuoteMeta(constants.BackupFilePrefix) +
	`(\d{8}-\d{6})-([a-z-]+?)(?:-(\d+))?` + regexp.QuoteMeta(constants.BackupFileSuffix) + `$`)

// Info describes one backup file.
type Info struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Reason    Reason    `json:"reason"`
	Size      int64     `json:"size"`
}

// Manager creates, lists, rotates and restores backups of one database file.
type Manager struct {
	dbPath     string
	backupDir  string
	maxBackups int
	now        func() time.Time
}

func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath:     dbPath,
		backupDir:  filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		maxBackups: constants.MaxBackups,
		now:        time.Now,
	}
}

// ForTarget returns a manager for a database target, rejecting PostgreSQL URLs.
func ForTarget(target string) (*Manager, error) {
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") || target == "postgresql" {
		return nil, ErrNotSQLite
	}
	return NewManager(target), nil
}

func (m *Manager) Dir() string {
	return m.backupDir
}

// Create snapshots the database and rotates old backups out.
func (m *Manager) Create(reason Reason) (string, error) {
	path, err := m.create(reason)
	if err != nil {
		return "", err
	}
	if err := m.rotate(); err != nil {
		logger.Warn("Failed to rotate old backups", "error", err)
	}
	logger.Info("Backup created", "path", path, "reason", reason)
	return path, nil
}

func (m *Manager) create(reason Reason) (string, error) {
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return "", fmt.Errorf("database does not exist: %s", m.dbPath)
	}
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := constants.BackupFilePrefix + m.now().Format(timestampFormat) + "-" + string(reason)
	path := filepath.Join(m.backupDir, base+constants.BackupFileSuffix)
	for n := 1; fileExists(path); n++ {
		if n > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.backupDir, fmt.Sprintf("%s-%d%s", base, n, constants.BackupFileSuffix))
	}

	if err := snapshot(m.dbPath, path); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}
	return path, nil
}

// snapshot writes a consistent copy of src to dst with VACUUM INTO.
func snapshot(src, dst string) error {
	db, err := sql.Open("sqlite", src)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	if err := verify(db); err != nil {
		return fmt.Errorf("source database appears to be corrupted: %w", err)
	}
	if _, err := db.Exec("VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}
	return nil
}

// List returns the backups, newest first. Unrecognized files are ignored.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	type ordered struct {
		Info
		counter int
	}
	var found []ordered
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := backupNameRe.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		ts, err := time.ParseInLocation(timestampFormat, match[1], time.Local)
		if err != nil {
			continue
		}
		counter := 0
		if match[3] != "" {
			counter, _ = strconv.Atoi(match[3])
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, ordered{
			Info: Info{
				Path:      filepath.Join(m.backupDir, entry.Name()),
				Timestamp: ts,
				Reason:    Reason(match[2]),
				Size:      info.Size(),
			},
			counter: counter,
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].Timestamp.Equal(found[j].Timestamp) {
			return found[i].Timestamp.After(found[j].Timestamp)
		}
		return found[i].counter > found[j].counter
	})

	backups := make([]Info, 0, len(found))
	for _, f := range found {
		backups = append(backups, f.Info)
	}
	return backups, nil
}

// Resolve finds a backup by full path, file name or list position (1 is newest).
func (m *Manager) Resolve(ref string) (string, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		backups, err := m.List()
		if err != nil {
			return "", err
		}
		if n < 1 || n > len(backups) {
			return "", fmt.Errorf("no backup #%d (%d available)", n, len(backups))
		}
		return backups[n-1].Path, nil
	}
	if !strings.ContainsRune(ref, filepath.Separator) {
		ref = filepath.Join(m.backupDir, ref)
	}
	if !fileExists(ref) {
		return "", fmt.Errorf("backup file does not exist: %s", ref)
	}
	return ref, nil
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := m.maxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// Restore replaces the database with backupPath. The current database is
// backed up first. The store must be closed while this runs.
func (m *Manager) Restore(backupPath string) (string, error) {
	if !fileExists(backupPath) {
		return "", fmt.Errorf("backup file does not exist: %s", backupPath)
	}
	if err := verifyFile(backupPath); err != nil {
		return "", fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var saved string
	if fileExists(m.dbPath) {
		var err error
		// Not rotated, so the snapshot being restored is never removed
		saved, err = m.create(ReasonPreRestore)
		if err != nil {
			return "", fmt.Errorf("failed to backup current database before restore: %w", err)
		}
	}

	tempPath := m.dbPath + ".restore.tmp"
	if err := copyFile(backupPath, tempPath); err != nil {
		return "", fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tempPath, m.dbPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			logger.Warn("Failed to remove temporary restore file", "path", tempPath, "error", removeErr)
		}
		return "", fmt.Errorf("failed to restore database: %w", err)
	}

	logger.Info("Database restored", "from", backupPath, "saved", saved)
	return saved, nil
}

// verify checks that db is a readable nutrilog database.
func verify(db *sql.DB) error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('food_log', 'food_library')").Scan(&count)
	if err != nil {
		return err
	}
	if count != 2 {
		return fmt.Errorf("food_log and food_library tables not found")
	}
	return nil
}

func verifyFile(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	return verify(db)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := destFile.ReadFrom(sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}
