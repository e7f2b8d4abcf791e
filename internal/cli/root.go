package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/nutrilog/internal/backup"
	"github.com/julianstephens/nutrilog/internal/config"
	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/importer"
	"github.com/julianstephens/nutrilog/internal/lock"
	"github.com/julianstephens/nutrilog/internal/logger"
	"github.com/julianstephens/nutrilog/internal/lookup"
	"github.com/julianstephens/nutrilog/internal/models"
	"github.com/julianstephens/nutrilog/internal/storage"
)

type Context struct {
	Store  storage.Provider
	Config *config.Config
	// DataDir holds the writer lock, logs and config file
	DataDir string

	lookupClient *lookup.Client
	now          func() time.Time
}

// Settings returns the loaded configuration, or the defaults when none was loaded.
func (c *Context) Settings() *config.Config {
	if c.Config == nil {
		c.Config = config.Default()
	}
	return c.Config
}

// PerformAutomaticBackup creates a backup tagged with reason and silently handles errors.
// PostgreSQL databases are skipped.
func (c *Context) PerformAutomaticBackup(reason backup.Reason) {
	mgr, err := backup.ForTarget(c.Store.GetConfigPath())
	if errors.Is(err, backup.ErrNotSQLite) {
		logger.Debug("Skipping automatic backup for non-SQLite database")
		return
	}
	if _, err := mgr.Create(reason); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "reason", reason, "error", err)
	}
}

// EnsureWritable fails when a running 'nutrilog serve' owns the database.
func (c *Context) EnsureWritable() error {
	if c.DataDir == "" {
		return nil
	}
	return lock.CheckWritable(c.DataDir)
}

// Columns returns the configured CSV column layout.
func (c *Context) Columns() (importer.ColumnMap, error) {
	return c.Settings().Import.Columns.ColumnMap()
}

// LookupClient returns the shared Open Food Facts client built from configuration.
func (c *Context) LookupClient() *lookup.Client {
	if c.lookupClient == nil {
		cfg := c.Settings().Lookup
		c.lookupClient = lookup.NewClient(lookup.Options{
			BaseURL:  cfg.BaseURL,
			Timeout:  cfg.Timeout,
			CacheTTL: cfg.CacheTTL,
			Rate:     cfg.Rate,
			Burst:    cfg.Burst,
		})
	}
	return c.lookupClient
}

// SetLookupClient replaces the lookup client, used by tests.
func (c *Context) SetLookupClient(client *lookup.Client) {
	c.lookupClient = client
}

// SetClock replaces the clock used to resolve "today", used by tests.
func (c *Context) SetClock(now func() time.Time) {
	c.now = now
}

// Today returns the local date key.
func (c *Context) Today() string {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	return now().Format(constants.DateFormat)
}

// ResolveDate accepts YYYY-MM-DD, "today" or "yesterday". Empty means today.
func (c *Context) ResolveDate(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return c.Today(), nil
	case "yesterday":
		today, _ := time.Parse(constants.DateFormat, c.Today())
		return today.AddDate(0, 0, -1).Format(constants.DateFormat), nil
	}
	if err := models.ValidateDate(s); err != nil {
		return "", err
	}
	return s, nil
}

// ResolveMeal parses s, falling back to the configured default meal.
func (c *Context) ResolveMeal(s string) (models.MealType, error) {
	if strings.TrimSpace(s) == "" {
		s = c.Settings().Defaults.Meal
	}
	return models.ParseMealType(s)
}

// Confirm reads a y/N answer from answer. Only "y" and "yes" confirm.
func Confirm(answer string) bool {
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

// Plural formats n with a singular or plural noun.
func Plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	if strings.HasSuffix(noun, "y") && !strings.HasSuffix(noun, "ay") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
