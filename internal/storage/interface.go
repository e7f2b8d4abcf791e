package storage

import (
	"github.com/julianstephens/nutrilog/internal/migration"
	"github.com/julianstephens/nutrilog/internal/models"
)

// Library is the food library: per-100g profiles keyed by case-sensitive name.
type Library interface {
	UpsertLibraryEntry(models.LibraryEntry) error
	// UpsertLibraryEntries writes a batch atomically: all entries or none.
	UpsertLibraryEntries([]models.LibraryEntry) error
	GetLibraryEntry(name string) (models.LibraryEntry, error)
	ListLibraryEntries() ([]models.LibraryEntry, error)
	SearchLibraryEntries(query string, caseInsensitive bool) ([]models.LibraryEntry, error)
}

// Log is the append-only food log.
type Log interface {
	AppendLogEntry(models.LogEntryDraft) (models.LogEntry, error)
	DeleteLogEntry(id int64) error
	DeleteLogEntriesByDate(date string) (int, error)
	DeleteMostRecentLogEntry() (models.LogEntry, bool, error)
	GetLogEntriesByDate(date string) ([]models.LogEntry, error)
	GetAllLogEntries() ([]models.LogEntry, error)
	GetLogDates() ([]string, error)
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error
	Migrate(logFn func(string)) (int, error)
	SchemaStatus() (migration.Status, error)

	Library
	Log

	// Utils
	GetConfigPath() string
}
