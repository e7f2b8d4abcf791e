package constants

import "time"

const (
	AppName            = "nutrilog"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/nutrilog/nutrilog.db"
	ConfigFileName     = "config"
	EnvPrefix          = "NUTRILOG"
	Version            = "v0.3.0"

	// DateFormat is the date key format used for log entries (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// ReferenceGrams is the quantity every library profile is expressed against
	ReferenceGrams = 100.0

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "nutrilog-"
	BackupFileSuffix = ".db"

	// Writer lock constants
	WriterLockfileName = "nutrilog-writer.lock"

	// Lookup defaults (Open Food Facts)
	DefaultLookupBaseURL  = "https://world.openfoodfacts.org"
	DefaultLookupTimeout  = 10 * time.Second
	DefaultLookupCacheTTL = 24 * time.Hour
	DefaultLookupRate     = 1.0 // requests per second
	DefaultLookupBurst    = 5

	// Server defaults
	DefaultServerAddr      = "127.0.0.1:8787"
	DefaultServerRateLimit = 20.0 // requests per second
	DefaultServerBurst     = 40
	MaxImportUploadBytes   = 32 << 20
)
