package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/importer"
	"github.com/julianstephens/nutrilog/internal/logger"
	"github.com/julianstephens/nutrilog/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Import   ImportConfig   `mapstructure:"import"`
	Lookup   LookupConfig   `mapstructure:"lookup"`
	Server   ServerConfig   `mapstructure:"server"`
	Defaults DefaultsConfig `mapstructure:"defaults"`

	// File is the config file that was read, empty when none was found
	File string `mapstructure:"-"`
}

// DBConfig holds database configuration. Connection is normally set through
// NUTRILOG_DB_CONNECTION and may carry a password.
type DBConfig struct {
	Connection string `mapstructure:"connection"`
}

// ImportConfig holds the CSV column layout. Columns accept a zero-based
// index or a spreadsheet letter.
type ImportConfig struct {
	Columns ColumnsConfig `mapstructure:"columns"`
}

type ColumnsConfig struct {
	Name     string `mapstructure:"name"`
	Calories string `mapstructure:"calories"`
	Fat      string `mapstructure:"fat"`
	Carbs    string `mapstructure:"carbs"`
	Sugar    string `mapstructure:"sugar"`
	Protein  string `mapstructure:"protein"`
}

// LookupConfig holds Open Food Facts client configuration
type LookupConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Rate     float64       `mapstructure:"rate"`
	Burst    int           `mapstructure:"burst"`
}

// ServerConfig holds the local HTTP API configuration
type ServerConfig struct {
	Addr           string  `mapstructure:"addr"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	Burst          int     `mapstructure:"burst"`
	MaxUploadBytes int64   `mapstructure:"max_upload_bytes"`
}

// DefaultsConfig holds values used when a command omits them
type DefaultsConfig struct {
	Meal string `mapstructure:"meal"`
}

// Options selects where configuration is read from.
type Options struct {
	// File is an explicit config file. When empty, config.yaml is searched in Dir.
	File string
	// Dir is the nutrilog data directory
	Dir string
}

// Load reads .env, the config file and NUTRILOG_* environment variables, in
// increasing order of precedence over the defaults.
func Load(opts Options) (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		logger.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(constants.ConfigFileName)
		v.SetConfigType("yaml")
		if opts.Dir != "" {
			v.AddConfigPath(opts.Dir)
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if opts.File != "" || opts.Dir != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if opts.File != "" || !stderrors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("Configuration loaded", "file", cfg.File)
	return &cfg, nil
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.connection", "")

	cols := importer.DefaultColumns()
	v.SetDefault("import.columns.name", importer.ColumnLetter(cols.Name))
	v.SetDefault("import.columns.calories", importer.ColumnLetter(cols.Calories))
	v.SetDefault("import.columns.fat", importer.ColumnLetter(cols.Fat))
	v.SetDefault("import.columns.carbs", importer.ColumnLetter(cols.Carbs))
	v.SetDefault("import.columns.sugar", importer.ColumnLetter(cols.Sugar))
	v.SetDefault("import.columns.protein", importer.ColumnLetter(cols.Protein))

	v.SetDefault("lookup.enabled", true)
	v.SetDefault("lookup.base_url", constants.DefaultLookupBaseURL)
	v.SetDefault("lookup.timeout", constants.DefaultLookupTimeout.String())
	v.SetDefault("lookup.cache_ttl", constants.DefaultLookupCacheTTL.String())
	v.SetDefault("lookup.rate", constants.DefaultLookupRate)
	v.SetDefault("lookup.burst", constants.DefaultLookupBurst)

	v.SetDefault("server.addr", constants.DefaultServerAddr)
	v.SetDefault("server.rate_limit", constants.DefaultServerRateLimit)
	v.SetDefault("server.burst", constants.DefaultServerBurst)
	v.SetDefault("server.max_upload_bytes", constants.MaxImportUploadBytes)

	v.SetDefault("defaults.meal", string(models.MealSnack))
}

func validate(cfg *Config) error {
	if _, err := cfg.Import.Columns.ColumnMap(); err != nil {
		return err
	}
	if _, err := models.ParseMealType(cfg.Defaults.Meal); err != nil {
		return fmt.Errorf("defaults.meal: %w", err)
	}
	if cfg.Lookup.Rate <= 0 || cfg.Lookup.Burst <= 0 {
		return fmt.Errorf("lookup rate and burst must be positive")
	}
	if cfg.Server.RateLimit <= 0 || cfg.Server.Burst <= 0 {
		return fmt.Errorf("server rate_limit and burst must be positive")
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max_upload_bytes must be positive")
	}
	return nil
}

// ColumnMap converts the configured columns into importer positions.
func (c ColumnsConfig) ColumnMap() (importer.ColumnMap, error) {
	var m importer.ColumnMap
	fields := []struct {
		key string
		raw string
		dst *int
	}{
		{"name", c.Name, &m.Name},
		{"calories", c.Calories, &m.Calories},
		{"fat", c.Fat, &m.Fat},
		{"carbs", c.Carbs, &m.Carbs},
		{"sugar", c.Sugar, &m.Sugar},
		{"protein", c.Protein, &m.Protein},
	}
	for _, f := range fields {
		idx, err := importer.ParseColumn(f.raw)
		if err != nil {
			return importer.ColumnMap{}, fmt.Errorf("import.columns.%s: %w", f.key, err)
		}
		*f.dst = idx
	}
	if err := m.Validate(); err != nil {
		return importer.ColumnMap{}, err
	}
	return m, nil
}

// Dir returns the directory holding the database, logs and config file for
// target. PostgreSQL targets use the default directory.
func Dir(target string) string {
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		return filepath.Dir(ExpandHome(constants.DefaultConfigPath))
	}
	return filepath.Dir(ExpandHome(target))
}
