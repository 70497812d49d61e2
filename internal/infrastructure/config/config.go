package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all importer configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Storage   StorageConfig
	DGII      DGIIConfig
	Import    ImportConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level     string        // debug, info, warn, error
	Format    string        // json, console
	Output    string        // stdout, stderr, or file path
	SQLLevel  string        // silent, error, warn, info
	SlowQuery time.Duration // statements slower than this are logged as warnings
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. An empty host disables the
// distributed import lock.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis server is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StorageConfig holds the S3 archive settings for source files
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Prefix          string
}

// DGIIConfig holds the taxpayer registry download settings
type DGIIConfig struct {
	RegistryURL string
	Timeout     time.Duration
	BatchSize   int
}

// ImportConfig holds importer behaviour settings
type ImportConfig struct {
	MaxErrors        int
	ProgressInterval int
	LockTTL          time.Duration
	DefaultTaxRate   float64
	DefaultWorkspace string
	// Subtypes maps a document number prefix to the tenant's subtype ID
	Subtypes map[string]int64
}

// TelemetryConfig holds OpenTelemetry metrics configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
	ExportInterval    time.Duration
}

// Load loads configuration from config.toml in the usual locations
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads path, or config.toml from ., ./config or /etc/importer when
// path is empty. IMPORTER_ environment variables (IMPORTER_DATABASE_PASSWORD)
// override the file, which overrides the built-in defaults.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/importer")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("IMPORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	subtypes, err := parseSubtypes(v.GetStringMapString("import.subtypes"))
	if err != nil {
		return nil, err
	}
	if len(subtypes) == 0 {
		subtypes = DefaultSubtypes()
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:     v.GetString("log.level"),
			Format:    v.GetString("log.format"),
			Output:    v.GetString("log.output"),
			SQLLevel:  v.GetString("log.sql_level"),
			SlowQuery: v.GetDuration("log.slow_query"),
		},
		Storage: StorageConfig{
			Enabled:         v.GetBool("storage.enabled"),
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			Prefix:          v.GetString("storage.prefix"),
		},
		DGII: DGIIConfig{
			RegistryURL: v.GetString("dgii.registry_url"),
			Timeout:     v.GetDuration("dgii.timeout"),
			BatchSize:   v.GetInt("dgii.batch_size"),
		},
		Import: ImportConfig{
			MaxErrors:        v.GetInt("import.max_errors"),
			ProgressInterval: v.GetInt("import.progress_interval"),
			LockTTL:          v.GetDuration("import.lock_ttl"),
			DefaultTaxRate:   v.GetFloat64("import.default_tax_rate"),
			DefaultWorkspace: v.GetString("import.default_workspace"),
			Subtypes:         subtypes,
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseSubtypes(raw map[string]string) (map[string]int64, error) {
	out := make(map[string]int64, len(raw))
	for prefix, value := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("import.subtypes.%s: %q is not a subtype id", prefix, value)
		}
		out[strings.ToUpper(prefix)] = id
	}
	return out, nil
}

// defaults are the built-in values for every key without one in the file
// or environment
var defaults = map[string]any{
	"app.name":                     "importer",
	"app.env":                      "development",
	"database.host":                "localhost",
	"database.port":                5432,
	"database.user":                "postgres",
	"database.dbname":              "erp",
	"database.sslmode":             "disable",
	"database.max_open_conns":      10,
	"database.max_idle_conns":      2,
	"database.conn_max_lifetime":   60,
	"database.conn_max_idle_time":  30,
	"redis.port":                   6379,
	"log.level":                    "info",
	"log.format":                   "console",
	"log.output":                   "stderr",
	"log.sql_level":                "warn",
	"log.slow_query":               500 * time.Millisecond,
	"storage.region":               "us-east-1",
	"storage.prefix":               "imports",
	"dgii.registry_url":            "https://dgii.gov.do/app/WebApps/Consultas/RNC/DGII_RNC.zip",
	"dgii.timeout":                 5 * time.Minute,
	"dgii.batch_size":              1000,
	"import.max_errors":            20,
	"import.progress_interval":     100,
	"import.lock_ttl":              2 * time.Hour,
	"import.default_tax_rate":      18.0,
	"import.default_workspace":     "Principal",
	"telemetry.collector_endpoint": "localhost:4317",
	"telemetry.service_name":       "importer",
	"telemetry.export_interval":    15 * time.Second,
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// DefaultSubtypes returns the standard NCF prefixes with sequential IDs
func DefaultSubtypes() map[string]int64 {
	return map[string]int64{
		"B01": 1, // credito fiscal
		"B02": 2, // consumo
		"B14": 3, // regimen especial
		"B15": 4, // gubernamental
		"B04": 5, // nota de credito
		"E31": 6,
		"E32": 7,
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Import.MaxErrors < 0 {
		return fmt.Errorf("import.max_errors cannot be negative")
	}
	if c.Import.DefaultTaxRate < 0 || c.Import.DefaultTaxRate > 100 {
		return fmt.Errorf("import.default_tax_rate must be between 0 and 100, got %f", c.Import.DefaultTaxRate)
	}
	if c.DGII.BatchSize <= 0 {
		return fmt.Errorf("dgii.batch_size must be positive")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
