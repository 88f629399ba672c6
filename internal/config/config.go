package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/ingest"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
	"github.com/feral-file/ff-alert-indexer/internal/source"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`   // SQLite database file
	ReadReplica     bool          `mapstructure:"read_replica"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadHost        string        `mapstructure:"read_host"`
	ReadPort        int           `mapstructure:"read_port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream source configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	ConsumerName   string        `mapstructure:"consumer_name"`
	FilterSubject  string        `mapstructure:"filter_subject"`
	Payload        string        `mapstructure:"payload"` // json or avro
	AvroSchemaPath string        `mapstructure:"avro_schema_path"`
	FetchBatch     int           `mapstructure:"fetch_batch"`
	FetchMaxWait   time.Duration `mapstructure:"fetch_max_wait"`
	AckWait        time.Duration `mapstructure:"ack_wait"`
	MaxDeliver     int           `mapstructure:"max_deliver"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
}

// MockSourceConfig holds configuration for the synthetic source
type MockSourceConfig struct {
	Count                    int     `mapstructure:"count"`
	Seed                     int64   `mapstructure:"seed"`
	SSOProbability           float64 `mapstructure:"sso_probability"`
	ReassociationProbability float64 `mapstructure:"reassociation_probability"`
	Revisits                 int     `mapstructure:"revisits"`
	BaseMJD                  float64 `mapstructure:"base_mjd"`
	SpanDays                 float64 `mapstructure:"span_days"`
}

// FileSourceConfig holds configuration for the file source
type FileSourceConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// SourceConfig selects and configures the alert source
type SourceConfig struct {
	Type string           `mapstructure:"type"`
	Mock MockSourceConfig `mapstructure:"mock"`
	File FileSourceConfig `mapstructure:"file"`
	NATS NATSConfig       `mapstructure:"nats"`
}

// RetryConfig holds exponential backoff settings
type RetryConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// IngestConfig holds ingestion run configuration
type IngestConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	Limit     int           `mapstructure:"limit"`
	Interval  time.Duration `mapstructure:"interval"` // 0 runs once
	Retry     RetryConfig   `mapstructure:"retry"`
}

// ProcessorOverride tunes one registered processor
type ProcessorOverride struct {
	WindowDays int            `mapstructure:"window_days"`
	MinAlerts  int            `mapstructure:"min_alerts"`
	Params     map[string]any `mapstructure:"params"`
}

// ProcessingConfig holds processing runner configuration
type ProcessingConfig struct {
	Parallelism int                          `mapstructure:"parallelism"`
	StopOnError bool                         `mapstructure:"stop_on_error"`
	SaveResults bool                         `mapstructure:"save_results"`
	WindowDays  int                          `mapstructure:"window_days"`
	Only        []string                     `mapstructure:"only"`
	Processors  map[string]ProcessorOverride `mapstructure:"processors"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// ProcessingSweeperConfig holds configuration for the periodic processing pass
type ProcessingSweeperConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// RetentionSweeperConfig holds configuration for association state retention
type RetentionSweeperConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout    int      `mapstructure:"idle_timeout"`  // in seconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// RateLimit is applied per client IP; a zero rate disables it
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig holds per-client token bucket settings
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// IngesterConfig holds configuration for the ingester program
type IngesterConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Source     SourceConfig   `mapstructure:"source"`
	Ingest     IngestConfig   `mapstructure:"ingest"`
	Metrics    MetricsConfig  `mapstructure:"metrics"`
}

// ProcessorConfig holds configuration for the processor program
type ProcessorConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Processing ProcessingConfig `mapstructure:"processing"`
}

// SweeperConfig holds configuration for the sweeper program
type SweeperConfig struct {
	BaseConfig        `mapstructure:",squash"`
	Database          DatabaseConfig          `mapstructure:"database"`
	Processing        ProcessingConfig        `mapstructure:"processing"`
	ProcessingSweeper ProcessingSweeperConfig `mapstructure:"processing_sweeper"`
	RetentionSweeper  RetentionSweeperConfig  `mapstructure:"retention_sweeper"`
	Retry             RetryConfig             `mapstructure:"retry"`
	Metrics           MetricsConfig           `mapstructure:"metrics"`
}

// APIConfig holds configuration for the API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// CLIConfig holds configuration for alertctl
type CLIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Processing ProcessingConfig `mapstructure:"processing"`
}

// LoadIngesterConfig loads configuration for the ingester program
func LoadIngesterConfig(configFile string, envPath string) (*IngesterConfig, error) {
	v := configureViper("ingester", configFile, envPath)

	// Set defaults
	setDatabaseDefaults(v)
	v.SetDefault("source.type", source.TypeMock)
	v.SetDefault("source.mock.count", 100)
	v.SetDefault("source.mock.sso_probability", 0.3)
	v.SetDefault("source.mock.reassociation_probability", 0.05)
	v.SetDefault("source.mock.revisits", 1)
	v.SetDefault("source.mock.span_days", 30)
	v.SetDefault("source.nats.payload", source.PayloadJSON)
	v.SetDefault("source.nats.max_reconnects", 10)
	v.SetDefault("source.nats.reconnect_wait", "2s")
	v.SetDefault("source.nats.ack_wait", "30s")
	v.SetDefault("source.nats.fetch_batch", 100)
	v.SetDefault("source.nats.fetch_max_wait", "2s")
	v.SetDefault("ingest.batch_size", ingest.DefaultBatchSize)
	v.SetDefault("ingest.retry.initial_interval", "500ms")
	v.SetDefault("ingest.retry.max_interval", "10s")
	v.SetDefault("ingest.retry.max_elapsed_time", "2m")
	v.SetDefault("metrics.address", ":9090")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg IngesterConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	if cfg.Source.Type == "" {
		return nil, errors.New("source.type is required")
	}
	if cfg.Ingest.BatchSize < 0 || cfg.Ingest.Limit < 0 {
		return nil, errors.New("ingest.batch_size and ingest.limit must not be negative")
	}

	return &cfg, nil
}

// LoadProcessorConfig loads configuration for the processor program
func LoadProcessorConfig(configFile string, envPath string) (*ProcessorConfig, error) {
	v := configureViper("processor", configFile, envPath)

	// Set defaults
	setDatabaseDefaults(v)
	setProcessingDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg ProcessorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Processing.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadSweeperConfig loads configuration for the sweeper program
func LoadSweeperConfig(configFile string, envPath string) (*SweeperConfig, error) {
	v := configureViper("sweeper", configFile, envPath)

	// Set defaults
	setDatabaseDefaults(v)
	setProcessingDefaults(v)
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("processing_sweeper.enabled", true)
	v.SetDefault("processing_sweeper.interval", "1h")
	v.SetDefault("retention_sweeper.enabled", true)
	v.SetDefault("retention_sweeper.interval", "24h")
	v.SetDefault("retention_sweeper.retention_days", 90)
	v.SetDefault("retry.initial_interval", "5s")
	v.SetDefault("retry.max_interval", "1m")
	v.SetDefault("retry.max_elapsed_time", "10m")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.address", ":9090")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg SweeperConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Processing.Validate(); err != nil {
		return nil, err
	}
	if cfg.ProcessingSweeper.Enabled && cfg.ProcessingSweeper.Interval <= 0 {
		return nil, errors.New("processing_sweeper.interval must be positive")
	}
	if cfg.RetentionSweeper.Enabled && (cfg.RetentionSweeper.Interval <= 0 || cfg.RetentionSweeper.RetentionDays <= 0) {
		return nil, errors.New("retention_sweeper.interval and retention_sweeper.retention_days must be positive")
	}

	return &cfg, nil
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	setDatabaseDefaults(v)
	setProcessingDefaults(v)
	v.SetDefault("database.read_replica", true)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("metrics.enabled", true)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg APIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Processing.Validate(); err != nil {
		return nil, err
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimit.RequestsPerSecond < 0 || cfg.Server.RateLimit.Burst < 0 {
		return nil, fmt.Errorf("server.rate_limit must not be negative")
	}

	return &cfg, nil
}

// LoadCLIConfig loads configuration for alertctl
func LoadCLIConfig(configFile string, envPath string) (*CLIConfig, error) {
	v := configureViper("alertctl", configFile, envPath)

	setDatabaseDefaults(v)
	setProcessingDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg CLIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/alerts.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
}

func setProcessingDefaults(v *viper.Viper) {
	v.SetDefault("processing.parallelism", 1)
	v.SetDefault("processing.save_results", true)
}

// readConfig reads the config file; a missing file leaves defaults and environment variables in charge
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// Config file not found, use environment variables
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/sweeper/, cmd/ingester/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FF_ALERTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	commonKeys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.driver",
		"database.path",
		"database.read_replica",
		"database.host",
		"database.port",
		"database.read_host",
		"database.read_port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Source
		"source.type",
		"source.mock.count",
		"source.mock.seed",
		"source.mock.sso_probability",
		"source.mock.reassociation_probability",
		"source.mock.revisits",
		"source.mock.base_mjd",
		"source.mock.span_days",
		"source.file.path",
		"source.file.format",
		"source.nats.url",
		"source.nats.stream_name",
		"source.nats.consumer_name",
		"source.nats.filter_subject",
		"source.nats.payload",
		"source.nats.avro_schema_path",
		"source.nats.fetch_batch",
		"source.nats.fetch_max_wait",
		"source.nats.ack_wait",
		"source.nats.max_deliver",
		"source.nats.max_reconnects",
		"source.nats.reconnect_wait",
		// Ingest
		"ingest.batch_size",
		"ingest.limit",
		"ingest.interval",
		"ingest.retry.initial_interval",
		"ingest.retry.max_interval",
		"ingest.retry.max_elapsed_time",
		// Processing
		"processing.parallelism",
		"processing.stop_on_error",
		"processing.save_results",
		"processing.window_days",
		"processing.only",
		// Sweepers
		"processing_sweeper.enabled",
		"processing_sweeper.interval",
		"retention_sweeper.enabled",
		"retention_sweeper.interval",
		"retention_sweeper.retention_days",
		"retry.initial_interval",
		"retry.max_interval",
		"retry.max_elapsed_time",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.allowed_origins",
		"server.rate_limit.requests_per_second",
		"server.rate_limit.burst",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Metrics
		"metrics.enabled",
		"metrics.address",
	}

	for _, key := range commonKeys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

func (c *DatabaseConfig) isPostgres() bool {
	switch c.Driver {
	case "postgres", "postgresql", "pg":
		return true
	}
	return false
}

// Validate checks that the selected driver has what it needs to connect
func (c *DatabaseConfig) Validate() error {
	if c.isPostgres() {
		if c.Host == "" {
			return errors.New("database.host is required")
		}
		if c.DBName == "" {
			return errors.New("database.dbname is required")
		}
		return nil
	}
	if c.Driver != "sqlite" && c.Driver != "sqlite3" && c.Driver != "" {
		return fmt.Errorf("unsupported database.driver %q", c.Driver)
	}
	if c.Path == "" {
		return errors.New("database.path is required")
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	if !c.isPostgres() {
		return store.SQLiteDSN(c.Path)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ReadDSN returns the read-replica database connection string, or "" when no replica is configured.
// For PostgreSQL, if ReadPort is not configured, it falls back to Port.
func (c *DatabaseConfig) ReadDSN() string {
	if !c.isPostgres() {
		if !c.ReadReplica || c.Path == ":memory:" {
			return ""
		}
		return store.SQLiteReadOnlyDSN(c.Path)
	}
	if c.ReadHost == "" {
		return ""
	}

	port := c.ReadPort
	if port == 0 {
		port = c.Port
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.ReadHost, port, c.User, c.Password, c.DBName, c.SSLMode)
}

// OpenConfig returns the store connection settings
func (c *DatabaseConfig) OpenConfig(logger gormlogger.Interface) store.OpenConfig {
	driver := "sqlite"
	if c.isPostgres() {
		driver = "postgres"
	}
	return store.OpenConfig{
		Driver:          driver,
		DSN:             c.DSN(),
		ReadDSN:         c.ReadDSN(),
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		Logger:          logger,
	}
}

// Build converts the configuration into the source factory's form
func (c *SourceConfig) Build() (source.Config, error) {
	cfg := source.Config{
		Type: c.Type,
		Mock: source.MockConfig{
			Count:                    c.Mock.Count,
			Seed:                     c.Mock.Seed,
			SSOProbability:           c.Mock.SSOProbability,
			ReassociationProbability: c.Mock.ReassociationProbability,
			Revisits:                 c.Mock.Revisits,
			BaseMJD:                  c.Mock.BaseMJD,
			SpanDays:                 c.Mock.SpanDays,
		},
		File: source.FileConfig{
			Path:   c.File.Path,
			Format: c.File.Format,
		},
		NATS: source.NATSConfig{
			URL:           c.NATS.URL,
			StreamName:    c.NATS.StreamName,
			ConsumerName:  c.NATS.ConsumerName,
			FilterSubject: c.NATS.FilterSubject,
			Payload:       c.NATS.Payload,
			FetchBatch:    c.NATS.FetchBatch,
			FetchMaxWait:  c.NATS.FetchMaxWait,
			AckWait:       c.NATS.AckWait,
			MaxDeliver:    c.NATS.MaxDeliver,
			MaxReconnects: c.NATS.MaxReconnects,
			ReconnectWait: c.NATS.ReconnectWait,
		},
	}

	if c.NATS.AvroSchemaPath != "" {
		schema, err := os.ReadFile(c.NATS.AvroSchemaPath)
		if err != nil {
			return source.Config{}, fmt.Errorf("failed to read avro schema: %w", err)
		}
		cfg.NATS.AvroSchema = string(schema)
	}

	return cfg, nil
}

// PipelineConfig returns the ingestion pipeline retry settings
func (c *IngestConfig) PipelineConfig() ingest.Config {
	return ingest.Config{
		RetryInitialInterval: c.Retry.InitialInterval,
		RetryMaxInterval:     c.Retry.MaxInterval,
		RetryMaxElapsedTime:  c.Retry.MaxElapsedTime,
	}
}

// Options returns the options of one ingestion run
func (c *IngestConfig) Options(dryRun bool) ingest.Options {
	return ingest.Options{
		BatchSize: c.BatchSize,
		Limit:     c.Limit,
		DryRun:    dryRun,
	}
}

// Validate checks the runner settings and processor overrides
func (c *ProcessingConfig) Validate() error {
	if c.Parallelism < 0 {
		return fmt.Errorf("%w: processing.parallelism must not be negative", domain.ErrInvalidConfig)
	}
	if c.WindowDays < 0 {
		return fmt.Errorf("%w: processing.window_days must not be negative", domain.ErrInvalidConfig)
	}
	for name, o := range c.Processors {
		if o.WindowDays < 0 || o.MinAlerts < 0 {
			return fmt.Errorf("%w: processing.processors.%s must not have negative settings", domain.ErrInvalidConfig, name)
		}
	}
	return nil
}

// RunnerConfig returns the processing runner settings
func (c *ProcessingConfig) RunnerConfig() processing.Config {
	return processing.Config{
		Parallelism: max(c.Parallelism, 1),
		StopOnError: c.StopOnError,
		SaveResults: c.SaveResults,
	}
}

// RunOptions returns the options of one processing pass
func (c *ProcessingConfig) RunOptions() processing.RunOptions {
	return processing.RunOptions{
		WindowDays: c.WindowDays,
		Only:       c.Only,
	}
}

// Overrides returns the per-processor settings keyed by processor name
func (c *ProcessingConfig) Overrides() map[string]processing.ProcessorConfig {
	overrides := make(map[string]processing.ProcessorConfig, len(c.Processors))
	for name, o := range c.Processors {
		overrides[name] = processing.ProcessorConfig{
			WindowDays: o.WindowDays,
			MinAlerts:  o.MinAlerts,
			Params:     o.Params,
		}
	}
	return overrides
}
