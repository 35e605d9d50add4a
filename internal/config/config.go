package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageDynamoDB = "dynamodb"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Storage    StorageConfig    `json:"storage"`
	Journal    JournalConfig    `json:"journal"`
	Security   SecurityConfig   `json:"security"`
	Logging    LoggingConfig    `json:"logging"`
	Events     EventsConfig     `json:"events"`
	Keeper     KeeperConfig     `json:"keeper"`
	Contracts  ContractsConfig  `json:"contracts"`
	Statements StatementsConfig `json:"statements"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Mode         string        `json:"mode"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// StorageConfig selects the ledger state backend
type StorageConfig struct {
	Driver   string         `json:"driver"`
	DynamoDB DynamoDBConfig `json:"dynamodb"`
}

// DynamoDBConfig represents the DynamoDB state table
type DynamoDBConfig struct {
	Table    string `json:"table"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint"`
}

// JournalConfig controls the transaction journal
type JournalConfig struct {
	Enabled bool `json:"enabled"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// LoggingConfig
type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// EventsConfig controls the commit feeds
type EventsConfig struct {
	WebSocket bool   `json:"websocket"`
	AMQPURL   string `json:"amqp_url"`
	Exchange  string `json:"exchange"`
}

// KeeperConfig controls the proposal finalizer
type KeeperConfig struct {
	Schedule  string `json:"schedule"`
	Principal string `json:"principal"`
	BatchSize int    `json:"batch_size"`
}

// ContractsConfig holds the bootstrap parameters used when a contract is
// not yet initialized
type ContractsConfig struct {
	Admin               string `json:"admin"`
	Oracle              string `json:"oracle"`
	LoanPool            string `json:"loan_pool"`
	BaseRate            int32  `json:"base_rate"`
	EquityBonusRate     int32  `json:"equity_bonus_rate"`
	MinProposalDuration uint64 `json:"min_proposal_duration"`
	RequireOracleData   bool   `json:"require_oracle_data"`
}

// StatementsConfig points at the bucket exported statements are archived
// in. Archiving is off while Bucket is empty.
type StatementsConfig struct {
	Bucket   string        `json:"bucket"`
	Prefix   string        `json:"prefix"`
	Region   string        `json:"region"`
	Endpoint string        `json:"endpoint"`
	URLTTL   time.Duration `json:"url_ttl"`
}

// LoadConfig loads configuration from file, .env and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// .env never overrides variables already set in the process
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			Mode:         "debug",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "mobility_ledger",
			SSLMode:        "disable",
			MaxConnections: 20,
			MaxIdleConns:   5,
			MaxLifetime:    30 * time.Minute,
		},
		Storage: StorageConfig{
			Driver: StorageMemory,
			DynamoDB: DynamoDBConfig{
				Table:  "ledger_state",
				Region: "us-east-1",
			},
		},
		Security: SecurityConfig{
			TokenTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Events: EventsConfig{
			WebSocket: true,
			Exchange:  "ledger.events",
		},
		Keeper: KeeperConfig{
			Schedule:  "@every 1m",
			Principal: "GKEEPER",
			BatchSize: 50,
		},
		Contracts: ContractsConfig{
			BaseRate:            10,
			EquityBonusRate:     20,
			MinProposalDuration: 3600,
		},
		Statements: StatementsConfig{
			Prefix: "statements/",
			Region: "us-east-1",
			URLTTL: 15 * time.Minute,
		},
	}
}

func overrideWithEnv(config *Config) {
	setString(&config.Server.Host, "SERVER_HOST")
	setInt(&config.Server.Port, "SERVER_PORT")
	setString(&config.Server.Mode, "GIN_MODE")

	setString(&config.Database.Host, "DATABASE_HOST")
	setInt(&config.Database.Port, "DATABASE_PORT")
	setString(&config.Database.User, "DATABASE_USER")
	setString(&config.Database.Password, "DATABASE_PASSWORD")
	setString(&config.Database.DBName, "DATABASE_DBNAME")
	setString(&config.Database.SSLMode, "DATABASE_SSLMODE")

	setString(&config.Storage.Driver, "STORAGE_DRIVER")
	setString(&config.Storage.DynamoDB.Table, "DYNAMODB_TABLE")
	setString(&config.Storage.DynamoDB.Region, "AWS_REGION")
	setString(&config.Storage.DynamoDB.Endpoint, "DYNAMODB_ENDPOINT")

	setBool(&config.Journal.Enabled, "JOURNAL_ENABLED")

	setString(&config.Security.JWTSecret, "JWT_SECRET")
	setDuration(&config.Security.TokenTTL, "TOKEN_TTL")

	setString(&config.Logging.Level, "LOG_LEVEL")
	setString(&config.Logging.Format, "LOG_FORMAT")
	setString(&config.Logging.File, "LOG_FILE")

	setString(&config.Events.AMQPURL, "AMQP_URL")
	setString(&config.Events.Exchange, "AMQP_EXCHANGE")

	setString(&config.Keeper.Schedule, "KEEPER_SCHEDULE")
	setString(&config.Keeper.Principal, "KEEPER_PRINCIPAL")

	setString(&config.Contracts.Admin, "LEDGER_ADMIN")
	setString(&config.Contracts.Oracle, "LEDGER_ORACLE")
	setString(&config.Contracts.LoanPool, "LEDGER_LOAN_POOL")
	setBool(&config.Contracts.RequireOracleData, "REQUIRE_ORACLE_DATA")

	setString(&config.Statements.Bucket, "STATEMENTS_BUCKET")
	setString(&config.Statements.Endpoint, "S3_ENDPOINT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// Validate rejects configurations the services cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres, StorageDynamoDB:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Server.Mode == "release" && c.Security.JWTSecret == "" {
		return errors.New("jwt_secret is required in release mode")
	}
	if c.Keeper.BatchSize <= 0 {
		return errors.New("keeper batch_size must be positive")
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
