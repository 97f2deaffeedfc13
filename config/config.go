package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// InsecureJWTSecret is the documented placeholder used when JWT_SECRET is unset.
// It is accepted outside production only; Validate rejects it in production.
const InsecureJWTSecret = "insecure-dev-secret-change-me"

// Supported database drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Audit         AuditConfig
	Storage       StorageConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TLS             TLSConfig
}

// TLSConfig controls HTTPS serving. When enabled but the files are missing,
// the server falls back to plain HTTP.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig holds relational store configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over Path.
type DatabaseConfig struct {
	Driver           string
	ConnectionString string
	Path             string // SQLite file path
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds token signing and bootstrap account settings
type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	BootstrapEmail    string
	BootstrapPassword string
	BootstrapName     string
	LoginRatePerMin   int
	LoginBurst        int
	PublicPrefixes    []string
	BcryptCost        int
}

// AuditConfig holds audit recorder settings
type AuditConfig struct {
	BufferSize   int
	WorkerCount  int
	WriteTimeout time.Duration
	StopTimeout  time.Duration
}

// StorageConfig holds file locations used by import and licensing
type StorageConfig struct {
	UploadDir      string
	LicenseFile    string
	MaxUploadBytes int64
}

// CORSConfig holds allowed browser origins. Only local development origins are
// allowed by default; deployed origins come from CORS_ALLOWED_ORIGINS.
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			TLS: TLSConfig{
				Enabled:  getEnvAsBool("SSL_ENABLED", false),
				CertFile: getEnv("SSL_CERT_PATH", "certs/cert.pem"),
				KeyFile:  getEnv("SSL_KEY_PATH", "certs/key.pem"),
			},
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", InsecureJWTSecret),
			TokenTTL:          getEnvAsDuration("TOKEN_TTL", 8*time.Hour),
			BootstrapEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", "admin@example.com"),
			BootstrapPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", "password"),
			BootstrapName:     getEnv("BOOTSTRAP_ADMIN_NAME", "Admin User"),
			LoginRatePerMin:   getEnvAsInt("LOGIN_RATE_PER_MINUTE", 10),
			LoginBurst:        getEnvAsInt("LOGIN_BURST", 5),
			PublicPrefixes:    getEnvAsList("AUTH_PUBLIC_PREFIXES", []string{"/api/auth/login"}),
			BcryptCost:        getEnvAsInt("BCRYPT_COST", 10),
		},
		Audit: AuditConfig{
			BufferSize:   getEnvAsInt("AUDIT_BUFFER_SIZE", 1000),
			WorkerCount:  getEnvAsInt("AUDIT_WORKERS", 2),
			WriteTimeout: getEnvAsDuration("AUDIT_WRITE_TIMEOUT", 5*time.Second),
			StopTimeout:  getEnvAsDuration("AUDIT_STOP_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			UploadDir:      getEnv("UPLOAD_DIR", "data/uploads"),
			LicenseFile:    getEnv("LICENSE_FILE", "data/license.key"),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "http://127.0.0.1:*"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.ConnectionString == "" && c.Database.Path == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_PATH")
		}
	case DriverPostgres:
		if c.Database.ConnectionString == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	// The placeholder secret is a configuration hazard outside development
	if c.IsProduction() && c.Auth.JWTSecret == InsecureJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.BootstrapEmail == "" {
		return fmt.Errorf("bootstrap admin email is required")
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}

	if c.Audit.WorkerCount <= 0 {
		return fmt.Errorf("audit worker count must be positive")
	}
	if c.Audit.BufferSize < 0 {
		return fmt.Errorf("audit buffer size must not be negative")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// InsecureSecret reports whether tokens are signed with the placeholder secret.
func (c *Config) InsecureSecret() bool {
	return c.Auth.JWTSecret == InsecureJWTSecret
}

// DSN returns the driver-specific data source name.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return c.Path
}

// LogString returns a safe string for logging (no password).
func (c *DatabaseConfig) LogString() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("driver=sqlite3 path=%s", c.DSN())
	}
	u, err := url.Parse(c.ConnectionString)
	if err == nil && u.Host != "" {
		port := u.Port()
		if port == "" {
			port = "5432"
		}
		db := strings.TrimPrefix(u.Path, "/")
		return fmt.Sprintf("driver=postgres host=%s port=%s database=%s", u.Hostname(), port, db)
	}
	return "driver=postgres host=<from DATABASE_URL>"
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:           getEnv("DB_DRIVER", DriverSQLite),
		ConnectionString: getEnv("DATABASE_URL", ""),
		Path:             getEnv("DB_PATH", "data/database.sqlite"),
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
