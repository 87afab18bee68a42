package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the whole ground station configuration
type Config struct {
	Server    ServerConfig    // HTTP server settings
	Database  DatabaseConfig  // PostgreSQL connection settings
	JWT       JWTConfig       // operator authentication
	Link      LinkConfig      // serial radio link
	Station   StationConfig   // mission processing
	Log       LogConfig       // logging
	RateLimit RateLimitConfig // uplink command throttling
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string `envconfig:"SERVER_PORT" default:"8080"`
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"cansat"`
	Password string `envconfig:"DB_PASSWORD" default:"cansat_pass"`
	Name     string `envconfig:"DB_NAME" default:"cansat"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns int32  `envconfig:"DB_MIN_CONNS" default:"2"`
}

// JWTConfig holds operator token settings
type JWTConfig struct {
	Secret          string `envconfig:"JWT_SECRET" required:"true"`
	ExpirationHours int    `envconfig:"JWT_EXPIRATION_HOURS" default:"12"`
}

// LinkConfig holds serial radio link settings
type LinkConfig struct {
	// Port is opened at startup when set; otherwise the operator opens it over the API
	Port     string `envconfig:"LINK_PORT"`
	BaudRate int    `envconfig:"LINK_BAUD_RATE" default:"57600"`
}

// StationConfig holds mission processing settings
type StationConfig struct {
	TeamID           int           `envconfig:"TEAM_ID" default:"3114"`
	SeriesWindow     int           `envconfig:"SERIES_WINDOW" default:"500"`
	SimProfilePath   string        `envconfig:"SIMP_PROFILE" default:"cansat_2023_simp.txt"`
	SimInterval      time.Duration `envconfig:"SIMP_INTERVAL" default:"1s"`
	CSVPath          string        `envconfig:"CSV_PATH" default:"cansat_data.csv"`
	LogfilePath      string        `envconfig:"LOGFILE_PATH" default:"cansat_logs.txt"`
	CameraStatusWait time.Duration `envconfig:"CAMERA_STATUS_WAIT" default:"1s"`
	EventLogSize     int           `envconfig:"EVENT_LOG_SIZE" default:"1000"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// RateLimitConfig holds uplink throttling settings
type RateLimitConfig struct {
	CommandsPerMinute int `envconfig:"COMMANDS_PER_MINUTE" default:"120"`
}

// GetExpiration returns the token lifetime as a time.Duration
func (j JWTConfig) GetExpiration() time.Duration {
	return time.Duration(j.ExpirationHours) * time.Hour
}

// DSN returns the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Station.SeriesWindow < 2 {
		return nil, fmt.Errorf("failed to load config: SERIES_WINDOW must be at least 2, got %d", cfg.Station.SeriesWindow)
	}
	return &cfg, nil
}
