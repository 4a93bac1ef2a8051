package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables read by [Config.ApplyEnv].
const (
	EnvCredentials     = "GOOGLE_API_CREDENTIALS"
	EnvCredentialsFile = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvFolderID        = "GOOGLE_DRIVE_FOLDER_ID"
	EnvPort            = "PORT"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Drive  DriveConfig  `toml:"drive"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
	Pull   PullConfig   `toml:"pull"`
}

// DriveConfig contains the Google Drive credentials and the folder songs are served from.
//
// CredentialsJSON is only populated from the environment and is never written to disk.
type DriveConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	CredentialsJSON string `toml:"-"`
	FolderID        string `toml:"folder_id"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	PublicURL       string        `toml:"public_url"`
	Metrics         bool          `toml:"metrics"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// PullConfig contains defaults for bulk downloads of the folder.
type PullConfig struct {
	OutputDir string  `toml:"output_dir"`
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process environment.
//
// A missing file is not an error. Variables already set in the environment win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values with the environment variables the service has always read.
//
// getenv is usually [os.Getenv]; tests pass a map lookup.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvCredentials)); v != "" {
		c.Drive.CredentialsJSON = v
	}
	if v := strings.TrimSpace(getenv(EnvCredentialsFile)); v != "" {
		c.Drive.CredentialsFile = v
	}
	if v := strings.TrimSpace(getenv(EnvFolderID)); v != "" {
		c.Drive.FolderID = v
	}
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port number", ErrInvalidConfig, EnvPort, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate reports the settings required to reach the store.
func (c *Config) Validate() error {
	if c.Drive.FolderID == "" {
		return fmt.Errorf("%w: drive folder id (set %s or drive.folder_id)", ErrMissingConfig, EnvFolderID)
	}
	if c.Drive.CredentialsJSON == "" && c.Drive.CredentialsFile == "" {
		return fmt.Errorf("%w: set %s, %s or drive.credentials_file",
			ErrMissingCredentials, EnvCredentials, EnvCredentialsFile)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// Credentials returns the service account JSON, preferring the inline environment value over the file.
func (c *Config) Credentials() ([]byte, error) {
	if c.Drive.CredentialsJSON != "" {
		return []byte(c.Drive.CredentialsJSON), nil
	}
	if c.Drive.CredentialsFile == "" {
		return nil, ErrMissingCredentials
	}

	data, err := os.ReadFile(c.Drive.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCredentials, err)
	}
	return data, nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
