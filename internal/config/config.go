// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.cropsage/config.yaml)
//  3. Default values
//
// Sensitive values (API keys, database password) are masked in MarshalJSON
// and String; validation fails fast in Load so a misconfigured process never
// starts serving.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors checked with errors.Is.
var (
	ErrConfigNil         = errors.New("configuration is nil")
	ErrMissingAPIKey     = errors.New("missing API key")
	ErrInvalidModelName  = errors.New("invalid model name")
	ErrInvalidProvider   = errors.New("invalid provider")
	ErrInvalidUnits      = errors.New("invalid weather units")
	ErrInvalidStore      = errors.New("invalid store backend")
	ErrInvalidMaxAge     = errors.New("invalid freshness max age")
	ErrInvalidHTTPAddr   = errors.New("invalid http listen address")
	ErrInvalidPostgres   = errors.New("invalid postgres configuration")
	ErrInvalidRateLimit  = errors.New("invalid rate limit")
	ErrInvalidMaxResults = errors.New("invalid search max results")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderGoogleAI = "googleai"
)

// Store backend identifiers used in Config.StoreBackend.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config stores application configuration.
// Sensitive fields are explicitly masked in MarshalJSON; when adding a new
// secret field, update that method.
type Config struct {
	// Model configuration
	Provider          string `mapstructure:"provider" json:"provider"`
	ModelName         string `mapstructure:"model_name" json:"model_name"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" json:"requests_per_minute"`

	// External tool configuration
	OpenWeatherAPIKey string `mapstructure:"openweather_api_key" json:"openweather_api_key"` // SENSITIVE: masked in MarshalJSON
	TavilyAPIKey      string `mapstructure:"tavily_api_key" json:"tavily_api_key"`           // SENSITIVE: masked in MarshalJSON
	WeatherUnits      string `mapstructure:"weather_units" json:"weather_units"`
	SearchMaxResults  int    `mapstructure:"search_max_results" json:"search_max_results"`

	// Freshness policy (hours before a cached snapshot goes stale)
	WeatherMaxAgeHours int `mapstructure:"weather_max_age_hours" json:"weather_max_age_hours"`
	WebMaxAgeHours     int `mapstructure:"web_max_age_hours" json:"web_max_age_hours"`

	// Session storage
	StoreBackend string `mapstructure:"store_backend" json:"store_backend"`
	SessionsDir  string `mapstructure:"sessions_dir" json:"sessions_dir"`

	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server (serve mode)
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > config file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".cropsage")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("requests_per_minute", 30)

	viper.SetDefault("weather_units", "metric")
	viper.SetDefault("search_max_results", 5)
	viper.SetDefault("weather_max_age_hours", 6)
	viper.SetDefault("web_max_age_hours", 24)

	viper.SetDefault("store_backend", StoreFile)
	viper.SetDefault("sessions_dir", filepath.Join(configDir, "sessions"))

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "cropsage")
	viper.SetDefault("postgres_password", "")
	viper.SetDefault("postgres_db_name", "cropsage")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("http_addr", ":8080")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment overrides explicitly. Secrets keep
// their conventional provider names; everything else uses the CROPSAGE_
// prefix.
//
// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper. Validation
// only checks its presence.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("openweather_api_key", "OPENWEATHER_API_KEY")
	mustBind("tavily_api_key", "TAVILY_API_KEY")
	mustBind("postgres_password", "CROPSAGE_POSTGRES_PASSWORD")

	mustBind("provider", "CROPSAGE_PROVIDER")
	mustBind("model_name", "CROPSAGE_MODEL_NAME")
	mustBind("weather_units", "CROPSAGE_WEATHER_UNITS")
	mustBind("store_backend", "CROPSAGE_STORE_BACKEND")
	mustBind("sessions_dir", "CROPSAGE_SESSIONS_DIR")
	mustBind("postgres_host", "CROPSAGE_POSTGRES_HOST")
	mustBind("postgres_port", "CROPSAGE_POSTGRES_PORT")
	mustBind("postgres_user", "CROPSAGE_POSTGRES_USER")
	mustBind("postgres_db_name", "CROPSAGE_POSTGRES_DB_NAME")
	mustBind("postgres_ssl_mode", "CROPSAGE_POSTGRES_SSL_MODE")
	mustBind("http_addr", "CROPSAGE_HTTP_ADDR")
	mustBind("log_level", "CROPSAGE_LOG_LEVEL")
	mustBind("log_json", "CROPSAGE_LOG_JSON")
}

// WeatherMaxAge returns the weather staleness bound as a duration.
func (c *Config) WeatherMaxAge() time.Duration {
	return time.Duration(c.WeatherMaxAgeHours) * time.Hour
}

// WebMaxAge returns the web-context staleness bound as a duration.
func (c *Config) WebMaxAge() time.Duration {
	return time.Duration(c.WebMaxAgeHours) * time.Hour
}

// FullModelName returns the provider-qualified model name for Genkit, e.g.
// "googleai/gemini-2.5-flash". A ModelName already containing "/" is
// returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return ProviderGoogleAI + "/" + c.ModelName
}

// PostgresURL builds the postgres:// connection URL for pgx and migrations.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode,
	)
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenWeatherAPIKey = maskSecret(a.OpenWeatherAPIKey)
	a.TavilyAPIKey = maskSecret(a.TavilyAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
