package config

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// Validate checks the configuration for values that would fail at runtime.
// It is called from Load so a bad configuration stops the process early.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.Provider != ProviderGemini && c.Provider != ProviderGoogleAI {
		return fmt.Errorf("%w: %q (supported: %s, %s)", ErrInvalidProvider, c.Provider, ProviderGemini, ProviderGoogleAI)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests_per_minute %d", ErrInvalidRateLimit, c.RequestsPerMinute)
	}

	// Genkit reads GEMINI_API_KEY itself; check presence here so the
	// failure happens at startup, not on the first model call.
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY not set", ErrMissingAPIKey)
	}
	if c.OpenWeatherAPIKey == "" {
		return fmt.Errorf("%w: OPENWEATHER_API_KEY not set", ErrMissingAPIKey)
	}
	if c.TavilyAPIKey == "" {
		return fmt.Errorf("%w: TAVILY_API_KEY not set", ErrMissingAPIKey)
	}

	switch c.WeatherUnits {
	case "metric", "imperial", "standard":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidUnits, c.WeatherUnits)
	}
	if c.SearchMaxResults < 1 || c.SearchMaxResults > 10 {
		return fmt.Errorf("%w: %d (must be 1-10)", ErrInvalidMaxResults, c.SearchMaxResults)
	}
	if c.WeatherMaxAgeHours < 1 || c.WebMaxAgeHours < 1 {
		return fmt.Errorf("%w: weather %dh, web %dh", ErrInvalidMaxAge, c.WeatherMaxAgeHours, c.WebMaxAgeHours)
	}

	switch c.StoreBackend {
	case StoreFile:
		if strings.TrimSpace(c.SessionsDir) == "" {
			return fmt.Errorf("%w: sessions_dir is empty", ErrInvalidStore)
		}
	case StorePostgres:
		if err := c.validatePostgres(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q (supported: %s, %s)", ErrInvalidStore, c.StoreBackend, StoreFile, StorePostgres)
	}

	if _, _, err := net.SplitHostPort(c.HTTPAddr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidHTTPAddr, c.HTTPAddr, err)
	}

	return nil
}

func (c *Config) validatePostgres() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidPostgres, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresUser) == "" {
		return fmt.Errorf("%w: user is empty", ErrInvalidPostgres)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgres)
	}
	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		return nil
	default:
		return fmt.Errorf("%w: ssl mode %q", ErrInvalidPostgres, c.PostgresSSLMode)
	}
}
