package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/cropsage/cropsage/internal/log"
)

// ErrTool marks any external tool failure. Callers check it with errors.Is
// and degrade rather than abort the turn.
var ErrTool = errors.New("tool call failed")

const (
	defaultOpenWeatherBaseURL = "https://api.openweathermap.org"
	defaultTavilyBaseURL      = "https://api.tavily.com"

	defaultTimeout    = 15 * time.Second
	defaultMaxResults = 5

	// retryAttempts is additional attempts after the first; backoff starts
	// at retryBaseDelay and doubles.
	retryAttempts  = 2
	retryBaseDelay = 600 * time.Millisecond
)

// Config configures a Client. Only the API keys are required; base URLs are
// overridable for tests.
type Config struct {
	OpenWeatherKey string
	TavilyKey      string
	// Units is an OpenWeather unit system: metric, imperial, or standard.
	Units            string
	MaxSearchResults int
	Timeout          time.Duration
	Logger           log.Logger

	OpenWeatherBaseURL string
	TavilyBaseURL      string
}

// Client talks to the weather and search providers. It satisfies the
// advisor engine's Toolset interface.
type Client struct {
	weather    *resty.Client
	search     *resty.Client
	units      string
	maxResults int
	owKey      string
	tvKey      string
	logger     log.Logger
	now        func() time.Time
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.OpenWeatherKey == "" {
		return nil, fmt.Errorf("tools: openweather api key is required")
	}
	if cfg.TavilyKey == "" {
		return nil, fmt.Errorf("tools: tavily api key is required")
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = defaultMaxResults
	}
	if cfg.MaxSearchResults > 10 {
		cfg.MaxSearchResults = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.OpenWeatherBaseURL == "" {
		cfg.OpenWeatherBaseURL = defaultOpenWeatherBaseURL
	}
	if cfg.TavilyBaseURL == "" {
		cfg.TavilyBaseURL = defaultTavilyBaseURL
	}

	weather := resty.New().
		SetBaseURL(cfg.OpenWeatherBaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	search := resty.New().
		SetBaseURL(cfg.TavilyBaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "Bearer "+cfg.TavilyKey)

	return &Client{
		weather:    weather,
		search:     search,
		units:      cfg.Units,
		maxResults: cfg.MaxSearchResults,
		owKey:      cfg.OpenWeatherKey,
		tvKey:      cfg.TavilyKey,
		logger:     cfg.Logger,
		now:        time.Now,
	}, nil
}

// doWithRetry runs call with bounded exponential backoff. Transport errors
// and 429/5xx responses retry; other HTTP errors fail immediately.
func (c *Client) doWithRetry(ctx context.Context, op string, call func(ctx context.Context) (*resty.Response, error)) (*resty.Response, error) {
	var resp *resty.Response
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewExponential(retryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		resp, err = call(ctx)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%s: %w", op, err))
		}
		code := resp.StatusCode()
		if code == 429 || code >= 500 {
			return retry.RetryableError(fmt.Errorf("%s: HTTP %d", op, code))
		}
		if resp.IsError() {
			return fmt.Errorf("%s: HTTP %d", op, code)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTool, err)
	}
	return resp, nil
}
