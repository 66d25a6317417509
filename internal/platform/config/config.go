package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile        = ".env"
	defaultPort           = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultRemoteTimeout  = 8 * time.Second
	defaultSearchDelay    = 500 * time.Millisecond
	defaultCartStorageKey = "cart"
	defaultFeedTopic      = "order-updates"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	RemoteAPI RemoteAPIConfig
	Feed      FeedConfig
	Checkout  CheckoutConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RedisConfig locates the cart persistence store. An empty Addr selects the
// in-memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RemoteAPIConfig locates the remote ordering API.
type RemoteAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// FeedConfig locates the Pub/Sub order-update feed. The feed is enabled when
// a project id is configured.
type FeedConfig struct {
	ProjectID    string
	Topic        string
	Subscription string
}

// Enabled reports whether the order feed should be wired at startup.
func (f FeedConfig) Enabled() bool {
	return strings.TrimSpace(f.ProjectID) != ""
}

// CheckoutConfig tunes the cart and checkout behaviour.
type CheckoutConfig struct {
	CartStorageKey string
	SearchDelay    time.Duration
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided
// maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "API_REDIS_ADDR", ""),
			Password: stringWithDefault(lookup, "API_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "API_REDIS_DB", 0),
		},
		RemoteAPI: RemoteAPIConfig{
			BaseURL: stringWithDefault(lookup, "API_REMOTE_BASE_URL", ""),
			Timeout: durationWithDefault(lookup, "API_REMOTE_TIMEOUT", defaultRemoteTimeout),
		},
		Feed: FeedConfig{
			ProjectID:    stringWithDefault(lookup, "API_FEED_PROJECT_ID", ""),
			Topic:        stringWithDefault(lookup, "API_FEED_TOPIC", defaultFeedTopic),
			Subscription: stringWithDefault(lookup, "API_FEED_SUBSCRIPTION", ""),
		},
		Checkout: CheckoutConfig{
			CartStorageKey: stringWithDefault(lookup, "API_CHECKOUT_CART_KEY", defaultCartStorageKey),
			SearchDelay:    durationWithDefault(lookup, "API_CHECKOUT_SEARCH_DELAY", defaultSearchDelay),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.RemoteAPI.BaseURL) == "" {
		missing = append(missing, "RemoteAPI.BaseURL")
	}
	if cfg.RemoteAPI.Timeout <= 0 {
		missing = append(missing, "RemoteAPI.Timeout")
	}
	if strings.TrimSpace(cfg.Checkout.CartStorageKey) == "" {
		missing = append(missing, "Checkout.CartStorageKey")
	}
	if cfg.Checkout.SearchDelay <= 0 {
		missing = append(missing, "Checkout.SearchDelay")
	}
	if cfg.Feed.Enabled() && strings.TrimSpace(cfg.Feed.Topic) == "" {
		missing = append(missing, "Feed.Topic")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
