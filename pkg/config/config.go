package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	envConfigPath  = "MINTFEED_CONFIG"
	envStreamURL   = "MINTFEED_STREAM_URL"
	envIPFSGateway = "MINTFEED_IPFS_GATEWAY"
	envOutputDir   = "MINTFEED_OUTPUT_DIR"
)

const (
	DefaultStreamURL        = "wss://pumpportal.fun/api/data"
	DefaultSubscribeMethod  = "subscribeNewToken"
	DefaultIPFSGateway      = "https://ipfs.io/ipfs/"
	DefaultQueueCapacity    = 5
	DefaultImageSize        = 400
	DefaultRequestTimeout   = 5
	DefaultInitialBackoff   = 1
	DefaultMaxBackoff       = 30
	DefaultReadTimeout      = 90
	DefaultDedupeSize       = 512
	DefaultMaxMetadataBytes = 1 << 20
	DefaultMaxImageBytes    = 16 << 20
	DefaultDrainInterval    = 2
	DefaultGatewayHost      = "127.0.0.1"
	DefaultGatewayPort      = 18791
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Stream  StreamConfig  `json:"stream"`
	Fetch   FetchConfig   `json:"fetch"`
	Queue   QueueConfig   `json:"queue"`
	Output  OutputConfig  `json:"output"`
	Gateway GatewayConfig `json:"gateway"`
	Logging LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// StreamConfig configures the websocket feed and its reconnect policy.
type StreamConfig struct {
	URL                   string `json:"url"`
	SubscribeMethod       string `json:"subscribe_method"`
	InitialBackoffSeconds int    `json:"initial_backoff_seconds"`
	MaxBackoffSeconds     int    `json:"max_backoff_seconds"`
	ReadTimeoutSeconds    int    `json:"read_timeout_seconds"`
	DedupeSize            int    `json:"dedupe_size"`
}

// FetchConfig configures the metadata and image HTTP fetches.
type FetchConfig struct {
	IPFSGateway           string `json:"ipfs_gateway"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	Retries               int    `json:"retries"`
	ImageSize             int    `json:"image_size"`
	MaxMetadataBytes      int64  `json:"max_metadata_bytes"`
	MaxImageBytes         int64  `json:"max_image_bytes"`
	UserAgent             string `json:"user_agent"`
}

// QueueConfig sizes the artifact queue between producer and consumer.
type QueueConfig struct {
	Capacity int `json:"capacity"`
}

// OutputConfig configures the bundled drain consumer.
type OutputConfig struct {
	Dir             string `json:"dir"`
	IntervalSeconds int    `json:"interval_seconds"`
}

// GatewayConfig configures HTTP status server bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
//
// A missing cwd-local config file is not an error; built-in defaults are used instead.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if value := strings.TrimSpace(os.Getenv(envStreamURL)); value != "" {
		cfg.Stream.URL = value
	}
	if value := strings.TrimSpace(os.Getenv(envIPFSGateway)); value != "" {
		cfg.Fetch.IPFSGateway = value
	}
	if value := strings.TrimSpace(os.Getenv(envOutputDir)); value != "" {
		cfg.Output.Dir = value
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Stream.URL) == "" {
		c.Stream.URL = DefaultStreamURL
	}
	if strings.TrimSpace(c.Stream.SubscribeMethod) == "" {
		c.Stream.SubscribeMethod = DefaultSubscribeMethod
	}
	if c.Stream.InitialBackoffSeconds == 0 {
		c.Stream.InitialBackoffSeconds = DefaultInitialBackoff
	}
	if c.Stream.MaxBackoffSeconds == 0 {
		c.Stream.MaxBackoffSeconds = DefaultMaxBackoff
	}
	if c.Stream.ReadTimeoutSeconds == 0 {
		c.Stream.ReadTimeoutSeconds = DefaultReadTimeout
	}
	if c.Stream.DedupeSize == 0 {
		c.Stream.DedupeSize = DefaultDedupeSize
	}

	if strings.TrimSpace(c.Fetch.IPFSGateway) == "" {
		c.Fetch.IPFSGateway = DefaultIPFSGateway
	}
	if c.Fetch.RequestTimeoutSeconds == 0 {
		c.Fetch.RequestTimeoutSeconds = DefaultRequestTimeout
	}
	if c.Fetch.ImageSize == 0 {
		c.Fetch.ImageSize = DefaultImageSize
	}
	if c.Fetch.MaxMetadataBytes == 0 {
		c.Fetch.MaxMetadataBytes = DefaultMaxMetadataBytes
	}
	if c.Fetch.MaxImageBytes == 0 {
		c.Fetch.MaxImageBytes = DefaultMaxImageBytes
	}

	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = DefaultQueueCapacity
	}
	if c.Output.IntervalSeconds == 0 {
		c.Output.IntervalSeconds = DefaultDrainInterval
	}

	if strings.TrimSpace(c.Gateway.Host) == "" {
		c.Gateway.Host = DefaultGatewayHost
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = DefaultGatewayPort
	}
}

// Validate rejects settings the pipeline cannot run with.
//
// Negative dedupe_size and read_timeout_seconds disable those features and are accepted.
func (c *Config) Validate() error {
	var errs []error

	streamURL, err := url.Parse(c.Stream.URL)
	if err != nil {
		errs = append(errs, fmt.Errorf("stream.url: %w", err))
	} else if streamURL.Scheme != "ws" && streamURL.Scheme != "wss" {
		errs = append(errs, fmt.Errorf("stream.url must use ws or wss, got %q", streamURL.Scheme))
	}

	if c.Stream.InitialBackoffSeconds < 0 {
		errs = append(errs, errors.New("stream.initial_backoff_seconds must not be negative"))
	}
	if c.Stream.MaxBackoffSeconds < c.Stream.InitialBackoffSeconds {
		errs = append(errs, errors.New("stream.max_backoff_seconds must be at least stream.initial_backoff_seconds"))
	}

	if !strings.HasPrefix(c.Fetch.IPFSGateway, "http://") && !strings.HasPrefix(c.Fetch.IPFSGateway, "https://") {
		errs = append(errs, fmt.Errorf("fetch.ipfs_gateway must be an http(s) prefix, got %q", c.Fetch.IPFSGateway))
	}
	if c.Fetch.RequestTimeoutSeconds < 0 {
		errs = append(errs, errors.New("fetch.request_timeout_seconds must not be negative"))
	}
	if c.Fetch.Retries < 0 {
		errs = append(errs, errors.New("fetch.retries must not be negative"))
	}
	if c.Fetch.ImageSize < 0 {
		errs = append(errs, errors.New("fetch.image_size must not be negative"))
	}

	if c.Queue.Capacity < 0 {
		errs = append(errs, errors.New("queue.capacity must not be negative"))
	}
	if c.Output.IntervalSeconds < 0 {
		errs = append(errs, errors.New("output.interval_seconds must not be negative"))
	}
	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port out of range: %d", c.Gateway.Port))
	}

	return errors.Join(errs...)
}

// RequestTimeout returns the per-request HTTP timeout.
func (c FetchConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ReadTimeout returns the websocket read deadline, or zero when disabled.
func (c StreamConfig) ReadTimeout() time.Duration {
	if c.ReadTimeoutSeconds <= 0 {
		return 0
	}

	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// DrainInterval returns the pacing between two consumed artifacts.
func (c OutputConfig) DrainInterval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// findConfigPath resolves the active config file location.
//
// Precedence is MINTFEED_CONFIG first, then cwd-local fallback paths. An empty
// path with a nil error means no file exists and defaults apply.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
