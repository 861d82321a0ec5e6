package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultGRPCPort       = 50051
	DefaultHTTPPort       = 8080
	DefaultEnsembleTTL    = time.Hour
	DefaultWorkers        = 4
	DefaultConcurrentTP   = 4096
	DefaultCacheTTL       = 5 * time.Minute
	DefaultMaxCurves      = 10000
	DefaultStreamInterval = 5 * time.Second
	DefaultAuthHeader     = "x-api-key"
)

// Config is the top-level depthd configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`

	// Ensembles are the pinned reference ensembles loaded from files at
	// startup. They never expire and are rebuilt when their file changes.
	Ensembles []EnsembleSource `yaml:"ensembles"`

	// EnsembleTTL is how long an ensemble uploaded through the API is kept
	// after its last update. Zero keeps uploads forever.
	EnsembleTTL time.Duration `yaml:"ensemble_ttl"`

	Query   QueryConfig   `yaml:"query"`
	Storage StorageConfig `yaml:"storage"`
	Stream  StreamConfig  `yaml:"stream"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	// GRPCPort is the port the gRPC depth service listens on (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// HTTPPort is the port the REST API, WebSocket stream and /metrics
	// listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how gRPC and REST clients authenticate.
	Auth AuthConfig `yaml:"auth"`

	// TLS enables TLS on the gRPC listener. Leave empty for plaintext.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig holds the gRPC listener certificate. When ClientCAFile is set,
// clients must present a certificate signed by it (mutual TLS).
type TLSConfig struct {
	CertFile     string `yaml:"cert_file"`
	KeyFile      string `yaml:"key_file"`
	ClientCAFile string `yaml:"client_ca_file"`
}

// Enabled reports whether a server certificate is configured.
func (t TLSConfig) Enabled() bool { return t.CertFile != "" }

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | jwt | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key (and HTTP header name) to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`

	// SecretEnv names the environment variable holding the HS256 secret
	// used to verify bearer tokens in jwt mode.
	SecretEnv string `yaml:"secret_env"`
}

// Secret returns the jwt signing secret resolved from the environment.
func (a AuthConfig) Secret() []byte {
	if a.SecretEnv == "" {
		return nil
	}
	return []byte(os.Getenv(a.SecretEnv))
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return strings.ToLower(a.Header)
	}
	return DefaultAuthHeader
}

// EnsembleSource describes one pinned reference ensemble.
type EnsembleSource struct {
	// ID is the name clients query the ensemble by.
	ID string `yaml:"id"`

	// Path is a .csv, .yaml/.yml or .json file holding one curve per row.
	Path string `yaml:"path"`

	// Strategy overrides query.strategy for this ensemble.
	Strategy string `yaml:"strategy"`
}

// QueryConfig tunes depth queries.
type QueryConfig struct {
	// Strategy is the rank-counting algorithm: auto | scan | search.
	Strategy string `yaml:"strategy"`

	// Workers bounds how many curves of one request are scored in parallel.
	Workers int `yaml:"workers"`

	// ConcurrentTimepoints is the curve length from which a single query is
	// split across Workers goroutines. Zero disables splitting.
	ConcurrentTimepoints int `yaml:"concurrent_timepoints"`

	// CacheTTL is how long computed depths are cached. Zero disables the cache.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// MaxCurves caps the number of curves accepted in one request.
	MaxCurves int `yaml:"max_curves"`
}

// StorageConfig configures persistence of ensembles uploaded through the API.
type StorageConfig struct {
	// Backend is one of: "" (memory only) | sqlite | postgres.
	Backend string `yaml:"backend"`

	// DSN is the driver data source name, e.g. "file:depthd.db" or
	// "postgres://user@host/db?sslmode=disable".
	DSN string `yaml:"dsn"`
}

// StreamConfig controls the WebSocket stream.
type StreamConfig struct {
	// Interval between ensemble summary broadcasts (default 5s).
	Interval time.Duration `yaml:"interval"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression over a scored curve:
	// "depth < 0.05", "count <= 10".
	Condition string `yaml:"condition"`

	// Ensemble restricts the rule to one ensemble ID. Empty matches all.
	Ensemble string `yaml:"ensemble"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// SlogLevel returns the slog level for Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCPort: DefaultGRPCPort,
			HTTPPort: DefaultHTTPPort,
		},
		EnsembleTTL: DefaultEnsembleTTL,
		Query: QueryConfig{
			Strategy:             "auto",
			Workers:              DefaultWorkers,
			ConcurrentTimepoints: DefaultConcurrentTP,
			CacheTTL:             DefaultCacheTTL,
			MaxCurves:            DefaultMaxCurves,
		},
		Stream: StreamConfig{
			Interval: DefaultStreamInterval,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.GRPCPort <= 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", cfg.Server.GRPCPort)
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "jwt", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|jwt|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Auth.Mode == "apikey" && cfg.Server.Auth.KeyEnv == "" {
		return fmt.Errorf("server.auth.key_env is required when mode is apikey")
	}
	if cfg.Server.Auth.Mode == "jwt" && cfg.Server.Auth.SecretEnv == "" {
		return fmt.Errorf("server.auth.secret_env is required when mode is jwt")
	}
	if (cfg.Server.TLS.CertFile == "") != (cfg.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls: cert_file and key_file must be set together")
	}
	if cfg.Server.TLS.ClientCAFile != "" && !cfg.Server.TLS.Enabled() {
		return fmt.Errorf("server.tls.client_ca_file requires cert_file and key_file")
	}

	seen := make(map[string]bool, len(cfg.Ensembles))
	for i, e := range cfg.Ensembles {
		if e.ID == "" {
			return fmt.Errorf("ensembles[%d]: id is required", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("ensembles[%d]: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
		if e.Path == "" {
			return fmt.Errorf("ensembles[%d] %q: path is required", i, e.ID)
		}
		if err := validStrategy(e.Strategy); err != nil {
			return fmt.Errorf("ensembles[%d] %q: %w", i, e.ID, err)
		}
	}
	if cfg.EnsembleTTL < 0 {
		return fmt.Errorf("ensemble_ttl must not be negative")
	}

	if err := validStrategy(cfg.Query.Strategy); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if cfg.Query.Workers <= 0 {
		return fmt.Errorf("query.workers must be positive")
	}
	if cfg.Query.ConcurrentTimepoints < 0 {
		return fmt.Errorf("query.concurrent_timepoints must not be negative")
	}
	if cfg.Query.CacheTTL < 0 {
		return fmt.Errorf("query.cache_ttl must not be negative")
	}
	if cfg.Query.MaxCurves <= 0 {
		return fmt.Errorf("query.max_curves must be positive")
	}

	switch cfg.Storage.Backend {
	case "":
	case "sqlite", "postgres":
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for backend %q", cfg.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage.backend %q unknown: want sqlite|postgres", cfg.Storage.Backend)
	}

	if cfg.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be positive")
	}

	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if len(strings.Fields(r.Condition)) != 3 {
			return fmt.Errorf("alerts.rules[%d] %q: condition %q must be \"field op value\"", i, r.Name, r.Condition)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}

	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", cfg.Log.Format)
	}
	return nil
}

func validStrategy(s string) error {
	switch s {
	case "", "auto", "scan", "search":
		return nil
	default:
		return fmt.Errorf("strategy %q unknown: want auto|scan|search", s)
	}
}
