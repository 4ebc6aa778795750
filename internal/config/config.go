package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
)

// DefaultConfigFile is looked up in the working directory when no --config is given.
const DefaultConfigFile = "portfolio.yaml"

// Config is the full runtime configuration of the portfolio service.
type Config struct {
	// Root overrides repository root discovery when set.
	Root       string           `yaml:"root"`
	Server     ServerConfig     `yaml:"server"`
	Site       SiteConfig       `yaml:"site"`
	Build      BuildConfig      `yaml:"build"`
	Auth       AuthConfig       `yaml:"auth"`
	Mirror     MirrorConfig     `yaml:"mirror"`
	Notify     NotifyConfig     `yaml:"notify"`
	Watch      WatchConfig      `yaml:"watch"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	FrontendURL string        `yaml:"frontend_url"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout must exceed Build.RebuildTimeout; mutations wait for the rebuild.
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SiteConfig describes the public site the generated output serves.
type SiteConfig struct {
	URL string `yaml:"url"`
}

// BuildConfig controls the content pipeline and how mutations trigger it.
type BuildConfig struct {
	RebuildMode    RebuildMode   `yaml:"rebuild_mode"`
	RebuildTimeout time.Duration `yaml:"rebuild_timeout"`
	HighlightStyle string        `yaml:"highlight_style"`
	// RetryInterval is how often a failed rebuild is retried in the background.
	RetryInterval time.Duration `yaml:"retry_interval"`
	Sitemap       bool          `yaml:"sitemap"`
}

// AuthConfig holds admin credentials and token settings.
type AuthConfig struct {
	Username     string        `yaml:"username"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	RedisURL     string        `yaml:"redis_url"`
	LoginLimit   int           `yaml:"login_limit"`
	LoginWindow  time.Duration `yaml:"login_window"`
}

// MirrorConfig configures the optional git mirror of the blog content.
type MirrorConfig struct {
	// Repo is "owner/name" on GitHub; URL wins when both are set.
	Repo        string      `yaml:"repo"`
	URL         string      `yaml:"url"`
	Owner       string      `yaml:"owner"`
	Token       string      `yaml:"token"`
	Branch      string      `yaml:"branch"`
	ContentRoot string      `yaml:"content_root"`
	WorkDir     string      `yaml:"work_dir"`
	AuthorName  string      `yaml:"author_name"`
	AuthorEmail string      `yaml:"author_email"`
	Retry       MirrorRetry `yaml:"retry"`
}

// MirrorRetry is the push retry policy.
type MirrorRetry struct {
	Backoff    RetryBackoffMode `yaml:"backoff"`
	Initial    time.Duration    `yaml:"initial"`
	Max        time.Duration    `yaml:"max"`
	MaxRetries int              `yaml:"max_retries"`
}

// Enabled reports whether enough is configured to push anywhere.
func (m MirrorConfig) Enabled() bool {
	return m.Token != "" && (m.Repo != "" || m.URL != "")
}

// RemoteURL returns the clone URL of the mirror.
func (m MirrorConfig) RemoteURL() string {
	if m.URL != "" {
		return m.URL
	}
	return "https://github.com/" + m.Repo + ".git"
}

// NotifyConfig configures publishing rebuild events to NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// WatchConfig controls the content watcher debounce.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	MaxDelay time.Duration `yaml:"max_delay"`
}

// MonitoringConfig covers metrics and logging.
type MonitoringConfig struct {
	Metrics MonitoringMetrics `yaml:"metrics"`
	Logging MonitoringLogging `yaml:"logging"`
}

// MonitoringMetrics represents metrics configuration.
type MonitoringMetrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MonitoringLogging represents logging configuration.
type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads configPath (optional: a missing default file yields defaults),
// expands ${VAR} references, applies environment overrides, normalizes,
// fills defaults and validates.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	var cfg Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse config file").
				WithContext("path", configPath).
				Build()
		}
	case os.IsNotExist(err) && (configPath == "" || configPath == DefaultConfigFile):
	case os.IsNotExist(err):
		return nil, foundationerrors.ConfigError("configuration file not found").
			WithContext("path", configPath).
			Build()
	default:
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	applyEnvOverrides(&cfg)
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return foundationerrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	example := Config{
		Server: ServerConfig{Port: 3000, FrontendURL: "http://localhost:4200"},
		Site:   SiteConfig{URL: "http://localhost:4200"},
		Build:  BuildConfig{RebuildMode: RebuildModeInProcess, RebuildTimeout: 120 * time.Second, Sitemap: true},
		Auth: AuthConfig{
			Username:     "admin",
			PasswordHash: "${ADMIN_PASSWORD_HASH}",
			JWTSecret:    "${JWT_SECRET}",
			TokenTTL:     8 * time.Hour,
		},
		Mirror: MirrorConfig{
			Repo:        "${GITHUB_REPO}",
			Token:       "${GITHUB_TOKEN}",
			Branch:      "main",
			ContentRoot: "content/blog",
		},
		Monitoring: MonitoringConfig{
			Metrics: MonitoringMetrics{Enabled: true, Path: "/metrics"},
			Logging: MonitoringLogging{Level: LogLevelInfo, Format: LogFormatText},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
