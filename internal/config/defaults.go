package config

import (
	"strings"
	"time"
)

const (
	DefaultPort           = 3000
	DefaultRebuildTimeout = 120 * time.Second
	DefaultTokenTTL       = 8 * time.Hour
	DefaultLoginLimit     = 5
	DefaultLoginWindow    = time.Minute
	DefaultMirrorBranch   = "main"
	DefaultMirrorRoot     = "content/blog"
	DefaultNotifySubject  = "portfolio.content"
)

// normalize case-folds enumerations and trims free-form values before defaults apply.
func normalize(cfg *Config) error {
	mode, err := NormalizeRebuildMode(string(cfg.Build.RebuildMode))
	if err != nil {
		return configError("build.rebuild_mode", err.Error())
	}
	cfg.Build.RebuildMode = mode
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
	cfg.Mirror.Retry.Backoff = NormalizeRetryBackoff(string(cfg.Mirror.Retry.Backoff))

	cfg.Site.URL = strings.TrimRight(strings.TrimSpace(cfg.Site.URL), "/")
	cfg.Server.FrontendURL = strings.TrimRight(strings.TrimSpace(cfg.Server.FrontendURL), "/")
	cfg.Mirror.ContentRoot = strings.Trim(strings.TrimSpace(cfg.Mirror.ContentRoot), "/")
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Build.RebuildTimeout == 0 {
		cfg.Build.RebuildTimeout = DefaultRebuildTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = cfg.Build.RebuildTimeout + 30*time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Build.HighlightStyle == "" {
		cfg.Build.HighlightStyle = "github-dark"
	}
	if cfg.Build.RetryInterval == 0 {
		cfg.Build.RetryInterval = time.Minute
	}

	if cfg.Auth.Username == "" {
		cfg.Auth.Username = "admin"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = DefaultTokenTTL
	}
	if cfg.Auth.LoginLimit == 0 {
		cfg.Auth.LoginLimit = DefaultLoginLimit
	}
	if cfg.Auth.LoginWindow == 0 {
		cfg.Auth.LoginWindow = DefaultLoginWindow
	}

	if cfg.Mirror.Branch == "" {
		cfg.Mirror.Branch = DefaultMirrorBranch
	}
	if cfg.Mirror.ContentRoot == "" {
		cfg.Mirror.ContentRoot = DefaultMirrorRoot
	}
	if cfg.Mirror.AuthorName == "" {
		cfg.Mirror.AuthorName = "portfolio"
	}
	if cfg.Mirror.AuthorEmail == "" {
		cfg.Mirror.AuthorEmail = "portfolio@localhost"
	}
	if cfg.Mirror.Retry.Backoff == "" {
		cfg.Mirror.Retry.Backoff = RetryBackoffExponential
	}
	if cfg.Mirror.Retry.Initial == 0 {
		cfg.Mirror.Retry.Initial = time.Second
	}
	if cfg.Mirror.Retry.Max == 0 {
		cfg.Mirror.Retry.Max = 30 * time.Second
	}
	if cfg.Mirror.Retry.MaxRetries == 0 {
		cfg.Mirror.Retry.MaxRetries = 2
	}

	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxDelay == 0 {
		cfg.Watch.MaxDelay = 5 * time.Second
	}
	if cfg.Monitoring.Metrics.Path == "" {
		cfg.Monitoring.Metrics.Path = "/metrics"
	}
}
