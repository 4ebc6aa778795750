package config

import (
	"net/url"
	"strings"

	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
)

// Validate checks cross-field invariants after defaults have been applied.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return configError("server.port", "must be between 1 and 65535")
	}
	if cfg.Build.RebuildTimeout < 0 {
		return configError("build.rebuild_timeout", "cannot be negative")
	}
	if cfg.Site.URL != "" {
		if err := validateAbsoluteURL(cfg.Site.URL); err != nil {
			return configError("site.url", err.Error())
		}
	}
	if cfg.Auth.LoginLimit < 0 {
		return configError("auth.login_limit", "cannot be negative")
	}
	if cfg.Mirror.Repo != "" && cfg.Mirror.URL == "" {
		owner, name, ok := strings.Cut(cfg.Mirror.Repo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return configError("mirror.repo", "must be in owner/name form")
		}
	}
	if cfg.Mirror.Retry.MaxRetries < 0 {
		return configError("mirror.retry.max_retries", "cannot be negative")
	}
	return nil
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &url.Error{Op: "parse", URL: raw, Err: errScheme}
	}
	if u.Host == "" {
		return &url.Error{Op: "parse", URL: raw, Err: errHost}
	}
	return nil
}

type urlProblem string

func (p urlProblem) Error() string { return string(p) }

const (
	errScheme urlProblem = "scheme must be http or https"
	errHost   urlProblem = "host is required"
)

func configError(field, msg string) error {
	return foundationerrors.ConfigError("invalid configuration: "+field+" "+msg).
		WithContext("field", field).
		Build()
}
