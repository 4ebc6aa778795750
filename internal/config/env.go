package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// loadEnvFile loads .env and .env.local when present. Existing process
// environment variables are never overwritten.
func loadEnvFile() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		_ = godotenv.Load(name)
	}
}

// applyEnvOverrides maps the deployment environment variables onto cfg.
// A set variable always wins over the file.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Root, "PORTFOLIO_ROOT")
	setString(&cfg.Server.Host, "HOST")
	setString(&cfg.Server.FrontendURL, "FRONTEND_URL")
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	setString(&cfg.Site.URL, "SITE_URL")

	setString(&cfg.Auth.Username, "ADMIN_USERNAME")
	setString(&cfg.Auth.PasswordHash, "ADMIN_PASSWORD_HASH")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.RedisURL, "REDIS_URL")

	setString(&cfg.Mirror.Token, "GITHUB_TOKEN")
	setString(&cfg.Mirror.Repo, "GITHUB_REPO")
	setString(&cfg.Mirror.Owner, "GITHUB_OWNER")
	setString(&cfg.Mirror.Branch, "GITHUB_BRANCH")
	setString(&cfg.Mirror.ContentRoot, "GITHUB_CONTENT_ROOT")

	setString(&cfg.Notify.NATSURL, "NATS_URL")

	if v := os.Getenv("PORTFOLIO_LOG_LEVEL"); v != "" {
		cfg.Monitoring.Logging.Level = LogLevel(v)
	}
	if v := os.Getenv("PORTFOLIO_LOG_FORMAT"); v != "" {
		cfg.Monitoring.Logging.Format = LogFormat(v)
	}
	if v := os.Getenv("PORTFOLIO_REBUILD_MODE"); v != "" {
		cfg.Build.RebuildMode = RebuildMode(v)
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
