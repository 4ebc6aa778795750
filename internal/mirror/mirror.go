// Package mirror copies post directories to an external git repository after
// local changes. Mirroring is best effort: callers log failures and never
// fail a request because of them.
package mirror

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/portfolio/internal/logfields"
)

// Syncer mirrors the current state of a post directory.
type Syncer interface {
	// SyncPost makes the remote copy of slug match the local directory.
	SyncPost(ctx context.Context, slug, action string) error
	// DeletePost removes the remote copy of slug.
	DeletePost(ctx context.Context, slug, action string) error
}

// CommitPrefix derives the conventional commit prefix from an action label.
func CommitPrefix(action string) string {
	a := strings.ToLower(strings.TrimSpace(action))
	switch {
	case strings.Contains(a, "create"):
		return "feat(blog): add"
	case strings.Contains(a, "delete"), strings.Contains(a, "remove"):
		return "chore(blog): remove"
	default:
		return "chore(blog): update"
	}
}

// Noop is the Syncer used when no mirror is configured.
type Noop struct {
	Logger *slog.Logger
}

func (n Noop) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

func (n Noop) SyncPost(_ context.Context, slug, action string) error {
	n.logger().Warn("Mirror sync skipped: integration is not configured", logfields.Slug(slug), logfields.Action(action))
	return nil
}

func (n Noop) DeletePost(_ context.Context, slug, action string) error {
	n.logger().Warn("Mirror sync skipped: integration is not configured", logfields.Slug(slug), logfields.Action(action))
	return nil
}
