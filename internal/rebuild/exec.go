package rebuild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
)

const maxOutputTail = 2048

// Exec spawns a separate build process in the repository root. Success or
// failure of that process is the only signal consumed.
type Exec struct {
	name    string
	args    []string
	dir     string
	timeout time.Duration
	logger  *slog.Logger
}

// ExecOption configures an Exec rebuilder.
type ExecOption func(*Exec)

// WithCommand replaces the spawned command line.
func WithCommand(name string, args ...string) ExecOption {
	return func(e *Exec) {
		e.name = name
		e.args = args
	}
}

// WithExecLogger sets the logger.
func WithExecLogger(l *slog.Logger) ExecOption {
	return func(e *Exec) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExec returns a rebuilder running "<current executable> build --root
// <root>" in root.
func NewExec(root string, timeout time.Duration, opts ...ExecOption) (*Exec, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	e := &Exec{dir: root, timeout: timeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.name == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		e.name = self
		e.args = []string{"build", "--root", root}
	}
	return e, nil
}

func (e *Exec) Rebuild(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// #nosec G204 - command is the service binary itself or an operator override
	cmd := exec.CommandContext(ctx, e.name, e.args...)
	cmd.Dir = e.dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		e.logger.Debug("Rebuild process finished", slog.String("command", e.name))
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timedOut(e.timeout, err)
	}
	return foundationerrors.WrapError(err, foundationerrors.CategoryRebuild, "content rebuild failed").
		WithContext("output", tail(out.String(), maxOutputTail)).
		Build()
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
