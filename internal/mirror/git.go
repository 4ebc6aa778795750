package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/portfolio/internal/config"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
	"git.home.luguber.info/inful/portfolio/internal/retry"
)

const remoteName = "origin"

// Options configures a Git mirror.
type Options struct {
	URL         string
	Token       string
	Branch      string
	ContentRoot string // repository directory that holds one folder per post
	WorkDir     string // persistent clone location
	SourceDir   string // local content/blog directory
	AuthorName  string
	AuthorEmail string
	Retry       retry.Policy
	Recorder    metrics.Recorder
	Logger      *slog.Logger
}

// OptionsFromConfig maps the mirror configuration onto Options.
func OptionsFromConfig(cfg config.MirrorConfig, sourceDir string) Options {
	return Options{
		URL:         cfg.RemoteURL(),
		Token:       cfg.Token,
		Branch:      cfg.Branch,
		ContentRoot: cfg.ContentRoot,
		WorkDir:     cfg.WorkDir,
		SourceDir:   sourceDir,
		AuthorName:  cfg.AuthorName,
		AuthorEmail: cfg.AuthorEmail,
		Retry:       retry.FromConfig(cfg.Retry),
	}
}

// Git mirrors post directories into a persistent clone and pushes each
// change as one commit.
type Git struct {
	mu   sync.Mutex
	opts Options
	auth transport.AuthMethod
	repo *gogit.Repository
}

// NewGit validates opts. The clone is created lazily on first use.
func NewGit(opts Options) (*Git, error) {
	if opts.URL == "" {
		return nil, foundationerrors.ConfigError("mirror URL is required").Build()
	}
	if opts.WorkDir == "" {
		return nil, foundationerrors.ConfigError("mirror work directory is required").Build()
	}
	if opts.SourceDir == "" {
		return nil, foundationerrors.ConfigError("mirror source directory is required").Build()
	}
	if opts.Branch == "" {
		opts.Branch = config.DefaultMirrorBranch
	}
	opts.ContentRoot = strings.Trim(filepath.ToSlash(opts.ContentRoot), "/")
	if opts.Retry == (retry.Policy{}) {
		opts.Retry = retry.DefaultPolicy()
	}
	opts.Recorder = metrics.OrNoop(opts.Recorder)
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	g := &Git{opts: opts}
	if opts.Token != "" {
		g.auth = &http.BasicAuth{Username: "x-access-token", Password: opts.Token}
	}
	return g, nil
}

func (g *Git) SyncPost(ctx context.Context, slug, action string) error {
	return g.apply(ctx, slug, action, fmt.Sprintf("%s %s", CommitPrefix(action), slug), false)
}

func (g *Git) DeletePost(ctx context.Context, slug, action string) error {
	return g.apply(ctx, slug, action, "chore(blog): delete "+slug, true)
}

func (g *Git) apply(ctx context.Context, slug, action, message string, remove bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.opts.Retry.Do(ctx, func(ctx context.Context) error {
		return g.applyOnce(ctx, slug, message, remove)
	}, isTransient)
	g.opts.Recorder.IncMirrorSync(action, err == nil)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategorySync, "mirror sync failed").
			WithContext("slug", slug).
			WithContext("action", action).
			Build()
	}
	g.opts.Logger.Info("Mirrored post", logfields.Slug(slug), logfields.Action(action))
	return nil
}

func (g *Git) applyOnce(ctx context.Context, slug, message string, remove bool) error {
	src := filepath.Join(g.opts.SourceDir, slug)
	if !remove {
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("read source post: %w", err)
		}
	}
	repo, err := g.open(ctx)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := g.pull(ctx, wt); err != nil {
		return err
	}

	rel := path.Join(g.opts.ContentRoot, slug)
	dst := filepath.Join(g.opts.WorkDir, filepath.FromSlash(rel))
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("clear mirror directory: %w", err)
	}
	if !remove {
		if err := copyFiles(src, dst); err != nil {
			return err
		}
	}

	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage files: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		g.opts.Logger.Debug("Mirror already up to date", logfields.Slug(slug))
	} else {
		sig := &object.Signature{Name: g.opts.AuthorName, Email: g.opts.AuthorEmail, When: time.Now()}
		if _, err := wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
	}
	// A previous attempt may have committed without pushing.
	return g.push(ctx, repo)
}

// open returns the persistent clone, cloning it on first use. An empty
// remote gets a fresh local repository whose first push creates the branch.
func (g *Git) open(ctx context.Context) (*gogit.Repository, error) {
	if g.repo != nil {
		return g.repo, nil
	}
	if repo, err := gogit.PlainOpen(g.opts.WorkDir); err == nil {
		g.repo = repo
		return repo, nil
	}
	if err := os.MkdirAll(filepath.Dir(g.opts.WorkDir), 0o750); err != nil {
		return nil, fmt.Errorf("create mirror parent directory: %w", err)
	}
	_ = os.RemoveAll(g.opts.WorkDir)

	repo, err := gogit.PlainCloneContext(ctx, g.opts.WorkDir, false, &gogit.CloneOptions{
		URL:           g.opts.URL,
		Auth:          g.auth,
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(g.opts.Branch),
		SingleBranch:  true,
	})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		_ = os.RemoveAll(g.opts.WorkDir)
		repo, err = g.initEmpty()
	}
	if err != nil {
		_ = os.RemoveAll(g.opts.WorkDir)
		return nil, fmt.Errorf("failed to clone mirror %s: %w", g.opts.URL, err)
	}
	g.opts.Logger.Info("Mirror clone ready", logfields.Path(g.opts.WorkDir))
	g.repo = repo
	return repo, nil
}

func (g *Git) initEmpty() (*gogit.Repository, error) {
	repo, err := gogit.PlainInit(g.opts.WorkDir, false)
	if err != nil {
		return nil, err
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(g.opts.Branch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, err
	}
	if _, err := repo.CreateRemote(&ggitcfg.RemoteConfig{Name: remoteName, URLs: []string{g.opts.URL}}); err != nil {
		return nil, err
	}
	return repo, nil
}

func (g *Git) pull(ctx context.Context, wt *gogit.Worktree) error {
	err := wt.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(g.opts.Branch),
		SingleBranch:  true,
		Auth:          g.auth,
	})
	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate),
		errors.Is(err, transport.ErrEmptyRemoteRepository),
		errors.Is(err, plumbing.ErrReferenceNotFound):
		return nil
	case errors.Is(err, gogit.ErrNonFastForwardUpdate):
		// Local history diverged; start over from a fresh clone next attempt.
		g.repo = nil
		_ = os.RemoveAll(g.opts.WorkDir)
		return fmt.Errorf("mirror diverged from remote: %w", err)
	default:
		return fmt.Errorf("failed to pull mirror: %w", err)
	}
}

func (g *Git) push(ctx context.Context, repo *gogit.Repository) error {
	ref := plumbing.NewBranchReferenceName(g.opts.Branch)
	err := repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []ggitcfg.RefSpec{ggitcfg.RefSpec(ref + ":" + ref)},
		Auth:       g.auth,
	})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil
	}
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		if errors.Is(err, gogit.ErrNonFastForwardUpdate) {
			g.repo = nil
			_ = os.RemoveAll(g.opts.WorkDir)
		}
		return fmt.Errorf("failed to push mirror: %w", err)
	}
	return nil
}

// isTransient keeps retrying everything except authentication problems and
// a source post that no longer exists.
func isTransient(err error) bool {
	return !errors.Is(err, fs.ErrNotExist) &&
		!errors.Is(err, transport.ErrAuthenticationRequired) &&
		!errors.Is(err, transport.ErrAuthorizationFailed) &&
		!errors.Is(err, transport.ErrRepositoryNotFound)
}

// copyFiles copies the regular files of src (recursively) into dst.
func copyFiles(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && rel != "." {
				return filepath.SkipDir
			}
			return os.MkdirAll(target, 0o750)
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() { _ = in.Close() }()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	})
}
