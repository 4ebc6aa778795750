package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/portfolio/internal/logfields"
)

// stagePrepare creates an empty staging directory, discarding leftovers of
// an interrupted build.
func (p *Pipeline) stagePrepare(_ context.Context, st *buildState) error {
	if err := os.RemoveAll(st.staging); err != nil {
		return fmt.Errorf("remove stale staging directory: %w", err)
	}
	if err := os.MkdirAll(st.out.GeneratedBlogDir, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	return nil
}

// buildDirInfix names the versioned directories the live path links to:
// <generated>.build-<id>.
const buildDirInfix = ".build-"

// stagePromote publishes the staging directory. The live generated path is a
// symbolic link to a versioned build directory:
//  1. Rename staging to a fresh <generated>.build-<id>.
//  2. Point a temporary link at it and rename the link over the live path.
//  3. Remove every build directory except the new one and the one it
//     replaced.
//
// Step 2 is a single rename, so the live path always resolves to a complete
// tree. The replaced build survives until the next promote so a reader that
// resolved the old link can finish. A live path that is still a plain
// directory is moved aside first; only that one-time migration leaves a
// short window without output.
func (p *Pipeline) stagePromote(_ context.Context, st *buildState) error {
	live := st.src.GeneratedDir
	version := live + buildDirInfix + uuid.NewString()

	if err := os.Rename(st.staging, version); err != nil {
		return fmt.Errorf("promote staging: %w", err)
	}
	previous, movedAside, err := p.currentOutput(live)
	if err != nil {
		_ = os.RemoveAll(version)
		return err
	}
	if err := swapLink(live, filepath.Base(version)); err != nil {
		_ = os.RemoveAll(version)
		if movedAside {
			if rerr := os.Rename(filepath.Join(filepath.Dir(live), previous), live); rerr != nil {
				p.logger.Error("Failed to restore previous output", logfields.Path(live), logfields.Error(rerr))
			}
		}
		return err
	}

	p.pruneBuilds(live, filepath.Base(version), previous)
	p.logger.Debug("Promoted staging directory", logfields.Path(version))
	return nil
}

// swapLink atomically points live at target, a sibling directory name.
func swapLink(live, target string) error {
	link := live + ".link"
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale link: %w", err)
	}
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("link new output: %w", err)
	}
	if err := os.Rename(link, live); err != nil {
		_ = os.Remove(link)
		return fmt.Errorf("swap output link: %w", err)
	}
	return nil
}

// currentOutput returns the base name of the build directory the live path
// points at, or "" when there is none. A live path that is a plain directory,
// left by an older layout or created by hand, is moved aside and its new
// name returned with movedAside set.
func (p *Pipeline) currentOutput(live string) (name string, movedAside bool, err error) {
	info, err := os.Lstat(live)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("inspect output: %w", err)
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(live)
		if err != nil {
			return "", false, fmt.Errorf("read output link: %w", err)
		}
		return filepath.Base(target), false, nil
	}
	aside := live + buildDirInfix + "legacy-" + uuid.NewString()
	if err := os.Rename(live, aside); err != nil {
		return "", false, fmt.Errorf("move existing output aside: %w", err)
	}
	p.logger.Info("Moved plain output directory aside", logfields.Path(aside))
	return filepath.Base(aside), true, nil
}

// pruneBuilds removes build directories not named in keep, including those
// left by interrupted runs.
func (p *Pipeline) pruneBuilds(live string, keep ...string) {
	parent := filepath.Dir(live)
	prefix := filepath.Base(live) + buildDirInfix
	entries, err := os.ReadDir(parent)
	if err != nil {
		p.logger.Warn("Failed to list previous outputs", logfields.Path(parent), logfields.Error(err))
		return
	}
	for _, e := range entries {
		name := e.Name()
		if slices.Contains(keep, name) || !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(parent, name)); err != nil {
			p.logger.Warn("Failed to remove previous output", logfields.Path(name), logfields.Error(err))
		}
	}
}

// abortStaging removes the staging directory after a failed build.
func (p *Pipeline) abortStaging(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		p.logger.Warn("Failed to remove staging directory after abort", logfields.Path(dir), logfields.Error(err))
	}
}
