package rebuild

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/portfolio/internal/build"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/paths"
)

func TestInProcess_RunsPipeline(t *testing.T) {
	p := paths.New(t.TempDir())
	r := NewInProcess(build.New(p), time.Minute)

	require.NoError(t, r.Rebuild(context.Background()))
	assert.FileExists(t, p.GeneratedBlogIndexPath)
}

func TestExec_SuccessAndFailure(t *testing.T) {
	dir := t.TempDir()

	ok, err := NewExec(dir, time.Second, WithCommand("sh", "-c", "exit 0"))
	require.NoError(t, err)
	require.NoError(t, ok.Rebuild(context.Background()))

	bad, err := NewExec(dir, time.Second, WithCommand("sh", "-c", "echo boom >&2; exit 3"))
	require.NoError(t, err)
	err = bad.Rebuild(context.Background())
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryRebuild))
	ce, ok2 := foundationerrors.AsClassified(err)
	require.True(t, ok2)
	out, _ := ce.Context().GetString("output")
	assert.Equal(t, "boom", out)
}

func TestExec_RunsInRoot(t *testing.T) {
	dir := t.TempDir()
	r, err := NewExec(dir, time.Second, WithCommand("sh", "-c", "touch marker"))
	require.NoError(t, err)
	require.NoError(t, r.Rebuild(context.Background()))
	_, err = os.Stat(dir + "/marker")
	assert.NoError(t, err)
}

func TestExec_Timeout(t *testing.T) {
	r, err := NewExec(t.TempDir(), 50*time.Millisecond, WithCommand("sleep", "5"))
	require.NoError(t, err)

	err = r.Rebuild(context.Background())
	require.Error(t, err)
	ce, ok := foundationerrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, "content rebuild timed out", ce.Message())
}

func TestNewExec_DefaultsToSelf(t *testing.T) {
	r, err := NewExec("/srv/site", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "--root", "/srv/site"}, r.args)
	assert.Equal(t, DefaultTimeout, r.timeout)
}

func TestCoordinator_TracksStatusAndRetries(t *testing.T) {
	var calls atomic.Int32
	fail := atomic.Bool{}
	fail.Store(true)
	var hooks atomic.Int32

	c := NewCoordinator(Func(func(context.Context) error {
		calls.Add(1)
		if fail.Load() {
			return errors.New("disk full")
		}
		return nil
	}), "inprocess", OnSuccess(func(context.Context) { hooks.Add(1) }))

	require.Error(t, c.Rebuild(context.Background()))
	st := c.Status()
	assert.True(t, st.Dirty)
	assert.Equal(t, 1, st.Failures)
	assert.Equal(t, "disk full", st.LastError)
	assert.Equal(t, int32(0), hooks.Load())

	fail.Store(false)
	c.retryDirty(context.Background())
	st = c.Status()
	assert.False(t, st.Dirty)
	assert.Empty(t, st.LastError)
	assert.Equal(t, 2, st.Runs)
	assert.Equal(t, int32(1), hooks.Load())

	c.retryDirty(context.Background())
	assert.Equal(t, int32(2), calls.Load(), "clean tree is not rebuilt")
}

func TestCoordinator_SerializesRebuilds(t *testing.T) {
	var running, maxRunning atomic.Int32
	c := NewCoordinator(Func(func(context.Context) error {
		n := running.Add(1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return nil
	}), "inprocess")

	done := make(chan struct{})
	for range 4 {
		go func() {
			_ = c.Rebuild(context.Background())
			done <- struct{}{}
		}()
	}
	for range 4 {
		<-done
	}
	assert.Equal(t, int32(1), maxRunning.Load())
	assert.Equal(t, 4, c.Status().Runs)
}

func TestCoordinator_StartRetryRebuildsDirtyTree(t *testing.T) {
	var calls atomic.Int32
	c := NewCoordinator(Func(func(context.Context) error {
		calls.Add(1)
		return nil
	}), "inprocess")
	c.MarkDirty()

	require.Error(t, c.StartRetry(context.Background(), 0))
	require.NoError(t, c.StartRetry(context.Background(), 20*time.Millisecond))
	t.Cleanup(func() { _ = c.Stop() })

	assert.Eventually(t, func() bool { return !c.Status().Dirty }, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}
