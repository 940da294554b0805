//go:build integration && !windows

package rod_test

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserManager_RelaunchesAfterMaxPages(t *testing.T) {
	t.Parallel()

	manager, err := rod.NewBrowserManager(rod.WithMaxPages(3))
	require.NoError(t, err)
	defer manager.Close()

	first, release, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	release()
	for range 2 {
		b, release, err := manager.Acquire(context.Background())
		require.NoError(t, err)
		assert.Same(t, first, b)
		release()
	}

	// The fourth page goes to a fresh browser.
	second, release, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	defer release()
	assert.NotSame(t, first, second)
}

func TestBrowserManager_RelaunchKeepsOpenPagesAlive(t *testing.T) {
	t.Parallel()

	manager, err := rod.NewBrowserManager(rod.WithMaxPages(1))
	require.NoError(t, err)
	defer manager.Close()

	oldBrowser, releaseOld, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	page, err := oldBrowser.Page(proto.TargetCreateTarget{})
	require.NoError(t, err)
	oldPID := manager.LauncherPID()

	// Relaunch while the first page is still open.
	_, releaseNew, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	defer releaseNew()
	assert.NotEqual(t, oldPID, manager.LauncherPID())

	require.NoError(t, page.Navigate("about:blank"))
	require.NoError(t, syscall.Kill(oldPID, syscall.Signal(0)), "retired browser should live until released")

	require.NoError(t, page.Close())
	releaseOld()
	time.Sleep(100 * time.Millisecond)

	assert.Error(t, syscall.Kill(oldPID, syscall.Signal(0)), "retired browser should exit after its last page")
}

func TestBrowserManager_ConcurrentAcquire(t *testing.T) {
	t.Parallel()

	manager, err := rod.NewBrowserManager(rod.WithMaxPages(2))
	require.NoError(t, err)
	defer manager.Close()

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, release, err := manager.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			page, err := b.Page(proto.TargetCreateTarget{})
			if assert.NoError(t, err) {
				_ = page.Close()
			}
		}()
	}
	wg.Wait()
}

func TestBrowserManager_AcquireFailsAfterClose(t *testing.T) {
	t.Parallel()

	manager, err := rod.NewBrowserManager()
	require.NoError(t, err)

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	_, _, err = manager.Acquire(context.Background())
	assert.Equal(t, furnitron.EINVALID, furnitron.ErrorCode(err))
	assert.Zero(t, manager.LauncherPID())
}
