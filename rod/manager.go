package rod

import (
	"context"
	"fmt"
	"sync"

	"github.com/fwojciec/furnitron"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultMaxPages is the default number of pages opened on one browser
// before it is relaunched.
const DefaultMaxPages = 75

// Process is a running browser.
type Process struct {
	Browser *rod.Browser
	PID     int
	Stop    func() error
}

// LaunchFunc starts a browser process.
type LaunchFunc func() (*Process, error)

// BrowserManager hands out a shared Chrome instance to concurrent renders and
// relaunches it periodically, since Chrome's memory keeps growing over long
// runs even when every page is closed.
//
// The replacement browser starts without holding the manager's lock: while
// it starts, other renders keep opening pages on the current browser. A
// relaunch never interrupts pages that are still open; the old browser is
// retired and shut down once its last page is released.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	mu          sync.Mutex
	current     *instance
	relaunching bool
	closed      bool

	maxPages int64
	headless bool
	bin      string
	launch   LaunchFunc
}

// instance is one launched browser process.
type instance struct {
	proc    *Process
	opened  int64 // pages opened on this browser
	active  int   // pages not yet released
	retired bool
	stopped bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets the number of pages opened on one browser before it is
// relaunched. Defaults to DefaultMaxPages.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// WithHeadless controls whether the browser runs without a window.
// Defaults to true.
func WithHeadless(headless bool) ManagerOption {
	return func(bm *BrowserManager) {
		bm.headless = headless
	}
}

// WithBrowserBin sets the Chrome/Chromium binary to launch instead of the
// one rod finds or downloads.
func WithBrowserBin(path string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.bin = path
	}
}

// WithLaunchFunc replaces the Chrome launcher, e.g. to connect to a remote
// browser.
func WithLaunchFunc(fn LaunchFunc) ManagerOption {
	return func(bm *BrowserManager) {
		bm.launch = fn
	}
}

// NewBrowserManager creates a new BrowserManager and launches the browser.
// Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		maxPages: DefaultMaxPages,
		headless: true,
	}
	bm.launch = bm.launchChrome
	for _, opt := range opts {
		opt(bm)
	}
	if bm.maxPages < 1 {
		bm.maxPages = 1
	}

	proc, err := bm.launch()
	if err != nil {
		return nil, err
	}
	bm.current = &instance{proc: proc}
	return bm, nil
}

// Acquire returns the browser to open the next page on. The returned release
// func must be called once the page is closed; calling it more than once has
// no effect.
//
// Once the current browser has served maxPages pages, the next caller starts
// a replacement and gets a page on it. Callers arriving while the
// replacement starts are served by the current browser. If the replacement
// fails to start, the current browser stays in service.
//
// Returns EINVALID after Close, and the context's error if ctx is done.
func (bm *BrowserManager) Acquire(ctx context.Context) (*rod.Browser, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	bm.mu.Lock()
	if bm.closed {
		bm.mu.Unlock()
		return nil, nil, furnitron.Errorf(furnitron.EINVALID, "browser manager is closed")
	}
	if bm.current.opened >= bm.maxPages && !bm.relaunching {
		bm.relaunching = true
		bm.mu.Unlock()

		proc, err := bm.launch()

		bm.mu.Lock()
		bm.relaunching = false
		if err == nil {
			bm.swap(&instance{proc: proc})
		}
		if bm.closed {
			bm.mu.Unlock()
			return nil, nil, furnitron.Errorf(furnitron.EINVALID, "browser manager is closed")
		}
	}
	if err := ctx.Err(); err != nil {
		bm.mu.Unlock()
		return nil, nil, err
	}

	inst := bm.current
	inst.opened++
	inst.active++
	bm.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { bm.release(inst) })
	}
	return inst.proc.Browser, release, nil
}

// swap puts next in service and retires the current browser. After Close,
// next is stopped instead. Must be called with mu held.
func (bm *BrowserManager) swap(next *instance) {
	if bm.closed {
		next.retired = true
		_ = next.stop()
		return
	}
	old := bm.current
	bm.current = next
	old.retired = true
	if old.active == 0 {
		_ = old.stop()
	}
}

func (bm *BrowserManager) release(inst *instance) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	inst.active--
	if inst.retired && inst.active == 0 {
		_ = inst.stop()
	}
}

// Close shuts down the current browser, including any pages still open on
// it. A replacement still starting is shut down once it is up. Close is safe
// to call multiple times.
func (bm *BrowserManager) Close() error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil
	}
	bm.closed = true
	bm.current.retired = true
	return bm.current.stop()
}

// LauncherPID returns the process ID of the current browser, or 0 once the
// manager is closed. It lets tests verify the process is cleaned up.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.closed {
		return 0
	}
	return bm.current.proc.PID
}

// stop shuts the process down once. Must be called with mu held.
func (inst *instance) stop() error {
	if inst.stopped {
		return nil
	}
	inst.stopped = true
	if inst.proc.Stop == nil {
		return nil
	}
	return inst.proc.Stop()
}

func (bm *BrowserManager) launchChrome() (*Process, error) {
	lnchr := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(bm.headless)
	if bm.bin != "" {
		lnchr = lnchr.Bin(bm.bin)
	}

	u, err := lnchr.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return &Process{
		Browser: browser,
		PID:     lnchr.PID(),
		Stop: func() error {
			err := browser.Close()
			lnchr.Kill()
			return err
		},
	}, nil
}
