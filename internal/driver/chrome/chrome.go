// Package chrome implements driver.Driver on a local Chrome via chromedp.
//
// The browser runs with a persistent profile directory so the chat login
// survives between runs.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"blkmsg/internal/driver"
	logx "blkmsg/pkg/logx"
)

type Config struct {
	ProfileDir string
	Headless   bool
	// LocateTimeout bounds a single Locate lookup.
	LocateTimeout time.Duration
}

// Driver is a chromedp-backed driver.Driver.
type Driver struct {
	cfg Config
	log logx.Logger

	mu          sync.Mutex
	tab         context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

func New(cfg Config, log logx.Logger) *Driver {
	if cfg.LocateTimeout <= 0 {
		cfg.LocateTimeout = 5 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Driver{cfg: cfg, log: log}
}

// Start launches the browser. The session is detached from ctx so that it is
// only torn down by Stop.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tab != nil {
		return nil
	}

	profile, err := filepath.Abs(d.cfg.ProfileDir)
	if err != nil {
		return fmt.Errorf("profile dir: %w", err)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profile),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		d.log.Debug(fmt.Sprintf(format, args...))
	}))
	// First Run launches the browser process.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return fmt.Errorf("start chrome: %w", err)
	}
	d.tab, d.cancelAlloc, d.cancelTab = tab, cancelAlloc, cancelTab
	d.log.Info("browser session started", logx.String("profile", profile), logx.Bool("headless", d.cfg.Headless))
	return nil
}

// Stop closes the browser. It is safe to call more than once.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tab == nil {
		return nil
	}
	d.cancelTab()
	d.cancelAlloc()
	d.tab = nil
	d.log.Info("browser session stopped")
	return nil
}

func (d *Driver) session() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tab == nil {
		return nil, errors.New("browser session not started")
	}
	return d.tab, nil
}

// run executes actions in the tab while honoring the caller's ctx.
func (d *Driver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tab, err := d.session()
	if err != nil {
		return err
	}
	var cancel context.CancelFunc
	if timeout > 0 {
		tab, cancel = context.WithTimeout(tab, timeout)
	} else {
		tab, cancel = context.WithCancel(tab)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err = chromedp.Run(tab, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, 0, chromedp.Navigate(url))
}

func (d *Driver) Locate(ctx context.Context, selector string) (driver.Element, error) {
	var nodes []*cdp.Node
	err := d.run(ctx, d.cfg.LocateTimeout, chromedp.Nodes(selector, &nodes, chromedp.BySearch, chromedp.AtLeast(0)))
	if err != nil {
		return nil, &driver.SelectorError{Op: "locate", Selector: selector, Err: err}
	}
	if len(nodes) == 0 {
		return nil, &driver.SelectorError{Op: "locate", Selector: selector, Err: driver.ErrNotFound}
	}
	return &element{d: d, sel: selector}, nil
}

func (d *Driver) WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) (driver.Element, error) {
	err := d.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.BySearch))
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = driver.ErrTimeout
		}
		return nil, &driver.SelectorError{Op: "wait", Selector: selector, Err: err}
	}
	return &element{d: d, sel: selector}, nil
}

// element re-resolves its selector on every action; the chat UI re-renders
// its fields often enough that cached node IDs go stale.
type element struct {
	d   *Driver
	sel string
}

func (e *element) act(ctx context.Context, op string, actions ...chromedp.Action) error {
	if err := e.d.run(ctx, e.d.cfg.LocateTimeout, actions...); err != nil {
		return &driver.SelectorError{Op: op, Selector: e.sel, Err: err}
	}
	return nil
}

// Clear empties a contenteditable field: select all, then delete.
func (e *element) Clear(ctx context.Context) error {
	return e.act(ctx, "clear",
		chromedp.Focus(e.sel, chromedp.BySearch),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(selectAllModifier())),
		chromedp.KeyEvent(kb.Backspace),
	)
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.act(ctx, "send keys", chromedp.SendKeys(e.sel, text, chromedp.BySearch))
}

func (e *element) SendSpecialKey(ctx context.Context, key driver.Key) error {
	if key != driver.KeyEnter {
		return fmt.Errorf("unsupported key %q", key)
	}
	return e.act(ctx, "send key", chromedp.SendKeys(e.sel, kb.Enter, chromedp.BySearch))
}

func (e *element) SoftNewline(ctx context.Context) error {
	return e.act(ctx, "soft newline", chromedp.KeyEvent(kb.Enter, chromedp.KeyModifiers(input.ModifierShift)))
}
