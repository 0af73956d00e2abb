// Package browser wraps chromedp behind the small surface the page
// objects need: bounded waits, semantic actions, and duck-typed queries
// that report absence as an empty value instead of an error.
package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// DefaultTimeout bounds a single page interaction. Every wait in the
// harness has an explicit deadline; an unbounded wait would turn an
// application defect into a hung test run.
const DefaultTimeout = 10 * time.Second

// Options configures a browser session.
type Options struct {
	Headless bool
	Width    int
	Height   int
	// Timeout overrides DefaultTimeout for per-call waits.
	Timeout time.Duration
	// Logf receives browser diagnostics. Nil discards them.
	Logf func(format string, args ...any)
}

// Session is one live browser page. It holds no UI state of its own:
// every query goes back to the rendered page, never to a cached
// snapshot.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	timeout     time.Duration
}

// New launches a Chrome instance and opens a fresh page.
func New(parent context.Context, opts Options) (*Session, error) {
	if opts.Width == 0 {
		opts.Width = 1920
	}
	if opts.Height == 0 {
		opts.Height = 1080
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)

	var ctxOpts []chromedp.ContextOption
	if opts.Logf != nil {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(opts.Logf))
	}
	ctx, cancel := chromedp.NewContext(allocCtx, ctxOpts...)

	s := &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		timeout:     opts.Timeout,
	}

	// Run an empty task list so browser launch failures surface here
	// rather than on the first page interaction.
	if err := chromedp.Run(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return s, nil
}

// Close releases the page and the browser.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

func (s *Session) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads url and blocks until the landmark selector is visible.
// The landmark defines that the screen finished rendering; its absence
// within the timeout is the navigation failure.
func (s *Session) Navigate(url, landmark string, timeout time.Duration) error {
	if err := s.run(timeout,
		chromedp.Navigate(url),
		chromedp.WaitVisible(landmark, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate %s (landmark %s): %w", url, landmark, err)
	}
	return nil
}

// Goto loads url and waits only for the document body.
func (s *Session) Goto(url string) error {
	if err := s.run(s.timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the selector is visible.
func (s *Session) WaitVisible(sel string, timeout time.Duration) error {
	if err := s.run(timeout, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait visible %s: %w", sel, err)
	}
	return nil
}

// WaitFor blocks until the selector matches a node, visible or not.
// Needed for landmarks like `#detail-modal[hidden]` where the awaited
// state is a hidden element.
func (s *Session) WaitFor(sel string, timeout time.Duration) error {
	expr := fmt.Sprintf(`document.querySelector(%q) !== null`, sel)
	if err := s.run(timeout, chromedp.Poll(expr, nil, chromedp.WithPollingInterval(100*time.Millisecond))); err != nil {
		return fmt.Errorf("wait for %s: %w", sel, err)
	}
	return nil
}

// WaitLocationContains blocks until the page URL contains substr.
func (s *Session) WaitLocationContains(substr string, timeout time.Duration) error {
	expr := fmt.Sprintf(`location.href.includes(%q)`, substr)
	if err := s.run(timeout, chromedp.Poll(expr, nil, chromedp.WithPollingInterval(100*time.Millisecond))); err != nil {
		return fmt.Errorf("wait for url containing %q: %w", substr, err)
	}
	return nil
}

// Click waits for the selector to be visible and clicks it.
func (s *Session) Click(sel string) error {
	if err := s.run(s.timeout,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

// ClickText clicks the first element matching sel whose text contains
// text. Covers tab bars where the stable handle is the visible label.
func (s *Session) ClickText(sel, text string) error {
	expr := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%q);
		for (const el of els) {
			if ((el.innerText || "").includes(%q)) { el.click(); return true; }
		}
		return false;
	})()`, sel, text)
	var clicked bool
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &clicked)); err != nil {
		return fmt.Errorf("click %s with text %q: %w", sel, text, err)
	}
	if !clicked {
		return fmt.Errorf("no element %s with text %q", sel, text)
	}
	return nil
}

// ClickAt clicks at an (x, y) offset inside the selector's bounding
// box. Used for dismissing a modal by clicking its overlay background
// outside the content area.
func (s *Session) ClickAt(sel string, x, y float64) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return null;
		const r = el.getBoundingClientRect();
		return [r.left, r.top];
	})()`, sel)
	var corner []float64
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &corner)); err != nil {
		return fmt.Errorf("locate %s: %w", sel, err)
	}
	if len(corner) != 2 {
		return fmt.Errorf("no element %s", sel)
	}
	if err := s.run(s.timeout, chromedp.MouseClickXY(corner[0]+x, corner[1]+y)); err != nil {
		return fmt.Errorf("click %s at (%.0f,%.0f): %w", sel, x, y, err)
	}
	return nil
}

// Fill clears the input matched by sel and types value into it.
func (s *Session) Fill(sel, value string) error {
	if err := s.run(s.timeout,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("fill %s: %w", sel, err)
	}
	return nil
}

// SelectOption sets a <select> element's value and fires its change
// event, matching what a user choosing the option would produce.
func (s *Session) SelectOption(sel, value string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.value = %q;
		el.dispatchEvent(new Event("change", {bubbles: true}));
		return true;
	})()`, sel, value)
	var ok bool
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &ok)); err != nil {
		return fmt.Errorf("select %q on %s: %w", value, sel, err)
	}
	if !ok {
		return fmt.Errorf("no element %s", sel)
	}
	return nil
}

// DispatchInput fires an input event on the selector, for controls whose
// UI syncs off the input event rather than change.
func (s *Session) DispatchInput(sel string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.dispatchEvent(new Event("input", {bubbles: true}));
		return true;
	})()`, sel)
	var ok bool
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &ok)); err != nil {
		return fmt.Errorf("dispatch input on %s: %w", sel, err)
	}
	if !ok {
		return fmt.Errorf("no element %s", sel)
	}
	return nil
}

// PressEscape sends the Escape key to the page.
func (s *Session) PressEscape() error {
	if err := s.run(s.timeout, chromedp.KeyEvent(kb.Escape)); err != nil {
		return fmt.Errorf("press escape: %w", err)
	}
	return nil
}

// ScrollIntoView scrolls the first match of sel into the viewport.
func (s *Session) ScrollIntoView(sel string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.scrollIntoView({behavior: "instant", block: "center"});
		return true;
	})()`, sel)
	var ok bool
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &ok)); err != nil {
		return fmt.Errorf("scroll to %s: %w", sel, err)
	}
	if !ok {
		return fmt.Errorf("no element %s", sel)
	}
	return nil
}

// SetViewport resizes the emulated viewport.
func (s *Session) SetViewport(width, height int) error {
	if err := s.run(s.timeout, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		return fmt.Errorf("set viewport %dx%d: %w", width, height, err)
	}
	return nil
}

// ClearCookies drops all browser cookies.
func (s *Session) ClearCookies() error {
	if err := s.run(s.timeout, network.ClearBrowserCookies()); err != nil {
		return fmt.Errorf("clear cookies: %w", err)
	}
	return nil
}

// CaptureScreenshot writes a full-viewport PNG to path.
func (s *Session) CaptureScreenshot(path string) error {
	var buf []byte
	if err := s.run(s.timeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	return os.WriteFile(path, buf, 0o644)
}

// ExpectResponse runs trigger and returns the HTTP status of the first
// in-flight response whose URL contains urlSubstr. Used to assert server
// behavior that the UI swallows, like a rejected password change.
func (s *Session) ExpectResponse(urlSubstr string, timeout time.Duration, trigger func() error) (int64, error) {
	if err := s.run(s.timeout, network.Enable()); err != nil {
		return 0, fmt.Errorf("enable network events: %w", err)
	}

	listenCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	statusCh := make(chan int64, 1)
	chromedp.ListenTarget(listenCtx, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || !strings.Contains(resp.Response.URL, urlSubstr) {
			return
		}
		select {
		case statusCh <- resp.Response.Status:
		default:
		}
	})

	if err := trigger(); err != nil {
		return 0, err
	}

	select {
	case status := <-statusCh:
		return status, nil
	case <-time.After(timeout):
		return 0, fmt.Errorf("no response matching %q within %s", urlSubstr, timeout)
	case <-s.ctx.Done():
		return 0, s.ctx.Err()
	}
}
