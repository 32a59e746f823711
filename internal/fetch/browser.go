package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Session is a single headless Chrome page scoped to one target URL. Each
// item gets a fresh session so that one page's misbehavior cannot corrupt
// the next item's state; the low per-run item cap makes pooling pointless.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

// NewSession launches a headless browser bounded by timeout. The caller
// must Close it.
func NewSession(parent context.Context, timeout time.Duration) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	ctx, cancelTimeout := context.WithTimeout(tabCtx, timeout)

	s := &Session{
		ctx:     ctx,
		cancels: []context.CancelFunc{cancelTimeout, cancelTab, cancelAlloc},
	}

	// Start the browser eagerly so launch failures surface here rather
	// than on the first navigation.
	if err := chromedp.Run(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	return s, nil
}

// Close tears down the page and the browser process.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// Navigate loads url and waits for the document body to exist.
func (s *Session) Navigate(url string) error {
	err := chromedp.Run(s.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// WaitQuiet waits until the page looks network-idle: the document is
// complete and the resource-entry count stops growing between polls. The
// wait is bounded and never fails; on timeout the caller proceeds with
// whatever state the page reached.
func (s *Session) WaitQuiet(bound time.Duration) {
	const poll = 250 * time.Millisecond
	deadline := time.Now().Add(bound)
	last := -1

	for time.Now().Before(deadline) {
		var state struct {
			Complete  bool `json:"complete"`
			Resources int  `json:"resources"`
		}
		expr := `({complete: document.readyState === "complete",
		          resources: performance.getEntriesByType("resource").length})`
		if err := chromedp.Run(s.ctx, chromedp.Evaluate(expr, &state)); err != nil {
			return
		}
		if state.Complete && state.Resources == last {
			return
		}
		last = state.Resources
		if err := chromedp.Run(s.ctx, chromedp.Sleep(poll)); err != nil {
			return
		}
	}
}

// WaitFor polls a JavaScript boolean expression until it is true or the
// bound elapses. Timeouts are non-fatal; extraction proceeds regardless.
func (s *Session) WaitFor(expr string, bound time.Duration) {
	const poll = 100 * time.Millisecond
	deadline := time.Now().Add(bound)

	for time.Now().Before(deadline) {
		var ok bool
		if err := chromedp.Run(s.ctx, chromedp.Evaluate(expr, &ok)); err != nil {
			return
		}
		if ok {
			return
		}
		if err := chromedp.Run(s.ctx, chromedp.Sleep(poll)); err != nil {
			return
		}
	}
}

// HTML returns the live DOM serialized as markup.
func (s *Session) HTML() (string, error) {
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading DOM: %w", err)
	}
	return html, nil
}

// Eval evaluates a JavaScript expression and unmarshals its result.
func (s *Session) Eval(expr string, out interface{}) error {
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(expr, out)); err != nil {
		return fmt.Errorf("evaluating script: %w", err)
	}
	return nil
}
